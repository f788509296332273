package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"neuroscan/internal/domain/upload"
	"neuroscan/internal/events"
	"neuroscan/internal/repository"
	neuroscan_errors "neuroscan/pkg/errors"
	"neuroscan/pkg/logger"

	"github.com/google/uuid"
)

// AnalysisConfig bounds the randomized stage delays. The dispatch delay
// stands in for queueing latency before analysis starts, the processing
// delay for the analysis compute time.
type AnalysisConfig struct {
	Workers           int
	QueueSize         int
	DispatchDelayMin  time.Duration
	DispatchDelayMax  time.Duration
	ProcessingTimeMin time.Duration
	ProcessingTimeMax time.Duration
}

func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Workers:           4,
		QueueSize:         1024,
		DispatchDelayMin:  2 * time.Second,
		DispatchDelayMax:  7 * time.Second,
		ProcessingTimeMin: 5 * time.Second,
		ProcessingTimeMax: 15 * time.Second,
	}
}

// AnalysisService drives records through uploaded -> processing ->
// completed with a simulated inference stage. Ingestion enqueues one job
// per record; a worker pool dequeues and runs both transitions in order,
// so within one record processing always precedes the terminal state.
// Records progress independently, there is no cross-record ordering.
//
// Jobs are not persisted: records enqueued but not finished when the
// process stops stay in their last written status.
type AnalysisService struct {
	repo      repository.UploadRepository
	publisher events.Publisher
	logger    *logger.Logger
	cfg       AnalysisConfig

	jobs     chan uuid.UUID
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewAnalysisService(repo repository.UploadRepository, publisher events.Publisher, l *logger.Logger, cfg AnalysisConfig) *AnalysisService {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	return &AnalysisService{
		repo:      repo,
		publisher: publisher,
		logger:    l,
		cfg:       cfg,
		jobs:      make(chan uuid.UUID, cfg.QueueSize),
		stopChan:  make(chan struct{}),
	}
}

var _ AnalysisScheduler = (*AnalysisService)(nil)

// Start launches the worker pool.
func (s *AnalysisService) Start() {
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.run()
	}
}

// Stop gracefully shuts down. In-flight jobs are abandoned mid-stage.
func (s *AnalysisService) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

// Enqueue schedules the lifecycle for one record without blocking.
func (s *AnalysisService) Enqueue(id uuid.UUID) error {
	select {
	case s.jobs <- id:
		return nil
	default:
		return neuroscan_errors.ErrQueueFull
	}
}

func (s *AnalysisService) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopChan:
			return
		case id := <-s.jobs:
			s.process(id)
		}
	}
}

func (s *AnalysisService) process(id uuid.UUID) {
	ctx := context.Background()

	if !s.sleep(randomDelay(s.cfg.DispatchDelayMin, s.cfg.DispatchDelayMax)) {
		return
	}
	if !s.transition(ctx, id, upload.StatusProcessing, nil) {
		return
	}

	if !s.sleep(randomDelay(s.cfg.ProcessingTimeMin, s.cfg.ProcessingTimeMax)) {
		return
	}
	s.transition(ctx, id, upload.StatusCompleted, synthesizeResults())
}

func (s *AnalysisService) transition(ctx context.Context, id uuid.UUID, status upload.Status, results *upload.AnalysisResults) bool {
	prev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logf("analysis: record %s: %s", id, err)
		return false
	}

	rec, err := s.repo.UpdateStatus(ctx, id, status, results)
	if err != nil {
		// An external status update may have already moved the record to a
		// terminal state; that wins and the simulated stage steps aside.
		if errors.Is(err, neuroscan_errors.ErrInvalidTransition) {
			return false
		}
		s.logf("analysis: record %s -> %s: %s", id, status, err)
		s.markError(ctx, id)
		return false
	}

	s.publish(ctx, events.StatusEvent{
		UploadID:  id,
		Previous:  prev.Status,
		Status:    rec.Status,
		Timestamp: time.Now(),
	})
	return true
}

func (s *AnalysisService) markError(ctx context.Context, id uuid.UUID) {
	if _, err := s.repo.UpdateStatus(ctx, id, upload.StatusError, nil); err != nil {
		s.logf("analysis: record %s -> error: %s", id, err)
		return
	}
	s.publish(ctx, events.StatusEvent{
		UploadID:  id,
		Status:    upload.StatusError,
		Timestamp: time.Now(),
	})
}

// sleep waits for d or until Stop; returns false when stopping.
func (s *AnalysisService) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.stopChan:
		return false
	}
}

func (s *AnalysisService) publish(ctx context.Context, event events.StatusEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logf("failed to publish status event for %s: %s", event.UploadID, err)
	}
}

func (s *AnalysisService) logf(template string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Errorf(template, args...)
	}
}

func randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}

// synthesizeResults builds the placeholder payload a real inference engine
// would produce. Anomalies and findings come from the same draw, so
// findings are non-empty exactly when anomalies were detected.
func synthesizeResults() *upload.AnalysisResults {
	anomalies := rand.Float64() < 0.3
	findings := []string{}
	if anomalies {
		findings = append(findings, "Potential abnormality detected in region A")
	}
	return &upload.AnalysisResults{
		ConfidenceScore:   rand.Float64() * 100,
		AnomaliesDetected: anomalies,
		Findings:          findings,
		ProcessingTime:    rand.IntN(300) + 60,
	}
}
