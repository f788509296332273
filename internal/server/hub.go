package server

import (
	"context"
	"encoding/json"
	"sync"

	"neuroscan/internal/events"
	"neuroscan/pkg/logger"
)

// Hub maintains the set of connected websocket clients and fans status
// events out to them, so browsers see lifecycle transitions without
// polling. It implements events.Publisher.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	logger     *logger.Logger
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

func NewHub(l *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		logger:     l,
		stopChan:   make(chan struct{}),
	}
}

var _ events.Publisher = (*Hub)(nil)

// Run starts the hub loop. Call Stop to shut it down.
func (h *Hub) Run() {
	h.wg.Add(1)
	go h.loop()
}

func (h *Hub) Stop() {
	close(h.stopChan)
	h.wg.Wait()
}

// Publish marshals the event and broadcasts it to every connected client.
// A full broadcast queue drops the event; the HTTP API remains the source
// of truth.
func (h *Hub) Publish(ctx context.Context, event events.StatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
	default:
		if h.logger != nil {
			h.logger.Warnf("websocket broadcast queue full, dropping event for %s", event.UploadID)
		}
	}
	return nil
}

func (h *Hub) loop() {
	defer h.wg.Done()
	for {
		select {
		case <-h.stopChan:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer, disconnect it.
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}
