package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppMode string

	UploadDir      string
	StorageBackend string // "local" or "s3"

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PublicBase string

	JWTSecret    string
	JWTExpiryMin int

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	PublishEvents bool
	EventsChannel string

	AnalysisWorkers   int
	DispatchDelayMin  int // milliseconds before uploaded -> processing
	DispatchDelayMax  int
	ProcessingTimeMin int // milliseconds before processing -> completed
	ProcessingTimeMax int
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:           getEnv("APP_PORT", "8080"),
		AppMode:           getEnv("APP_MODE", "debug"),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		StorageBackend:    getEnv("STORAGE_BACKEND", "local"),
		S3Region:          getEnv("S3_REGION", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3PublicBase:      getEnv("S3_PUBLIC_BASE", ""),
		JWTSecret:         getEnv("JWT_SECRET", "change-me"),
		JWTExpiryMin:      getEnvAsInt("JWT_EXPIRY_MIN", 60),
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvAsInt("REDIS_DB", 0),
		PublishEvents:     getEnvAsBool("PUBLISH_EVENTS", false),
		EventsChannel:     getEnv("EVENTS_CHANNEL", "neuroscan:uploads"),
		AnalysisWorkers:   getEnvAsInt("ANALYSIS_WORKERS", 4),
		DispatchDelayMin:  getEnvAsInt("DISPATCH_DELAY_MIN_MS", 2000),
		DispatchDelayMax:  getEnvAsInt("DISPATCH_DELAY_MAX_MS", 7000),
		ProcessingTimeMin: getEnvAsInt("PROCESSING_TIME_MIN_MS", 5000),
		ProcessingTimeMax: getEnvAsInt("PROCESSING_TIME_MAX_MS", 15000),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
