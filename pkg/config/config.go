package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	FirebaseProject string
	Environment     string
	JWTSecret       string
	JWTExpiry       int64

	// WebSocket tuning
	ReadBufferSize   int
	WriteBufferSize  int
	SendQueueSize    int
	MaxMessageSize   int64
	WriteWait        time.Duration
	PongWait         time.Duration
	MaxContentLength int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		FirebaseProject: getEnv("FIREBASE_PROJECT_ID", ""),
		Environment:     getEnv("ENVIRONMENT", "development"),
		JWTSecret:       getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiry:       getEnvAsInt64("JWT_EXPIRY", 24*60*60), // 24 hours

		ReadBufferSize:   getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
		WriteBufferSize:  getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024),
		SendQueueSize:    getEnvAsInt("WS_SEND_QUEUE_SIZE", 256),
		MaxMessageSize:   getEnvAsInt64("WS_MAX_MESSAGE_SIZE", 8192),
		WriteWait:        getEnvAsDuration("WS_WRITE_WAIT", 10*time.Second),
		PongWait:         getEnvAsDuration("WS_PONG_WAIT", 60*time.Second),
		MaxContentLength: getEnvAsInt("MAX_CONTENT_LENGTH", 2000),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
