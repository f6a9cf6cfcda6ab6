package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	DatabaseDSN           string
	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURI     string
	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftRedirectURI  string
	GoogleProjectID       string
	GoogleCredentials     string
	StorageBucket         string
	PubSubTopic           string
	SyncInterval          time.Duration
	SyncKeyword           string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	syncInterval := 15 * time.Minute
	if iv := os.Getenv("SYNC_INTERVAL"); iv != "" {
		if parsed, err := time.ParseDuration(iv); err == nil {
			syncInterval = parsed
		}
	}

	return &Config{
		Port:                  getEnv("PORT", "8080"),
		DatabaseDSN:           getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=invoices port=5432 sslmode=disable"),
		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:     getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/oauth/gmail/callback"),
		MicrosoftClientID:     getEnv("MICROSOFT_CLIENT_ID", ""),
		MicrosoftClientSecret: getEnv("MICROSOFT_CLIENT_SECRET", ""),
		MicrosoftRedirectURI:  getEnv("MICROSOFT_REDIRECT_URI", "http://localhost:8080/api/oauth/outlook/callback"),
		GoogleProjectID:       getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleCredentials:     getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		StorageBucket:         getEnv("STORAGE_BUCKET", "invoice-attachments"),
		PubSubTopic:           getEnv("PUBSUB_TOPIC", "attachment-processing"),
		SyncInterval:          syncInterval,
		SyncKeyword:           getEnv("SYNC_KEYWORD", "invoice"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
