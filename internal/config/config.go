package config

import (
	"fmt"

	"github.com/caarlos0/env/v8"
)

// Config holds all runtime configuration, populated from the environment.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseDSN string `env:"DATABASE_DSN"`

	Queue     Queue
	Mail      Mail
	Insights  Insights
	Archive   Archive
	Analytics Analytics
}

// Queue configures the in-process recurring-transaction job queue.
type Queue struct {
	BufferSize  int `env:"QUEUE_BUFFER_SIZE" envDefault:"100"`
	WorkerCount int `env:"QUEUE_WORKER_COUNT" envDefault:"5"`
	// PerUserPerMinute caps how many recurring jobs a single user's
	// templates may consume per minute.
	PerUserPerMinute int `env:"QUEUE_USER_RATE_LIMIT" envDefault:"10"`
}

// Mail configures the transactional email provider.
type Mail struct {
	BaseURL string `env:"MAIL_API_URL" envDefault:"https://api.resend.com"`
	APIKey  string `env:"MAIL_API_KEY"`
	From    string `env:"MAIL_FROM" envDefault:"Pennyflow <noreply@pennyflow.app>"`
}

// Insights configures the generative-text insight client.
type Insights struct {
	Model string `env:"INSIGHTS_MODEL" envDefault:"gemini-2.0-flash"`
	// Disabled skips the external call entirely and always uses the
	// static fallback insights.
	Disabled bool `env:"INSIGHTS_DISABLED" envDefault:"false"`
}

// Archive configures the GCS monthly-report archive. Empty bucket disables it.
type Archive struct {
	Bucket          string `env:"REPORT_ARCHIVE_BUCKET"`
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`
}

// Analytics configures the BigQuery report export. Empty dataset disables it.
type Analytics struct {
	ProjectID       string `env:"ANALYTICS_PROJECT_ID"`
	Dataset         string `env:"ANALYTICS_DATASET"`
	Table           string `env:"ANALYTICS_TABLE" envDefault:"monthly_reports"`
	CredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, nil
}
