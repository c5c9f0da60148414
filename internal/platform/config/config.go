package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures process level configuration.
type Server struct {
	Addr            string        `env:"OT_ADDR" envDefault:":8080"`
	PublicBaseURL   string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	Approval Approval
	Evidence Evidence
	Audit    Audit

	// SeedSampleRequest creates one approved request for the first company on start.
	SeedSampleRequest bool `env:"SEED_SAMPLE_REQUEST" envDefault:"false"`
}

// Approval configures the capability tokens and lifecycle rules.
type Approval struct {
	TokenTTL time.Duration `env:"APPROVAL_TOKEN_TTL" envDefault:"72h"`
	// LockAfterDecision refuses further approval actions once a request is
	// approved or rejected, even when a still-valid token is presented.
	LockAfterDecision bool `env:"LOCK_AFTER_DECISION" envDefault:"false"`
}

// Evidence configures evidence assembly.
type Evidence struct {
	LowAccuracyThresholdM float64 `env:"LOW_ACCURACY_THRESHOLD_M" envDefault:"50"`
}

// Audit configures the platform audit publisher. Zero buffer means synchronous.
type Audit struct {
	BufferSize int `env:"AUDIT_BUFFER_SIZE" envDefault:"0"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Approval.TokenTTL <= 0 {
		return Server{}, fmt.Errorf("APPROVAL_TOKEN_TTL must be positive, got %s", cfg.Approval.TokenTTL)
	}
	return cfg, nil
}
