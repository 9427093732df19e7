package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the tracker API service.
type Config struct {
	Addr             string        `env:"ADDR,default=:8080"`
	DBDSN            string        `env:"DB_DSN,required"`
	JWTSigningKey    string        `env:"JWT_SIGNING_KEY,required"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL,default=1h"`
	OTPTTL           time.Duration `env:"OTP_TTL,default=10m"`
	OTPSweepInterval time.Duration `env:"OTP_SWEEP_INTERVAL,default=15m"`
	SMTPHost         string        `env:"SMTP_HOST"`
	SMTPPort         int           `env:"SMTP_PORT,default=587"`
	SMTPUser         string        `env:"SMTP_USER"`
	SMTPPassword     string        `env:"SMTP_PASS"`
	SMTPFrom         string        `env:"SMTP_FROM"`
	NATSURL          string        `env:"NATS_URL"`
	OTLPEndpoint     string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins   []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
