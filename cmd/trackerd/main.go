package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gorm.io/gorm"

	"trackerd/internal/auth"
	"trackerd/internal/config"
	"trackerd/internal/db"
	"trackerd/internal/events"
	"trackerd/internal/httpapi"
	"trackerd/internal/mailer"
	"trackerd/internal/otel"
	"trackerd/internal/service"
	"trackerd/internal/version"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           version.Name,
		Short:         "Issue tracking API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Run schema migrations and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd.Context(), db.Migrate)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert baseline development data and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(cmd.Context(), db.Seed)
			},
		},
	)
	return cmd
}

func withDatabase(ctx context.Context, fn func(context.Context, *gorm.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()
	return fn(ctx, database)
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cleanup, err := otel.Init(ctx, version.Name, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	if err := db.Migrate(ctx, database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	hub := events.NewHub()
	defer hub.Close()

	var pub events.Publisher = hub
	if cfg.NATSURL != "" {
		natsPub, err := events.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer natsPub.Close()
		pub = events.Multi{hub, natsPub}
	}
	pub = events.Counted(pub)

	var mail mailer.Mailer = mailer.LogOnly{}
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSigningKey, cfg.AccessTokenTTL)
	creds := service.NewCredentials(database, mail, tokens, cfg.OTPTTL)
	projects := service.NewProjects(database, pub)
	issues := service.NewIssues(database, pub)

	go sweepOTPs(ctx, creds, cfg.OTPSweepInterval)

	api, err := httpapi.New(httpapi.Options{
		Credentials:    creds,
		Projects:       projects,
		Issues:         issues,
		Tokens:         tokens,
		Hub:            hub,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           otelhttp.NewHandler(api.Routes(), version.Name),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("version", version.Version).Msg("starting trackerd")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
	return nil
}

// sweepOTPs purges expired reset codes; nothing else removes unconsumed rows.
func sweepOTPs(ctx context.Context, creds *service.Credentials, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := creds.SweepExpiredOTPs(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("sweep expired otps")
				continue
			}
			if n > 0 {
				log.Info().Int64("removed", n).Msg("swept expired otps")
			}
		}
	}
}
