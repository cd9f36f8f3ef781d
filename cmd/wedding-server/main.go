package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"wedding-invitation/internal/blob"
	"wedding-invitation/internal/config"
	"wedding-invitation/internal/handler"
	"wedding-invitation/internal/logging"
	"wedding-invitation/internal/metrics"
	"wedding-invitation/internal/server"
	"wedding-invitation/internal/storage"
	"wedding-invitation/internal/whatsapp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wedding-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := config.LoadDotEnv()
	cfg := config.LoadConfig()

	log := logging.New(cfg.LogLevel, cfg.LogPretty)
	if envErr != nil {
		log.Warn().Err(envErr).Msg("Ignoring .env file")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		m        *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
		gatherer = reg
	}

	store, err := blob.Open(ctx, cfg.BlobConfig())
	if err != nil {
		return err
	}
	log.Info().Str("backend", cfg.BlobBackend).Msg("Blob store opened")

	st := storage.NewStorage(blob.Instrument(store, m), log, append(cfg.StorageOptions(), storage.WithMetrics(m))...)
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close blob store")
		}
	}()

	var notifier handler.Notifier = handler.NoopNotifier{}
	if cfg.WhatsAppEnabled {
		wa, err := startWhatsApp(ctx, cfg, st, m, log)
		if err != nil {
			return err
		}
		defer wa.Disconnect()
		notifier = wa
	}

	h := handler.New(st, notifier, handler.Config{PublicBaseURL: cfg.PublicBaseURL}, m, log)
	srv := server.New(server.Config{
		Addr:            cfg.HTTPAddr,
		CORSOrigins:     cfg.CORSOrigins,
		BodyLimit:       cfg.BodyLimit,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		RequestTimeout:  cfg.RequestTimeout,
	}, h, st, m, gatherer, log)

	return srv.Run(ctx)
}

func startWhatsApp(ctx context.Context, cfg *config.Config, st *storage.Storage, m *metrics.Metrics, log zerolog.Logger) (*whatsapp.Service, error) {
	waCfg := cfg.WhatsAppConfig()
	wa, err := whatsapp.NewService(ctx, waCfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize WhatsApp: %w", err)
	}

	replies := whatsapp.NewReplyHandler(st.Invitations, st.RSVPs, wa, wa, waCfg.Wedding, m, log)
	wa.SetMessageHandler(replies.HandleMessage)

	log.Info().Msg("Connecting to WhatsApp...")
	if err := wa.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to WhatsApp: %w", err)
	}
	return wa, nil
}
