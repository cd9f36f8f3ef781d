package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wedding-invitation/internal/blob"
	"wedding-invitation/internal/config"
	"wedding-invitation/internal/handler"
	"wedding-invitation/internal/logging"
	"wedding-invitation/internal/storage"
	"wedding-invitation/internal/whatsapp"
)

func main() {
	fmt.Println("🎉 Wedding Invitation Admin")
	fmt.Println("===========================")

	envErr := config.LoadDotEnv()
	cfg := config.LoadConfig()

	// keep the menu readable: only warnings and errors reach the terminal
	log := logging.NewWithWriter(os.Stderr, "warn", true)
	if envErr != nil {
		log.Warn().Err(envErr).Msg("Ignoring .env file")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := blob.Open(ctx, cfg.BlobConfig())
	if err != nil {
		fmt.Printf("Error initializing storage: %v\n", err)
		os.Exit(1)
	}
	st := storage.NewStorage(store, log, cfg.StorageOptions()...)
	defer st.Close()

	var sender handler.Notifier = handler.NoopNotifier{}
	if cfg.WhatsAppEnabled {
		wa, err := whatsapp.NewService(ctx, cfg.WhatsAppConfig(), log)
		if err != nil {
			fmt.Printf("Error initializing WhatsApp service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Connecting to WhatsApp...")
		if err := wa.Connect(ctx); err != nil {
			fmt.Printf("Error connecting to WhatsApp: %v\n", err)
			os.Exit(1)
		}
		defer wa.Disconnect()
		sender = wa
		fmt.Println("✅ Connected to WhatsApp!")
	}

	c := &console{
		storage:       st,
		sender:        sender,
		publicBaseURL: cfg.PublicBaseURL,
		in:            bufio.NewScanner(os.Stdin),
		out:           os.Stdout,
	}

	done := make(chan struct{})
	go func() {
		c.run(ctx)
		close(done)
	}()

	select {
	case <-ctx.Done():
		fmt.Println("\n\nShutting down...")
	case <-done:
	}
	fmt.Println("Goodbye! 👋")
}
