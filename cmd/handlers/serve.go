package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clarify/internal/analyse"
	"clarify/internal/auth"
	"clarify/internal/config"
	"clarify/internal/email"
	"clarify/internal/fetch"
	"clarify/internal/llm"
	"clarify/internal/logger"
	"clarify/internal/server"
	"clarify/internal/store"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command for starting the HTTP API
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Clarify HTTP API",
		Long: `Start the Clarify backend.

The server provides:
  • POST /api/analyse for share-extension clients
  • User and device history endpoints
  • The email verification-code sign-in flow
  • Health check and Prometheus metrics endpoints

Examples:
  # Start on the configured port (default 8080)
  clarify serve

  # Start on a custom port
  clarify serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	log := logger.Get()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	log.Info("Opening database", "dataDir", cfg.Database.DataDir)
	st, err := store.New(cfg.Database.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	llmClient, err := llm.NewClient(ctx, cfg.AI.Gemini)
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w\n\n"+
			"Set GEMINI_API_KEY (or ai.gemini.api_key in .clarify.yaml).", err)
	}

	authSvc, err := auth.NewService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w\n\n"+
			"Set JWT_SECRET (or auth.jwt_secret in .clarify.yaml).", err)
	}

	mailer := email.NewClient(cfg.Email)
	if !mailer.Enabled() {
		log.Warn("No email API key configured, sign-in codes cannot be delivered")
	}

	service := analyse.NewService(fetch.NewClient(nil), llmClient, st, nil)

	srv := server.New(serverCfg, server.Deps{
		Analyser:   service,
		Store:      st,
		Auth:       authSvc,
		Email:      mailer,
		QuotaLimit: cfg.Quota.MaxDeviceRequests,
	})

	serverErrors := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		log.Info("Press Ctrl+C to stop")
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed, forcing close", "error", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server stopped successfully")
	}

	return nil
}
