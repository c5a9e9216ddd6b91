package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattjoyce/sigcheck/internal/config"
	"github.com/mattjoyce/sigcheck/internal/delivery"
	"github.com/mattjoyce/sigcheck/internal/lock"
	"github.com/mattjoyce/sigcheck/internal/log"
	"github.com/mattjoyce/sigcheck/internal/metrics"
	"github.com/mattjoyce/sigcheck/internal/storage"
	"github.com/mattjoyce/sigcheck/internal/webhook"
)

const version = "0.1.0"

func main() {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve", "start":
		os.Exit(runServe(args))
	case "sign":
		os.Exit(runSign(args))
	case "verify":
		os.Exit(runVerify(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "deliveries":
		os.Exit(runDeliveriesNoun(args))
	case "version":
		fmt.Printf("sigcheck version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`sigcheck - Contentful webhook signature verifier

Usage:
  sigcheck <command> [flags]

Commands:
  serve                 Start the webhook receiver in foreground
  sign                  Compute the signature for a request
  verify                Check a signature for a request (exit 0 valid, 1 invalid)
  config check          Validate configuration
  deliveries list       Show recently verified deliveries
  deliveries show <id>  Show one recorded delivery
  version               Show version information
  help                  Show this help message

Configuration is read from --config, $SIGCHECK_CONFIG, or ./sigcheck.yaml.
Without a file, CONTENTFUL_SIGNING_SECRET and SIGCHECK_* variables are used.
A .env file in the working directory is loaded first.
`)
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

// loadConfig resolves the config path and loads it, falling back to the
// environment when no file is found.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		path = config.Discover()
	}
	if path == "" {
		cfg, err := config.FromEnv()
		return cfg, "environment", err
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}

func runServe(args []string) int {
	fs := flagSet("serve")
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, source, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("sigcheck starting", "version", version, "config", source)
	for _, w := range config.Warnings(cfg) {
		logger.Error("configuration problem", "detail", w)
	}

	lockPath := lock.PathFor(cfg.State.Path)
	instance, err := lock.Acquire(lockPath)
	if err != nil {
		logger.Error("failed to acquire instance lock (another instance may be running)", "path", lockPath, "error", err)
		return 1
	}
	defer instance.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.State.Path)

	webhookConfig, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		logger.Error("failed to configure webhooks", "error", err)
		return 1
	}
	if webhookConfig.MetricsPath != "" {
		metrics.Register()
	}

	server := webhook.New(webhookConfig, delivery.New(db), log.WithComponent("webhook"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx) }()

	logger.Info("sigcheck running (press Ctrl+C to stop)", "listen", webhookConfig.Listen, "endpoints", len(webhookConfig.Endpoints))

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("webhook server shutdown failed", "error", err)
			return 1
		}
	case err := <-errCh:
		logger.Error("webhook server failed", "error", err)
		return 1
	}

	logger.Info("sigcheck stopped")
	return 0
}
