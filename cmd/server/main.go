package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/crisis-triage-mcp-server/internal/api"
	"github.com/crisis-triage-mcp-server/internal/app"
	"github.com/crisis-triage-mcp-server/internal/config"
)

func main() {
	configFile := flag.String("config", "", "path to a config file")
	flag.Parse()

	var opts []config.Option
	if *configFile != "" {
		opts = append(opts, config.WithConfigFile(*configFile))
	}

	// Load configuration
	configManager, err := config.NewManager(opts...)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	components, err := app.Build(configManager)
	if err != nil {
		logrus.Fatalf("Failed to initialize triage service: %v", err)
	}
	defer components.Close()
	logger := components.Logger

	cfg := configManager.GetConfig()
	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
	}).Info("Starting crisis triage API server")

	server := api.NewServer(configManager, components.Triage, components.Sentiment, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		components.Close()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
