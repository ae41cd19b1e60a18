package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/crisis-triage-mcp-server/internal/app"
	"github.com/crisis-triage-mcp-server/internal/config"
	"github.com/crisis-triage-mcp-server/internal/mcp"
	"github.com/crisis-triage-mcp-server/internal/setup"
)

func main() {
	// Check for setup subcommand
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cli := setup.NewCLI(os.Stdin, os.Stdout)
		if err := cli.Run(os.Args[2:]); err != nil {
			logrus.Fatalf("Setup failed: %v", err)
		}
		return
	}

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

	server := mcp.NewServer(*configManager.GetMCPConfig(), components.Triage, logger)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down MCP server")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
		components.Close()
		os.Exit(1)
	}

	logger.Info("Crisis triage MCP server stopped")
}
