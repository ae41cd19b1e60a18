// Package mcp exposes the triage service as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/crisis-triage-mcp-server/internal/domain"
	"github.com/crisis-triage-mcp-server/internal/service"
)

// Transport types
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// ProtocolResourceURI serves the tier thresholds and action lists.
const ProtocolResourceURI = "triage://protocol/actions"

// Server represents the crisis triage MCP server
type Server struct {
	config    domain.MCPConfig
	triage    *service.TriageService
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance with every tool registered.
func NewServer(config domain.MCPConfig, triage *service.TriageService, logger *logrus.Logger) *Server {
	if config.ServerName == "" {
		config.ServerName = "crisis-triage-mcp-server"
	}
	if config.ServerVersion == "" {
		config.ServerVersion = "v0.1.0"
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    config.ServerName,
		Version: config.ServerVersion,
	}, nil)

	s := &Server{
		config:    config,
		triage:    triage,
		mcpServer: mcpServer,
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	logger.WithFields(logrus.Fields{
		"server_name": config.ServerName,
		"version":     config.ServerVersion,
	}).Info("MCP server initialized")
	return s
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Start runs the configured transport until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	switch s.config.TransportType {
	case "", TransportStdio:
		s.logger.WithField("transport_type", TransportStdio).Info("Starting MCP server")
		if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil
	case TransportHTTP:
		return s.serveHTTP(ctx)
	default:
		return fmt.Errorf("unsupported MCP transport: %s", s.config.TransportType)
	}
}

// HTTPHandler returns the streamable HTTP handler for this server.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

func (s *Server) serveHTTP(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.HTTPHost, strconv.Itoa(s.config.HTTPPort))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(logrus.Fields{
			"transport_type": TransportHTTP,
			"addr":           addr,
		}).Info("Starting MCP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("MCP HTTP transport failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

type protocolTier struct {
	Tier      string   `json:"tier"`
	Threshold string   `json:"threshold"`
	Actions   []string `json:"actions"`
}

var tierThresholds = map[domain.RiskTier]string{
	domain.RiskTierCritical: "> 70",
	domain.RiskTierHigh:     ">= 50",
	domain.RiskTierMedium:   ">= 30",
	domain.RiskTierLow:      "< 30",
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         ProtocolResourceURI,
		Name:        "triage-protocol",
		Description: "Composite score thresholds and clinical actions per risk tier",
		MIMEType:    "application/json",
	}, s.readProtocol)
}

func (s *Server) readProtocol(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	tiers := make([]protocolTier, 0, len(tierThresholds))
	for tier := domain.RiskTierCritical; tier >= domain.RiskTierLow; tier-- {
		tiers = append(tiers, protocolTier{
			Tier:      tier.String(),
			Threshold: tierThresholds[tier],
			Actions:   service.ResolveActions(tier),
		})
	}

	data, err := json.Marshal(tiers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode protocol: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      ProtocolResourceURI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
