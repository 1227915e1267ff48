package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"continuity/internal/adapters/filesystem"
	mcpadapter "continuity/internal/adapters/mcp"
	"continuity/internal/adapters/sqlite"
	"continuity/internal/application"
	"continuity/internal/application/commands"
	"continuity/internal/config"
	"continuity/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("continuity-mcp: %v", err)
	}

	stateFlag := flag.String("state", os.Getenv("CONTINUITY_STATE"), "novel state file loaded at startup")
	dbFlag := flag.String("db", cfg.DBPath, "session database")
	metricsFlag := flag.String("metrics", cfg.MetricsAddr, "address serving /metrics (empty disables)")
	flag.Parse()

	// stdout carries the protocol; logging goes to stderr
	logger := logging.Must(cfg.LogLevel)
	defer logger.Sync()

	levels, err := cfg.Levels(logger.Named("powerlevel"))
	if err != nil {
		logger.Fatal("invalid power hierarchies", zap.Error(err))
	}
	engine := application.NewEngine(
		application.WithLogger(logger),
		application.WithLevels(levels),
		application.WithStaleThreshold(cfg.StaleThreshold),
	)
	source := filesystem.NewSource("")

	store := sqlite.NewStore(sqlite.WithLogger(logger.Named("sqlite")))
	if err := store.Open(*dbFlag); err != nil {
		logger.Fatal("failed to open session store", zap.Error(err))
	}
	defer store.Close()

	if *stateFlag != "" {
		result, err := commands.NewLoadCommand(engine, source, store, *stateFlag, true).Execute(context.Background())
		if err != nil {
			logger.Warn("initial load failed", zap.String("path", *stateFlag), zap.Error(err))
		} else {
			logger.Info(result.Message)
		}
	}

	if *metricsFlag != "" {
		go serveMetrics(*metricsFlag, logger)
	}

	mcpServer := server.NewMCPServer(
		"continuity-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	mcpadapter.RegisterValidationTools(mcpServer, engine, source, store)
	mcpadapter.RegisterLevelTools(mcpServer, levels)
	mcpadapter.RegisterGraphTools(mcpServer, engine)

	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal("continuity-mcp stopped", zap.Error(err))
	}
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
