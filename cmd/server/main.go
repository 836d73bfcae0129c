package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mikeboe/topic-report/pkg/analyst"
	"github.com/mikeboe/topic-report/pkg/clients"
	"github.com/mikeboe/topic-report/pkg/config"
	"github.com/mikeboe/topic-report/pkg/research"
	"github.com/mikeboe/topic-report/pkg/server"
)

const version = "1.0.0"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	llm, err := clients.New(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to init completion client", "error", err)
		os.Exit(1)
	}

	engine, err := research.NewEngine(cfg, llm)
	if err != nil {
		slog.Error("Failed to init engine", "error", err)
		os.Exit(1)
	}

	stockTools := analyst.New(cfg, llm)
	mcpServer := analyst.NewMCPServer(stockTools, version)
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	svc := server.NewService(engine, logger)
	handler := server.NewHandler(svc, mcpHandler)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposeHeaders:    []string{"Content-Length", "Mcp-Session-Id"},
		AllowCredentials: false,
	}))

	handler.RegisterRoutes(r)

	slog.Info("Server starting", "port", cfg.Port, "graph", engine.Graph.Name)
	if err := r.Run(":" + cfg.Port); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
