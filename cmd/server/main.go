package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mikeboe/search-agent/pkg/clients"
	"github.com/mikeboe/search-agent/pkg/config"
	"github.com/mikeboe/search-agent/pkg/mcpserver"
	"github.com/mikeboe/search-agent/pkg/research"
	"github.com/mikeboe/search-agent/pkg/research/tools"
	"github.com/mikeboe/search-agent/pkg/server"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx := context.Background()
	gen := clients.NewGenerator(ctx, cfg)

	engine, err := research.NewEngine(research.ConfigFrom(cfg), tools.NewProviders(cfg), gen)
	if err != nil {
		log.Fatalf("Failed to init engine: %v", err)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engine.Metrics = research.NewMetrics(reg)

	// Initialize Service & Handler
	svc := server.NewService(engine)
	mcp := mcpserver.NewServer(engine, "0.1.0")
	handler := server.NewHandler(svc, mcp.HTTPHandler(), promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Web Server Setup
	r := gin.Default()

	// CORS Setup
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Allow all for dev
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id"},
		ExposeHeaders:    []string{"Content-Length", "Mcp-Session-Id"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r)

	fmt.Printf("Server starting on port %s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
