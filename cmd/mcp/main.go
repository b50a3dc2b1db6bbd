package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nadigross/userbase/internal/bootstrap"
	"github.com/nadigross/userbase/internal/mcpserver"
)

func main() {
	rt, err := bootstrap.Start("mcp")
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	cfg := rt.Config

	srv := mcpserver.New(cfg.MCPServerName, cfg.MCPServerVersion, rt.Users, rt.Log)

	httpServer := &http.Server{
		Addr: ":" + cfg.MCPPort,
		Handler: mcpserver.NewHandler(srv, rt.Log, mcpserver.HandlerOptions{
			AllowedOrigins: cfg.AllowedOrigins(),
			Sentry:         rt.SentryEnabled(),
			Health:         rt.Health.Check,
		}),
		ReadTimeout: cfg.ReadTimeout,
		// GET /mcp holds an event stream open; no write timeout
		IdleTimeout: 2 * cfg.WriteTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("mcp server starting", "port", cfg.MCPPort, "name", cfg.MCPServerName)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mcp server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down mcp server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("mcp server shutdown error", "error", err)
	}
	rt.Close()

	slog.Info("mcp server stopped")
}
