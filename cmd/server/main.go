package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nadigross/userbase/internal/bootstrap"
	"github.com/nadigross/userbase/internal/handlers"
	"github.com/nadigross/userbase/internal/routes"
)

func main() {
	rt, err := bootstrap.Start("api")
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	cfg := rt.Config

	userHandler := handlers.NewUserHandler(rt.Users)
	healthHandler := handlers.NewHealthHandler(rt.Health)

	app := routes.NewApp(cfg, rt.Log)
	routes.Setup(app, userHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	rt.Close()

	slog.Info("server stopped")
}
