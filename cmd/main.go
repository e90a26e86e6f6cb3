package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"restate/internal/config"
	"restate/internal/di"
	"restate/internal/shared/logger"
	"restate/internal/shared/metrics"

	"github.com/joho/godotenv"
)

func main() {
	fmt.Println("🏠 Restate Gateway - Starting Application...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger := logger.NewLogger()
	appLogger.Infof("Application configuration loaded (backend driver: %s)", cfg.Backend.Driver)

	metrics.Init()

	// Initialize Dependency Injection Container
	container := di.NewContainer(cfg, appLogger)
	defer func() {
		if err := container.Close(); err != nil {
			appLogger.Errorf("Failed to close container: %v", err)
		}
	}()

	if err := container.Initialize(); err != nil {
		log.Fatalf("Failed to initialize modules: %v", err)
	}
	appLogger.Info("Session and property modules initialized successfully")

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := container.HealthCheck(pingCtx); err != nil {
		appLogger.Warnf("Backend is not reachable yet: %v", err)
	}
	cancel()

	app := container.NewApp()
	container.Start()

	serverAddr := cfg.Server.Addr()
	appLogger.Infof("🌟 All modules initialized. Starting HTTP server on %s", serverAddr)

	// Start server in a goroutine for graceful shutdown
	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- app.Listen(serverAddr)
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			appLogger.Errorf("Server failed to start: %v", err)
			log.Fatalf("Server startup failed: %v", err)
		}
	case sig := <-quit:
		appLogger.Infof("Received shutdown signal: %v", sig)
		fmt.Println("🛑 Shutting down server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Errorf("Server forced to shutdown: %v", err)
		}

		appLogger.Info("HTTP server stopped")
	}

	fmt.Println("✅ Application stopped gracefully.")
}
