package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/seatflow/docs"
	"github.com/kirinyoku/seatflow/internal/app"
	"github.com/kirinyoku/seatflow/internal/config"
)

// @title Seatflow API
// @version 1.0
// @description Seat holds, waitlists and checkout-to-invoice for event sessions.
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
