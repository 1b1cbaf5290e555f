package main

import (
	"log/slog"
	"os"

	"dog-marker/internal/app"
	"dog-marker/internal/logger"
)

func main() {
	// Bootstrap logger for failures before the config is loaded.
	slog.SetDefault(logger.New(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")))

	application, err := app.New()
	if err != nil {
		slog.Error("dog-marker failed to start", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("dog-marker stopped with error", "error", err)
		os.Exit(1)
	}
}
