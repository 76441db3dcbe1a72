package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/earnedvalue-backend/internal/app"
	"github.com/yungbote/earnedvalue-backend/internal/config"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

func main() {
	cfg, err := config.Load("", "")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewWithLevel(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to init app", "error", err)
		log.Sync()
		os.Exit(1)
	}
	defer a.Close()

	log.Info("Server starting", "env", cfg.Env, "port", cfg.Server.Port)
	if err := a.Run(ctx); err != nil {
		log.Error("Server stopped with error", "error", err)
		a.Close()
		os.Exit(1)
	}
}
