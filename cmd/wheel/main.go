package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Options_Wheel/internal/app"
	"Options_Wheel/internal/config"
)

func main() {
	config.LoadEnv()

	cfg, err := config.LoadStrategy()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch app.ChooseMode() {
	case app.ModeLive:
		handle, err := app.StartLive(ctx, cfg, app.LiveEndpointsFromEnv())
		if err != nil {
			log.Fatalf("[LIVE] %v", err)
		}
		select {
		case <-ctx.Done():
		case <-handle.Done:
		}
		log.Println("[MAIN] Shutting down...")
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		handle.Stop(shutdown)

	default:
		if _, err := app.RunBacktest(ctx, cfg, app.BacktestFilesFromEnv()); err != nil {
			log.Printf("[BACKTEST] %v", err)
			os.Exit(1)
		}
	}
}
