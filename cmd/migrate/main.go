package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/planease/engine/internal/app"
	"github.com/planease/engine/pkg/config"
	"github.com/planease/engine/pkg/logger"
)

// migrate creates the item-store tables for the configured backend.
func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("failed to wire app", zap.Error(err))
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		log.Fatal("migration failed", zap.Error(err), zap.String("item_store", cfg.ItemStore))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
