// Command lambda serves the finalise trigger behind an API Gateway HTTP API.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/planease/engine/internal/app"
	"github.com/planease/engine/pkg/config"
	"github.com/planease/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatal("failed to wire app", zap.Error(err))
	}

	lambda.Start(newHandler(a.Finalise).Handle)
}
