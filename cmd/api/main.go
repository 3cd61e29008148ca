package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/nursery-checkout/internal/app"
	"github.com/imrishuroy/nursery-checkout/internal/config"
	"github.com/imrishuroy/nursery-checkout/internal/handlers"
	"github.com/imrishuroy/nursery-checkout/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(context.Background(), cfg, zl)
	if err != nil {
		zl.Fatal("failed to wire app", zap.Error(err))
	}

	r := handlers.NewRouter(handlers.HandlerConfig{
		Checkout:    a.Checkout,
		PaymentLogs: a.PaymentLogs,
		Auth:        a.Auth,
		Logger:      zl,
	})

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.RunLocal {
		addr := ":" + cfg.Port
		zl.Info("running local server", zap.String("addr", addr))
		if err := r.Run(addr); err != nil {
			zl.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
