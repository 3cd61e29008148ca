package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/imrishuroy/nursery-checkout/internal/app"
	"github.com/imrishuroy/nursery-checkout/internal/config"
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

	a, err := app.New(context.Background(), cfg, zl)
	if err != nil {
		zl.Fatal("failed to wire app", zap.Error(err))
	}
	p := NewProcessor(a.Checkout, zl)

	// If RUN_LOCAL=true, process a single delivery read from LOCAL_SQS_BODY.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			b, _ := json.Marshal(WebhookDelivery{Payload: `{"event":"ping"}`})
			body = string(b)
		}
		resp, err := p.Handle(context.Background(), events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: body}},
		})
		if err != nil || len(resp.BatchItemFailures) > 0 {
			zl.Fatal("local delivery failed", zap.Error(err), zap.Int("failures", len(resp.BatchItemFailures)))
		}
		return
	}

	lambda.Start(p.Handle)
}
