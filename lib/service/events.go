package service

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// LedgerEvent is the message body published for every committed ledger change.
type LedgerEvent struct {
	Event      string      `json:"event"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// publishLedgerEvent runs after commit. A failed publish is reported but never undoes the write.
func (svc *FinhubService) publishLedgerEvent(ctx context.Context, event string, data interface{}) {
	if svc.RabbitMQClient == nil {
		return
	}
	err := svc.RabbitMQClient.Publish(ctx, event, LedgerEvent{
		Event:      event,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		svc.Logger.Errorf("failed to publish %s: %v", event, err)
		sentry.CaptureException(err)
	}
}
