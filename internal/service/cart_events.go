package service

import (
	"context"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
)

const publishTimeout = 2 * time.Second

type EventPublisher interface {
	Publish(ctx context.Context, subject string, message interface{}) error
}

// CartEventMessage is the wire form of a cart mutation event.
type CartEventMessage struct {
	CartKey    string    `json:"cart_key"`
	Seq        uint64    `json:"seq"`
	Type       string    `json:"type"`
	LineItems  int       `json:"line_items"`
	Count      int       `json:"count"`
	Total      float64   `json:"total"`
	Persisted  bool      `json:"persisted"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewCartEventMessage(e Event) CartEventMessage {
	return CartEventMessage{
		CartKey:    e.Key,
		Seq:        e.Seq,
		Type:       string(e.Type),
		LineItems:  len(e.Items),
		Count:      e.Count,
		Total:      e.Total,
		Persisted:  e.PersistErr == nil,
		OccurredAt: e.OccurredAt,
	}
}

// NewEventRelay returns an Observer that publishes every cart event to
// subject. Publish failures are logged and dropped.
func NewEventRelay(pub EventPublisher, subject string, log logger.Logger) Observer {
	return func(e Event) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := pub.Publish(ctx, subject, NewCartEventMessage(e)); err != nil {
			log.Warnf("Failed to publish cart event %s for %s: %v", e.Type, e.Key, err)
		}
	}
}
