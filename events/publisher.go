// Package events publishes order lifecycle events to Kafka.
// Publishing is best effort: a broker outage must never fail a
// committed checkout, so errors are logged and dropped.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ivlisss/bookstore/model"
)

const Topic = "bookstore.orders"

type OrderEvent struct {
	Type       string            `json:"type"` // order.created | order.status_changed | order.cancelled
	OrderID    int64             `json:"order_id"`
	UserID     int64             `json:"user_id"`
	Status     model.OrderStatus `json:"status"`
	Total      string            `json:"total_amount"`
	OccurredAt time.Time         `json:"occurred_at"`
}

type Publisher struct {
	w   *kafka.Writer
	log *slog.Logger
}

// NewPublisher returns a nil-safe publisher. With an empty broker list
// every Publish is a no-op.
func NewPublisher(brokers string, log *slog.Logger) *Publisher {
	if brokers == "" {
		return &Publisher{log: log}
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Publisher{w: w, log: log}
}

func (p *Publisher) Publish(ctx context.Context, typ string, o *model.Order) {
	if p == nil || p.w == nil {
		return
	}
	ev := OrderEvent{
		Type:       typ,
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		Total:      o.TotalAmount.String(),
		OccurredAt: time.Now().UTC(),
	}
	b, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("marshal order event", "err", err)
		return
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Type),
		Value: b,
	}); err != nil {
		p.log.Error("publish order event", "type", typ, "order_id", o.ID, "err", err)
	}
}

func (p *Publisher) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}
