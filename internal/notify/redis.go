package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeliveryReadyChannel is consumed by the ticket printer and push workers.
const DeliveryReadyChannel = "comanda:delivery-ready"

// BranchChannel is the pub/sub channel carrying a branch's events.
func BranchChannel(branchID uuid.UUID) string {
	return "comanda:branch:" + branchID.String()
}

// Publisher is the part of *redis.Client the publisher uses.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher forwards events to Redis pub/sub so processes outside this
// API (printers, push notifications, other API replicas) can react.
type RedisPublisher struct {
	client Publisher
	log    *zap.Logger
}

func NewRedisPublisher(client Publisher, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, branchID uuid.UUID, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	channel := BranchChannel(branchID)
	receivers, err := p.client.Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	p.log.Debug("event published",
		zap.String("channel", channel),
		zap.String("type", ev.Type),
		zap.Int64("receivers", receivers),
	)
	return nil
}

func (p *RedisPublisher) DeliveryReady(ctx context.Context, ticket DeliveryTicket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	receivers, err := p.client.Publish(ctx, DeliveryReadyChannel, data).Result()
	if err != nil {
		return fmt.Errorf("publish %s: %w", DeliveryReadyChannel, err)
	}
	if receivers == 0 {
		p.log.Warn("delivery ticket had no subscribers",
			zap.String("order_id", ticket.OrderID.String()),
			zap.String("order_number", ticket.OrderNumber),
		)
	}
	return nil
}
