package mq

import (
	"context"
	"fmt"
	"strings"

	"github.com/keepsite/apiserver/config"
)

// Publisher defines the broker-agnostic publish operation used for
// content-change events. The app only produces; consumers live in
// other processes.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// NewFromConfig selects a broker by name. An empty backend returns
// (nil, nil): event publishing is simply disabled.
func NewFromConfig(ctx context.Context, cfg config.MQConfig) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		return NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}
