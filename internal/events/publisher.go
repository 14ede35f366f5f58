package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/screwfix-catalog-scraper/internal/models"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeProductScraped is published after a record is persisted
	EventTypeProductScraped EventType = "PRODUCT_SCRAPED"

	DefaultStream = "stream:catalog_products"
)

// RedisClient is the subset of the redis client the publisher needs
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// ProductScrapedPayload is the JSON body carried in the stream entry
type ProductScrapedPayload struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Timestamp time.Time       `json:"timestamp"`
	Product   *models.Product `json:"product"`
}

// Publisher writes product events to a Redis stream. A nil *Publisher
// discards events.
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
		now:    time.Now,
	}
}

// Connect opens a redis client for addr and verifies it with PING. An empty
// addr disables events and returns a nil publisher.
func Connect(ctx context.Context, addr, password string, db int, stream string, logger *slog.Logger) (*Publisher, error) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return NewPublisher(client, stream, logger), nil
}

// PublishProductScraped appends a PRODUCT_SCRAPED entry for p.
func (p *Publisher) PublishProductScraped(ctx context.Context, product *models.Product) error {
	if p == nil || p.redis == nil || product == nil {
		return nil
	}

	payload := ProductScrapedPayload{
		EventID:   uuid.New().String(),
		EventType: string(EventTypeProductScraped),
		Timestamp: p.now().UTC(),
		Product:   product,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_id":   payload.EventID,
			"event_type": payload.EventType,
			"url":        product.URL,
			"sku":        product.SKU,
			"payload":    string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event to stream %s: %w", p.stream, err)
	}

	p.logger.Debug("event published",
		"event_id", payload.EventID,
		"stream_id", id,
		"url", product.URL)
	return nil
}

// Close releases the underlying client.
func (p *Publisher) Close() error {
	if p == nil || p.redis == nil {
		return nil
	}
	return p.redis.Close()
}
