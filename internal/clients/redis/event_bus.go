package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/studentrisk-backend/internal/platform/logger"
)

const (
	EventPredictionCreated = "prediction.created"
	EventPredictionUpdated = "prediction.updated"
)

// Event announces a stored prediction so monitoring views can refresh.
type Event struct {
	Type                 string    `json:"type"`
	ID                   string    `json:"id"`
	Outcome              string    `json:"outcome"`
	HasRealProbabilities bool      `json:"has_real_probabilities"`
	At                   time.Time `json:"at"`
	RequestID            string    `json:"request_id,omitempty"`
}

type EventBus interface {
	Publish(ctx context.Context, ev Event) error
	StartForwarder(ctx context.Context, onEvent func(ev Event)) error
	Ping(ctx context.Context) error
	Close() error
}

type eventBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewEventBus connects to redis. An empty addr yields a bus that drops
// everything, so events stay optional.
func NewEventBus(log *logger.Logger, addr, channel string) (EventBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		log.Info("REDIS_ADDR not set; prediction events disabled")
		return Noop{}, nil
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "predictions"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &eventBus{
		log:     log.With("service", "RedisEventBus", "channel", channel),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *eventBus) Publish(ctx context.Context, ev Event) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *eventBus) StartForwarder(ctx context.Context, onEvent func(ev Event)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				ev, err := DecodeEvent(m.Payload)
				if err != nil {
					b.log.Warn("bad prediction event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}

func (b *eventBus) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

func (b *eventBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

func DecodeEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	if ev.Type == "" || ev.ID == "" {
		return Event{}, fmt.Errorf("event missing type or id")
	}
	return ev, nil
}

// Noop drops events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) StartForwarder(ctx context.Context, _ func(ev Event)) error {
	return fmt.Errorf("prediction events are disabled (set REDIS_ADDR)")
}
func (Noop) Ping(context.Context) error { return nil }
func (Noop) Close() error              { return nil }
