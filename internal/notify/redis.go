package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"impostor/internal/game"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisNotifier publishes room changes on Redis so that every server
// instance can refresh its own websocket subscribers.
type RedisNotifier struct {
	client *redis.Client
	prefix string
	log    logrus.FieldLogger
}

func NewRedisNotifier(client *redis.Client, prefix string, log logrus.FieldLogger) *RedisNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisNotifier{client: client, prefix: prefix, log: log}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (n *RedisNotifier) channel(code string) string {
	return n.prefix + "room:" + code
}

func (n *RedisNotifier) RoomChanged(ctx context.Context, event game.Event) error {
	if event.Code == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	channel := n.channel(event.Code)
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe delivers events published by any instance to handler until ctx
// is done.
func (n *RedisNotifier) Subscribe(ctx context.Context, handler game.Notifier) error {
	pubsub := n.client.PSubscribe(ctx, n.channel("*"))
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis: subscribe: %w", err)
	}
	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			event, err := n.decode(msg)
			if err != nil {
				n.log.WithField("channel", msg.Channel).WithError(err).Warn("dropping malformed room event")
				continue
			}
			if err := handler.RoomChanged(ctx, event); err != nil {
				n.log.WithField("code", event.Code).WithError(err).Warn("room event handler failed")
			}
		}
	}
}

func (n *RedisNotifier) decode(msg *redis.Message) (game.Event, error) {
	var event game.Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		return event, err
	}
	if event.Code == "" {
		event.Code = strings.TrimPrefix(msg.Channel, n.prefix+"room:")
	}
	return event, nil
}
