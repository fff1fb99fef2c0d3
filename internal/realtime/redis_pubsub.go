package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "scope:"
	publishTimeout = 5 * time.Second
)

// scopePayload is the message published to Redis for cross-instance fanout.
// Origin lets subscribers skip events their own instance already delivered
// locally.
type scopePayload struct {
	Event  EventType       `json:"event"`
	Data   json.RawMessage `json:"data"`
	Origin string          `json:"origin"`
	At     int64           `json:"at"`
}

// RedisPubSub bridges scope broadcasts across instances via Redis pub/sub.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPubSub creates a Redis pub/sub bridge for scope events.
func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, logger: logger}
}

// PublishScopeEvent publishes an event to the scope's Redis channel.
func (r *RedisPubSub) PublishScopeEvent(scope string, event EventType, payload []byte, origin string) error {
	body, err := json.Marshal(scopePayload{Event: event, Data: payload, Origin: origin, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, channelPrefix+scope, body).Err()
}

// SubscribeScope subscribes to a scope's channel, invoking handler for every
// event published by another instance. Returns a cancel function.
func (r *RedisPubSub) SubscribeScope(scope string, origin string, handler func(event EventType, payload []byte)) (cancel func(), err error) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, channelPrefix+scope)
	if _, err = pubsub.Receive(ctx); err != nil {
		cancelCtx()
		return nil, fmt.Errorf("subscribe %s: %w", scope, err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p scopePayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					r.logger.Warn("bad scope payload", zap.String("scope", scope), zap.Error(err))
					continue
				}
				if p.Origin == origin {
					continue
				}
				handler(p.Event, p.Data)
			}
		}
	}()
	return func() { cancelCtx() }, nil
}
