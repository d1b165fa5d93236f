package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisRelay shares hub broadcasts between API instances over Redis pub/sub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	log     logrus.FieldLogger
}

// NewRedisRelay publishes on channelPrefix+"broadcast".
func NewRedisRelay(client *redis.Client, channelPrefix string, log logrus.FieldLogger) *RedisRelay {
	return &RedisRelay{client: client, channel: channelPrefix + "broadcast", log: log}
}

func (r *RedisRelay) Publish(ctx context.Context, msg RelayMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Run subscribes and hands every relayed message to deliver until ctx ends.
func (r *RedisRelay) Run(ctx context.Context, deliver func(RelayMessage)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reading.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return errors.New("redis relay channel closed")
			}
			var msg RelayMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				r.log.WithError(err).Warn("discarding malformed relay message")
				continue
			}
			deliver(msg)
		}
	}
}

func (r *RedisRelay) Close() error {
	return r.client.Close()
}
