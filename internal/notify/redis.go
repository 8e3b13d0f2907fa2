package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes lifecycle transitions on a Redis pub/sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

type notification struct {
	VideoID string    `json:"video_id"`
	Status  JobStatus `json:"status"`
}

// NewRedisNotifier returns nil when dsn is empty; notifications are optional.
func NewRedisNotifier(dsn, channel string) *RedisNotifier {
	if dsn == "" {
		return nil
	}
	return &RedisNotifier{
		client:  redis.NewClient(&redis.Options{Addr: dsn}),
		channel: channel,
	}
}

func (r *RedisNotifier) Publish(ctx context.Context, videoID string, status JobStatus) error {
	output, err := json.Marshal(&notification{VideoID: videoID, Status: status})
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, output).Err()
}
