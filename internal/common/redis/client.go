package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"wisefido-nurse/internal/common/config"

	"github.com/go-redis/redis/v8"
)

// Client Redis客户端类型别名
type Client = redis.Client

// NewRedisClient 创建Redis客户端
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping 测试Redis连接
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// PublishJSONToStream 发布 JSON 消息到 Redis Streams
// 消息字段: kind / data(JSON) / timestamp(unix 秒)
// maxLen > 0 时使用近似裁剪（MAXLEN ~）限制 stream 长度
func PublishJSONToStream(ctx context.Context, client *redis.Client, stream, kind string, data any, maxLen int64) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal stream payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"kind":      kind,
			"data":      string(payload),
			"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}

	return client.XAdd(ctx, args).Result()
}
