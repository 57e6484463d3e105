package broadcast

import (
	"context"
	"fmt"

	rediscommon "wisefido-nurse/internal/common/redis"
)

// DefaultStream 紧急呼叫 stream 名
const DefaultStream = "nurse:emergencies"

// RedisStreamPublisher 写入 Redis Stream（XADD），供其它服务的消费组读取
type RedisStreamPublisher struct {
	client *rediscommon.Client
	stream string
	maxLen int64
}

var _ Publisher = (*RedisStreamPublisher)(nil)

// NewRedisStreamPublisher 创建 Redis Stream 通道；maxLen <= 0 不裁剪
func NewRedisStreamPublisher(client *rediscommon.Client, stream string, maxLen int64) *RedisStreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *RedisStreamPublisher) Name() string { return "redis" }

// Publish XADD 一条消息
func (p *RedisStreamPublisher) Publish(ctx context.Context, msg Message) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, string(msg.Kind), msg, p.maxLen); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}
