// Package broadcast 把紧急呼叫推送到外部通道（Redis Streams / MQTT）。
// 各通道相互独立：单个通道失败只记录日志，不影响其它通道，也不回传给护士。
package broadcast

import (
	"context"
	"sync"
	"time"

	"wisefido-nurse/internal/domain"

	"go.uber.org/zap"
)

// EventKind 广播事件类型
type EventKind string

const (
	EventTriggered    EventKind = "emergency.triggered"
	EventAcknowledged EventKind = "emergency.acknowledged"
)

// Message 广播消息体
type Message struct {
	Kind         EventKind `json:"kind"`
	EmergencyID  string    `json:"emergency_id"`
	Type         string    `json:"type"`
	Location     string    `json:"location,omitempty"`
	Note         string    `json:"note,omitempty"`
	Summary      string    `json:"summary"`
	Acknowledged bool      `json:"acknowledged"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewMessage 由紧急呼叫构造消息
func NewMessage(kind EventKind, e domain.Emergency) Message {
	return Message{
		Kind:         kind,
		EmergencyID:  e.ID,
		Type:         e.Type,
		Location:     e.Location,
		Note:         e.Note,
		Summary:      e.Summary(),
		Acknowledged: e.Acknowledged,
		Timestamp:    e.Timestamp,
	}
}

// Publisher 单个广播通道
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Name() string
}

// ResultFunc 每个通道发布结束后的回调
type ResultFunc func(channel string, err error)

// Fanout 并发发布到所有通道
type Fanout struct {
	publishers []Publisher
	timeout    time.Duration
	onResult   ResultFunc
	logger     *zap.Logger
}

// NewFanout 创建 Fanout；没有通道时 Broadcast 为空操作
func NewFanout(publishers []Publisher, timeout time.Duration, onResult ResultFunc, logger *zap.Logger) *Fanout {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if onResult == nil {
		onResult = func(string, error) {}
	}
	return &Fanout{publishers: publishers, timeout: timeout, onResult: onResult, logger: logger}
}

// Channels 已配置的通道名称
func (f *Fanout) Channels() []string {
	names := make([]string, 0, len(f.publishers))
	for _, p := range f.publishers {
		names = append(names, p.Name())
	}
	return names
}

// Broadcast 发布到全部通道并等待完成；返回成功的通道数
func (f *Fanout) Broadcast(ctx context.Context, msg Message) int {
	if len(f.publishers) == 0 {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, p := range f.publishers {
		wg.Add(1)
		go func(p Publisher) {
			defer wg.Done()
			err := p.Publish(ctx, msg)
			if err != nil {
				f.logger.Warn("Emergency broadcast failed",
					zap.String("channel", p.Name()),
					zap.String("emergency_id", msg.EmergencyID),
					zap.Error(err),
				)
			} else {
				mu.Lock()
				ok++
				mu.Unlock()
			}
			f.onResult(p.Name(), err)
		}(p)
	}
	wg.Wait()
	return ok
}
