// Package persistence 提供可插拔的远端持久化。
//
// 本地 store 始终是权威状态；远端写入是尽力而为（见 AsyncWriter），
// 远端变更通过 Watch 通知后由调用方重新拉取快照。
package persistence

import (
	"context"

	"wisefido-nurse/internal/domain"
)

// Remote 远端持久化后端
type Remote interface {
	// SaveTask 写入（upsert）一条任务
	SaveTask(ctx context.Context, task domain.Task) error
	// InsertEmergency 写入一条紧急呼叫
	InsertEmergency(ctx context.Context, e domain.Emergency) error
	// FetchTasks 拉取远端任务快照
	FetchTasks(ctx context.Context) ([]domain.Task, error)
	// Watch 阻塞直到 ctx 结束；远端数据可能变化时调用 onChange
	Watch(ctx context.Context, onChange func()) error
	// Name 后端名称（日志 / 指标）
	Name() string
}

// Nop 未配置远端时使用，所有操作为空
type Nop struct{}

var _ Remote = Nop{}

func (Nop) SaveTask(context.Context, domain.Task) error             { return nil }
func (Nop) InsertEmergency(context.Context, domain.Emergency) error { return nil }
func (Nop) FetchTasks(context.Context) ([]domain.Task, error)       { return nil, nil }
func (Nop) Name() string                                            { return "none" }

// Watch 没有变更来源，只等待 ctx 结束
func (Nop) Watch(ctx context.Context, _ func()) error {
	<-ctx.Done()
	return nil
}
