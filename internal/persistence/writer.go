package persistence

import (
	"context"
	"time"

	"wisefido-nurse/internal/domain"

	"go.uber.org/zap"
)

// 写操作名称（日志 / 指标标签）
const (
	OpSaveTask        = "save_task"
	OpInsertEmergency = "insert_emergency"
)

// ResultFunc 每次远端写入结束后的回调（err 为 nil 表示成功）
type ResultFunc func(op string, err error)

type writeJob struct {
	op string
	id string
	fn func(ctx context.Context) error
}

// AsyncWriter 后台串行执行远端写入
// 写入失败只记录日志，不影响本地状态；队列满时丢弃并记录
type AsyncWriter struct {
	remote   Remote
	queue    chan writeJob
	timeout  time.Duration
	onResult ResultFunc
	logger   *zap.Logger
	done     chan struct{}
}

// NewAsyncWriter 创建写入器；需要调用 Run 启动
func NewAsyncWriter(remote Remote, queueSize int, timeout time.Duration, onResult ResultFunc, logger *zap.Logger) *AsyncWriter {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if onResult == nil {
		onResult = func(string, error) {}
	}
	return &AsyncWriter{
		remote:   remote,
		queue:    make(chan writeJob, queueSize),
		timeout:  timeout,
		onResult: onResult,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// SaveTask 排队写入任务
func (w *AsyncWriter) SaveTask(task domain.Task) {
	task = task.Clone()
	w.enqueue(writeJob{op: OpSaveTask, id: task.ID, fn: func(ctx context.Context) error {
		return w.remote.SaveTask(ctx, task)
	}})
}

// InsertEmergency 排队写入紧急呼叫
func (w *AsyncWriter) InsertEmergency(e domain.Emergency) {
	w.enqueue(writeJob{op: OpInsertEmergency, id: e.ID, fn: func(ctx context.Context) error {
		return w.remote.InsertEmergency(ctx, e)
	}})
}

func (w *AsyncWriter) enqueue(job writeJob) {
	select {
	case w.queue <- job:
	default:
		w.logger.Warn("Remote write queue full, dropping write",
			zap.String("op", job.op),
			zap.String("id", job.id),
		)
		w.onResult(job.op, domain.ErrRemoteUnavailable)
	}
}

// Run 处理队列直到 ctx 结束；结束时尽量写完已排队的任务
func (w *AsyncWriter) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case job := <-w.queue:
			w.execute(context.Background(), job)
		}
	}
}

// Done Run 退出后关闭
func (w *AsyncWriter) Done() <-chan struct{} {
	return w.done
}

func (w *AsyncWriter) drain() {
	for {
		select {
		case job := <-w.queue:
			w.execute(context.Background(), job)
		default:
			return
		}
	}
}

func (w *AsyncWriter) execute(parent context.Context, job writeJob) {
	ctx, cancel := context.WithTimeout(parent, w.timeout)
	defer cancel()

	err := job.fn(ctx)
	if err != nil {
		w.logger.Warn("Remote write failed",
			zap.String("backend", w.remote.Name()),
			zap.String("op", job.op),
			zap.String("id", job.id),
			zap.Error(err),
		)
	}
	w.onResult(job.op, err)
}
