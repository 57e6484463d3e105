// Package scheduler 提供与 context 生命周期绑定的延迟任务。
// 发起方的 context 被取消（或 Scheduler 关闭）后，尚未触发的任务不会再执行。
package scheduler

import (
	"context"
	"sync"
	"time"
)

// Clock 当前时间来源
type Clock interface {
	Now() time.Time
}

// Scheduler 延迟执行 fn；返回的 cancel 可提前取消
type Scheduler interface {
	Clock
	After(ctx context.Context, d time.Duration, fn func()) (cancel func())
}

// Wait 阻塞 d 时长，ctx 先结束则返回 ctx.Err()
func Wait(ctx context.Context, s Scheduler, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	done := make(chan struct{})
	cancel := s.After(ctx, d, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// job 单个延迟任务；done 在锁内置位，"取消" 与 "执行" 只有一个生效
type job struct {
	mu    sync.Mutex
	done  bool
	fn    func()
	timer *time.Timer
	stop  func()
}

func (j *job) fire() {
	j.mu.Lock()
	if j.done {
		j.mu.Unlock()
		return
	}
	j.done = true
	j.mu.Unlock()

	// fn 可能回调自身的 cancel，必须在锁外执行
	j.stop()
	j.fn()
}

func (j *job) cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.done {
		return
	}
	j.done = true
	j.stop()
	if j.timer != nil {
		j.timer.Stop()
	}
}

// TimerScheduler 基于 time.AfterFunc 的实现
type TimerScheduler struct {
	root   context.Context
	cancel context.CancelFunc
}

// NewTimerScheduler 创建调度器；Close 会取消所有未触发的任务
func NewTimerScheduler() *TimerScheduler {
	root, cancel := context.WithCancel(context.Background())
	return &TimerScheduler{root: root, cancel: cancel}
}

// Now 当前时间
func (s *TimerScheduler) Now() time.Time { return time.Now() }

// After 在 d 之后执行 fn，除非 ctx 或调度器先结束
func (s *TimerScheduler) After(ctx context.Context, d time.Duration, fn func()) func() {
	if ctx.Err() != nil || s.root.Err() != nil {
		return func() {}
	}

	j := &job{fn: fn}

	// 注册期间持有锁：AfterFunc 回调中的 cancel 会等待 stop/timer 就绪
	j.mu.Lock()
	stopCaller := context.AfterFunc(ctx, j.cancel)
	stopRoot := context.AfterFunc(s.root, j.cancel)
	j.stop = func() {
		stopCaller()
		stopRoot()
	}
	j.timer = time.AfterFunc(d, j.fire)
	j.mu.Unlock()

	return j.cancel
}

// Close 取消所有未触发的任务
func (s *TimerScheduler) Close() {
	s.cancel()
}
