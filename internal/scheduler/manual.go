package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Manual 手动推进时间的调度器（测试及回放使用）
type Manual struct {
	mu   sync.Mutex
	now  time.Time
	seq  int
	jobs []*manualJob
}

type manualJob struct {
	at        time.Time
	seq       int
	ctx       context.Context
	fn        func()
	cancelled bool
}

// NewManual 以 start 为初始时间创建
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now 当前（虚拟）时间
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// After 注册任务；d <= 0 时立即同步执行
func (m *Manual) After(ctx context.Context, d time.Duration, fn func()) func() {
	if ctx.Err() != nil {
		return func() {}
	}
	if d <= 0 {
		fn()
		return func() {}
	}

	m.mu.Lock()
	m.seq++
	j := &manualJob{at: m.now.Add(d), seq: m.seq, ctx: ctx, fn: fn}
	m.jobs = append(m.jobs, j)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		j.cancelled = true
		m.mu.Unlock()
	}
}

// Advance 推进时间并执行到期任务（按到期时间、注册顺序）
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	var due, rest []*manualJob
	for _, j := range m.jobs {
		switch {
		case j.cancelled || j.ctx.Err() != nil:
		case !j.at.After(m.now):
			due = append(due, j)
		default:
			rest = append(rest, j)
		}
	}
	m.jobs = rest
	m.mu.Unlock()

	sort.Slice(due, func(a, b int) bool {
		if due[a].at.Equal(due[b].at) {
			return due[a].seq < due[b].seq
		}
		return due[a].at.Before(due[b].at)
	})
	for _, j := range due {
		j.fn()
	}
}

// Pending 尚未触发且未取消的任务数
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if !j.cancelled && j.ctx.Err() == nil {
			n++
		}
	}
	return n
}
