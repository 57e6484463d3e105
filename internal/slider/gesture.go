// Package slider 实现 "滑动触发紧急呼叫" 手势的状态机。
//
// 手柄位置 = clamp(x - handle/2, 0, track - handle)，
// 进度 = 位置 / (track - handle) * 100。
// 手柄到达末端（容差 CommitTolerance）时解锁一次，SettleDelay 之后回调 OnCommit。
package slider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wisefido-nurse/internal/scheduler"
)

const (
	DefaultCommitTolerance = 10.0
	DefaultSettleDelay     = 200 * time.Millisecond
)

// Config 手势参数（像素）
type Config struct {
	TrackWidth      float64 `json:"track_width"`
	HandleWidth     float64 `json:"handle_width"`
	CommitTolerance float64 `json:"commit_tolerance"`
	SettleDelay     time.Duration
}

// State 手势快照
type State struct {
	Position float64 `json:"position"`
	Progress float64 `json:"progress"`
	Dragging bool    `json:"dragging"`
	Unlocked bool    `json:"unlocked"`
}

// ErrInvalidTrack 轨道宽度必须大于手柄宽度
var ErrInvalidTrack = errors.New("slider track must be wider than its handle")

// Gesture 单次滑动手势；解锁后不再响应任何事件
type Gesture struct {
	cfg      Config
	haptics  Haptics
	sched    scheduler.Scheduler
	ctx      context.Context
	onCommit func()

	mu       sync.Mutex
	state    State
	vibrated bool
}

// NewGesture 创建手势；ctx 结束后未触发的 OnCommit 不再执行
func NewGesture(ctx context.Context, cfg Config, sched scheduler.Scheduler, haptics Haptics, onCommit func()) (*Gesture, error) {
	if cfg.HandleWidth < 0 || cfg.TrackWidth <= cfg.HandleWidth {
		return nil, fmt.Errorf("%w: track %.0f, handle %.0f", ErrInvalidTrack, cfg.TrackWidth, cfg.HandleWidth)
	}
	if cfg.CommitTolerance <= 0 {
		cfg.CommitTolerance = DefaultCommitTolerance
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if haptics == nil {
		haptics = NopHaptics{}
	}
	if onCommit == nil {
		onCommit = func() {}
	}
	return &Gesture{cfg: cfg, haptics: haptics, sched: sched, ctx: ctx, onCommit: onCommit}, nil
}

// State 当前状态
func (g *Gesture) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Down 按下手柄
func (g *Gesture) Down() {
	g.mu.Lock()
	if g.state.Unlocked {
		g.mu.Unlock()
		return
	}
	g.state.Dragging = true
	g.mu.Unlock()

	g.haptics.Vibrate(IntentStart)
}

// Move 指针移动到 x（相对轨道左边缘）
func (g *Gesture) Move(x float64) {
	var intents []Intent
	commit := false

	g.mu.Lock()
	if !g.state.Dragging || g.state.Unlocked {
		g.mu.Unlock()
		return
	}

	maxPos := g.cfg.TrackWidth - g.cfg.HandleWidth
	pos := clamp(x-g.cfg.HandleWidth/2, 0, maxPos)
	progress := pos / maxPos * 100
	g.state.Position = pos
	g.state.Progress = progress

	switch {
	case inPulseBand(progress):
		if !g.vibrated {
			g.vibrated = true
			intents = append(intents, IntentProgress)
		}
	case progress < 50 || (progress > 55 && progress < 90):
		g.vibrated = false
	}

	if pos >= maxPos-g.cfg.CommitTolerance {
		g.state.Unlocked = true
		g.state.Dragging = false
		intents = append(intents, IntentSuccess)
		commit = true
	}
	g.mu.Unlock()

	for _, in := range intents {
		g.haptics.Vibrate(in)
	}
	if commit {
		g.sched.After(g.ctx, g.cfg.SettleDelay, g.onCommit)
	}
}

// Up 松开；未解锁时回到起点
func (g *Gesture) Up() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.Unlocked {
		return
	}
	g.state = State{}
	g.vibrated = false
}

func inPulseBand(p float64) bool {
	return (p > 50 && p < 55) || (p > 90 && p < 95)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
