package slider

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"wisefido-nurse/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHaptics struct {
	mu      sync.Mutex
	intents []Intent
}

func (r *recordingHaptics) Vibrate(i Intent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = append(r.intents, i)
}

func (r *recordingHaptics) count(i Intent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.intents {
		if got == i {
			n++
		}
	}
	return n
}

// track 250 / handle 50：可移动范围 200，末端容差 10 对应 95%
func newTestGesture(t *testing.T) (*Gesture, *recordingHaptics, *scheduler.Manual, *int) {
	t.Helper()
	clock := scheduler.NewManual(time.Now())
	h := &recordingHaptics{}
	commits := 0
	g, err := NewGesture(context.Background(), Config{TrackWidth: 250, HandleWidth: 50}, clock, h, func() { commits++ })
	require.NoError(t, err)
	return g, h, clock, &commits
}

// x 为指针位置，progress 对应手柄位置 = x - 25
func xFor(progress float64) float64 {
	return progress*2 + 25
}

func TestGesture_ProgressAndClamp(t *testing.T) {
	g, h, _, _ := newTestGesture(t)

	g.Down()
	assert.Equal(t, 1, h.count(IntentStart))
	assert.True(t, g.State().Dragging)

	g.Move(xFor(25))
	assert.InDelta(t, 25, g.State().Progress, 0.001)
	assert.InDelta(t, 50, g.State().Position, 0.001)

	g.Move(-100)
	assert.Equal(t, 0.0, g.State().Position)
	assert.Equal(t, 0.0, g.State().Progress)
}

func TestGesture_MoveWithoutDownIgnored(t *testing.T) {
	g, _, _, _ := newTestGesture(t)
	g.Move(xFor(60))
	assert.Equal(t, State{}, g.State())
}

func TestGesture_PulseBands(t *testing.T) {
	g, h, _, _ := newTestGesture(t)
	g.Down()

	g.Move(xFor(52))
	g.Move(xFor(53))
	g.Move(xFor(54))
	assert.Equal(t, 1, h.count(IntentProgress))

	// 55~90 之间重新武装
	g.Move(xFor(70))
	g.Move(xFor(91))
	g.Move(xFor(92))
	assert.Equal(t, 2, h.count(IntentProgress))

	// 回到 50 以下后再次进入区间会再震一次
	g.Move(xFor(10))
	g.Move(xFor(51))
	assert.Equal(t, 3, h.count(IntentProgress))
}

func TestGesture_CommitsExactlyOnce(t *testing.T) {
	g, h, clock, commits := newTestGesture(t)
	g.Down()
	g.Move(xFor(50))
	g.Move(xFor(95))

	st := g.State()
	assert.True(t, st.Unlocked)
	assert.False(t, st.Dragging)
	assert.Equal(t, 1, h.count(IntentSuccess))

	// 解锁后继续移动 / 松开 / 再按下都不生效
	g.Move(xFor(100))
	g.Move(xFor(10))
	g.Up()
	g.Down()
	g.Move(xFor(100))
	assert.True(t, g.State().Unlocked)
	assert.InDelta(t, 95, g.State().Progress, 0.001)

	assert.Equal(t, 0, *commits)
	clock.Advance(199 * time.Millisecond)
	assert.Equal(t, 0, *commits)
	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, *commits)

	clock.Advance(time.Second)
	assert.Equal(t, 1, *commits)
	assert.Equal(t, 1, h.count(IntentSuccess))
	assert.Equal(t, 1, h.count(IntentStart))
}

func TestGesture_UpBeforeCommitResets(t *testing.T) {
	g, _, clock, commits := newTestGesture(t)
	g.Down()
	g.Move(xFor(80))
	g.Up()

	assert.Equal(t, State{}, g.State())
	clock.Advance(time.Second)
	assert.Equal(t, 0, *commits)
}

func TestGesture_CancelledContextSkipsCommit(t *testing.T) {
	clock := scheduler.NewManual(time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	commits := 0
	g, err := NewGesture(ctx, Config{TrackWidth: 250, HandleWidth: 50}, clock, nil, func() { commits++ })
	require.NoError(t, err)

	g.Down()
	g.Move(xFor(100))
	cancel()
	clock.Advance(time.Second)
	assert.Equal(t, 0, commits)
}

func TestNewGesture_InvalidTrack(t *testing.T) {
	_, err := NewGesture(context.Background(), Config{TrackWidth: 50, HandleWidth: 50}, scheduler.NewManual(time.Now()), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTrack)
}

func TestReplay(t *testing.T) {
	g, _, clock, commits := newTestGesture(t)

	st, err := g.Replay(context.Background(), []PointerEvent{
		{Kind: EventDown},
		{Kind: EventMove, X: xFor(40)},
		{Kind: EventMove, X: xFor(97)},
		{Kind: EventUp},
	})
	require.NoError(t, err)
	assert.True(t, st.Unlocked)
	clock.Advance(DefaultSettleDelay)
	assert.Equal(t, 1, *commits)

	g2, _, _, _ := newTestGesture(t)
	_, err = g2.Replay(context.Background(), []PointerEvent{{Kind: "swipe"}})
	assert.Error(t, err)
}

type fakePublisher struct {
	topic   string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(topic string, _ byte, _ bool, payload []byte) error {
	f.topic = topic
	f.payload = payload
	return f.err
}

func TestDeviceHaptics_PublishesPattern(t *testing.T) {
	pub := &fakePublisher{}
	h := NewDeviceHaptics(pub, "nurse/device/n-1/haptics", zap.NewNop())

	h.Vibrate(IntentSuccess)
	assert.Equal(t, "nurse/device/n-1/haptics", pub.topic)

	var msg vibrateMessage
	require.NoError(t, json.Unmarshal(pub.payload, &msg))
	assert.Equal(t, IntentSuccess, msg.Intent)
	assert.Equal(t, []int{100, 50, 100}, msg.PatternMS)

	// 发布失败不 panic 也不上抛
	pub.err = errors.New("offline")
	h.Vibrate(IntentStart)
}
