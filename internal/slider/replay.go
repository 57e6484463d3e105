package slider

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownEvent 未知的指针事件类型
var ErrUnknownEvent = errors.New("unknown pointer event")

// EventKind 指针事件类型
type EventKind string

const (
	EventDown EventKind = "down"
	EventMove EventKind = "move"
	EventUp   EventKind = "up"
)

// PointerEvent 一条录制的指针事件
type PointerEvent struct {
	Kind EventKind `json:"kind"`
	X    float64   `json:"x"`
}

// Replay 依次回放事件，返回最终状态
func (g *Gesture) Replay(ctx context.Context, events []PointerEvent) (State, error) {
	for i, e := range events {
		if err := ctx.Err(); err != nil {
			return g.State(), err
		}
		switch e.Kind {
		case EventDown:
			g.Down()
		case EventMove:
			g.Move(e.X)
		case EventUp:
			g.Up()
		default:
			return g.State(), fmt.Errorf("event %d: %w %q", i, ErrUnknownEvent, e.Kind)
		}
	}
	return g.State(), nil
}
