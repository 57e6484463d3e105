package domain

import (
	"fmt"
	"reflect"
	"time"
)

// ValidateTransition 校验从 prev 到 next 的任务更新是否符合状态机
//
//	Pending → In Progress → Completed
//	Pending / In Progress → Cancelled
//
// Completed 和 Cancelled 为终态。同状态更新允许，但不变量仍需成立。
func ValidateTransition(prev, next Task) error {
	if prev.ID != next.ID {
		return fmt.Errorf("%w: id changed from %s to %s", ErrInvalidTransition, prev.ID, next.ID)
	}
	if !next.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next.Status)
	}
	if prev.QRVerified && !next.QRVerified {
		return fmt.Errorf("%w: qr verification cannot be revoked", ErrInvalidTransition)
	}

	if prev.Status != next.Status {
		if prev.Status.Terminal() {
			return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, prev.Status)
		}
		if !allowedTransition(prev.Status, next.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev.Status, next.Status)
		}
	} else if prev.Status.Terminal() && !sameTerminalRecord(prev, next) {
		return fmt.Errorf("%w: %s task cannot be modified", ErrInvalidTransition, prev.Status)
	}

	return CheckInvariants(next)
}

// CheckInvariants 校验单个任务自身的不变量
func CheckInvariants(t Task) error {
	completed := t.Status == TaskStatusCompleted
	if completed != (t.CompletedAt != nil) {
		return fmt.Errorf("%w: completed_at must be set iff status is Completed", ErrInvalidTransition)
	}
	if completed != (t.Readings != nil) {
		return fmt.Errorf("%w: readings must be present iff status is Completed", ErrInvalidTransition)
	}
	if (t.Status == TaskStatusInProgress || completed) && !t.QRVerified {
		return fmt.Errorf("%w: %s requires room verification", ErrInvalidTransition, t.Status)
	}
	if completed && t.CompletedAt.Before(t.CreatedAt) {
		return fmt.Errorf("%w: completed_at precedes created_at", ErrInvalidTransition)
	}
	return nil
}

func allowedTransition(from, to TaskStatus) bool {
	switch from {
	case TaskStatusPending:
		return to == TaskStatusInProgress || to == TaskStatusCancelled
	case TaskStatusInProgress:
		return to == TaskStatusCompleted || to == TaskStatusCancelled
	}
	return false
}

// 终态任务只允许 "原样" 写回（例如远端回放同一条记录）
// 时间按 Equal 比较，其余字段（含 readings 内容）必须完全一致
func sameTerminalRecord(prev, next Task) bool {
	if !prev.CreatedAt.Equal(next.CreatedAt) {
		return false
	}
	if (prev.CompletedAt == nil) != (next.CompletedAt == nil) {
		return false
	}
	if prev.CompletedAt != nil && !prev.CompletedAt.Equal(*next.CompletedAt) {
		return false
	}

	a, b := prev.Clone(), next.Clone()
	a.CreatedAt, b.CreatedAt = time.Time{}, time.Time{}
	a.CompletedAt, b.CompletedAt = nil, nil
	return reflect.DeepEqual(a, b)
}
