package workflow

import (
	"context"
	"fmt"
	"strings"

	"wisefido-nurse/internal/domain"
	"wisefido-nurse/internal/scheduler"

	"go.uber.org/zap"
)

// Verify 验证护士是否在任务所在房间
//
// 成功时任务原子地 Pending → In Progress 并置 QRVerified，changed 为 true；
// 已经验证过的进行中任务再次验证成功直接返回，changed 为 false。
// 不匹配返回 ErrVerificationMismatch，状态不变，可以重试。
// ctx 在扫码延迟结束前取消时放弃本次尝试，不修改状态。
func (w *Workflow) Verify(ctx context.Context, taskID, payload string) (domain.Task, bool, error) {
	current, ok := w.store.GetTaskByID(taskID)
	if !ok {
		return domain.Task{}, false, fmt.Errorf("task or room data is missing: %w", domain.ErrTaskNotFound)
	}
	room, ok := w.store.GetRoomByID(current.RoomID)
	if !ok {
		return domain.Task{}, false, fmt.Errorf("task or room data is missing: %w", domain.ErrRoomNotFound)
	}

	if err := scheduler.Wait(ctx, w.sched, w.cfg.ScanDelay); err != nil {
		return domain.Task{}, false, err
	}

	if !w.matches(room, payload) {
		w.logger.Info("Room verification failed",
			zap.String("task_id", taskID),
			zap.String("room_id", room.ID),
			zap.String("mode", string(w.cfg.Mode)),
		)
		return domain.Task{}, false, domain.ErrVerificationMismatch
	}

	var changed bool
	updated, err := w.store.ModifyTask(taskID, func(t *domain.Task) error {
		if t.Status == domain.TaskStatusInProgress && t.QRVerified {
			return nil
		}
		if t.Status != domain.TaskStatusPending {
			return fmt.Errorf("%w: cannot verify %s task", domain.ErrInvalidTransition, t.Status)
		}
		t.Status = domain.TaskStatusInProgress
		t.QRVerified = true
		changed = true
		return nil
	})
	if err != nil {
		return domain.Task{}, false, err
	}

	w.logger.Info("Room verified",
		zap.String("task_id", taskID),
		zap.String("room_id", room.ID),
		zap.Bool("changed", changed),
	)
	return updated, changed, nil
}

func (w *Workflow) matches(room domain.Room, payload string) bool {
	switch w.cfg.Mode {
	case VerifyModePayload:
		return strings.TrimSpace(payload) == room.QRCodeValue
	default:
		return w.random() < w.cfg.ScanSuccessRate
	}
}
