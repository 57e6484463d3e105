package workflow

import (
	"fmt"
	"strings"

	"wisefido-nurse/internal/domain"

	"go.uber.org/zap"
)

// ReadingsInput 护士提交的体征表单
type ReadingsInput struct {
	HeartRate               *int     `json:"heart_rate"`
	BloodPressure           string   `json:"blood_pressure"`
	Notes                   string   `json:"notes"`
	MedicationsAdministered []string `json:"medications_administered"`
}

// RecordReadings 记录体征并完成任务（In Progress → Completed）
// 任务必须进行中且已验证房间，否则返回 ErrInvalidTransition
func (w *Workflow) RecordReadings(taskID string, in ReadingsInput) (domain.Task, error) {
	readings := buildReadings(in)

	updated, err := w.store.ModifyTask(taskID, func(t *domain.Task) error {
		if !CanRecordVitals(*t) {
			return fmt.Errorf("%w: vitals require an in-progress, room-verified task (status %s)",
				domain.ErrInvalidTransition, t.Status)
		}

		for _, name := range readings.MedicationsAdministered {
			if t.HasMedication(name) {
				continue
			}
			if w.cfg.StrictMedications {
				return fmt.Errorf("%w: %s", domain.ErrMedicationNotPrescribed, name)
			}
			w.logger.Warn("Administered medication not in task prescription",
				zap.String("task_id", t.ID),
				zap.String("medication", name),
			)
		}

		now := w.sched.Now()
		if now.Before(t.CreatedAt) {
			now = t.CreatedAt
		}
		t.Status = domain.TaskStatusCompleted
		t.CompletedAt = &now
		t.Readings = readings
		return nil
	})
	if err != nil {
		return domain.Task{}, err
	}

	w.logger.Info("Task completed", zap.String("task_id", taskID))
	return updated, nil
}

// Cancel 取消 Pending / In Progress 任务
func (w *Workflow) Cancel(taskID string) (domain.Task, error) {
	return w.store.ModifyTask(taskID, func(t *domain.Task) error {
		if t.Status.Terminal() {
			return fmt.Errorf("%w: %s task cannot be cancelled", domain.ErrInvalidTransition, t.Status)
		}
		t.Status = domain.TaskStatusCancelled
		return nil
	})
}

// 空字符串视为未填写
func buildReadings(in ReadingsInput) *domain.TaskReadings {
	r := &domain.TaskReadings{
		BloodPressure:           strings.TrimSpace(in.BloodPressure),
		Notes:                   strings.TrimSpace(in.Notes),
		MedicationsAdministered: []string{},
	}
	if in.HeartRate != nil {
		hr := *in.HeartRate
		r.HeartRate = &hr
	}
	for _, m := range in.MedicationsAdministered {
		if m = strings.TrimSpace(m); m != "" {
			r.MedicationsAdministered = append(r.MedicationsAdministered, m)
		}
	}
	return r
}
