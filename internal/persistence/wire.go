package persistence

import (
	"fmt"
	"strings"
	"time"

	"wisefido-nurse/internal/domain"
)

// 远端表结构（tasks / emergencies）对应的行

// TaskRow tasks 表的一行
type TaskRow struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Priority    string               `json:"priority"`
	Status      string               `json:"status"`
	PatientID   string               `json:"patient_id,omitempty"`
	Room        string               `json:"room,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt *time.Time           `json:"completed_at"`
	QRVerified  bool                 `json:"qr_verified"`
	Readings    *domain.TaskReadings `json:"readings"`
}

// EmergencyRow emergencies 表的一行
type EmergencyRow struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Room        *string   `json:"room"`
	TriggeredBy string    `json:"triggered_by,omitempty"`
	Status      string    `json:"status"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// 远端占位值：缺少病人/房间时使用
const unknownRef = "unknown"

// StatusToWire 任务状态 → 远端小写形式
func StatusToWire(s domain.TaskStatus) string {
	switch s {
	case domain.TaskStatusInProgress:
		return "in_progress"
	default:
		return strings.ToLower(string(s))
	}
}

// PriorityToWire 优先级 → 远端小写形式
func PriorityToWire(p domain.TaskPriority) string {
	return strings.ToLower(string(p))
}

// TaskRowFromDomain 本地任务 → 远端行
func TaskRowFromDomain(t domain.Task) TaskRow {
	row := TaskRow{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    PriorityToWire(t.Priority),
		Status:      StatusToWire(t.Status),
		PatientID:   t.PatientID,
		Room:        t.RoomID,
		CreatedAt:   t.CreatedAt,
		QRVerified:  t.QRVerified,
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		row.CompletedAt = &at
	}
	if t.Readings != nil {
		r := t.Clone().Readings
		row.Readings = r
	}
	return row
}

// ToDomain 远端行 → 本地任务
// 描述为空时使用标题，缺少病人/房间时使用 "unknown"
func (r TaskRow) ToDomain() (domain.Task, error) {
	status, ok := domain.ParseTaskStatus(r.Status)
	if !ok {
		return domain.Task{}, fmt.Errorf("task %s: unknown status %q", r.ID, r.Status)
	}
	priority, ok := domain.ParseTaskPriority(r.Priority)
	if !ok {
		return domain.Task{}, fmt.Errorf("task %s: unknown priority %q", r.ID, r.Priority)
	}

	t := domain.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    priority,
		Status:      status,
		PatientID:   r.PatientID,
		RoomID:      r.Room,
		CreatedAt:   r.CreatedAt,
		QRVerified:  r.QRVerified,
	}
	if t.Description == "" {
		t.Description = r.Title
	}
	if t.PatientID == "" {
		t.PatientID = unknownRef
	}
	if t.RoomID == "" {
		t.RoomID = unknownRef
	}
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		t.CompletedAt = &at
	}
	if r.Readings != nil {
		readings := *r.Readings
		t.Readings = &readings
		t = t.Clone()
	}
	return t, nil
}

// EmergencyRowFromDomain 本地紧急呼叫 → 远端行
func EmergencyRowFromDomain(e domain.Emergency, triggeredBy string) EmergencyRow {
	row := EmergencyRow{
		ID:          e.ID,
		Type:        e.Type,
		TriggeredBy: triggeredBy,
		Status:      "active",
		Note:        e.Note,
		CreatedAt:   e.Timestamp,
	}
	if row.Type == "" {
		row.Type = domain.DefaultEmergencyType
	}
	if row.Note == "" {
		row.Note = e.Summary()
	}
	if e.Acknowledged {
		row.Status = "acknowledged"
	}
	if e.Location != "" {
		loc := e.Location
		row.Room = &loc
	}
	return row
}

// rowsToTasks 转换快照，无法解析的行跳过并返回其错误
func rowsToTasks(rows []TaskRow) ([]domain.Task, []error) {
	tasks := make([]domain.Task, 0, len(rows))
	var errs []error
	for _, r := range rows {
		t, err := r.ToDomain()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, errs
}
