package domain

import (
	"strings"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
	TaskStatusCancelled  TaskStatus = "Cancelled"
)

// Valid 是否为已声明的状态
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// Terminal Completed / Cancelled 之后不允许再变更
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

// ParseTaskStatus 解析状态字符串（兼容 "in_progress" / "inprogress" / 大小写）
func ParseTaskStatus(s string) (TaskStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return TaskStatusPending, true
	case "in progress", "in_progress", "inprogress":
		return TaskStatusInProgress, true
	case "completed":
		return TaskStatusCompleted, true
	case "cancelled", "canceled":
		return TaskStatusCancelled, true
	}
	return "", false
}

// TaskPriority 任务优先级
type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "High"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityLow    TaskPriority = "Low"
)

// ParseTaskPriority 解析优先级（不区分大小写）
func ParseTaskPriority(s string) (TaskPriority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return TaskPriorityHigh, true
	case "medium":
		return TaskPriorityMedium, true
	case "low":
		return TaskPriorityLow, true
	}
	return "", false
}

// Medication 医嘱药品
type Medication struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
}

// TaskReadings 完成任务时记录的体征/用药/备注
type TaskReadings struct {
	HeartRate               *int     `json:"heart_rate,omitempty"`
	BloodPressure           string   `json:"blood_pressure,omitempty"`
	Notes                   string   `json:"notes,omitempty"`
	MedicationsAdministered []string `json:"medications_administered"`
}

// Task 护理任务
// 不变量：Status == Completed ⇔ CompletedAt != nil ⇔ Readings != nil
type Task struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Priority     TaskPriority  `json:"priority"`
	Status       TaskStatus    `json:"status"`
	PatientID    string        `json:"patient_id"`
	RoomID       string        `json:"room_id"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	QRVerified   bool          `json:"qr_verified"`
	CCTVInsights []string      `json:"cctv_insights,omitempty"`
	IoTAlerts    []string      `json:"iot_alerts,omitempty"`
	Medications  []Medication  `json:"medications,omitempty"`
	Readings     *TaskReadings `json:"readings,omitempty"`
}

// Clone 深拷贝（store 对外只返回副本）
func (t Task) Clone() Task {
	c := t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	c.CCTVInsights = cloneStrings(t.CCTVInsights)
	c.IoTAlerts = cloneStrings(t.IoTAlerts)
	if t.Medications != nil {
		c.Medications = append([]Medication(nil), t.Medications...)
	}
	if t.Readings != nil {
		r := *t.Readings
		if t.Readings.HeartRate != nil {
			hr := *t.Readings.HeartRate
			r.HeartRate = &hr
		}
		r.MedicationsAdministered = cloneStrings(t.Readings.MedicationsAdministered)
		c.Readings = &r
	}
	return c
}

// HasMedication 任务医嘱中是否包含该药品
func (t Task) HasMedication(name string) bool {
	for _, m := range t.Medications {
		if m.Name == name {
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
