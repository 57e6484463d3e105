package views

import (
	"time"

	"wisefido-nurse/internal/domain"
)

// Summary 首页汇总
type Summary struct {
	Greeting       string       `json:"greeting"`
	PendingCount   int          `json:"pending_count"`
	CompletedToday int          `json:"completed_today"`
	UnreadAlerts   int          `json:"unread_alerts"`
	Suggestion     *domain.Task `json:"suggestion,omitempty"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// Greeting 按本地时间问候：12 点前 Morning，18 点前 Afternoon，其余 Evening
func Greeting(now time.Time) string {
	switch h := now.Local().Hour(); {
	case h < 12:
		return "Good Morning"
	case h < 18:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}

// Suggestion 建议的下一项任务：第一条待处理任务
func Suggestion(tasks []domain.Task) (domain.Task, bool) {
	for _, t := range tasks {
		if t.Status == domain.TaskStatusPending {
			return t, true
		}
	}
	return domain.Task{}, false
}

// BuildSummary 汇总首页数据
func BuildSummary(tasks []domain.Task, alerts []domain.Alert, now time.Time) Summary {
	s := Summary{
		Greeting:       Greeting(now),
		PendingCount:   len(PendingTasks(tasks)),
		CompletedToday: len(CompletedToday(tasks, now)),
		UnreadAlerts:   UnreadCount(alerts),
		GeneratedAt:    now,
	}
	if t, ok := Suggestion(tasks); ok {
		s.Suggestion = &t
	}
	return s
}

// History 任务历史页：已完成任务 + 今日完成数
type History struct {
	Tasks          []domain.Task `json:"tasks"`
	CompletedToday int           `json:"completed_today"`
}

// BuildHistory 今日完成数与首页汇总同样走 CompletedToday
func BuildHistory(tasks []domain.Task, now time.Time) History {
	return History{
		Tasks:          CompletedHistory(tasks),
		CompletedToday: len(CompletedToday(tasks, now)),
	}
}

// Profile 个人资料页
type Profile struct {
	Staff          domain.Staff `json:"staff"`
	CompletedToday int          `json:"completed_today"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

func BuildProfile(staff domain.Staff, tasks []domain.Task, now time.Time) Profile {
	return Profile{
		Staff:          staff,
		CompletedToday: len(CompletedToday(tasks, now)),
		GeneratedAt:    now,
	}
}
