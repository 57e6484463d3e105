// Package views 计算各页面使用的只读派生视图。
// 所有函数都是纯函数：输入 store 的副本，不修改入参。
package views

import (
	"fmt"
	"sort"
	"time"

	"wisefido-nurse/internal/domain"
)

// PendingTasks 待处理任务（保持 store 顺序）
func PendingTasks(tasks []domain.Task) []domain.Task {
	return filterTasks(tasks, func(t domain.Task) bool {
		return t.Status == domain.TaskStatusPending
	})
}

// TasksByStatus 按状态过滤；status 为空返回全部
func TasksByStatus(tasks []domain.Task, status domain.TaskStatus) []domain.Task {
	if status == "" {
		return append([]domain.Task(nil), tasks...)
	}
	return filterTasks(tasks, func(t domain.Task) bool { return t.Status == status })
}

// CompletedToday 今天（now 所在本地日历日）完成的任务
func CompletedToday(tasks []domain.Task, now time.Time) []domain.Task {
	return filterTasks(tasks, func(t domain.Task) bool {
		return t.Status == domain.TaskStatusCompleted && t.CompletedAt != nil && SameDay(*t.CompletedAt, now)
	})
}

// CompletedHistory 已完成任务，按完成时间倒序（稳定排序）
func CompletedHistory(tasks []domain.Task) []domain.Task {
	out := filterTasks(tasks, func(t domain.Task) bool {
		return t.Status == domain.TaskStatusCompleted && t.CompletedAt != nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(*out[j].CompletedAt)
	})
	return out
}

// AlertsByType 按类型过滤；filter 为空或 "All" 返回全部
func AlertsByType(alerts []domain.Alert, filter string) ([]domain.Alert, error) {
	if filter == "" || filter == domain.AlertFilterAll {
		return append([]domain.Alert(nil), alerts...), nil
	}
	typ, ok := domain.ParseAlertType(filter)
	if !ok {
		return nil, fmt.Errorf("%w: unknown alert type %q", domain.ErrInvalidArgument, filter)
	}
	out := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out, nil
}

// UnreadCount 未读提醒数量
func UnreadCount(alerts []domain.Alert) int {
	n := 0
	for _, a := range alerts {
		if !a.Read {
			n++
		}
	}
	return n
}

// SameDay a 和 b 是否处于同一个本地日历日
func SameDay(a, b time.Time) bool {
	a, b = a.Local(), b.Local()
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// FormatElapsed 进行中任务的计时显示 mm:ss（超过一小时分钟数继续累加）
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func filterTasks(tasks []domain.Task, keep func(domain.Task) bool) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
