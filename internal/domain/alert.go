package domain

import (
	"strings"
	"time"
)

// AlertType 提醒类型
type AlertType string

const (
	AlertTypeEmergency AlertType = "Emergency"
	AlertTypeCCTV      AlertType = "CCTV"
	AlertTypeIoT       AlertType = "IoT"
	AlertTypeSystem    AlertType = "System"
)

// AlertFilterAll 提醒列表过滤器的 "全部" 选项
const AlertFilterAll = "All"

// ParseAlertType 解析提醒类型（不区分大小写）
func ParseAlertType(s string) (AlertType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "emergency":
		return AlertTypeEmergency, true
	case "cctv":
		return AlertTypeCCTV, true
	case "iot":
		return AlertTypeIoT, true
	case "system":
		return AlertTypeSystem, true
	}
	return "", false
}

// Alert 提醒
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
	RoomID    string    `json:"room_id,omitempty"`
}
