package domain

import "time"

// DefaultEmergencyType 未指定类型时的紧急事件类型
const DefaultEmergencyType = "Medical Emergency"

// DefaultEmergencyLocation 未指定位置时的默认位置
const DefaultEmergencyLocation = "General Ward"

// Emergency 紧急呼叫记录
// Acknowledged 只会从 false 变为 true 一次
type Emergency struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Note         string    `json:"note,omitempty"`
	Type         string    `json:"type"`
	Location     string    `json:"location,omitempty"`
	Acknowledged bool      `json:"acknowledged"`
}

// Summary 广播用的简短描述，例如 "Medical Emergency - Room 101"
func (e Emergency) Summary() string {
	loc := e.Location
	if loc == "" {
		loc = DefaultEmergencyLocation
	}
	typ := e.Type
	if typ == "" {
		typ = DefaultEmergencyType
	}
	return typ + " - " + loc
}
