// Package fixtures 提供启动时加载到 store 的静态演示数据。
// 所有时间都相对于传入的 now 计算，便于测试固定时钟。
package fixtures

import (
	"time"

	"wisefido-nurse/internal/domain"
)

// Seed 一次完整的初始数据
type Seed struct {
	Rooms    []domain.Room
	Patients []domain.Patient
	Tasks    []domain.Task
	Alerts   []domain.Alert
}

// RoomQRCode 房间二维码内容
func RoomQRCode(number string) string {
	return "SURGE-MIND-ROOM-" + number
}

// Rooms 病房
func Rooms() []domain.Room {
	numbers := []string{"101", "102", "103", "205"}
	rooms := make([]domain.Room, 0, len(numbers))
	for _, n := range numbers {
		rooms = append(rooms, domain.Room{ID: "room-" + n, Number: n, QRCodeValue: RoomQRCode(n)})
	}
	return rooms
}

// Patients 病人
func Patients() []domain.Patient {
	return []domain.Patient{
		{ID: "p-001", Name: "John Doe", Age: 78, Gender: domain.GenderMale, Condition: "Post-op recovery", RoomNumber: "101"},
		{ID: "p-002", Name: "Jane Smith", Age: 65, Gender: domain.GenderFemale, Condition: "Pneumonia", RoomNumber: "102"},
		{ID: "p-003", Name: "Peter Jones", Age: 55, Gender: domain.GenderMale, Condition: "Stable", RoomNumber: "103"},
		{ID: "p-004", Name: "Mary Williams", Age: 82, Gender: domain.GenderFemale, Condition: "Observation", RoomNumber: "205"},
	}
}

// Tasks 护理任务（task-4 为已完成记录）
func Tasks(now time.Time) []domain.Task {
	completedAt := now.Add(-13000 * time.Second)
	hr := 72

	return []domain.Task{
		{
			ID:          "task-1",
			Title:       "Administer 8am Medication",
			Description: "Administer scheduled morning medication and check for side effects.",
			Priority:    domain.TaskPriorityHigh,
			Status:      domain.TaskStatusPending,
			PatientID:   "p-001",
			RoomID:      "room-101",
			CreatedAt:   now.Add(-time.Hour),
			IoTAlerts:   []string{"Heart rate slightly elevated (95bpm)"},
			Medications: []domain.Medication{
				{Name: "Paracetamol", Dosage: "500mg"},
				{Name: "Amlodipine", Dosage: "10mg"},
			},
		},
		{
			ID:          "task-2",
			Title:       "Check Vital Signs",
			Description: "Record heart rate, blood pressure and general condition.",
			Priority:    domain.TaskPriorityMedium,
			Status:      domain.TaskStatusPending,
			PatientID:   "p-002",
			RoomID:      "room-102",
			CreatedAt:   now.Add(-2 * time.Hour),
		},
		{
			ID:          "task-3",
			Title:       "Assist with Morning Hygiene",
			Description: "Help the patient with washing and changing.",
			Priority:    domain.TaskPriorityLow,
			Status:      domain.TaskStatusPending,
			PatientID:   "p-003",
			RoomID:      "room-103",
			CreatedAt:   now.Add(-3 * time.Hour),
		},
		{
			ID:          "task-4",
			Title:       "Hourly Round & Medication",
			Description: "Hourly check and scheduled pain relief.",
			Priority:    domain.TaskPriorityMedium,
			Status:      domain.TaskStatusCompleted,
			PatientID:   "p-004",
			RoomID:      "room-205",
			CreatedAt:   now.Add(-4 * time.Hour),
			CompletedAt: &completedAt,
			QRVerified:  true,
			Medications: []domain.Medication{{Name: "Ibuprofen", Dosage: "200mg"}},
			Readings: &domain.TaskReadings{
				HeartRate:               &hr,
				BloodPressure:           "122/78",
				Notes:                   "Patient is sleeping soundly. Administered Ibuprofen as scheduled.",
				MedicationsAdministered: []string{"Ibuprofen"},
			},
		},
		{
			ID:           "task-5",
			Title:        "Change IV Drip",
			Description:  "Replace the IV bag and check the cannula site.",
			Priority:     domain.TaskPriorityHigh,
			Status:       domain.TaskStatusPending,
			PatientID:    "p-002",
			RoomID:       "room-102",
			CreatedAt:    now.Add(-10 * time.Minute),
			CCTVInsights: []string{"Patient seems agitated."},
		},
	}
}

// Alerts 提醒（两条未读）
func Alerts(now time.Time) []domain.Alert {
	return []domain.Alert{
		{
			ID: "alert-1", Type: domain.AlertTypeIoT, Title: "Oxygen Drop",
			Message:   "SpO2 for Jane Smith dropped to 91%.",
			Timestamp: now.Add(-2 * time.Minute), RoomID: "room-102",
		},
		{
			ID: "alert-2", Type: domain.AlertTypeCCTV, Title: "Fall Detected",
			Message:   "Possible fall detected in Room 101.",
			Timestamp: now.Add(-5 * time.Minute), RoomID: "room-101",
		},
		{
			ID: "alert-3", Type: domain.AlertTypeSystem, Title: "Schedule Change",
			Message:   "Your shift schedule for next week has been updated.",
			Timestamp: now.Add(-9000 * time.Second), Read: true,
		},
		{
			ID: "alert-4", Type: domain.AlertTypeIoT, Title: "Device Offline",
			Message:   "Bed sensor in Room 103 is offline.",
			Timestamp: now.Add(-24 * time.Hour), Read: true, RoomID: "room-103",
		},
	}
}

// Default 完整初始数据
func Default(now time.Time) Seed {
	return Seed{
		Rooms:    Rooms(),
		Patients: Patients(),
		Tasks:    Tasks(now),
		Alerts:   Alerts(now),
	}
}
