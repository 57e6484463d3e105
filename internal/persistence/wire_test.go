package persistence

import (
	"testing"
	"time"

	"wisefido-nurse/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusToWire(t *testing.T) {
	assert.Equal(t, "pending", StatusToWire(domain.TaskStatusPending))
	assert.Equal(t, "in_progress", StatusToWire(domain.TaskStatusInProgress))
	assert.Equal(t, "completed", StatusToWire(domain.TaskStatusCompleted))
	assert.Equal(t, "cancelled", StatusToWire(domain.TaskStatusCancelled))
	assert.Equal(t, "medium", PriorityToWire(domain.TaskPriorityMedium))
}

func TestTaskRow_ToDomainAcceptsVariants(t *testing.T) {
	for _, s := range []string{"in_progress", "inprogress", "In Progress", "IN_PROGRESS"} {
		task, err := TaskRow{ID: "t", Status: s, Priority: "High"}.ToDomain()
		require.NoError(t, err, s)
		assert.Equal(t, domain.TaskStatusInProgress, task.Status, s)
		assert.Equal(t, domain.TaskPriorityHigh, task.Priority)
	}

	_, err := TaskRow{ID: "t", Status: "paused", Priority: "high"}.ToDomain()
	assert.Error(t, err)
}

func TestTaskRow_RoundTripKeepsReadings(t *testing.T) {
	created := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	done := created.Add(time.Hour)
	hr := 80
	task := domain.Task{
		ID: "t", Title: "Round", Description: "Hourly", Priority: domain.TaskPriorityLow,
		Status: domain.TaskStatusCompleted, PatientID: "p", RoomID: "r", CreatedAt: created,
		CompletedAt: &done, QRVerified: true,
		Readings: &domain.TaskReadings{HeartRate: &hr, MedicationsAdministered: []string{"Ibuprofen"}},
	}

	back, err := TaskRowFromDomain(task).ToDomain()
	require.NoError(t, err)
	assert.Equal(t, task, back)

	// 不共享指针
	*back.Readings.HeartRate = 1
	assert.Equal(t, 80, *task.Readings.HeartRate)
}

func TestEmergencyRowFromDomain(t *testing.T) {
	row := EmergencyRowFromDomain(domain.Emergency{ID: "emg-1", Note: "Patient collapsed", Acknowledged: true}, "")
	assert.Equal(t, domain.DefaultEmergencyType, row.Type)
	assert.Equal(t, "acknowledged", row.Status)
	assert.Equal(t, "Patient collapsed", row.Note)
	assert.Nil(t, row.Room)
}
