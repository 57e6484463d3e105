package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"wisefido-nurse/internal/domain"
	"wisefido-nurse/internal/fixtures"
	"wisefido-nurse/internal/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

var testNow = time.Date(2026, 10, 17, 10, 0, 0, 0, time.Local)

func newTestStore(t *testing.T) (*Store, *scheduler.Manual) {
	t.Helper()
	clock := scheduler.NewManual(testNow)
	s := New(fixtures.Default(testNow), Options{Scheduler: clock, Logger: zap.NewNop()})
	t.Cleanup(s.Close)
	return s, clock
}

func TestStore_Lookups(t *testing.T) {
	s, _ := newTestStore(t)

	task, ok := s.GetTaskByID("task-1")
	require.True(t, ok)
	assert.Equal(t, "p-001", task.PatientID)

	_, ok = s.GetTaskByID("task-404")
	assert.False(t, ok)

	p, ok := s.GetPatientByID("p-004")
	require.True(t, ok)
	assert.Equal(t, "Mary Williams", p.Name)

	r, ok := s.GetRoomByID("room-205")
	require.True(t, ok)
	assert.Equal(t, "SURGE-MIND-ROOM-205", r.QRCodeValue)

	_, ok = s.GetRoomByID("room-999")
	assert.False(t, ok)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t)

	tasks := s.Tasks()
	tasks[0].Title = "mutated"
	tasks[0].IoTAlerts[0] = "mutated"

	task, _ := s.GetTaskByID(tasks[0].ID)
	assert.NotEqual(t, "mutated", task.Title)
	assert.NotEqual(t, "mutated", task.IoTAlerts[0])

	alerts := s.Alerts()
	alerts[0].Read = true
	assert.Equal(t, 2, s.UnreadAlertsCount())
}

func TestStore_UpdateTaskUnknownID(t *testing.T) {
	s, _ := newTestStore(t)
	before := s.Tasks()

	err := s.UpdateTask(domain.Task{ID: "task-404", Status: domain.TaskStatusPending})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTaskNotFound))
	assert.Equal(t, before, s.Tasks())
}

func TestStore_UpdateTaskRejectsSkip(t *testing.T) {
	s, _ := newTestStore(t)

	task, _ := s.GetTaskByID("task-2")
	at := testNow
	task.Status = domain.TaskStatusCompleted
	task.QRVerified = true
	task.CompletedAt = &at
	task.Readings = &domain.TaskReadings{}

	err := s.UpdateTask(task)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, _ := s.GetTaskByID("task-2")
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
}

func TestStore_ModifyTask(t *testing.T) {
	s, _ := newTestStore(t)

	updated, err := s.ModifyTask("task-3", func(t *domain.Task) error {
		t.Status = domain.TaskStatusInProgress
		t.QRVerified = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, updated.Status)

	boom := errors.New("boom")
	_, err = s.ModifyTask("task-3", func(t *domain.Task) error {
		t.Title = "should not stick"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, _ := s.GetTaskByID("task-3")
	assert.Equal(t, "Assist with Morning Hygiene", stored.Title)
}

func TestStore_MarkAlertsAsRead(t *testing.T) {
	s, _ := newTestStore(t)

	require.Len(t, s.Alerts(), 4)
	assert.Equal(t, 2, s.UnreadAlertsCount())

	assert.Equal(t, 2, s.MarkAlertsAsRead())
	assert.Equal(t, 0, s.UnreadAlertsCount())
	assert.Equal(t, 0, s.MarkAlertsAsRead())
}

func TestStore_AddAlert(t *testing.T) {
	s, _ := newTestStore(t)

	a := s.AddAlert(domain.Alert{Type: domain.AlertTypeIoT, Title: "High Heart Rate"})
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, testNow, a.Timestamp)
	assert.Equal(t, 3, s.UnreadAlertsCount())
}

func TestStore_ReplaceTasksDropsInvalid(t *testing.T) {
	s, _ := newTestStore(t)

	at := testNow
	tasks := []domain.Task{
		{ID: "r-1", Status: domain.TaskStatusPending, CreatedAt: testNow},
		// Completed 但没有 readings
		{ID: "r-2", Status: domain.TaskStatusCompleted, QRVerified: true, CreatedAt: testNow, CompletedAt: &at},
	}
	assert.Equal(t, 1, s.ReplaceTasks(tasks))

	all := s.Tasks()
	require.Len(t, all, 1)
	assert.Equal(t, "r-1", all[0].ID)
}

func TestStore_EmergencyAutoAcknowledge(t *testing.T) {
	clock := scheduler.NewManual(testNow)
	var acked []string
	s := New(fixtures.Default(testNow), Options{
		Scheduler:      clock,
		OnAcknowledged: func(e domain.Emergency) { acked = append(acked, e.ID) },
	})
	defer s.Close()

	e := s.TriggerEmergency(context.Background(), EmergencyRequest{Note: "Room 101"})
	assert.False(t, e.Acknowledged)
	assert.Equal(t, domain.DefaultEmergencyType, e.Type)
	assert.Equal(t, testNow, e.Timestamp)

	got, ok := s.GetEmergencyByID(e.ID)
	require.True(t, ok)
	assert.False(t, got.Acknowledged)

	clock.Advance(4 * time.Second)
	got, _ = s.GetEmergencyByID(e.ID)
	assert.False(t, got.Acknowledged)

	clock.Advance(time.Second)
	got, _ = s.GetEmergencyByID(e.ID)
	assert.True(t, got.Acknowledged)
	assert.Equal(t, []string{e.ID}, acked)

	// 重复确认不回调、不回退
	again, err := s.AcknowledgeEmergency(e.ID)
	require.NoError(t, err)
	assert.True(t, again.Acknowledged)
	assert.Len(t, acked, 1)
}

func TestStore_EmergencyPrepends(t *testing.T) {
	s, _ := newTestStore(t)

	first := s.TriggerEmergency(context.Background(), EmergencyRequest{})
	second := s.TriggerEmergency(context.Background(), EmergencyRequest{Type: "Fire"})

	list := s.Emergencies()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "Fire", list[0].Type)
}

func TestStore_ManualAckCancelsTimer(t *testing.T) {
	s, clock := newTestStore(t)

	e := s.TriggerEmergency(context.Background(), EmergencyRequest{})
	assert.Equal(t, 1, clock.Pending())

	_, err := s.AcknowledgeEmergency(e.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, clock.Pending())

	_, err = s.AcknowledgeEmergency("emg-404")
	assert.ErrorIs(t, err, domain.ErrEmergencyNotFound)
}

func TestStore_EmergencyAckCancelledByContext(t *testing.T) {
	s, clock := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	e := s.TriggerEmergency(ctx, EmergencyRequest{})
	cancel()

	clock.Advance(10 * time.Second)
	got, _ := s.GetEmergencyByID(e.ID)
	assert.False(t, got.Acknowledged)
}

func TestStore_CancelledContextReleasesPendingAcks(t *testing.T) {
	s, clock := newTestStore(t)

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		s.TriggerEmergency(ctx, EmergencyRequest{})
		cancel()
	}
	require.Eventually(t, func() bool { return s.pendingAckCount() == 0 }, time.Second, 5*time.Millisecond)

	clock.Advance(10 * time.Second)
	assert.Equal(t, 0, clock.Pending())

	// ctx 已结束时不登记
	done, cancel := context.WithCancel(context.Background())
	cancel()
	s.TriggerEmergency(done, EmergencyRequest{})
	assert.Equal(t, 0, s.pendingAckCount())
}

func TestStore_AckReleasesPendingEntry(t *testing.T) {
	s, clock := newTestStore(t)

	e := s.TriggerEmergency(context.Background(), EmergencyRequest{})
	assert.Equal(t, 1, s.pendingAckCount())
	clock.Advance(5 * time.Second)
	assert.Equal(t, 0, s.pendingAckCount())

	got, _ := s.GetEmergencyByID(e.ID)
	assert.True(t, got.Acknowledged)
}

func TestStore_EmergencyDefaultNote(t *testing.T) {
	s, _ := newTestStore(t)

	e := s.TriggerEmergency(context.Background(), EmergencyRequest{})
	assert.Equal(t, "Medical Emergency - General Ward", e.Note)

	e = s.TriggerEmergency(context.Background(), EmergencyRequest{Type: "Fire", Location: "Room 205", Note: "  "})
	assert.Equal(t, "Fire - Room 205", e.Note)

	e = s.TriggerEmergency(context.Background(), EmergencyRequest{Note: "Patient fell"})
	assert.Equal(t, "Patient fell", e.Note)

	stored, _ := s.GetEmergencyByID(e.ID)
	assert.Equal(t, "Patient fell", stored.Note)
}

func TestStore_CompletedTaskIsImmutable(t *testing.T) {
	s, _ := newTestStore(t)

	task, ok := s.GetTaskByID("task-4")
	require.True(t, ok)
	edited := task.Clone()
	hr := 250
	edited.Readings.HeartRate = &hr
	edited.Readings.Notes = "rewritten after completion"
	edited.Title = "renamed"

	err := s.UpdateTask(edited)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = s.ModifyTask("task-4", func(t *domain.Task) error {
		t.Readings.BloodPressure = "200/120"
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, _ := s.GetTaskByID("task-4")
	assert.Equal(t, 72, *stored.Readings.HeartRate)
	assert.Equal(t, "122/78", stored.Readings.BloodPressure)
	assert.Equal(t, "Hourly Round & Medication", stored.Title)

	// 原样写回仍然允许
	assert.NoError(t, s.UpdateTask(task))
}

func TestStore_CloseCancelsPendingAcks(t *testing.T) {
	clock := scheduler.NewManual(testNow)
	s := New(fixtures.Default(testNow), Options{Scheduler: clock})

	e := s.TriggerEmergency(context.Background(), EmergencyRequest{})
	s.Close()

	clock.Advance(time.Minute)
	got, _ := s.GetEmergencyByID(e.ID)
	assert.False(t, got.Acknowledged)
}

func TestStore_UnreadCountProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		alerts := make([]domain.Alert, 0, n)
		unread := 0
		for i := 0; i < n; i++ {
			read := rapid.Bool().Draw(rt, "read")
			if !read {
				unread++
			}
			alerts = append(alerts, domain.Alert{ID: "a", Type: domain.AlertTypeSystem, Read: read})
		}

		s := New(fixtures.Seed{Alerts: alerts}, Options{Scheduler: scheduler.NewManual(testNow)})
		defer s.Close()

		if got := s.UnreadAlertsCount(); got != unread {
			rt.Fatalf("unread count %d, want %d", got, unread)
		}
		s.MarkAlertsAsRead()
		if got := s.UnreadAlertsCount(); got != 0 {
			rt.Fatalf("unread count after mark read %d, want 0", got)
		}
	})
}

// 随机更新序列：store 接受的每个任务都满足不变量，且进入 In Progress 时必然已验证
func TestStore_TaskInvariantsProperty(t *testing.T) {
	statuses := []domain.TaskStatus{
		domain.TaskStatusPending, domain.TaskStatusInProgress,
		domain.TaskStatusCompleted, domain.TaskStatusCancelled,
	}

	rapid.Check(t, func(rt *rapid.T) {
		s := New(fixtures.Default(testNow), Options{Scheduler: scheduler.NewManual(testNow)})
		defer s.Close()
		ids := []string{"task-1", "task-2", "task-3", "task-4", "task-5"}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(rt, "id")
			prev, _ := s.GetTaskByID(id)

			next := prev.Clone()
			next.Status = rapid.SampledFrom(statuses).Draw(rt, "status")
			next.QRVerified = rapid.Bool().Draw(rt, "verified")
			if rapid.Bool().Draw(rt, "completedAt") {
				offset := time.Duration(rapid.IntRange(-60, 600).Draw(rt, "offset")) * time.Minute
				at := prev.CreatedAt.Add(offset)
				next.CompletedAt = &at
			} else {
				next.CompletedAt = nil
			}
			if rapid.Bool().Draw(rt, "readings") {
				next.Readings = &domain.TaskReadings{}
			} else {
				next.Readings = nil
			}

			err := s.UpdateTask(next)
			after, _ := s.GetTaskByID(id)
			if err != nil {
				if !errors.Is(err, domain.ErrInvalidTransition) {
					rt.Fatalf("unexpected error: %v", err)
				}
				if after.Status != prev.Status || after.QRVerified != prev.QRVerified {
					rt.Fatalf("rejected update mutated %s", id)
				}
				continue
			}

			if prev.Status == domain.TaskStatusPending && after.Status == domain.TaskStatusInProgress && !after.QRVerified {
				rt.Fatalf("%s entered In Progress without verification", id)
			}
			if after.Status == domain.TaskStatusCompleted && after.CompletedAt.Before(after.CreatedAt) {
				rt.Fatalf("%s completed before it was created", id)
			}
		}

		for _, task := range s.Tasks() {
			if err := domain.CheckInvariants(task); err != nil {
				rt.Fatalf("store holds invalid task %s: %v", task.ID, err)
			}
		}
	})
}
