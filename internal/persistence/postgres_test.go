package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"wisefido-nurse/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresRemote) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	remote := NewPostgresRemote(db, "", "", "staff-1", zap.NewNop())
	return db, mock, remote
}

var taskColumns = []string{
	"id", "title", "description", "priority", "status",
	"patient_id", "room", "created_at", "completed_at", "qr_verified", "readings",
}

func TestPostgresRemote_SaveTask(t *testing.T) {
	db, mock, remote := setupMockDB(t)
	defer db.Close()

	created := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	done := created.Add(time.Hour)
	hr := 72
	task := domain.Task{
		ID: "task-1", Title: "Check Vital Signs", Priority: domain.TaskPriorityHigh,
		Status: domain.TaskStatusCompleted, PatientID: "p-001", RoomID: "room-101",
		CreatedAt: created, CompletedAt: &done, QRVerified: true,
		Readings: &domain.TaskReadings{HeartRate: &hr, MedicationsAdministered: []string{}},
	}

	mock.ExpectExec(`INSERT INTO tasks`).
		WithArgs("task-1", "Check Vital Signs", "", "high", "completed",
			"p-001", "room-101", sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, remote.SaveTask(context.Background(), task))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_SaveTaskError(t *testing.T) {
	db, mock, remote := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO tasks`).WillReturnError(errors.New("connection refused"))

	err := remote.SaveTask(context.Background(), domain.Task{ID: "task-1", Status: domain.TaskStatusPending})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task-1")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_InsertEmergency(t *testing.T) {
	db, mock, remote := setupMockDB(t)
	defer db.Close()

	e := domain.Emergency{ID: "emg-1", Type: "Fire", Location: "Room 205", Timestamp: time.Now()}

	mock.ExpectExec(`INSERT INTO emergencies`).
		WithArgs("emg-1", "Fire", "Room 205", "staff-1", "active", "Fire - Room 205", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, remote.InsertEmergency(context.Background(), e))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemote_FetchTasks(t *testing.T) {
	db, mock, remote := setupMockDB(t)
	defer db.Close()

	created := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	done := created.Add(time.Hour)

	rows := sqlmock.NewRows(taskColumns).
		AddRow("t-2", "Change IV Drip", nil, "high", "in_progress", nil, nil, created, nil, true, nil).
		AddRow("t-1", "Check Vital Signs", "Morning vitals", "medium", "completed", "p-001", "room-101",
			created, done, true, []byte(`{"heart_rate":72,"medications_administered":[]}`)).
		AddRow("t-bad", "Broken", nil, "urgent", "pending", nil, nil, created, nil, false, nil)

	mock.ExpectQuery(`SELECT(.|\n)+FROM tasks`).WillReturnRows(rows)

	tasks, err := remote.FetchTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "t-2", tasks[0].ID)
	assert.Equal(t, domain.TaskStatusInProgress, tasks[0].Status)
	assert.Equal(t, "Change IV Drip", tasks[0].Description)
	assert.Equal(t, "unknown", tasks[0].PatientID)
	assert.Equal(t, "unknown", tasks[0].RoomID)

	assert.Equal(t, domain.TaskStatusCompleted, tasks[1].Status)
	require.NotNil(t, tasks[1].Readings)
	require.NotNil(t, tasks[1].Readings.HeartRate)
	assert.Equal(t, 72, *tasks[1].Readings.HeartRate)
	require.NotNil(t, tasks[1].CompletedAt)
	assert.True(t, done.Equal(*tasks[1].CompletedAt))

	require.NoError(t, mock.ExpectationsWereMet())
}

type fakeNotifier struct {
	ch     chan *pq.Notification
	closed bool
}

func (f *fakeNotifier) NotificationChannel() <-chan *pq.Notification { return f.ch }
func (f *fakeNotifier) Ping() error                                  { return nil }
func (f *fakeNotifier) Close() error {
	f.closed = true
	return nil
}

func TestPostgresRemote_Watch(t *testing.T) {
	db, _, remote := setupMockDB(t)
	defer db.Close()

	n := &fakeNotifier{ch: make(chan *pq.Notification)}
	remote.newListener = func() (notifier, error) { return n, nil }

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan struct{}, 4)
	errCh := make(chan error, 1)
	go func() {
		errCh <- remote.Watch(ctx, func() { changes <- struct{}{} })
	}()

	n.ch <- &pq.Notification{Channel: DefaultNotifyChannel, Extra: "task-1"}
	n.ch <- nil // 重连

	for i := 0; i < 2; i++ {
		select {
		case <-changes:
		case <-time.After(time.Second):
			t.Fatal("expected change callback")
		}
	}

	cancel()
	require.NoError(t, <-errCh)
	assert.True(t, n.closed)
}

func TestPostgresRemote_WatchListenError(t *testing.T) {
	db, _, remote := setupMockDB(t)
	defer db.Close()

	remote.newListener = func() (notifier, error) { return nil, errors.New("no route") }
	err := remote.Watch(context.Background(), func() {})
	assert.Error(t, err)
}
