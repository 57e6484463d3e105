package fixtures

import (
	"testing"
	"time"

	"wisefido-nurse/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_SatisfiesInvariants(t *testing.T) {
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.Local)
	seed := Default(now)

	require.Len(t, seed.Rooms, 4)
	require.Len(t, seed.Patients, 4)
	require.Len(t, seed.Tasks, 5)
	require.Len(t, seed.Alerts, 4)

	rooms := map[string]bool{}
	for _, r := range seed.Rooms {
		rooms[r.ID] = true
		assert.Equal(t, "SURGE-MIND-ROOM-"+r.Number, r.QRCodeValue)
	}
	patients := map[string]bool{}
	for _, p := range seed.Patients {
		patients[p.ID] = true
	}

	for _, task := range seed.Tasks {
		assert.NoError(t, domain.CheckInvariants(task), task.ID)
		assert.True(t, rooms[task.RoomID], task.ID)
		assert.True(t, patients[task.PatientID], task.ID)
	}

	unread := 0
	for _, a := range seed.Alerts {
		if !a.Read {
			unread++
		}
	}
	assert.Equal(t, 2, unread)
}

func TestTasks_FreshCopies(t *testing.T) {
	now := time.Now()
	a := Tasks(now)
	b := Tasks(now)
	a[0].IoTAlerts[0] = "changed"
	assert.Equal(t, "Heart rate slightly elevated (95bpm)", b[0].IoTAlerts[0])
}
