package export

import (
	"bytes"
	"testing"
	"time"

	"wisefido-nurse/internal/fixtures"
	"wisefido-nurse/internal/scheduler"
	"wisefido-nurse/internal/store"
	"wisefido-nurse/internal/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestHistoryWorkbook(t *testing.T) {
	now := time.Date(2026, 10, 17, 15, 0, 0, 0, time.UTC)
	st := store.New(fixtures.Default(now), store.Options{Scheduler: scheduler.NewManual(now)})
	defer st.Close()

	data, err := HistoryWorkbook(views.CompletedHistory(st.Tasks()), st, time.UTC)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{HistorySheet}, f.GetSheetList())

	rows, err := f.GetRows(HistorySheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, HistoryHeader, rows[0])

	row := rows[1]
	assert.Equal(t, "2026-10-17 11:23", row[0])
	assert.Equal(t, "Hourly Round & Medication", row[1])
	assert.Equal(t, "Mary Williams", row[3])
	assert.Equal(t, "205", row[4])
	assert.Equal(t, "72", row[5])
	assert.Equal(t, "122/78", row[6])
	assert.Equal(t, "Ibuprofen", row[7])
}

func TestHistoryWorkbook_Empty(t *testing.T) {
	now := time.Now()
	st := store.New(fixtures.Seed{}, store.Options{Scheduler: scheduler.NewManual(now)})
	defer st.Close()

	data, err := HistoryWorkbook(nil, st, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(HistorySheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
