// Package export 生成已完成任务历史的 Excel 导出文件。
package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wisefido-nurse/internal/domain"

	"github.com/xuri/excelize/v2"
)

// HistorySheet 工作表名
const HistorySheet = "Task History"

// HistoryHeader 导出表头
var HistoryHeader = []string{
	"Completed At",
	"Task",
	"Priority",
	"Patient",
	"Room",
	"Heart Rate",
	"Blood Pressure",
	"Medications Administered",
	"Notes",
}

// Lookup 解析病人姓名 / 房间号
type Lookup interface {
	GetPatientByID(id string) (domain.Patient, bool)
	GetRoomByID(id string) (domain.Room, bool)
}

// HistoryWorkbook 把已完成任务（按传入顺序）写成 xlsx
func HistoryWorkbook(tasks []domain.Task, lookup Lookup, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(HistorySheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(HistorySheet, "A1", &HistoryHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(HistoryHeader))
	if err := f.SetCellStyle(HistorySheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	widths := []float64{20, 30, 10, 20, 8, 12, 15, 30, 50}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(HistorySheet, col, col, w); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, t := range tasks {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		row := historyRow(t, lookup, loc)
		if err := f.SetSheetRow(HistorySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func historyRow(t domain.Task, lookup Lookup, loc *time.Location) []any {
	completed := ""
	if t.CompletedAt != nil {
		completed = t.CompletedAt.In(loc).Format("2006-01-02 15:04")
	}
	patient := t.PatientID
	if p, ok := lookup.GetPatientByID(t.PatientID); ok {
		patient = p.Name
	}
	room := t.RoomID
	if r, ok := lookup.GetRoomByID(t.RoomID); ok {
		room = r.Number
	}

	var hr, bp, meds, notes string
	if r := t.Readings; r != nil {
		if r.HeartRate != nil {
			hr = strconv.Itoa(*r.HeartRate)
		}
		bp = r.BloodPressure
		meds = strings.Join(r.MedicationsAdministered, ", ")
		notes = r.Notes
	}

	return []any{completed, t.Title, string(t.Priority), patient, room, hr, bp, meds, notes}
}
