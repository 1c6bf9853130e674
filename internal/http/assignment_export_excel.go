package httpapi

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// AssignmentsExportHeader export columns, aligned with the keys
// AssignmentView.ToJSON produces
var AssignmentsExportHeader = []string{
	"Target ID",
	"Language",
	"Gender",
	"Location UID",
	"Enumerator ID",
	"Enumerator Name",
	"Enumerator Email",
}

var assignmentsExportKeys = []string{
	"target_id",
	"language",
	"gender",
	"location_uid",
	"enumerator_id",
	"enumerator_name",
	"enumerator_email",
}

// GenerateAssignmentsExport renders assignment rows into an xlsx
// workbook; an empty row set yields headers only
func GenerateAssignmentsExport(data []map[string]any) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close only on the error paths

	sheetName := "Assignments"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range AssignmentsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style %s: %w", cell, err)
		}
	}

	for rowIdx, row := range data {
		for col, key := range assignmentsExportKeys {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if v, ok := row[key]; ok && v != nil {
				if err := f.SetCellValue(sheetName, cell, v); err != nil {
					f.Close()
					return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
				}
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}
