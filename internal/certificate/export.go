package certificate

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Issued Certificates"

var exportColumns = []struct {
	Title string
	Width float64
}{
	{"Certificate ID", 38},
	{"Student", 28},
	{"Course", 36},
	{"Email", 30},
	{"Verification Code", 26},
	{"Archived", 10},
	{"Issued By", 20},
	{"Issued At", 20},
}

// WriteWorkbook writes the issued certificates as an xlsx workbook with a
// frozen, filterable header row.
func WriteWorkbook(w io.Writer, issued []Issued) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	dateStyle, err := file.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := file.SetCellValue(exportSheet, cell, col.Title); err != nil {
			return err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := file.SetColWidth(exportSheet, name, name, col.Width); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
	if err := file.SetCellStyle(exportSheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for i, rec := range issued {
		row := i + 2
		values := []interface{}{
			rec.ID.String(),
			rec.Student,
			rec.Course,
			rec.Email,
			rec.VerificationCode,
			rec.ArchiveKey != nil,
			rec.IssuedBy,
			rec.IssuedAt,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := file.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		dateCell, _ := excelize.CoordinatesToCellName(len(exportColumns), row)
		if err := file.SetCellStyle(exportSheet, dateCell, dateCell, dateStyle); err != nil {
			return err
		}
	}

	if err := file.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	if err := file.AutoFilter(exportSheet, "A1:"+lastHeader, nil); err != nil {
		return err
	}

	return file.Write(w)
}
