package apihttp

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"fleet-pc-alert/internal/store"
)

// BuildAlertsPDF renders a minimal PDF report for alert history.
func BuildAlertsPDF(records []store.AlertRecord) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Personal Conveyance Duration Alerts")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Alerts: %d", len(records)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, "Driver", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "PC Hours", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Threshold", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "PC Start", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Recorded", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, record := range records {
		name := record.DriverName
		if name == "" {
			name = record.DriverID
		}
		pcStart := ""
		if !record.PCStartTime.IsZero() {
			pcStart = record.PCStartTime.Format(time.RFC3339)
		}
		pdf.CellFormat(45, 6, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", record.ConsecutivePCHours), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", record.ThresholdHours), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, pcStart, "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, record.CreatedAt.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAlertsXLSX renders a minimal XLSX workbook for alert history.
func BuildAlertsXLSX(records []store.AlertRecord) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "alerts"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Driver ID", "Driver Name", "PC Hours", "Threshold Hours", "PC Start", "Exceeds", "Anomalous", "Recorded"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}

	for i, record := range records {
		row := i + 2
		pcStart := ""
		if !record.PCStartTime.IsZero() {
			pcStart = record.PCStartTime.Format(time.RFC3339)
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), record.DriverID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), record.DriverName)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), record.ConsecutivePCHours)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), record.ThresholdHours)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), pcStart)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), record.ExceedsThreshold)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), record.Anomalous)
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), record.CreatedAt.Format(time.RFC3339))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
