package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	alerts "railguard-cloud/internal/alerts/domain"
)

// BuildAlertsPDF renders a minimal PDF table of alert records.
func BuildAlertsPDF(records []alerts.Record) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Alert Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Alerts: %d", len(records)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(55, 6, "ID", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Node", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Severity", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Score", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Construction", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, record := range records {
		pdf.CellFormat(55, 6, record.ID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, record.NodeID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, record.Severity, "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, formatMillis(record.Timestamp), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, record.Status, "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.3f", record.AnomalyScore), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%t", record.IsConstruction), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAlertsXLSX renders a minimal XLSX workbook of alert records.
func BuildAlertsXLSX(records []alerts.Record) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "alerts"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Node", "Severity", "Time", "Lat", "Lng", "Status", "Construction", "Score"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, record := range records {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), record.ID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), record.NodeID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), record.Severity)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), formatMillis(record.Timestamp))
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), record.Lat)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), record.Lng)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), record.Status)
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), record.IsConstruction)
		_ = f.SetCellValue(sheet, fmt.Sprintf("I%d", row), record.AnomalyScore)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatMillis(millis int64) string {
	if millis == 0 {
		return ""
	}
	return time.UnixMilli(millis).UTC().Format(time.RFC3339)
}
