package services

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"rag-chatbot-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportService renders query history as a downloadable spreadsheet.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

// WriteQueryHistoryXLSX builds an xlsx workbook with one row per logged query
// plus a summary sheet.
func (es *ExportService) WriteQueryHistoryXLSX(logs []models.QueryLog) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Query History"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Question", "Answer", "Top Score", "Avg Score",
		"Low Confidence", "Chunks Used", "Timestamp",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	lowConfidenceCount := 0
	var scoreSum float64

	for rowIdx, entry := range logs {
		row := rowIdx + 2

		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), entry.ID.Hex())
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), entry.Question)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), entry.Answer)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), entry.TopScore)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), entry.AvgScore)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), entry.LowConfidence)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), entry.ChunksUsed)
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), entry.Timestamp.Format("2006-01-02 15:04:05"))

		if entry.LowConfidence {
			lowConfidenceCount++
		}
		scoreSum += entry.TopScore
	}

	for i := range headers {
		col := fmt.Sprintf("%c:%c", 'A'+i, 'A'+i)
		f.SetColWidth(sheetName, col, col, 18)
	}

	summarySheetName := "Summary"
	if _, err := f.NewSheet(summarySheetName); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}

	avgScore := 0.0
	if len(logs) > 0 {
		avgScore = scoreSum / float64(len(logs))
	}

	summaryData := [][]interface{}{
		{"Total Queries", len(logs)},
		{"Low Confidence Queries", lowConfidenceCount},
		{"Average Top Score", fmt.Sprintf("%.4f", avgScore)},
	}
	for i, row := range summaryData {
		for j, cell := range row {
			cellRef := fmt.Sprintf("%c%d", 'A'+j, i+1)
			f.SetCellValue(summarySheetName, cellRef, cell)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return &buf, nil
}

// StreamQueryHistory writes the workbook directly to the HTTP response.
func (es *ExportService) StreamQueryHistory(ctx *gin.Context, logs []models.QueryLog) error {
	buf, err := es.WriteQueryHistoryXLSX(logs)
	if err != nil {
		return err
	}

	ctx.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Header("Content-Disposition", "attachment; filename=query_history.xlsx")
	ctx.Header("Content-Length", strconv.Itoa(buf.Len()))
	ctx.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	return nil
}
