package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"order-tracker/internal/models"
	"order-tracker/internal/repository"
)

// maxExportRows bounds a single returns export
const maxExportRows = 10000

var returnExportColumns = []struct {
	Name  string
	Width float64
}{
	{"Return #", 24},
	{"Order #", 24},
	{"Customer", 20},
	{"Type", 14},
	{"Status", 16},
	{"Reason", 40},
	{"Items", 50},
	{"Refund Amount", 16},
	{"Pickup Scheduled", 20},
	{"Admin Notes", 40},
	{"Requested At", 20},
}

// ExportService builds spreadsheet exports for staff
type ExportService interface {
	ExportReturns(ctx context.Context, tenantID string, filters ReturnListFilters) (*ReturnsExport, error)
}

// ReturnsExport is a generated workbook. Rows is lower than Total when the
// export hit the row cap.
type ReturnsExport struct {
	Data  []byte
	Rows  int
	Total int64
}

// Truncated reports whether matching returns were left out of the workbook
func (e *ReturnsExport) Truncated() bool {
	return int64(e.Rows) < e.Total
}

type exportService struct {
	returnRepo repository.ReturnRepository
	logger     *logrus.Entry
}

// NewExportService creates a new export service
func NewExportService(returnRepo repository.ReturnRepository, logger *logrus.Logger) ExportService {
	return &exportService{
		returnRepo: returnRepo,
		logger:     logger.WithField("component", "export-service"),
	}
}

// ExportReturns writes the matching returns to an xlsx workbook. Paging in
// filters is ignored; at most maxExportRows returns are written.
func (s *exportService) ExportReturns(ctx context.Context, tenantID string, filters ReturnListFilters) (*ReturnsExport, error) {
	returns, total, err := s.returnRepo.List(ctx, repository.ReturnFilters{
		TenantID:   tenantID,
		CustomerID: filters.CustomerID,
		OrderID:    filters.OrderID,
		Status:     filters.Status,
		Type:       filters.Type,
		Search:     strings.TrimSpace(filters.Search),
		Page:       1,
		Limit:      maxExportRows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load returns for export: %w", err)
	}

	data, err := buildReturnsWorkbook(returns)
	if err != nil {
		return nil, err
	}

	export := &ReturnsExport{Data: data, Rows: len(returns), Total: total}
	if export.Truncated() {
		s.logger.WithFields(logrus.Fields{
			"tenantId": tenantID,
			"rows":     export.Rows,
			"total":    total,
		}).Warn("Returns export truncated at row limit")
	}
	return export, nil
}

func buildReturnsWorkbook(returns []models.Return) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Returns"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})

	for i, column := range returnExportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, column.Name)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, column.Width)
	}

	for rowIdx, ret := range returns {
		pickup := ""
		if ret.PickupScheduledAt != nil {
			pickup = ret.PickupScheduledAt.Format(time.RFC3339)
		}
		row := []interface{}{
			ret.ReturnNumber,
			ret.OrderNumber,
			ret.CustomerID,
			string(ret.Type),
			ret.Status.DisplayName(),
			ret.Reason,
			summarizeReturnItems(ret.Items),
			ret.RefundAmount,
			pickup,
			ret.AdminNotes,
			ret.CreatedAt.Format(time.RFC3339),
		}
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func summarizeReturnItems(items []models.ReturnItem) string {
	var b bytes.Buffer
	for i, item := range items {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s x%d (%s)", item.ProductName, item.Quantity, item.Reason)
	}
	return b.String()
}
