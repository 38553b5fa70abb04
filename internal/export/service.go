package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/idcard-reader/internal/entity"
)

// SheetName is the worksheet holding the document rows.
const SheetName = "Documents"

// DocumentLister is the repository method the export needs.
type DocumentLister interface {
	List(ctx context.Context, fromDate, toDate *time.Time) ([]*entity.Document, error)
}

// Service produces XLSX bytes for document exports.
type Service struct {
	docs   DocumentLister
	logger *slog.Logger
}

func NewService(docs DocumentLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

// ExportDocumentsXLSX returns a workbook of the documents processed in the
// window. Bounds are whole UTC days:
// only from  -> from..end of today,
// only to    -> beginning..end of to,
// neither    -> everything.
func (s *Service) ExportDocumentsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	fromDate, toDate := dayWindow(from, to, time.Now())
	docs, err := s.docs.List(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	out, err := DocumentsXLSX(docs)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func dayWindow(from, to *time.Time, now time.Time) (*time.Time, *time.Time) {
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to == nil && from != nil {
		n := now.UTC()
		to = &n
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC).Add(24*time.Hour - time.Nanosecond)
		toDate = &t
	}
	return fromDate, toDate
}

var headers = []string{
	"Processed At",
	"Source",
	"Status",
	"Engine",
	"ID Number",
	"Full Name",
	"Date of Birth",
	"Place of Birth",
	"Gender",
	"Address",
	"Expiry Date",
	"Warnings",
}

// DocumentsXLSX renders docs as a workbook, one row per document.
func DocumentsXLSX(docs []*entity.Document) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// Rename the default sheet so the workbook has exactly one.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, style)
	}

	for i, d := range docs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}
		write(1, d.CreatedAt.UTC().Format(time.RFC3339))
		write(2, d.Source)
		write(3, string(d.Status))
		write(4, string(d.Engine))
		write(5, deref(d.IDNumber))
		write(6, deref(d.FullName))
		write(7, deref(d.DateOfBirth))
		write(8, deref(d.PlaceOfBirth))
		write(9, deref(d.Gender))
		write(10, truncate(deref(d.Address), 140))
		write(11, deref(d.ExpiryDate))
		write(12, strings.Join(d.Warnings, "; "))
	}

	_ = f.SetColWidth(SheetName, "A", "A", 22) // processed at
	_ = f.SetColWidth(SheetName, "B", "B", 40) // source
	_ = f.SetColWidth(SheetName, "C", "E", 14)
	_ = f.SetColWidth(SheetName, "F", "F", 30) // name
	_ = f.SetColWidth(SheetName, "G", "I", 14)
	_ = f.SetColWidth(SheetName, "J", "J", 48) // address
	_ = f.SetColWidth(SheetName, "K", "K", 14)
	_ = f.SetColWidth(SheetName, "L", "L", 60) // warnings
	_ = f.SetPanes(SheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
