package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/entity"
)

type fakeLister struct {
	docs     []*entity.Document
	from, to *time.Time
}

func (f *fakeLister) List(_ context.Context, from, to *time.Time) ([]*entity.Document, error) {
	f.from, f.to = from, to
	return f.docs, nil
}

func strp(s string) *string { return &s }

func TestExportDocumentsXLSX(t *testing.T) {
	lister := &fakeLister{docs: []*entity.Document{
		{
			Source:      "cards/a.png",
			Status:      constants.DocumentStatusComplete,
			Engine:      constants.EngineLocal,
			IDNumber:    strp("Y510850"),
			FullName:    strp("JAMAL DIAE-EDDINE"),
			DateOfBirth: strp("2002-06-10"),
			CreatedAt:   time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		},
		{
			Source:    "cards/b.png",
			Status:    constants.DocumentStatusIncomplete,
			Warnings:  []string{"id_number: mandatory field not found", "full_name: mandatory field not found"},
			CreatedAt: time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC),
		},
	}}
	from := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC)

	out, err := NewService(lister, nil).ExportDocumentsXLSX(context.Background(), &from, &to)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if lister.from.Hour() != 0 || !lister.to.After(time.Date(2024, 5, 2, 23, 59, 0, 0, time.UTC)) {
		t.Errorf("window = %v..%v", lister.from, lister.to)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[0][4] != "ID Number" || rows[1][4] != "Y510850" || rows[1][6] != "2002-06-10" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if got := rows[2][11]; got != "id_number: mandatory field not found; full_name: mandatory field not found" {
		t.Errorf("warnings cell = %q", got)
	}
}

func TestDayWindow(t *testing.T) {
	now := time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)
	from := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	f, to := dayWindow(&from, nil, now)
	if !f.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v", f)
	}
	if to == nil || to.Day() != 10 || to.Hour() != 23 {
		t.Errorf("to = %v", to)
	}

	f, to = dayWindow(nil, nil, now)
	if f != nil || to != nil {
		t.Errorf("open window = %v..%v", f, to)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"abcdef", 4, "abc…"},
		{"مرحبا", 3, "مر…"},
		{"short", 10, "short"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
