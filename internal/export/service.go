package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/keyword-estimator/constants"
	"github.com/joseph-ayodele/keyword-estimator/internal/valuation"
)

// Service renders result sets as XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

type styles struct {
	header     int
	number     int
	totalLabel int
	total      int
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		st  styles
		err error
	)
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return st, err
	}
	if st.number, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "right"},
	}); err != nil {
		return st, err
	}
	if st.totalLabel, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	}); err != nil {
		return st, err
	}
	st.total, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	return st, err
}

// ResultsXLSX returns a workbook with one header row, one row per record in
// result order and a final GRAND TOTAL row with only the total filled in.
func (s *Service) ResultsXLSX(ctx context.Context, rs valuation.ResultSet) ([]byte, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = constants.ResultsSheet
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("xlsx styles: %w", err)
	}

	row := 1
	write := func(col int, v any) error {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		return f.SetCellValue(sheet, cell, v)
	}

	for i, h := range constants.ResultHeaders {
		if err := write(i+1, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "D1", st.header); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for _, r := range rs.Records {
		row++
		for col, v := range []any{r.Keyword, r.Count, r.Value, r.Subtotal} {
			if err := write(col+1, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row, err)
			}
		}
	}

	row++
	if err := write(1, constants.GrandTotalLabel); err != nil {
		return nil, fmt.Errorf("write total: %w", err)
	}
	if err := write(4, rs.GrandTotal); err != nil {
		return nil, fmt.Errorf("write total: %w", err)
	}

	if row > 2 {
		last, _ := excelize.CoordinatesToCellName(4, row-1)
		if err := f.SetCellStyle(sheet, "B2", last, st.number); err != nil {
			return nil, fmt.Errorf("style rows: %w", err)
		}
	}
	totalA, _ := excelize.CoordinatesToCellName(1, row)
	totalB, _ := excelize.CoordinatesToCellName(2, row)
	totalD, _ := excelize.CoordinatesToCellName(4, row)
	_ = f.SetCellStyle(sheet, totalA, totalA, st.totalLabel)
	_ = f.SetCellStyle(sheet, totalB, totalB, st.number)
	_ = f.SetCellStyle(sheet, totalD, totalD, st.total)

	_ = f.SetColWidth(sheet, "A", "A", 30) // keyword
	_ = f.SetColWidth(sheet, "B", "C", 12) // count, value
	_ = f.SetColWidth(sheet, "D", "D", 15) // subtotal

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", rs.Len(),
		"grand_total", rs.GrandTotal,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteFile renders rs and writes it to path, creating the directory.
func (s *Service) WriteFile(ctx context.Context, rs valuation.ResultSet, path string) error {
	data, err := s.ResultsXLSX(ctx, rs)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.logger.Info("export.file.ok", "path", path)
	return nil
}

// DefaultFilename names an export after the document it was computed from:
// "<stem>_results_20060102_150405.xlsx", or "keyword_results_..." when
// there is no document.
func DefaultFilename(documentPath string, now time.Time) string {
	stamp := now.Format("20060102_150405")
	stem := sanitize(strings.TrimSuffix(filepath.Base(documentPath), filepath.Ext(documentPath)))
	if documentPath == "" || stem == "" {
		return "keyword_results_" + stamp + ".xlsx"
	}
	return stem + "_results_" + stamp + ".xlsx"
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
