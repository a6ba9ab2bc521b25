package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/keyword-estimator/constants"
	"github.com/joseph-ayodele/keyword-estimator/internal/keywords"
	"github.com/joseph-ayodele/keyword-estimator/internal/valuation"
)

func sample() valuation.ResultSet {
	return valuation.Calculate("Apple pie, banana split, apple tart", keywords.Spec{
		{Keyword: "banana", Value: -5},
		{Keyword: "apple", Value: 10},
		{Keyword: "cherry", Value: 7},
	})
}

func TestResultsXLSX(t *testing.T) {
	data, err := NewService(nil).ResultsXLSX(context.Background(), sample())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{constants.ResultsSheet}, f.GetSheetList())
	rows, err := f.GetRows(constants.ResultsSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Keyword", "Count", "Value", "Subtotal"},
		{"apple", "2", "10", "20"},
		{"banana", "1", "-5", "-5"},
		{"cherry", "0", "7", "0"},
		{"GRAND TOTAL", "", "", "15"},
	}, rows)

	width, err := f.GetColWidth(constants.ResultsSheet, "A")
	require.NoError(t, err)
	assert.Equal(t, 30.0, width)
	width, err = f.GetColWidth(constants.ResultsSheet, "D")
	require.NoError(t, err)
	assert.Equal(t, 15.0, width)

	headerStyle, err := f.GetCellStyle(constants.ResultsSheet, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(headerStyle)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	assert.Equal(t, "center", style.Alignment.Horizontal)

	numberStyle, err := f.GetCellStyle(constants.ResultsSheet, "C3")
	require.NoError(t, err)
	style, err = f.GetStyle(numberStyle)
	require.NoError(t, err)
	assert.Equal(t, "right", style.Alignment.Horizontal)

	totalStyle, err := f.GetCellStyle(constants.ResultsSheet, "D5")
	require.NoError(t, err)
	style, err = f.GetStyle(totalStyle)
	require.NoError(t, err)
	assert.True(t, style.Font.Bold)
}

func TestResultsXLSXEmpty(t *testing.T) {
	data, err := NewService(nil).ResultsXLSX(context.Background(), valuation.ResultSet{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(constants.ResultsSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Keyword", "Count", "Value", "Subtotal"},
		{"GRAND TOTAL", "", "", "0"},
	}, rows)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "r.xlsx")
	require.NoError(t, NewService(nil).WriteFile(context.Background(), sample(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(constants.ResultsSheet, "D5")
	require.NoError(t, err)
	assert.Equal(t, "15", v)
}

func TestResultsXLSXCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewService(nil).ResultsXLSX(ctx, sample())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultFilename(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	tests := []struct {
		path string
		want string
	}{
		{"/scans/invoice.pdf", "invoice_results_20240309_140507.xlsx"},
		{"report.final.PDF", "report.final_results_20240309_140507.xlsx"},
		{"", "keyword_results_20240309_140507.xlsx"},
		{"dir/we*ird?.pdf", "we_ird__results_20240309_140507.xlsx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultFilename(tt.path, now), tt.path)
	}
}
