package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// table is a column-oriented view of the raw file, every cell a string
type table struct {
	columns map[string][]string
	nrows   int
}

func (t *table) has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// cell returns the raw value, or "" for an absent column
func (t *table) cell(name string, row int) string {
	col, ok := t.columns[name]
	if !ok || row >= len(col) {
		return ""
	}
	return col[row]
}

// readCSVTable parses CSV through a gota DataFrame with all columns kept as
// strings so that typing stays under our control
func readCSVTable(r io.Reader) (*table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{"", "NA", "NaN", "NaT", "<nil>"}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", df.Err)
	}

	t := &table{
		columns: make(map[string][]string, df.Ncol()),
		nrows:   df.Nrow(),
	}
	for _, name := range df.Names() {
		t.columns[normalizeHeader(name)] = df.Col(name).Records()
	}
	return t, nil
}

// readXLSXTable uses the first sheet whose header row carries a price column
func readXLSXTable(path string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		header := make([]string, len(rows[0]))
		for i, h := range rows[0] {
			header[i] = normalizeHeader(h)
		}
		if !contains(header, "price") && sheet != sheets[len(sheets)-1] {
			continue
		}

		t := &table{
			columns: make(map[string][]string, len(header)),
			nrows:   len(rows) - 1,
		}
		for i, name := range header {
			col := make([]string, t.nrows)
			for r, row := range rows[1:] {
				// excelize trims trailing empty cells
				if i < len(row) {
					col[r] = row[i]
				}
			}
			t.columns[name] = col
		}
		return t, nil
	}

	return nil, fmt.Errorf("workbook %s has no readable sheet", path)
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
