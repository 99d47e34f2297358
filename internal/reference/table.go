package reference

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type table struct {
	name   string
	header []string
	rows   [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file", filepath.Base(path))
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	return &table{name: filepath.Base(path), header: header, rows: rows[1:]}, nil
}

// column finds a header by name, case-insensitively.
func (t *table) column(name string) (int, error) {
	for i, h := range t.header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%s: missing column %q", t.name, name)
}

// numbered returns the indices of prefix1, prefix2, ... ordered by suffix.
func (t *table) numbered(prefix string) []int {
	type col struct{ n, idx int }
	var cols []col
	for i, h := range t.header {
		if !strings.HasPrefix(h, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(h, prefix))
		if err != nil {
			continue
		}
		cols = append(cols, col{n: n, idx: i})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].n < cols[j].n })
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i] = c.idx
	}
	return out
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
