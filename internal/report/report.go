package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"onetmart/internal/warehouse"
)

// Result summarizes one executed reporting query.
type Result struct {
	Query    string
	Rows     int
	Location string
}

// Run executes every *.sql file under queriesDir in name order against the
// warehouse and writes each result set to the sink as <name>.csv. A missing
// or empty directory yields no results and no error.
func Run(ctx context.Context, store *warehouse.Store, queriesDir string, sink Sink) ([]Result, error) {
	entries, err := os.ReadDir(queriesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read queries dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	var results []Result
	for _, name := range files {
		raw, err := os.ReadFile(filepath.Join(queriesDir, name))
		if err != nil {
			return nil, fmt.Errorf("read query %s: %w", name, err)
		}
		doc, rows, err := execute(ctx, store, string(raw))
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", name, err)
		}
		outName := strings.TrimSuffix(name, ".sql") + ".csv"
		loc, err := sink.Put(ctx, outName, bytes.NewReader(doc))
		if err != nil {
			return nil, fmt.Errorf("publish %s: %w", outName, err)
		}
		results = append(results, Result{Query: name, Rows: rows, Location: loc})
	}
	return results, nil
}

// execute runs one query and renders its result set as CSV with a header
// row. NULLs render as empty cells.
func execute(ctx context.Context, store *warehouse.Store, query string) ([]byte, int, error) {
	rows, err := store.DB().QueryxContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, 0, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, 0, err
	}
	count := 0
	record := make([]string, len(cols))
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, 0, err
		}
		for i, v := range vals {
			record[i] = renderCell(v)
		}
		if err := w.Write(record); err != nil {
			return nil, 0, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), count, nil
}

func renderCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(t)
	}
}
