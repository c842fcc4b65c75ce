// Package extract reads the canonical O*NET dump files. Each dump is a SQL
// script; it is evaluated into a throwaway in-memory sqlite database and the
// domain's canonical column set is selected back out as rows of named fields.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"onetmart/pkg/domain"
)

// ErrMissingOccupationSource aborts the run: the occupation dump is the one
// required input. Every other domain degrades to zero rows when absent.
var ErrMissingOccupationSource = errors.New("extract: missing required occupation source")

// Source names a logical extraction domain.
type Source string

// Extraction domains and their dump files.
const (
	SourceOccupation      Source = "occupation"
	SourceSkills          Source = "skills"
	SourceKnowledge       Source = "knowledge"
	SourceAbilities       Source = "abilities"
	SourceAnchors         Source = "level_scale_anchors"
	SourceScalesReference Source = "scales_reference"
)

type sourceSpec struct {
	file     string
	query    string
	required bool
}

const ratingColumns = `onetsoc_code, element_id, scale_id, data_value, n, standard_error,
	lower_ci_bound, upper_ci_bound, recommend_suppress, not_relevant,
	date_updated, domain_source`

var sources = map[Source]sourceSpec{
	SourceOccupation: {
		file:     "03_occupation_data.sql",
		query:    "SELECT onetsoc_code, title, description FROM occupation_data",
		required: true,
	},
	SourceSkills: {
		file:  "16_skills.sql",
		query: "SELECT " + ratingColumns + " FROM skills",
	},
	SourceKnowledge: {
		file:  "15_knowledge.sql",
		query: "SELECT " + ratingColumns + " FROM knowledge",
	},
	SourceAbilities: {
		file:  "11_abilities.sql",
		query: "SELECT " + ratingColumns + " FROM abilities",
	},
	SourceAnchors: {
		file:  "06_level_scale_anchors.sql",
		query: "SELECT element_id, scale_id, anchor_value, anchor_description FROM level_scale_anchors",
	},
	SourceScalesReference: {
		file:  "04_scales_reference.sql",
		query: "SELECT scale_id, scale_name, minimum, maximum FROM scales_reference",
	},
}

// Rows extracts all rows for one source domain from rawDir. A missing
// occupation dump returns ErrMissingOccupationSource; any other missing dump
// returns no rows and no error.
func Rows(ctx context.Context, rawDir string, src Source) ([]domain.Row, error) {
	spec, ok := sources[src]
	if !ok {
		return nil, fmt.Errorf("extract: unsupported source %q", src)
	}
	path := filepath.Join(rawDir, spec.file)
	if _, err := os.Stat(path); err != nil {
		if spec.required {
			return nil, fmt.Errorf("%w: %s", ErrMissingOccupationSource, path)
		}
		return nil, nil
	}
	script, err := readScript(path)
	if err != nil {
		return nil, err
	}
	return selectRows(ctx, script, spec.query)
}

// readScript loads a dump file and drops SQL Server GO batch separators so
// the script runs under sqlite.
func readScript(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read dump %s: %w", path, err)
	}
	lines := strings.Split(string(raw), "\n")
	kept := lines[:0]
	for _, ln := range lines {
		if strings.EqualFold(strings.TrimSpace(ln), "GO") {
			continue
		}
		kept = append(kept, ln)
	}
	return strings.Join(kept, "\n"), nil
}

// selectRows evaluates the dump script in a fresh in-memory database and
// runs the canonical select against it.
func selectRows(ctx context.Context, script, query string) ([]domain.Row, error) {
	db, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open scratch db: %w", err)
	}
	defer func() { _ = db.Close() }()
	// The scratch schema lives in the connection; keep the pool at one.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, script); err != nil {
		return nil, fmt.Errorf("evaluate dump script: %w", err)
	}
	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select dump rows: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Row
	for rows.Next() {
		raw := map[string]any{}
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("scan dump row: %w", err)
		}
		rec := make(domain.Row, len(raw))
		for col, v := range raw {
			if v == nil {
				continue
			}
			rec[col] = formatValue(v)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dump rows: %w", err)
	}
	return out, nil
}

// formatValue renders a scanned sqlite value as its source text.
func formatValue(v any) string {
	switch t := v.(type) {
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
