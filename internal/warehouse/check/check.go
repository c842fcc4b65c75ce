// Package check runs the read-only integrity rule sets over the warehouse.
// Findings are reported to the caller, never raised: a data-quality problem
// does not abort the run.
package check

import (
	"context"
	"fmt"

	"onetmart/internal/warehouse"
	"onetmart/pkg/domain"
)

// Summary is one labelled count from the staging checkpoint.
type Summary struct {
	Label string
	Value int
}

var stagingTables = []string{"stg_occupation_data", "stg_skills", "stg_knowledge", "stg_abilities"}

var ratingStagingTables = []string{"stg_skills", "stg_knowledge", "stg_abilities"}

// Staging runs the post-stage checkpoint: row counts for the present
// staging tables, sentinel values in natural-key columns, and SOC shape
// violations. Returns findings and the summary counts.
func Staging(ctx context.Context, s *warehouse.Store) ([]string, []Summary, error) {
	var (
		findings []string
		summary  []Summary
	)
	for _, table := range stagingTables {
		ok, err := s.TableExists(ctx, table)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		n, err := s.Count(ctx, table)
		if err != nil {
			return nil, nil, err
		}
		summary = append(summary, Summary{Label: "rows_" + table, Value: n})
	}
	for _, table := range ratingStagingTables {
		ok, err := s.TableExists(ctx, table)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		f, err := keyChecks(ctx, s, table)
		if err != nil {
			return nil, nil, err
		}
		findings = append(findings, f...)
	}
	return findings, summary, nil
}

// PostLoad runs the final-state rule set: occupation dimension uniqueness
// and required fields, staging key integrity, fact grain uniqueness, and
// fact-to-element referential resolution.
func PostLoad(ctx context.Context, s *warehouse.Store) ([]string, error) {
	var findings []string
	db := s.DB()

	var dupOcc int
	if err := db.GetContext(ctx, &dupOcc, `SELECT COUNT(*) FROM (
		SELECT onetsoc_code FROM dim_occupation GROUP BY onetsoc_code HAVING COUNT(*) > 1
	) d`); err != nil {
		return nil, fmt.Errorf("check dim_occupation duplicates: %w", err)
	}
	if dupOcc > 0 {
		findings = append(findings, "duplicate onetsoc_code in dim_occupation")
	}

	var nullOcc int
	if err := db.GetContext(ctx, &nullOcc,
		"SELECT COUNT(*) FROM dim_occupation WHERE onetsoc_code IS NULL OR title IS NULL"); err != nil {
		return nil, fmt.Errorf("check dim_occupation nulls: %w", err)
	}
	if nullOcc > 0 {
		findings = append(findings, "null required fields in dim_occupation")
	}

	for _, table := range ratingStagingTables {
		f, err := keyChecks(ctx, s, table)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f...)

		var dup int
		q := fmt.Sprintf(`SELECT COUNT(*) FROM (
			SELECT onetsoc_code, element_id, scale_id FROM %s
			GROUP BY onetsoc_code, element_id, scale_id HAVING COUNT(*) > 1
		) d`, table)
		if err := db.GetContext(ctx, &dup, q); err != nil {
			return nil, fmt.Errorf("check %s duplicates: %w", table, err)
		}
		if dup > 0 {
			findings = append(findings, fmt.Sprintf("duplicate (onetsoc_code, element_id, scale_id) rows in %s", table))
		}
	}

	total, err := s.Count(ctx, "fact_occupation_element_rating")
	if err != nil {
		return nil, err
	}
	var distinct int
	if err := db.GetContext(ctx, &distinct, `SELECT COUNT(*) FROM (
		SELECT occupation_id, element_id, scale_id FROM fact_occupation_element_rating
		GROUP BY occupation_id, element_id, scale_id
	) g`); err != nil {
		return nil, fmt.Errorf("check fact grain: %w", err)
	}
	if total != distinct {
		findings = append(findings, "fact grain (occupation_id, element_id, scale_id) is not unique")
	}

	var orphans int
	if err := db.GetContext(ctx, &orphans, `SELECT COUNT(*)
		FROM fact_occupation_element_rating f
		LEFT JOIN dim_element e ON e.element_id = f.element_id
		WHERE e.element_id IS NULL`); err != nil {
		return nil, fmt.Errorf("check fact element references: %w", err)
	}
	if orphans > 0 {
		findings = append(findings, "fact has element_ids not present in dim_element")
	}

	return findings, nil
}

// keyChecks flags sentinel values in natural-key columns and SOC codes that
// fail the fixed-shape mask.
func keyChecks(ctx context.Context, s *warehouse.Store, table string) ([]string, error) {
	db := s.DB()
	var findings []string

	var sentinels int
	q := db.Rebind(fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE onetsoc_code = ? OR element_id = ? OR scale_id = ?", table))
	if err := db.GetContext(ctx, &sentinels, q, domain.Unavailable, domain.Unavailable, domain.Unavailable); err != nil {
		return nil, fmt.Errorf("check %s sentinels: %w", table, err)
	}
	if sentinels > 0 {
		findings = append(findings, fmt.Sprintf("'%s' has '%s' in key columns", table, domain.Unavailable))
	}

	// LIKE mask instead of a regexp: portable across both dialects.
	var badSOC int
	if err := db.GetContext(ctx, &badSOC, fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE onetsoc_code NOT LIKE '__-____.__'", table)); err != nil {
		return nil, fmt.Errorf("check %s soc format: %w", table, err)
	}
	if badSOC > 0 {
		findings = append(findings, fmt.Sprintf("'%s' has invalid SOC format in onetsoc_code", table))
	}

	return findings, nil
}
