package warehouse

import (
	"context"
	"fmt"
	"strings"

	"onetmart/pkg/domain"
)

// Promotion derives the dimensional model from staging in strict dependency
// order: scales, major groups, occupations, elements, anchors, fact. Every
// step is an idempotent upsert keyed on the natural key; re-running with the
// same staging content changes nothing. Each step returns the number of
// rows considered, which for upserts may exceed the rows actually changed.

// PromoteScales rebuilds dim_scale from the staged reference source,
// restricted to the admitted scale ids. Existing rows are replaced in full.
func (s *Store) PromoteScales(ctx context.Context) (int, error) {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM dim_scale"); err != nil {
		return 0, fmt.Errorf("clear dim_scale: %w", err)
	}
	const insert = `INSERT INTO dim_scale (scale_id, name, min_value, max_value, step)
		SELECT scale_id, scale_name, MIN(minimum), MAX(maximum), NULL
		FROM stg_scales_reference
		WHERE scale_id IN ('IM', 'LV')
		GROUP BY scale_id, scale_name`
	if _, err := s.db.ExecContext(ctx, insert); err != nil {
		return 0, fmt.Errorf("rebuild dim_scale: %w", err)
	}
	return s.Count(ctx, "dim_scale")
}

// UpsertMajorGroups loads the major-group lookup keyed by the 2-character
// prefix of the full code. Rows with an unusable prefix or empty name are
// skipped.
func (s *Store) UpsertMajorGroups(ctx context.Context, groups []domain.MajorGroup) (int, error) {
	const upsert = `INSERT INTO dim_major_group (major_group_code, code_full, name)
		VALUES (:major_group_code, :code_full, :name)
		ON CONFLICT (major_group_code) DO UPDATE SET
		  code_full = excluded.code_full,
		  name = excluded.name`
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin major group tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareNamedContext(ctx, upsert)
	if err != nil {
		return 0, fmt.Errorf("prepare major group upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	n := 0
	for _, g := range groups {
		full := strings.TrimSpace(g.CodeFull)
		name := strings.TrimSpace(g.Name)
		if len(full) < 2 || name == "" {
			continue
		}
		args := map[string]any{"major_group_code": full[:2], "code_full": full, "name": name}
		if _, err := stmt.ExecContext(ctx, args); err != nil {
			return 0, fmt.Errorf("upsert major group %s: %w", full, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit major groups: %w", err)
	}
	committed = true
	return n, nil
}

// UpsertOccupations upserts the occupation dimension by SOC code; on
// conflict every descriptive attribute is overwritten with the incoming
// value.
func (s *Store) UpsertOccupations(ctx context.Context, recs []domain.OccupationRecord) (int, error) {
	const upsert = `INSERT INTO dim_occupation (onetsoc_code, title, description, major_group_code)
		VALUES (:onetsoc_code, :title, :description, :major_group_code)
		ON CONFLICT (onetsoc_code) DO UPDATE SET
		  title = excluded.title,
		  description = excluded.description,
		  major_group_code = excluded.major_group_code`
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin occupation tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareNamedContext(ctx, upsert)
	if err != nil {
		return 0, fmt.Errorf("prepare occupation upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range recs {
		args := map[string]any{
			"onetsoc_code":     r.Code,
			"title":            r.Title,
			"description":      r.Description,
			"major_group_code": r.MajorGroupCode,
		}
		if _, err := stmt.ExecContext(ctx, args); err != nil {
			return 0, fmt.Errorf("upsert occupation %s: %w", r.Code, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit occupations: %w", err)
	}
	committed = true
	return len(recs), nil
}

// elementUnion selects the distinct element ids staged across the three
// rating domains, one row per element. An element staged under more than
// one domain resolves to a single deterministic tag.
const elementUnion = `SELECT element_id, MIN(domain) AS domain FROM (
		  SELECT DISTINCT element_id, 'SKILL' AS domain FROM stg_skills
		  UNION
		  SELECT DISTINCT element_id, 'KNOWLEDGE' FROM stg_knowledge
		  UNION
		  SELECT DISTINCT element_id, 'ABILITY' FROM stg_abilities
		) u GROUP BY element_id`

// PromoteElements upserts the element dimension from staged ratings. The
// domain tag is overwritten wholesale on conflict: it reflects the latest
// promotion pass, not a cumulative history.
func (s *Store) PromoteElements(ctx context.Context) (int, error) {
	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM ("+elementUnion+") e"); err != nil {
		return 0, fmt.Errorf("count staged elements: %w", err)
	}
	upsert := `INSERT INTO dim_element (element_id, domain) ` + elementUnion + `
		ON CONFLICT (element_id) DO UPDATE SET domain = excluded.domain`
	if _, err := s.db.ExecContext(ctx, upsert); err != nil {
		return 0, fmt.Errorf("upsert dim_element: %w", err)
	}
	return total, nil
}

// PromoteAnchors upserts descriptive anchors from staging. The inner joins
// are the referential gate: an anchor is promoted only when its element and
// scale dimension rows already exist. On conflict only the description is
// refreshed.
func (s *Store) PromoteAnchors(ctx context.Context) (int, error) {
	total, err := s.Count(ctx, "stg_level_scale_anchors")
	if err != nil {
		return 0, err
	}
	const upsert = `INSERT INTO dim_element_scale (element_id, scale_id, anchor_value, anchor_description)
		SELECT a.element_id, a.scale_id, a.anchor_value, MAX(a.anchor_description)
		FROM stg_level_scale_anchors a
		JOIN dim_element e ON e.element_id = a.element_id
		JOIN dim_scale s ON s.scale_id = a.scale_id
		WHERE a.anchor_value IS NOT NULL
		GROUP BY a.element_id, a.scale_id, a.anchor_value
		ON CONFLICT (element_id, scale_id, anchor_value) DO UPDATE SET
		  anchor_description = excluded.anchor_description`
	if _, err := s.db.ExecContext(ctx, upsert); err != nil {
		return 0, fmt.Errorf("upsert dim_element_scale: %w", err)
	}
	return total, nil
}

// PromoteFacts upserts the shared fact table from each rating domain's
// staging, joining to the occupation dimension on SOC code. Staged rows
// without a matching occupation are excluded silently. On conflict every
// measurement and metadata field is overwritten.
func (s *Store) PromoteFacts(ctx context.Context) (int, error) {
	total := 0
	for _, d := range domain.RatingDomains() {
		table := stagingTable(d)
		var n int
		count := fmt.Sprintf(
			"SELECT COUNT(*) FROM %s t JOIN dim_occupation d ON d.onetsoc_code = t.onetsoc_code", table)
		if err := s.db.GetContext(ctx, &n, count); err != nil {
			return 0, fmt.Errorf("count %s join: %w", table, err)
		}
		// WHERE true keeps sqlite from parsing ON CONFLICT as a join constraint.
		upsert := fmt.Sprintf(`INSERT INTO fact_occupation_element_rating (
			  occupation_id, element_id, scale_id, data_value, n, standard_error,
			  lower_ci_bound, upper_ci_bound, recommend_suppress, not_relevant,
			  date_updated, domain_source
			)
			SELECT d.occupation_id, t.element_id, t.scale_id, t.data_value, t.n, t.standard_error,
			       t.lower_ci_bound, t.upper_ci_bound, t.recommend_suppress, t.not_relevant,
			       t.date_updated, t.domain_source
			FROM %s t
			JOIN dim_occupation d ON d.onetsoc_code = t.onetsoc_code
			WHERE true
			ON CONFLICT (occupation_id, element_id, scale_id) DO UPDATE SET
			  data_value = excluded.data_value,
			  n = excluded.n,
			  standard_error = excluded.standard_error,
			  lower_ci_bound = excluded.lower_ci_bound,
			  upper_ci_bound = excluded.upper_ci_bound,
			  recommend_suppress = excluded.recommend_suppress,
			  not_relevant = excluded.not_relevant,
			  date_updated = excluded.date_updated,
			  domain_source = excluded.domain_source`, table)
		if _, err := s.db.ExecContext(ctx, upsert); err != nil {
			return 0, fmt.Errorf("upsert fact from %s: %w", table, err)
		}
		total += n
	}
	return total, nil
}
