package warehouse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"onetmart/pkg/domain"
)

// insertChunk bounds the rows per bulk insert so the expanded parameter
// list stays under sqlite's variable limit.
const insertChunk = 500

type occupationRow struct {
	Code        string `db:"onetsoc_code"`
	Title       string `db:"title"`
	Description string `db:"description"`
}

type ratingRow struct {
	Code              string   `db:"onetsoc_code"`
	ElementID         string   `db:"element_id"`
	ScaleID           string   `db:"scale_id"`
	DataValue         *float64 `db:"data_value"`
	N                 *float64 `db:"n"`
	StandardError     *float64 `db:"standard_error"`
	LowerCIBound      *float64 `db:"lower_ci_bound"`
	UpperCIBound      *float64 `db:"upper_ci_bound"`
	RecommendSuppress string   `db:"recommend_suppress"`
	NotRelevant       string   `db:"not_relevant"`
	DateUpdated       string   `db:"date_updated"`
	DomainSource      string   `db:"domain_source"`
}

type invalidRow struct {
	Domain            string  `db:"domain"`
	Code              *string `db:"onetsoc_code"`
	ElementID         *string `db:"element_id"`
	ScaleID           *string `db:"scale_id"`
	DataValue         *string `db:"data_value"`
	N                 *string `db:"n"`
	StandardError     *string `db:"standard_error"`
	LowerCIBound      *string `db:"lower_ci_bound"`
	UpperCIBound      *string `db:"upper_ci_bound"`
	RecommendSuppress *string `db:"recommend_suppress"`
	NotRelevant       *string `db:"not_relevant"`
	DateUpdated       *string `db:"date_updated"`
	DomainSource      *string `db:"domain_source"`
	ErrorReason       string  `db:"error_reason"`
}

type anchorRow struct {
	ElementID   string   `db:"element_id"`
	ScaleID     string   `db:"scale_id"`
	Value       *float64 `db:"anchor_value"`
	Description *string  `db:"anchor_description"`
}

type scaleRefRow struct {
	ScaleID   string   `db:"scale_id"`
	ScaleName *string  `db:"scale_name"`
	Minimum   *float64 `db:"minimum"`
	Maximum   *float64 `db:"maximum"`
}

// stagingTable maps a rating domain to its staging table.
func stagingTable(d domain.RatingDomain) string {
	switch d {
	case domain.DomainKnowledge:
		return "stg_knowledge"
	case domain.DomainAbility:
		return "stg_abilities"
	default:
		return "stg_skills"
	}
}

const ratingInsertColumns = ` (
		onetsoc_code, element_id, scale_id, data_value, n, standard_error,
		lower_ci_bound, upper_ci_bound, recommend_suppress, not_relevant,
		date_updated, domain_source
	) VALUES (
		:onetsoc_code, :element_id, :scale_id, :data_value, :n, :standard_error,
		:lower_ci_bound, :upper_ci_bound, :recommend_suppress, :not_relevant,
		:date_updated, :domain_source
	)`

// replaceRows clears table and bulk-inserts rows inside one transaction.
// Returns the number of rows loaded.
func replaceRows[T any](ctx context.Context, s *Store, table, insert string, rows []T) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin staging tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return 0, fmt.Errorf("truncate %s: %w", table, err)
	}
	for start := 0; start < len(rows); start += insertChunk {
		end := min(start+insertChunk, len(rows))
		if _, err := tx.NamedExecContext(ctx, insert, rows[start:end]); err != nil {
			return 0, fmt.Errorf("load %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", table, err)
	}
	committed = true
	return len(rows), nil
}

// ReplaceOccupations replaces the occupation staging area with the cleaned
// records.
func (s *Store) ReplaceOccupations(ctx context.Context, recs []domain.OccupationRecord) (int, error) {
	rows := make([]occupationRow, len(recs))
	for i, r := range recs {
		rows[i] = occupationRow{Code: r.Code, Title: r.Title, Description: r.Description}
	}
	insert := "INSERT INTO stg_occupation_data (onetsoc_code, title, description) VALUES (:onetsoc_code, :title, :description)"
	return replaceRows(ctx, s, "stg_occupation_data", insert, rows)
}

// ReplaceRatings replaces one domain's staging area with the cleaned
// ratings. Optional values are serialized here: unknown flags, dates, and
// sources become the Unavailable sentinel; absent numerics stay NULL.
func (s *Store) ReplaceRatings(ctx context.Context, d domain.RatingDomain, recs []domain.Rating) (int, error) {
	table := stagingTable(d)
	rows := make([]ratingRow, len(recs))
	for i, r := range recs {
		rows[i] = ratingRow{
			Code:              r.OccupationCode,
			ElementID:         r.ElementID,
			ScaleID:           string(r.ScaleID),
			DataValue:         r.DataValue,
			N:                 r.N,
			StandardError:     r.StandardError,
			LowerCIBound:      r.LowerCIBound,
			UpperCIBound:      r.UpperCIBound,
			RecommendSuppress: r.RecommendSuppress.StorageValue(),
			NotRelevant:       r.NotRelevant.StorageValue(),
			DateUpdated:       orUnavailable(r.DateUpdated),
			DomainSource:      orUnavailable(r.DomainSource),
		}
	}
	return replaceRows(ctx, s, table, "INSERT INTO "+table+ratingInsertColumns, rows)
}

// ReplaceInvalidRatings replaces the diagnostics staging area. Fields absent
// on a given invalid row load as NULL rather than failing the row.
func (s *Store) ReplaceInvalidRatings(ctx context.Context, recs []domain.InvalidRating) (int, error) {
	rows := make([]invalidRow, len(recs))
	for i, r := range recs {
		rows[i] = invalidRow{
			Domain:            string(r.Domain),
			Code:              rawField(r.Fields, "onetsoc_code"),
			ElementID:         rawField(r.Fields, "element_id"),
			ScaleID:           rawField(r.Fields, "scale_id"),
			DataValue:         rawField(r.Fields, "data_value"),
			N:                 rawField(r.Fields, "n"),
			StandardError:     rawField(r.Fields, "standard_error"),
			LowerCIBound:      rawField(r.Fields, "lower_ci_bound"),
			UpperCIBound:      rawField(r.Fields, "upper_ci_bound"),
			RecommendSuppress: rawField(r.Fields, "recommend_suppress"),
			NotRelevant:       rawField(r.Fields, "not_relevant"),
			DateUpdated:       rawField(r.Fields, "date_updated"),
			DomainSource:      rawField(r.Fields, "domain_source"),
			ErrorReason:       string(r.Reason),
		}
	}
	insert := `INSERT INTO stg_invalid_ska (
		domain, onetsoc_code, element_id, scale_id, data_value, n, standard_error,
		lower_ci_bound, upper_ci_bound, recommend_suppress, not_relevant,
		date_updated, domain_source, error_reason
	) VALUES (
		:domain, :onetsoc_code, :element_id, :scale_id, :data_value, :n, :standard_error,
		:lower_ci_bound, :upper_ci_bound, :recommend_suppress, :not_relevant,
		:date_updated, :domain_source, :error_reason
	)`
	return replaceRows(ctx, s, "stg_invalid_ska", insert, rows)
}

// ReplaceAnchors replaces the anchor staging area from raw extracted rows.
func (s *Store) ReplaceAnchors(ctx context.Context, raw []domain.Row) (int, error) {
	rows := make([]anchorRow, len(raw))
	for i, r := range raw {
		rows[i] = anchorRow{
			ElementID:   r["element_id"],
			ScaleID:     r["scale_id"],
			Value:       rawFloat(r, "anchor_value"),
			Description: rawField(r, "anchor_description"),
		}
	}
	insert := `INSERT INTO stg_level_scale_anchors (element_id, scale_id, anchor_value, anchor_description)
		VALUES (:element_id, :scale_id, :anchor_value, :anchor_description)`
	return replaceRows(ctx, s, "stg_level_scale_anchors", insert, rows)
}

// ReplaceScalesReference replaces the scales reference staging area from raw
// extracted rows.
func (s *Store) ReplaceScalesReference(ctx context.Context, raw []domain.Row) (int, error) {
	rows := make([]scaleRefRow, len(raw))
	for i, r := range raw {
		rows[i] = scaleRefRow{
			ScaleID:   r["scale_id"],
			ScaleName: rawField(r, "scale_name"),
			Minimum:   rawFloat(r, "minimum"),
			Maximum:   rawFloat(r, "maximum"),
		}
	}
	insert := `INSERT INTO stg_scales_reference (scale_id, scale_name, minimum, maximum)
		VALUES (:scale_id, :scale_name, :minimum, :maximum)`
	return replaceRows(ctx, s, "stg_scales_reference", insert, rows)
}

// orUnavailable serializes an absent optional string as the sentinel.
func orUnavailable(v string) string {
	if v == "" {
		return domain.Unavailable
	}
	return v
}

// rawField returns a pointer to the raw value, or nil when the field was
// absent on the source row.
func rawField(r domain.Row, key string) *string {
	v, ok := r[key]
	if !ok {
		return nil
	}
	return &v
}

// rawFloat parses a raw field as a float, nil when absent or unparsable.
func rawFloat(r domain.Row, key string) *float64 {
	v, ok := r[key]
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return nil
	}
	return &f
}
