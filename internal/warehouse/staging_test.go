package warehouse

import (
	"context"
	"database/sql"
	"testing"

	"onetmart/pkg/domain"
)

func sampleRating(code, elem string, scale domain.ScaleID, d domain.RatingDomain) domain.Rating {
	return domain.Rating{
		OccupationCode: code,
		ElementID:      elem,
		ScaleID:        scale,
		DataValue:      fp(4.12),
		Domain:         d,
	}
}

func TestReplaceOccupationsIsReplaceNotMerge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	recs := []domain.OccupationRecord{
		{Code: "15-1211.00", Title: "Computer Systems Analysts", Description: domain.Unavailable, MajorGroupCode: "15"},
		{Code: "17-2051.00", Title: "Civil Engineers", Description: "Plan projects.", MajorGroupCode: "17"},
	}
	for i := 0; i < 2; i++ {
		n, err := s.ReplaceOccupations(ctx, recs)
		if err != nil {
			t.Fatalf("replace: %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2 loaded, got %d", n)
		}
	}
	n, err := s.Count(ctx, "stg_occupation_data")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("staging must hold exactly one batch, got %d rows", n)
	}
}

func TestReplaceRatingsSerializesSentinels(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rec := sampleRating("15-1211.00", "2.A.1.a", domain.ScaleImportance, domain.DomainSkill)
	rec.RecommendSuppress = domain.TriNo
	// NotRelevant, DateUpdated, DomainSource left unknown.
	if _, err := s.ReplaceRatings(ctx, domain.DomainSkill, []domain.Rating{rec}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	var got struct {
		RecommendSuppress string          `db:"recommend_suppress"`
		NotRelevant       string          `db:"not_relevant"`
		DateUpdated       string          `db:"date_updated"`
		DomainSource      string          `db:"domain_source"`
		N                 sql.NullFloat64 `db:"n"`
	}
	if err := s.DB().GetContext(ctx, &got,
		"SELECT recommend_suppress, not_relevant, date_updated, domain_source, n FROM stg_skills"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.RecommendSuppress != "N" {
		t.Fatalf("expected N, got %q", got.RecommendSuppress)
	}
	if got.NotRelevant != domain.Unavailable || got.DateUpdated != domain.Unavailable || got.DomainSource != domain.Unavailable {
		t.Fatalf("unknown optionals must serialize as sentinel: %+v", got)
	}
	if got.N.Valid {
		t.Fatalf("absent numeric must stay NULL, got %v", got.N)
	}
}

func TestReplaceRatingsRoutesDomainsToTables(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for _, tc := range []struct {
		d     domain.RatingDomain
		table string
	}{
		{domain.DomainSkill, "stg_skills"},
		{domain.DomainKnowledge, "stg_knowledge"},
		{domain.DomainAbility, "stg_abilities"},
	} {
		if _, err := s.ReplaceRatings(ctx, tc.d,
			[]domain.Rating{sampleRating("15-1211.00", "2.A.1.a", domain.ScaleLevel, tc.d)}); err != nil {
			t.Fatalf("replace %s: %v", tc.d, err)
		}
		n, err := s.Count(ctx, tc.table)
		if err != nil {
			t.Fatalf("count %s: %v", tc.table, err)
		}
		if n != 1 {
			t.Fatalf("expected 1 row in %s, got %d", tc.table, n)
		}
	}
}

func TestReplaceInvalidRatingsAbsentFieldsAreNull(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	recs := []domain.InvalidRating{
		{
			Domain: domain.DomainKnowledge,
			Reason: domain.ReasonMissingCode,
			Fields: domain.Row{"element_id": "2.C.1.a", "scale_id": "IM"},
		},
	}
	n, err := s.ReplaceInvalidRatings(ctx, recs)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 diagnostic row, got %d", n)
	}
	var got struct {
		Domain      string         `db:"domain"`
		Code        sql.NullString `db:"onetsoc_code"`
		ElementID   sql.NullString `db:"element_id"`
		ErrorReason string         `db:"error_reason"`
	}
	if err := s.DB().GetContext(ctx, &got,
		"SELECT domain, onetsoc_code, element_id, error_reason FROM stg_invalid_ska"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Code.Valid {
		t.Fatalf("absent field must be NULL, got %q", got.Code.String)
	}
	if !got.ElementID.Valid || got.ElementID.String != "2.C.1.a" {
		t.Fatalf("present field lost: %+v", got)
	}
	if got.Domain != "KNOWLEDGE" || got.ErrorReason != string(domain.ReasonMissingCode) {
		t.Fatalf("diagnostic tags wrong: %+v", got)
	}
}

func TestReplaceAnchorsAndScalesReference(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	anchors := []domain.Row{
		{"element_id": "2.A.1.a", "scale_id": "LV", "anchor_value": "2", "anchor_description": "Basic"},
		{"element_id": "2.A.1.a", "scale_id": "LV", "anchor_value": "junk"},
	}
	if _, err := s.ReplaceAnchors(ctx, anchors); err != nil {
		t.Fatalf("replace anchors: %v", err)
	}
	var nullValues int
	if err := s.DB().GetContext(ctx, &nullValues,
		"SELECT COUNT(*) FROM stg_level_scale_anchors WHERE anchor_value IS NULL"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if nullValues != 1 {
		t.Fatalf("unparsable anchor_value should stage as NULL, got %d", nullValues)
	}
	scales := []domain.Row{
		{"scale_id": "IM", "scale_name": "Importance", "minimum": "1", "maximum": "5"},
		{"scale_id": "LV", "scale_name": "Level", "minimum": "0", "maximum": "7"},
	}
	n, err := s.ReplaceScalesReference(ctx, scales)
	if err != nil {
		t.Fatalf("replace scales: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 scales staged, got %d", n)
	}
}
