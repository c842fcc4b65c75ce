package clean

import (
	"testing"

	"onetmart/pkg/domain"
)

func TestOccupationsDedupeTrimAndDerive(t *testing.T) {
	rows := []domain.Row{
		{"onetsoc_code": "15-1211.00", "title": "  Computer  Systems Analysts ", "description": ""},
		{"onetsoc_code": "15-1211.00", "title": "dup"},
	}
	got := Occupations(rows)
	if len(got) != 1 {
		t.Fatalf("expected 1 record after dedupe, got %d", len(got))
	}
	rec := got[0]
	if rec.Code != "15-1211.00" {
		t.Fatalf("unexpected code %q", rec.Code)
	}
	if rec.Title != "Computer Systems Analysts" {
		t.Fatalf("whitespace not collapsed: %q", rec.Title)
	}
	if rec.Description != domain.Unavailable {
		t.Fatalf("empty description should become sentinel, got %q", rec.Description)
	}
	if rec.MajorGroupCode != "15" {
		t.Fatalf("expected major group 15, got %q", rec.MajorGroupCode)
	}
}

func TestOccupationsDropsRowsMissingCodeOrTitle(t *testing.T) {
	rows := []domain.Row{
		{"onetsoc_code": "", "title": "No Code"},
		{"onetsoc_code": "17-2051.00", "title": "   "},
		{"onetsoc_code": "17-2051.00", "title": "Civil Engineers"},
	}
	got := Occupations(rows)
	if len(got) != 1 || got[0].Code != "17-2051.00" {
		t.Fatalf("expected only the complete row to survive, got %+v", got)
	}
}

func TestOccupationsSentinelMajorGroup(t *testing.T) {
	got := Occupations([]domain.Row{{"onetsoc_code": "oddcode", "title": "Odd"}})
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].MajorGroupCode != domain.Unavailable {
		t.Fatalf("dashless code should yield sentinel group, got %q", got[0].MajorGroupCode)
	}
}

func TestSplitRatingsReasonOrder(t *testing.T) {
	cases := []struct {
		name   string
		row    domain.Row
		reason domain.ErrorReason
	}{
		{"missing code", domain.Row{"element_id": "2.A.1.a", "scale_id": "IM"}, domain.ReasonMissingCode},
		{"bad soc", domain.Row{"onetsoc_code": "151211.00", "element_id": "2.A.1.a", "scale_id": "IM"}, domain.ReasonInvalidSOC},
		{"missing element", domain.Row{"onetsoc_code": "15-1211.00", "scale_id": "IM"}, domain.ReasonMissingElement},
		{"bad scale", domain.Row{"onetsoc_code": "15-1211.00", "element_id": "2.A.1.a", "scale_id": "CX"}, domain.ReasonInvalidScale},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			valid, invalid := SplitRatings([]domain.Row{tc.row}, domain.DomainSkill)
			if len(valid) != 0 {
				t.Fatalf("row unexpectedly valid: %+v", valid)
			}
			if len(invalid) != 1 {
				t.Fatalf("expected 1 invalid row, got %d", len(invalid))
			}
			if invalid[0].Reason != tc.reason {
				t.Fatalf("expected reason %s, got %s", tc.reason, invalid[0].Reason)
			}
			if invalid[0].Domain != domain.DomainSkill {
				t.Fatalf("invalid row lost its domain tag: %s", invalid[0].Domain)
			}
		})
	}
}

func TestSplitRatingsCleansAndSwapsBounds(t *testing.T) {
	row := domain.Row{
		"onetsoc_code":   "15-1211.00",
		"element_id":     "2.A.1.a",
		"scale_id":       "lv",
		"lower_ci_bound": "4.5",
		"upper_ci_bound": "3.0",
	}
	valid, invalid := SplitRatings([]domain.Row{row}, domain.DomainAbility)
	if len(invalid) != 0 {
		t.Fatalf("unexpected invalid rows: %+v", invalid)
	}
	if len(valid) != 1 {
		t.Fatalf("expected 1 valid row, got %d", len(valid))
	}
	rec := valid[0]
	if rec.ScaleID != domain.ScaleLevel {
		t.Fatalf("scale not uppercased: %q", rec.ScaleID)
	}
	if rec.LowerCIBound == nil || rec.UpperCIBound == nil {
		t.Fatal("bounds should both be present")
	}
	if *rec.LowerCIBound != 3.0 || *rec.UpperCIBound != 4.5 {
		t.Fatalf("bounds not swapped: lower=%v upper=%v", *rec.LowerCIBound, *rec.UpperCIBound)
	}
	if rec.Domain != domain.DomainAbility {
		t.Fatalf("domain tag lost: %s", rec.Domain)
	}
}

func TestSplitRatingsOptionalCoercion(t *testing.T) {
	row := domain.Row{
		"onetsoc_code":       "15-1211.00",
		"element_id":         "2.A.1.a",
		"scale_id":           "IM",
		"data_value":         "not-a-number",
		"n":                  "NaN",
		"standard_error":     "",
		"recommend_suppress": "true",
		"not_relevant":       "0",
		"date_updated":       "07/01/2023",
	}
	valid, _ := SplitRatings([]domain.Row{row}, domain.DomainKnowledge)
	if len(valid) != 1 {
		t.Fatalf("expected 1 valid row, got %d", len(valid))
	}
	rec := valid[0]
	if rec.DataValue != nil || rec.N != nil || rec.StandardError != nil {
		t.Fatalf("unparsable numerics must stay nil: %+v", rec)
	}
	if rec.RecommendSuppress != domain.TriYes {
		t.Fatalf("expected recommend_suppress yes, got %v", rec.RecommendSuppress)
	}
	if rec.NotRelevant != domain.TriNo {
		t.Fatalf("expected not_relevant no, got %v", rec.NotRelevant)
	}
	if rec.DateUpdated != "2023-07-01" {
		t.Fatalf("date not normalized: %q", rec.DateUpdated)
	}
}

func TestSplitRatingsUnknownFlagAndDate(t *testing.T) {
	row := domain.Row{
		"onetsoc_code": "15-1211.00",
		"element_id":   "2.A.1.a",
		"scale_id":     "IM",
		"date_updated": "July 2023",
	}
	valid, _ := SplitRatings([]domain.Row{row}, domain.DomainSkill)
	if len(valid) != 1 {
		t.Fatalf("expected 1 valid row, got %d", len(valid))
	}
	rec := valid[0]
	if rec.RecommendSuppress != domain.TriUnknown || rec.NotRelevant != domain.TriUnknown {
		t.Fatalf("absent flags must be unknown: %+v", rec)
	}
	if rec.DateUpdated != "" {
		t.Fatalf("unrecognized date must be empty, got %q", rec.DateUpdated)
	}
	if got := rec.RecommendSuppress.StorageValue(); got != domain.Unavailable {
		t.Fatalf("unknown flag storage value should be sentinel, got %q", got)
	}
}

func TestNormalizeSpace(t *testing.T) {
	if got := NormalizeSpace("  a \t b\n c  "); got != "a b c" {
		t.Fatalf("got %q", got)
	}
}
