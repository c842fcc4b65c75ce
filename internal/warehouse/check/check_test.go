package check

import (
	"context"
	"path/filepath"
	"testing"

	"onetmart/internal/warehouse"
	"onetmart/pkg/domain"
)

func newStore(t *testing.T) *warehouse.Store {
	t.Helper()
	s, err := warehouse.Open(context.Background(), warehouse.OpenConfig{
		Path: filepath.Join(t.TempDir(), "onet.db"),
	})
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustExec(t *testing.T, s *warehouse.Store, query string, args ...any) {
	t.Helper()
	if _, err := s.DB().Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func TestStagingSummaryAndCleanState(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.ReplaceOccupations(ctx, []domain.OccupationRecord{
		{Code: "15-1211.00", Title: "Computer Systems Analysts", Description: domain.Unavailable, MajorGroupCode: "15"},
	}); err != nil {
		t.Fatalf("stage occupations: %v", err)
	}
	findings, summary, err := Staging(ctx, s)
	if err != nil {
		t.Fatalf("staging checkpoint: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("clean staging should have no findings: %v", findings)
	}
	got := map[string]int{}
	for _, entry := range summary {
		got[entry.Label] = entry.Value
	}
	if got["rows_stg_occupation_data"] != 1 {
		t.Fatalf("missing occupation summary: %v", summary)
	}
	if _, ok := got["rows_stg_skills"]; !ok {
		t.Fatalf("expected skills summary entry: %v", summary)
	}
}

func TestStagingFlagsSentinelAndBadSOC(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	mustExec(t, s, `INSERT INTO stg_skills (onetsoc_code, element_id, scale_id) VALUES ('unavailable', '2.A.1.a', 'IM')`)
	mustExec(t, s, `INSERT INTO stg_knowledge (onetsoc_code, element_id, scale_id) VALUES ('151211.00', '2.C.1.a', 'IM')`)
	findings, _, err := Staging(ctx, s)
	if err != nil {
		t.Fatalf("staging checkpoint: %v", err)
	}
	want := map[string]bool{
		"'stg_skills' has 'unavailable' in key columns":          false,
		"'stg_skills' has invalid SOC format in onetsoc_code":    false,
		"'stg_knowledge' has invalid SOC format in onetsoc_code": false,
	}
	for _, f := range findings {
		if _, ok := want[f]; ok {
			want[f] = true
		}
	}
	for f, seen := range want {
		if !seen {
			t.Fatalf("missing finding %q in %v", f, findings)
		}
	}
}

func TestPostLoadCleanWarehouse(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	findings, err := PostLoad(ctx, s)
	if err != nil {
		t.Fatalf("postload checkpoint: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("empty warehouse should be clean: %v", findings)
	}
}

func TestPostLoadFindsViolations(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	mustExec(t, s, `INSERT INTO dim_occupation (onetsoc_code, title) VALUES ('15-1211.00', 'Analysts')`)
	mustExec(t, s, `INSERT INTO stg_skills (onetsoc_code, element_id, scale_id) VALUES ('15-1211.00', '2.A.1.a', 'IM')`)
	mustExec(t, s, `INSERT INTO stg_skills (onetsoc_code, element_id, scale_id) VALUES ('15-1211.00', '2.A.1.a', 'IM')`)
	// A fact row whose element never reached dim_element.
	mustExec(t, s, `INSERT INTO fact_occupation_element_rating (occupation_id, element_id, scale_id) VALUES (1, '2.A.1.a', 'IM')`)
	findings, err := PostLoad(ctx, s)
	if err != nil {
		t.Fatalf("postload checkpoint: %v", err)
	}
	wantDup := "duplicate (onetsoc_code, element_id, scale_id) rows in stg_skills"
	wantOrphan := "fact has element_ids not present in dim_element"
	var seenDup, seenOrphan bool
	for _, f := range findings {
		switch f {
		case wantDup:
			seenDup = true
		case wantOrphan:
			seenOrphan = true
		}
	}
	if !seenDup || !seenOrphan {
		t.Fatalf("expected findings %q and %q, got %v", wantDup, wantOrphan, findings)
	}
}
