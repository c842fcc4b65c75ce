package schema

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	stmts := SplitStatements(SQLite)
	if len(stmts) == 0 {
		t.Fatal("expected sqlite DDL to produce statements")
	}
	for _, stmt := range stmts {
		if strings.HasPrefix(strings.TrimSpace(stmt), "--") {
			t.Fatalf("statement unexpectedly starts with comment: %q", stmt)
		}
		if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
			t.Fatalf("statement missing semicolon terminator: %q", stmt)
		}
	}
}

func TestBundlesCoverWarehouseTables(t *testing.T) {
	for _, ddl := range []string{SQLite, Postgres} {
		for _, table := range []string{
			"stg_occupation_data", "stg_skills", "stg_knowledge", "stg_abilities",
			"stg_level_scale_anchors", "stg_scales_reference", "stg_invalid_ska",
			"dim_major_group", "dim_occupation", "dim_element", "dim_scale",
			"dim_element_scale", "fact_occupation_element_rating",
		} {
			if !strings.Contains(ddl, "CREATE TABLE "+table+" (") {
				t.Fatalf("bundle missing table %s", table)
			}
		}
	}
}
