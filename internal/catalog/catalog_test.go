package catalog

import (
	"os"
	"testing"

	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/sqlparse"
)

func loadDocs(t *testing.T) *docmodel.Documents {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/schema.yaml", []byte(`
version: "1"
tables:
  - name: customers
    primary_key: [id]
    columns:
      - {name: id, data_type: uuid}
      - {name: tenant_id, data_type: text}
  - name: orders
    primary_key: [id]
    columns:
      - {name: id, data_type: uuid}
      - {name: tenant_id, data_type: text}
  - name: countries
    primary_key: [code]
    columns:
      - {name: code, data_type: text}
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dir+"/rules.yaml", []byte(`tables: {}`), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := docmodel.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store.Snapshot()
}

func TestIsSchemaQueryDetectsIntrospection(t *testing.T) {
	a := sqlparse.NewAnalyzer()
	stmts, err := a.Parse("SELECT table_name FROM information_schema.tables WHERE table_schema='public'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	view, ok := IsSchemaQuery(stmts[0])
	if !ok || view != "information_schema.tables" {
		t.Fatalf("expected schema query detection, got %q ok=%v", view, ok)
	}
}

func TestIsSchemaQueryIgnoresUserTables(t *testing.T) {
	a := sqlparse.NewAnalyzer()
	stmts, err := a.Parse("SELECT * FROM orders")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := IsSchemaQuery(stmts[0]); ok {
		t.Fatal("did not expect schema query detection for a user table")
	}
}

func TestSynthesizeTablesScopedToGrant(t *testing.T) {
	docs := loadDocs(t)
	grant := Grant{
		AccessibleTables: []string{"customers", "orders"},
		AlwaysVisible:    []string{"countries"},
	}
	result, err := Synthesize("information_schema.tables", grant, docs, Config{}, nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(result.Rows), result.Rows)
	}
	names := map[string]bool{}
	for _, row := range result.Rows {
		names[row["table_name"].(string)] = true
	}
	for _, want := range []string{"customers", "orders", "countries"} {
		if !names[want] {
			t.Fatalf("expected %q in synthesized result, got %+v", want, names)
		}
	}
}

func TestSynthesizePgClassHidesRowCountsByDefault(t *testing.T) {
	docs := loadDocs(t)
	grant := Grant{AccessibleTables: []string{"orders"}}
	result, err := Synthesize("pg_catalog.pg_class", grant, docs, Config{}, map[string]int64{"orders": 42})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.Rows[0]["reltuples"] != nil {
		t.Fatalf("expected row count withheld by default, got %v", result.Rows[0]["reltuples"])
	}
}

func TestSynthesizePgClassExposesRowCountsWhenEnabled(t *testing.T) {
	docs := loadDocs(t)
	grant := Grant{AccessibleTables: []string{"orders"}}
	result, err := Synthesize("pg_catalog.pg_class", grant, docs, Config{ExposeRowCounts: true}, map[string]int64{"orders": 42})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.Rows[0]["reltuples"] != int64(42) {
		t.Fatalf("expected row count 42, got %v", result.Rows[0]["reltuples"])
	}
}
