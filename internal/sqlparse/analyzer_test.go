package sqlparse

import "testing"

func TestParseSimpleSelect(t *testing.T) {
	a := NewAnalyzer()
	stmts, err := a.Parse("SELECT * FROM orders WHERE status = 'pending'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	s := stmts[0]
	if s.Op != OpSelect || s.IsDDL {
		t.Fatalf("unexpected classification: %+v", s)
	}
	if len(s.Tables) != 1 || s.Tables[0].Name != "orders" {
		t.Fatalf("unexpected tables: %+v", s.Tables)
	}
}

func TestParseJoinPreservesAliases(t *testing.T) {
	a := NewAnalyzer()
	stmts, err := a.Parse("SELECT o.id, u.name FROM orders o JOIN users u ON o.user_id = u.id")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	names := map[string]string{}
	for _, ref := range stmts[0].Tables {
		names[ref.Name] = ref.Alias
	}
	if names["orders"] != "o" || names["users"] != "u" {
		t.Fatalf("unexpected alias mapping: %+v", names)
	}
}

func TestParseDDLClassification(t *testing.T) {
	a := NewAnalyzer()
	stmts, err := a.Parse("DROP TABLE users")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !stmts[0].IsDDL || stmts[0].Op != OpDdl {
		t.Fatalf("expected DDL classification, got %+v", stmts[0])
	}
}

func TestParseEmptyInput(t *testing.T) {
	a := NewAnalyzer()
	stmts, err := a.Parse("   ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(stmts) != 0 {
		t.Fatalf("expected no statements for empty input, got %d", len(stmts))
	}
}

func TestParseMultipleStatements(t *testing.T) {
	a := NewAnalyzer()
	stmts, err := a.Parse("SELECT 1; SELECT 2;")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
}
