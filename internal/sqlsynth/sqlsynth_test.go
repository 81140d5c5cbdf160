package sqlsynth

import (
	"strings"
	"testing"

	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/toolgen"
)

func ordersTable() *docmodel.SchemaTable {
	return &docmodel.SchemaTable{
		Name:       "orders",
		PrimaryKey: []string{"id"},
		Columns: []docmodel.SchemaColumn{
			{Name: "id", DataType: "uuid"},
			{Name: "status", DataType: "text"},
			{Name: "tenant_id", DataType: "uuid"},
		},
	}
}

func TestSynthesizeGetBuildsPKWhere(t *testing.T) {
	sql, err := Synthesize(toolgen.Tool{Operation: toolgen.OpGet}, ordersTable(),
		map[string]interface{}{"id": "abc"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, `WHERE "id" = 'abc'`) {
		t.Fatalf("expected pk where clause, got %q", sql)
	}
}

func TestSynthesizeGetMissingPKFails(t *testing.T) {
	_, err := Synthesize(toolgen.Tool{Operation: toolgen.OpGet}, ordersTable(), map[string]interface{}{}, nil)
	if err == nil {
		t.Fatal("expected error for missing primary key")
	}
}

func TestSynthesizeListAppliesLimitAndFilter(t *testing.T) {
	sql, err := Synthesize(toolgen.Tool{Operation: toolgen.OpList}, ordersTable(),
		map[string]interface{}{"status": "open", "limit": 10}, []string{"id", "status"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, `SELECT "id", "status"`) {
		t.Fatalf("expected restricted projection, got %q", sql)
	}
	if !strings.Contains(sql, `"status" = 'open'`) || !strings.Contains(sql, "LIMIT 10") {
		t.Fatalf("expected filter and limit, got %q", sql)
	}
}

func TestSynthesizeCreateQuotesValues(t *testing.T) {
	sql, err := Synthesize(toolgen.Tool{Operation: toolgen.OpCreate}, ordersTable(),
		map[string]interface{}{"status": "O'Brien"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, `'O''Brien'`) {
		t.Fatalf("expected escaped literal, got %q", sql)
	}
}

func TestSynthesizeUpdateExcludesPrimaryKeyFromSet(t *testing.T) {
	sql, err := Synthesize(toolgen.Tool{Operation: toolgen.OpUpdate}, ordersTable(),
		map[string]interface{}{"id": "abc", "status": "closed"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(sql, `SET "id"`) {
		t.Fatalf("primary key must not appear in SET clause: %q", sql)
	}
	if !strings.Contains(sql, `WHERE "id" = 'abc'`) {
		t.Fatalf("expected pk where clause, got %q", sql)
	}
}

func TestSynthesizeDeleteRequiresPrimaryKey(t *testing.T) {
	_, err := Synthesize(toolgen.Tool{Operation: toolgen.OpDelete}, ordersTable(), map[string]interface{}{}, nil)
	if err == nil {
		t.Fatal("expected error for missing primary key")
	}
}

func TestSynthesizeSoftDeleteSetsColumnInsteadOfDeleting(t *testing.T) {
	sql, err := SynthesizeSoftDelete(ordersTable(), map[string]interface{}{"id": "abc"},
		docmodel.SoftDeleteConfig{Column: "status", DeletedValue: "archived"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sql, "UPDATE") || !strings.Contains(sql, `"status" = 'archived'`) {
		t.Fatalf("expected soft-delete update, got %q", sql)
	}
}
