package rls

import (
	"os"
	"strings"
	"testing"

	"github.com/cori-do/cori-sub001/internal/docmodel"
)

func testStore(t *testing.T, rulesYAML string) *docmodel.Store {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir+"/schema.yaml", `
version: "1"
tables:
  - name: orders
    primary_key: [id]
    columns:
      - {name: id, data_type: uuid}
      - {name: tenant_id, data_type: text}
      - {name: customer_id, data_type: uuid}
      - {name: status, data_type: text}
  - name: customers
    primary_key: [id]
    columns:
      - {name: id, data_type: uuid}
      - {name: tenant_id, data_type: text}
  - name: audit_log
    primary_key: [id]
    columns:
      - {name: id, data_type: uuid}
`)
	writeFile(t, dir+"/rules.yaml", rulesYAML)
	store, err := docmodel.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestInjectScopesSimpleSelect(t *testing.T) {
	store := testStore(t, `
tables:
  orders:
    tenant: {direct: tenant_id}
`)
	inj := NewInjector(store)
	result, err := inj.Inject("SELECT * FROM orders WHERE status = 'pending'", "tenant-a")
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if !strings.Contains(result.RewrittenSQL, "orders.tenant_id = 'tenant-a'") {
		t.Fatalf("expected tenant predicate, got %q", result.RewrittenSQL)
	}
	if !strings.Contains(result.RewrittenSQL, "(status = 'pending') AND") {
		t.Fatalf("expected existing predicate wrapped in parens, got %q", result.RewrittenSQL)
	}
}

func TestInjectSkipsGlobalTable(t *testing.T) {
	store := testStore(t, `
tables:
  audit_log:
    global: true
`)
	inj := NewInjector(store)
	sql := "SELECT * FROM audit_log"
	result, err := inj.Inject(sql, "tenant-a")
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if result.RewrittenSQL != sql {
		t.Fatalf("expected global table query unchanged, got %q", result.RewrittenSQL)
	}
}

func TestInjectRejectsDDL(t *testing.T) {
	store := testStore(t, `tables: {}`)
	inj := NewInjector(store)
	_, err := inj.Inject("DROP TABLE orders", "tenant-a")
	if err == nil {
		t.Fatal("expected error for DDL")
	}
	if KindOfRLS(err) != KindDdlNotAllowed {
		t.Fatalf("expected DdlNotAllowed, got %v", err)
	}
}

func TestInjectInsertAddsTenantColumn(t *testing.T) {
	store := testStore(t, `
tables:
  orders:
    tenant: {direct: tenant_id}
`)
	inj := NewInjector(store)
	result, err := inj.Inject("INSERT INTO orders (id, status) VALUES ('1', 'pending')", "tenant-a")
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if !strings.Contains(result.RewrittenSQL, "tenant_id") || !strings.Contains(result.RewrittenSQL, "tenant-a") {
		t.Fatalf("expected tenant column injected, got %q", result.RewrittenSQL)
	}
}

func TestInjectInsertRejectsConflictingTenant(t *testing.T) {
	store := testStore(t, `
tables:
  orders:
    tenant: {direct: tenant_id}
`)
	inj := NewInjector(store)
	_, err := inj.Inject("INSERT INTO orders (id, tenant_id) VALUES ('1', 'tenant-b')", "tenant-a")
	if err == nil {
		t.Fatal("expected tenant mismatch error")
	}
	if KindOfRLS(err) != KindTenantMismatch {
		t.Fatalf("expected TenantMismatch, got %v", err)
	}
}

func TestInjectWhereWithOrderByLimit(t *testing.T) {
	store := testStore(t, `
tables:
  orders:
    tenant: {direct: tenant_id}
`)
	inj := NewInjector(store)
	result, err := inj.Inject("SELECT * FROM orders ORDER BY id LIMIT 10", "tenant-a")
	if err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if !strings.Contains(result.RewrittenSQL, "WHERE orders.tenant_id = 'tenant-a' ORDER BY") {
		t.Fatalf("expected WHERE inserted before ORDER BY, got %q", result.RewrittenSQL)
	}
}

// KindOfRLS extracts the Kind from an error returned by Inject, if any.
func KindOfRLS(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}
