package sqlgateway

import (
	"testing"

	"github.com/cori-do/cori-sub001/internal/catalog"
	"github.com/cori-do/cori-sub001/internal/docmodel"
)

func TestGrantFromRoleSkipsBlockedAndUnreadableTables(t *testing.T) {
	role := &docmodel.Role{
		Name:          "agent",
		BlockedTables: []string{"secrets"},
		Tables: map[string]docmodel.TablePermissions{
			"orders":  {Readable: &docmodel.ReadableSpec{Columns: []string{"id", "status"}}},
			"secrets": {Readable: &docmodel.ReadableSpec{All: true}},
			"logs":    {},
		},
	}
	grant := grantFromRole(role, nil)
	if len(grant.AccessibleTables) != 1 || grant.AccessibleTables[0] != "orders" {
		t.Fatalf("expected only orders accessible, got %+v", grant.AccessibleTables)
	}
	if len(grant.ReadableColumns["orders"]) != 2 {
		t.Fatalf("expected 2 readable columns for orders, got %+v", grant.ReadableColumns["orders"])
	}
}

func TestGrantFromRoleHandlesNilRole(t *testing.T) {
	grant := grantFromRole(nil, nil)
	if len(grant.AccessibleTables) != 0 {
		t.Fatalf("expected empty grant for nil role, got %+v", grant)
	}
}

func TestGrantFromRolePopulatesAlwaysVisibleFromRules(t *testing.T) {
	role := &docmodel.Role{
		Name: "agent",
		Tables: map[string]docmodel.TablePermissions{
			"orders": {Readable: &docmodel.ReadableSpec{All: true}},
		},
	}
	docs := &docmodel.Documents{Rules: &docmodel.Rules{AlwaysVisible: []string{"countries"}}}
	grant := grantFromRole(role, docs)
	if len(grant.AlwaysVisible) != 1 || grant.AlwaysVisible[0] != "countries" {
		t.Fatalf("expected always_visible to carry countries, got %+v", grant.AlwaysVisible)
	}
}

func TestCatalogRowDescriptionMatchesColumnOrder(t *testing.T) {
	result := catalog.Result{Columns: []string{"table_name", "table_type"}}
	rd := catalogRowDescription(result)
	if len(rd.Fields) != 2 || string(rd.Fields[0].Name) != "table_name" {
		t.Fatalf("unexpected field order: %+v", rd.Fields)
	}
}

func TestCatalogDataRowsOrdersByFirstColumn(t *testing.T) {
	result := catalog.Result{
		Columns: []string{"table_name"},
		Rows: []catalog.Row{
			{"table_name": "orders"},
			{"table_name": "customers"},
		},
	}
	rows := catalogDataRows(result)
	if len(rows) != 2 || string(rows[0].Values[0]) != "customers" {
		t.Fatalf("expected customers first, got %+v", rows)
	}
}
