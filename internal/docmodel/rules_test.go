package docmodel

import "testing"

func TestParseRulesTenantVariants(t *testing.T) {
	yaml := `
version: "1.0.0"
tables:
  customers:
    description: "Customer accounts"
    tenant: organization_id
    columns:
      email:
        type: email
        tags: [pii]
  orders:
    tenant:
      via: customer_id
      references: customers
    soft_delete:
      column: deleted_at
      deleted_value: "NOW()"
  products:
    global: true
`
	rules, err := ParseRules([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if rules.Version != "1.0.0" {
		t.Fatalf("version = %q", rules.Version)
	}
	if len(rules.Tables) != 3 {
		t.Fatalf("expected 3 tables, got %d", len(rules.Tables))
	}

	customers := rules.Tables["customers"]
	if customers.Tenant == nil || customers.Tenant.Direct != "organization_id" {
		t.Fatalf("customers: expected direct tenant organization_id, got %+v", customers.Tenant)
	}
	if !customers.Columns["email"].HasTag("pii") {
		t.Fatalf("expected email column tagged pii")
	}

	orders := rules.Tables["orders"]
	if orders.Tenant == nil || orders.Tenant.Inherited == nil {
		t.Fatalf("orders: expected inherited tenant config")
	}
	if orders.Tenant.Inherited.Via != "customer_id" || orders.Tenant.Inherited.References != "customers" {
		t.Fatalf("orders: unexpected inherited config %+v", orders.Tenant.Inherited)
	}

	if !rules.IsGlobalTable("products") {
		t.Fatalf("expected products to be global")
	}
}

func TestParseRulesSoftDelete(t *testing.T) {
	yaml := `
version: "1.0.0"
tables:
  users:
    soft_delete:
      column: is_deleted
      deleted_value: true
      active_value: false
`
	rules, err := ParseRules([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	users := rules.Tables["users"]
	if users.SoftDelete == nil || users.SoftDelete.Column != "is_deleted" {
		t.Fatalf("unexpected soft delete config: %+v", users.SoftDelete)
	}
}

func TestParseRulesAlwaysVisible(t *testing.T) {
	yaml := `
version: "1.0.0"
always_visible: [countries, currencies]
tables:
  customers:
    tenant: organization_id
`
	rules, err := ParseRules([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if len(rules.AlwaysVisible) != 2 || rules.AlwaysVisible[0] != "countries" || rules.AlwaysVisible[1] != "currencies" {
		t.Fatalf("unexpected always_visible: %+v", rules.AlwaysVisible)
	}

	docs := &Documents{Rules: rules}
	if got := docs.AlwaysVisibleTables(); len(got) != 2 {
		t.Fatalf("expected AlwaysVisibleTables to surface rules.AlwaysVisible, got %+v", got)
	}
}

func TestResolveTenantDefaultsToTenantID(t *testing.T) {
	docs := &Documents{Rules: &Rules{Tables: map[string]TableRules{}}}
	res := docs.ResolveTenant("unlisted_table")
	if res.Global || res.Inherited != nil || res.Column != "tenant_id" {
		t.Fatalf("expected default tenant_id resolution, got %+v", res)
	}
}

func TestIsSystemCatalogTable(t *testing.T) {
	cases := map[string]bool{
		"pg_catalog.pg_class":       true,
		"information_schema.tables": true,
		"pg_type":                   true,
		"orders":                    false,
		"public.orders":             false,
	}
	for name, want := range cases {
		if got := IsSystemCatalogTable(name); got != want {
			t.Errorf("IsSystemCatalogTable(%q) = %v, want %v", name, got, want)
		}
	}
}
