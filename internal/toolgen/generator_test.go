package toolgen

import (
	"os"
	"testing"

	"github.com/cori-do/cori-sub001/internal/docmodel"
)

func loadTestDocs(t *testing.T) *docmodel.Documents {
	t.Helper()
	dir := t.TempDir()
	must := func(path, content string) {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	must(dir+"/schema.yaml", `
version: "1"
tables:
  - name: orders
    primary_key: [id]
    columns:
      - {name: id, data_type: uuid}
      - {name: tenant_id, data_type: text}
      - {name: status, data_type: text}
      - {name: total, data_type: numeric}
`)
	must(dir+"/rules.yaml", `
tables:
  orders:
    tenant: {direct: tenant_id}
`)
	os.MkdirAll(dir+"/roles", 0o755)
	must(dir+"/roles/admin.yaml", `
name: admin
tables:
  orders:
    readable: all
    creatable:
      status: {required: true, restrict_to: ["pending", "paid"]}
      total: {required: true}
    updatable:
      status:
        restrict_to: ["pending", "paid", "cancelled"]
        transitions: ["pending->paid", "pending->cancelled"]
    deletable:
      requires_approval: true
`)
	store, err := docmodel.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store.Snapshot()
}

func TestGenerateProducesFullBundle(t *testing.T) {
	docs := loadTestDocs(t)
	role, _ := docs.Role("admin")
	tools, err := NewGenerator().Generate(docs, role)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	names := map[string]Tool{}
	for _, tool := range tools {
		names[tool.Name] = tool
	}
	for _, want := range []string{"getOrder", "listOrder", "createOrder", "updateOrder", "deleteOrder"} {
		if _, ok := names[want]; !ok {
			t.Fatalf("expected tool %q, got %v", want, names)
		}
	}
	if !names["deleteOrder"].Annotations.RequiresApproval {
		t.Fatal("expected deleteOrder to require approval")
	}
	if _, ok := names["createOrder"].InputSchema.Properties["status"]; !ok {
		t.Fatal("expected status in createOrder schema")
	}
	if len(names["createOrder"].InputSchema.Required) != 2 {
		t.Fatalf("expected 2 required create fields, got %v", names["createOrder"].InputSchema.Required)
	}
}

func TestEntityNameSingularizes(t *testing.T) {
	cases := map[string]string{
		"orders":     "Order",
		"entities":   "Entity",
		"addresses":  "Address",
		"categories": "Category",
	}
	for table, want := range cases {
		if got := entityName(table); got != want {
			t.Fatalf("entityName(%q) = %q, want %q", table, got, want)
		}
	}
}
