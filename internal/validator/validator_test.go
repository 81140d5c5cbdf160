package validator

import (
	"os"
	"testing"

	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/toolgen"
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
  - name: tickets
    primary_key: [id]
    columns:
      - {name: id, data_type: uuid}
      - {name: tenant_id, data_type: text}
      - {name: priority, data_type: text}
      - {name: status, data_type: text}
`)
	must(dir+"/rules.yaml", `
tables:
  tickets:
    tenant: {direct: tenant_id}
`)
	os.MkdirAll(dir+"/roles", 0o755)
	must(dir+"/roles/agent.yaml", `
name: agent
tables:
  tickets:
    readable: all
    updatable:
      priority:
        restrict_to: ["low", "high"]
      status:
        transitions: ["open->closed"]
`)
	store, err := docmodel.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store.Snapshot()
}

func TestValidateRejectsRestrictToViolation(t *testing.T) {
	docs := loadTestDocs(t)
	role, _ := docs.Role("agent")
	tool := toolgen.Tool{Table: "tickets", Operation: toolgen.OpUpdate}
	args := map[string]interface{}{"id": "1", "priority": "critical"}
	_, err := NewValidator().Validate(docs, role, tool, args, Session{Role: "agent", Tenant: "tenant-a"}, nil)
	if err == nil {
		t.Fatal("expected restrict_to violation")
	}
	if err.(*Error).Kind != KindValueNotAllowed {
		t.Fatalf("expected ValueNotAllowed, got %v", err)
	}
}

func TestValidateRejectsInvalidTransition(t *testing.T) {
	docs := loadTestDocs(t)
	role, _ := docs.Role("agent")
	tool := toolgen.Tool{Table: "tickets", Operation: toolgen.OpUpdate}
	args := map[string]interface{}{"id": "1", "status": "closed"}
	currentRow := map[string]interface{}{"status": "pending"}
	_, err := NewValidator().Validate(docs, role, tool, args, Session{Role: "agent", Tenant: "tenant-a"}, currentRow)
	if err == nil {
		t.Fatal("expected invalid transition")
	}
	if err.(*Error).Kind != KindInvalidTransition {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
}

func TestValidateAllowsValidTransition(t *testing.T) {
	docs := loadTestDocs(t)
	role, _ := docs.Role("agent")
	tool := toolgen.Tool{Table: "tickets", Operation: toolgen.OpUpdate}
	args := map[string]interface{}{"id": "1", "status": "closed"}
	currentRow := map[string]interface{}{"status": "open"}
	_, err := NewValidator().Validate(docs, role, tool, args, Session{Role: "agent", Tenant: "tenant-a"}, currentRow)
	if err != nil {
		t.Fatalf("expected valid transition to pass, got %v", err)
	}
}

func TestValidateRequiresIdentifierForUpdate(t *testing.T) {
	docs := loadTestDocs(t)
	role, _ := docs.Role("agent")
	tool := toolgen.Tool{Table: "tickets", Operation: toolgen.OpUpdate}
	args := map[string]interface{}{"priority": "low"}
	_, err := NewValidator().Validate(docs, role, tool, args, Session{Role: "agent", Tenant: "tenant-a"}, map[string]interface{}{"priority": "high"})
	if err == nil {
		t.Fatal("expected missing identifier error")
	}
	if err.(*Error).Kind != KindMissingIdentifier {
		t.Fatalf("expected MissingIdentifier, got %v", err)
	}
}

func TestValidateRejectsListWhenMaxPerPageIsZero(t *testing.T) {
	dir := t.TempDir()
	must := func(path, content string) {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	must(dir+"/schema.yaml", `
version: "1"
tables:
  - name: tickets
    primary_key: [id]
    columns:
      - {name: id, data_type: uuid}
      - {name: tenant_id, data_type: text}
`)
	must(dir+"/rules.yaml", `
tables:
  tickets:
    tenant: {direct: tenant_id}
`)
	os.MkdirAll(dir+"/roles", 0o755)
	must(dir+"/roles/agent.yaml", `
name: agent
tables:
  tickets:
    readable:
      all: true
      max_per_page: 0
`)
	store, err := docmodel.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	docs := store.Snapshot()
	role, _ := docs.Role("agent")

	tool := toolgen.Tool{Table: "tickets", Operation: toolgen.OpList}
	_, err = NewValidator().Validate(docs, role, tool, map[string]interface{}{}, Session{Role: "agent", Tenant: "tenant-a"}, nil)
	if err == nil {
		t.Fatal("expected max_per_page=0 to reject list")
	}
	if err.(*Error).Kind != KindPaginationExceeded {
		t.Fatalf("expected PaginationExceeded, got %v", err)
	}
}

func TestValidateRejectsUnknownRole(t *testing.T) {
	docs := loadTestDocs(t)
	role, _ := docs.Role("agent")
	tool := toolgen.Tool{Table: "tickets", Operation: toolgen.OpUpdate}
	args := map[string]interface{}{"id": "1", "priority": "low"}
	_, err := NewValidator().Validate(docs, role, tool, args, Session{Role: "impostor", Tenant: "tenant-a"}, map[string]interface{}{"priority": "high"})
	if err == nil {
		t.Fatal("expected role mismatch error")
	}
	if err.(*Error).Kind != KindRoleMismatch {
		t.Fatalf("expected RoleMismatch, got %v", err)
	}
}
