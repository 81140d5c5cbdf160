package toolgateway

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/cori-do/cori-sub001/internal/approval"
	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/validator"
	"github.com/rs/zerolog"
)

func testDocsStore(t *testing.T) *docmodel.Store {
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
      - {name: total_cents, data_type: integer}
`)
	must(dir+"/rules.yaml", `
tables:
  orders:
    tenant: {direct: tenant_id}
`)
	if err := os.MkdirAll(dir+"/roles", 0o755); err != nil {
		t.Fatal(err)
	}
	must(dir+"/roles/agent.yaml", `
name: agent
tables:
  orders:
    readable: all
    creatable: all
    updatable:
      status:
        restrict_to: ["open", "closed"]
    deletable:
      requires_approval: true
`)
	store, err := docmodel.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func testDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	store := testDocsStore(t)
	approvals := approval.NewStore(zerolog.Nop(), nil)
	return NewDispatcher(zerolog.Nop(), store, approvals, nil, nil)
}

func TestBundleForListsGeneratedTools(t *testing.T) {
	d := testDispatcher(t)
	bundle, err := d.BundleFor("agent")
	if err != nil {
		t.Fatalf("BundleFor: %v", err)
	}
	if _, ok := bundle.Lookup("getOrder"); !ok {
		t.Fatalf("expected getOrder tool in bundle, got %+v", bundle.Tools)
	}
	if _, ok := bundle.Lookup("deleteOrder"); !ok {
		t.Fatalf("expected deleteOrder tool in bundle, got %+v", bundle.Tools)
	}
}

func TestCallUnknownToolReturnsNotFound(t *testing.T) {
	d := testDispatcher(t)
	session := validator.Session{Role: "agent", Tenant: "tenant-a"}
	_, err := d.Call(context.Background(), session, ToolsCallParams{Name: "doesNotExist", Arguments: map[string]interface{}{}})
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if _, ok := err.(*ToolNotFoundError); !ok {
		t.Fatalf("expected ToolNotFoundError, got %T: %v", err, err)
	}
}

func TestCallDeleteRequiresApprovalFirst(t *testing.T) {
	d := testDispatcher(t)
	session := validator.Session{Role: "agent", Tenant: "tenant-a"}
	result, err := d.Call(context.Background(), session, ToolsCallParams{
		Name:      "deleteOrder",
		Arguments: map[string]interface{}{"id": "order-1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kind != ResultPendingApproval {
		t.Fatalf("expected pending_approval, got %v", result.Kind)
	}
	if result.ApprovalID == "" {
		t.Fatal("expected a non-empty approval id")
	}
}

func TestCallCreateWithoutUpstreamFailsCleanly(t *testing.T) {
	d := testDispatcher(t)
	session := validator.Session{Role: "agent", Tenant: "tenant-a"}
	_, err := d.Call(context.Background(), session, ToolsCallParams{
		Name:      "createOrder",
		Arguments: map[string]interface{}{"status": "open", "total_cents": 500},
	})
	if err == nil {
		t.Fatal("expected error: no upstream configured")
	}
}

func TestHandleToolsListRoundTrips(t *testing.T) {
	d := testDispatcher(t)
	session := validator.Session{Role: "agent", Tenant: "tenant-a"}
	req := Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "tools/list"}
	resp := d.Handle(context.Background(), session, req)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(ToolsListResult)
	if !ok {
		t.Fatalf("expected ToolsListResult, got %T", resp.Result)
	}
	if len(result.Tools) == 0 {
		t.Fatal("expected at least one tool")
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	d := testDispatcher(t)
	session := validator.Session{Role: "agent", Tenant: "tenant-a"}
	req := Request{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "bogus/method"}
	resp := d.Handle(context.Background(), session, req)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", resp.Error)
	}
}
