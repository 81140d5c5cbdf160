package docmodel

import "testing"

func TestParseRoleTablePermissions(t *testing.T) {
	yaml := `
version: "1.0.0"
name: support_agent
tables:
  tickets:
    readable: all
    creatable:
      subject:
        required: true
      priority:
        default: "low"
        restrict_to: ["low", "medium", "high"]
    updatable:
      priority:
        restrict_to: ["low", "medium", "high"]
      status:
        transitions:
          - "open->closed"
          - "closed->open"
    deletable:
      requires_approval: true
  orders:
    readable:
      max_per_page: 50
      columns: [id, total, status]
`
	role, err := ParseRole([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseRole: %v", err)
	}

	tickets := role.Tables["tickets"]
	if !tickets.Readable.All {
		t.Fatalf("expected tickets.readable = all")
	}
	if tickets.Creatable.Empty() {
		t.Fatalf("expected tickets.creatable non-empty")
	}
	if !tickets.Creatable.Columns["subject"].Required {
		t.Fatalf("expected subject required")
	}
	if len(tickets.Updatable.Columns["status"].Transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %+v", tickets.Updatable.Columns["status"].Transitions)
	}
	tr := tickets.Updatable.Columns["status"].Transitions[0]
	if tr.From != "open" || tr.To != "closed" {
		t.Fatalf("unexpected transition parse: %+v", tr)
	}
	if !tickets.Deletable.IsAllowed() || !tickets.Deletable.RequiresApproval {
		t.Fatalf("unexpected deletable: %+v", tickets.Deletable)
	}

	orders := role.Tables["orders"]
	if orders.Readable.MaxPerPage == nil || *orders.Readable.MaxPerPage != 50 {
		t.Fatalf("expected max_per_page 50, got %+v", orders.Readable.MaxPerPage)
	}
	if orders.Readable.All {
		t.Fatalf("orders.readable should not be All when columns are enumerated")
	}
	if !orders.Readable.Allows("total") || orders.Readable.Allows("secret") {
		t.Fatalf("unexpected readable column set: %+v", orders.Readable.Columns)
	}
}

func TestDeletableBooleanForm(t *testing.T) {
	yaml := `
version: "1.0.0"
name: viewer
tables:
  orders:
    deletable: false
`
	role, err := ParseRole([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseRole: %v", err)
	}
	if role.Tables["orders"].Deletable.IsAllowed() {
		t.Fatalf("expected delete disallowed")
	}
}
