package docmodel

import "testing"

func TestParseGroupsRejectsZeroMembers(t *testing.T) {
	yaml := `
version: "1.0.0"
groups:
  finance_approvers:
    members: []
`
	if _, err := ParseGroups([]byte(yaml)); err == nil {
		t.Fatalf("expected error for zero-member group")
	}
}

func TestParseGroupsOK(t *testing.T) {
	yaml := `
version: "1.0.0"
groups:
  finance_approvers:
    members: ["alice@example.com", "bob@example.com"]
`
	groups, err := ParseGroups([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseGroups: %v", err)
	}
	members, ok := groups.Resolve("finance_approvers")
	if !ok || len(members) != 2 {
		t.Fatalf("unexpected group resolution: %v %v", members, ok)
	}
}

func TestResolvePatternPrefersInlineOverNamedType(t *testing.T) {
	docs := &Documents{
		Types: &Types{Types: map[string]TypeDef{
			"email": {Pattern: `^.+@.+$`},
		}},
	}
	got := docs.ResolvePattern(ColumnRules{TypeRef: "email"})
	if got != `^.+@.+$` {
		t.Fatalf("expected named type pattern, got %q", got)
	}
	got = docs.ResolvePattern(ColumnRules{TypeRef: "email", Pattern: `^override$`})
	if got != `^override$` {
		t.Fatalf("expected inline pattern to win, got %q", got)
	}
}
