package toolgateway

import (
	"github.com/cori-do/cori-sub001/internal/toolgen"
)

// ToolDefinition is the wire shape of one callable tool, matching the
// JSON-RPC schema: {name, description?, inputSchema, annotations?}.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema *toolgen.JSONSchema `json:"inputSchema"`
	Annotations toolgen.Annotations `json:"annotations,omitempty"`
}

func toDefinition(t toolgen.Tool) ToolDefinition {
	return ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
		Annotations: t.Annotations,
	}
}

// Bundle is a role's resolved tool set, indexed by name for O(1)
// dispatch lookups in addition to the ordered slice used by tools/list.
type Bundle struct {
	Tools []toolgen.Tool
	byName map[string]toolgen.Tool
}

func newBundle(tools []toolgen.Tool) Bundle {
	b := Bundle{Tools: tools, byName: make(map[string]toolgen.Tool, len(tools))}
	for _, t := range tools {
		b.byName[t.Name] = t
	}
	return b
}

// Lookup finds a tool by name within the bundle.
func (b Bundle) Lookup(name string) (toolgen.Tool, bool) {
	t, ok := b.byName[name]
	return t, ok
}
