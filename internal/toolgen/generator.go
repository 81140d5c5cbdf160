package toolgen

import (
	"fmt"
	"strings"

	"github.com/cori-do/cori-sub001/internal/docmodel"
)

// Generator derives tool bundles from a loaded schema and role.
type Generator struct{}

// NewGenerator constructs a Generator. It holds no state.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate produces every tool the role's table permissions allow,
// across every table the role names.
func (g *Generator) Generate(docs *docmodel.Documents, role *docmodel.Role) ([]Tool, error) {
	var tools []Tool
	for tableName, perms := range role.Tables {
		if role.IsBlocked(tableName) {
			continue
		}
		table, ok := docs.Schema.Table(tableName)
		if !ok {
			return nil, fmt.Errorf("toolgen: role %q references unknown table %q", role.Name, tableName)
		}
		entity := entityName(tableName)
		tenantScoped := !docs.ResolveTenant(tableName).Global
		softDelete, hasSoftDelete := docs.SoftDelete(tableName)

		if !perms.Readable.Empty() {
			tools = append(tools, g.getTool(tableName, entity, table, perms))
			tools = append(tools, g.listTool(tableName, entity, table, perms))
		}
		if !perms.Creatable.Empty() {
			tools = append(tools, g.createTool(tableName, entity, table, perms, tenantScoped))
		}
		if !perms.Updatable.Empty() {
			tools = append(tools, g.updateTool(tableName, entity, table, perms))
		}
		if perms.Deletable.IsAllowed() {
			tools = append(tools, g.deleteTool(tableName, entity, table, perms, hasSoftDelete, softDelete))
		}
	}
	return tools, nil
}

// entityName derives a PascalCase singular entity name from a table
// name, e.g. "orders" -> "Order", "entities" -> "Entity".
func entityName(table string) string {
	singular := table
	switch {
	case strings.HasSuffix(table, "ies"):
		singular = strings.TrimSuffix(table, "ies") + "y"
	case strings.HasSuffix(table, "ses"):
		singular = strings.TrimSuffix(table, "es")
	case strings.HasSuffix(table, "s") && !strings.HasSuffix(table, "ss"):
		singular = strings.TrimSuffix(table, "s")
	}
	if singular == "" {
		return table
	}
	return strings.ToUpper(singular[:1]) + singular[1:]
}

func pkSchema(table *docmodel.SchemaTable) (*JSONSchema, []string) {
	props := map[string]*JSONSchema{}
	var required []string
	for _, pk := range table.PrimaryKey {
		props[pk] = &JSONSchema{Type: jsonTypeOf(table, pk)}
		required = append(required, pk)
	}
	return &JSONSchema{Type: "object", Properties: props, Required: required}, required
}

func jsonTypeOf(table *docmodel.SchemaTable, column string) string {
	col, ok := table.Column(column)
	if !ok {
		return "string"
	}
	switch strings.ToLower(col.DataType) {
	case "integer", "bigint", "smallint":
		return "integer"
	case "numeric", "real", "double precision", "float":
		return "number"
	case "boolean":
		return "boolean"
	default:
		return "string"
	}
}

func (g *Generator) getTool(tableName, entity string, table *docmodel.SchemaTable, perms docmodel.TablePermissions) Tool {
	pkProps, required := pkSchema(table)
	return Tool{
		Name:        "get" + entity,
		Description: fmt.Sprintf("Fetch a single %s by primary key.", entity),
		Table:       tableName,
		Operation:   OpGet,
		InputSchema: &JSONSchema{Type: "object", Properties: pkProps.Properties, Required: required},
		Annotations: Annotations{ReadOnly: true, DryRunSupported: false},
	}
}

func (g *Generator) listTool(tableName, entity string, table *docmodel.SchemaTable, perms docmodel.TablePermissions) Tool {
	props := map[string]*JSONSchema{
		"filters":  {Type: "object"},
		"limit":    {Type: "integer"},
		"offset":   {Type: "integer"},
		"order_by": {Type: "string"},
	}
	return Tool{
		Name:        "list" + entity,
		Description: fmt.Sprintf("List %s rows visible to the caller's role and tenant.", entity),
		Table:       tableName,
		Operation:   OpList,
		InputSchema: &JSONSchema{Type: "object", Properties: props},
		Annotations: Annotations{ReadOnly: true, DryRunSupported: false},
	}
}

func (g *Generator) createTool(tableName, entity string, table *docmodel.SchemaTable, perms docmodel.TablePermissions, tenantScoped bool) Tool {
	props := map[string]*JSONSchema{}
	var required []string
	var approvalFields []string
	requiresApproval := false

	if perms.Creatable.All {
		for _, col := range table.Columns {
			props[col.Name] = &JSONSchema{Type: jsonTypeOfColumn(col)}
		}
	} else {
		for name, rule := range perms.Creatable.Columns {
			prop := &JSONSchema{Type: jsonTypeOf(table, name)}
			if len(rule.RestrictTo) > 0 {
				prop.Enum = rule.RestrictTo
			}
			if rule.Default != nil {
				prop.Default = rule.Default
			}
			if rule.Guidance != "" {
				prop.Description = rule.Guidance
			}
			props[name] = prop
			if rule.Required && rule.Default == nil {
				required = append(required, name)
			}
			if rule.RequiresApproval {
				requiresApproval = true
				approvalFields = append(approvalFields, name)
			}
		}
	}

	return Tool{
		Name:        "create" + entity,
		Description: fmt.Sprintf("Create a new %s row.", entity),
		Table:       tableName,
		Operation:   OpCreate,
		InputSchema: &JSONSchema{Type: "object", Properties: props, Required: required},
		Annotations: Annotations{
			ReadOnly:         false,
			RequiresApproval: requiresApproval,
			DryRunSupported:  true,
			ApprovalFields:   approvalFields,
		},
	}
}

func (g *Generator) updateTool(tableName, entity string, table *docmodel.SchemaTable, perms docmodel.TablePermissions) Tool {
	pkSpec, pkRequired := pkSchema(table)
	props := map[string]*JSONSchema{}
	for k, v := range pkSpec.Properties {
		props[k] = v
	}

	var approvalFields []string
	requiresApproval := false
	for name, rule := range perms.Updatable.Columns {
		prop := &JSONSchema{Type: jsonTypeOf(table, name)}
		if len(rule.RestrictTo) > 0 {
			prop.Enum = rule.RestrictTo
		}
		props[name] = prop
		if rule.RequiresApproval {
			requiresApproval = true
			approvalFields = append(approvalFields, name)
		}
	}

	return Tool{
		Name:        "update" + entity,
		Description: fmt.Sprintf("Update an existing %s row.", entity),
		Table:       tableName,
		Operation:   OpUpdate,
		InputSchema: &JSONSchema{Type: "object", Properties: props, Required: pkRequired},
		Annotations: Annotations{
			ReadOnly:         false,
			RequiresApproval: requiresApproval,
			DryRunSupported:  true,
			ApprovalFields:   approvalFields,
		},
	}
}

func (g *Generator) deleteTool(tableName, entity string, table *docmodel.SchemaTable, perms docmodel.TablePermissions, hasSoftDelete bool, softDelete docmodel.SoftDeleteConfig) Tool {
	pkSpec, pkRequired := pkSchema(table)
	description := fmt.Sprintf("Delete a %s row by primary key.", entity)
	if hasSoftDelete {
		description = fmt.Sprintf("Soft-delete a %s row by setting %s.", entity, softDelete.Column)
	}
	return Tool{
		Name:        "delete" + entity,
		Description: description,
		Table:       tableName,
		Operation:   OpDelete,
		InputSchema: &JSONSchema{Type: "object", Properties: pkSpec.Properties, Required: pkRequired},
		Annotations: Annotations{
			ReadOnly:         false,
			RequiresApproval: perms.Deletable.RequiresApproval,
			DryRunSupported:  true,
		},
	}
}

func jsonTypeOfColumn(col docmodel.SchemaColumn) string {
	switch strings.ToLower(col.DataType) {
	case "integer", "bigint", "smallint":
		return "integer"
	case "numeric", "real", "double precision", "float":
		return "number"
	case "boolean":
		return "boolean"
	default:
		return "string"
	}
}
