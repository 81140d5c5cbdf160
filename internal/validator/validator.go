package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/toolgen"
)

// Session is the connection's pinned identity: the role and tenant a
// capability token established at session start.
type Session struct {
	Role   string
	Tenant string
}

// Outcome is the result of a successful validation pass: either clear
// to proceed, or gated on human approval.
type Outcome struct {
	RequiresApproval bool
	ApprovalFields   []string
}

// Validator runs the eight-step pipeline against a tool call before any
// SQL is formed.
type Validator struct{}

// NewValidator constructs a Validator. It holds no state.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks tool against the loaded documents, the caller's role
// and session, and (for update operations that need it) the row's
// current values. currentRow may be nil for operations that don't
// require one (get/list/create/delete).
func (v *Validator) Validate(docs *docmodel.Documents, role *docmodel.Role, tool toolgen.Tool, args map[string]interface{}, session Session, currentRow map[string]interface{}) (Outcome, error) {
	// Step 1: role presence.
	if role == nil || session.Role == "" || role.Name != session.Role {
		return Outcome{}, newError(KindRoleMismatch, "", "session role %q does not match loaded role", session.Role)
	}

	// Step 2: table access.
	if role.IsBlocked(tool.Table) {
		return Outcome{}, newError(KindTableBlocked, tool.Table, "table is blocked for this role")
	}
	perms, ok := role.Tables[tool.Table]
	if !ok {
		return Outcome{}, newError(KindTableNotInRole, tool.Table, "table not granted to this role")
	}

	// Step 3: operation permission.
	if err := checkOperationPermission(tool.Operation, perms); err != nil {
		return Outcome{}, err
	}

	table, ok := docs.Schema.Table(tool.Table)
	if !ok {
		return Outcome{}, fmt.Errorf("validator: table %q missing from schema", tool.Table)
	}

	// Step 4: identifier requirement.
	if tool.Operation == toolgen.OpGet || tool.Operation == toolgen.OpUpdate || tool.Operation == toolgen.OpDelete {
		for _, pk := range table.PrimaryKey {
			if _, ok := args[pk]; !ok {
				return Outcome{}, newError(KindMissingIdentifier, pk, "primary key column required")
			}
		}
	}

	var approvalFields []string
	requiresApproval := false

	// Step 5: per-column constraints (create/update).
	switch tool.Operation {
	case toolgen.OpCreate:
		fields, reqApproval, err := validateCreateColumns(args, table, perms)
		if err != nil {
			return Outcome{}, err
		}
		approvalFields = append(approvalFields, fields...)
		requiresApproval = requiresApproval || reqApproval
	case toolgen.OpUpdate:
		fields, reqApproval, err := validateUpdateColumns(args, table, perms, currentRow)
		if err != nil {
			return Outcome{}, err
		}
		approvalFields = append(approvalFields, fields...)
		requiresApproval = requiresApproval || reqApproval
	}

	// Step 6: rules layer — tenant requirement and column-level pattern
	// and allowed-value constraints.
	if tool.Operation != toolgen.OpGet && tool.Operation != toolgen.OpList {
		resolution := docs.ResolveTenant(tool.Table)
		if !resolution.Global && session.Tenant == "" {
			return Outcome{}, newError(KindTenantRequired, "", "table %q requires a tenant but session has none", tool.Table)
		}
	}
	if err := validateAgainstRules(docs, tool.Table, args); err != nil {
		return Outcome{}, err
	}

	// Step 7: pagination bound. MaxPerPage is a pointer: unset means no
	// limit, while an explicit 0 means list operations are never
	// permitted regardless of the requested page size.
	if tool.Operation == toolgen.OpList && perms.Readable != nil && perms.Readable.MaxPerPage != nil {
		max := *perms.Readable.MaxPerPage
		if max == 0 {
			return Outcome{}, newError(KindPaginationExceeded, "limit", "max_per_page is 0; list is not permitted")
		}
		if limit, ok := asInt(args["limit"]); ok && limit > max {
			return Outcome{}, newError(KindPaginationExceeded, "limit", "limit %d exceeds max_per_page %d", limit, max)
		}
	}

	// Step 8: approval gating (role-level delete requirement).
	if tool.Operation == toolgen.OpDelete && perms.Deletable.RequiresApproval {
		requiresApproval = true
	}

	return Outcome{RequiresApproval: requiresApproval, ApprovalFields: dedupe(approvalFields)}, nil
}

func checkOperationPermission(op toolgen.Operation, perms docmodel.TablePermissions) error {
	switch op {
	case toolgen.OpGet, toolgen.OpList:
		if perms.Readable.Empty() {
			return newError(KindOperationDenied, "", "read access not granted")
		}
	case toolgen.OpCreate:
		if perms.Creatable.Empty() {
			return newError(KindOperationDenied, "", "create access not granted")
		}
	case toolgen.OpUpdate:
		if perms.Updatable.Empty() {
			return newError(KindOperationDenied, "", "update access not granted")
		}
	case toolgen.OpDelete:
		if !perms.Deletable.IsAllowed() {
			return newError(KindOperationDenied, "", "delete access not granted")
		}
	}
	return nil
}

func validateCreateColumns(args map[string]interface{}, table *docmodel.SchemaTable, perms docmodel.TablePermissions) ([]string, bool, error) {
	var approvalFields []string
	requiresApproval := false

	if perms.Creatable.All {
		return nil, false, nil
	}
	for name, value := range args {
		if isPKColumn(table, name) {
			continue
		}
		rule, ok := perms.Creatable.Columns[name]
		if !ok {
			return nil, false, newError(KindColumnNotAllowed, name, "column not in creatable rule set")
		}
		if len(rule.RestrictTo) > 0 && !containsValue(rule.RestrictTo, value) {
			return nil, false, newError(KindValueNotAllowed, name, "value %v not in restrict_to list", value)
		}
		if rule.RequiresApproval {
			requiresApproval = true
			approvalFields = append(approvalFields, name)
		}
	}
	for name, rule := range perms.Creatable.Columns {
		if rule.Required && rule.Default == nil {
			if _, ok := args[name]; !ok {
				return nil, false, newError(KindColumnNotAllowed, name, "required column missing")
			}
		}
	}
	return approvalFields, requiresApproval, nil
}

func validateUpdateColumns(args map[string]interface{}, table *docmodel.SchemaTable, perms docmodel.TablePermissions, currentRow map[string]interface{}) ([]string, bool, error) {
	var approvalFields []string
	requiresApproval := false

	for name, value := range args {
		if isPKColumn(table, name) {
			continue
		}
		rule, ok := perms.Updatable.Columns[name]
		if !ok {
			return nil, false, newError(KindColumnNotAllowed, name, "column not in updatable rule set")
		}
		if len(rule.RestrictTo) > 0 && !containsValue(rule.RestrictTo, value) {
			return nil, false, newError(KindValueNotAllowed, name, "value %v not in restrict_to list", value)
		}
		if len(rule.Transitions) > 0 {
			old, _ := currentRow[name]
			if !isValidTransition(rule.Transitions, fmt.Sprint(old), fmt.Sprint(value)) {
				return nil, false, newError(KindInvalidTransition, name, "transition %v -> %v not permitted", old, value)
			}
		}
		if rule.OnlyWhen != "" && !evaluatePrecondition(rule.OnlyWhen, currentRow) {
			return nil, false, newError(KindPreconditionFailed, name, "precondition %q not satisfied", rule.OnlyWhen)
		}
		if rule.IncrementOnly {
			if !isIncrement(currentRow[name], value) {
				return nil, false, newError(KindImmutableField, name, "value must only increase")
			}
		}
		if rule.AppendOnly {
			if !isAppend(currentRow[name], value) {
				return nil, false, newError(KindImmutableField, name, "value must only be appended to")
			}
		}
		if rule.RequiresApproval {
			requiresApproval = true
			approvalFields = append(approvalFields, name)
		}
	}
	return approvalFields, requiresApproval, nil
}

func validateAgainstRules(docs *docmodel.Documents, table string, args map[string]interface{}) error {
	for name, value := range args {
		rules, ok := docs.ColumnRules(table, name)
		if !ok {
			continue
		}
		if len(rules.AllowedValues) > 0 && !containsValue(rules.AllowedValues, value) {
			return newError(KindValueNotAllowed, name, "value %v not in allowed_values", value)
		}
		pattern := docs.ResolvePattern(rules)
		if pattern != "" {
			str, ok := value.(string)
			if !ok {
				continue
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return fmt.Errorf("validator: invalid pattern for column %q: %w", name, err)
			}
			if !re.MatchString(str) {
				return newError(KindPatternMismatch, name, "value does not match pattern %q", pattern)
			}
		}
	}
	return nil
}

func isPKColumn(table *docmodel.SchemaTable, name string) bool {
	for _, pk := range table.PrimaryKey {
		if pk == name {
			return true
		}
	}
	return false
}

func containsValue(list []interface{}, value interface{}) bool {
	for _, v := range list {
		if fmt.Sprint(v) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

func isValidTransition(transitions []docmodel.Transition, from, to string) bool {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// evaluatePrecondition supports the minimal "column=value" /
// "column!=value" predicate form against the row's current values.
func evaluatePrecondition(expr string, currentRow map[string]interface{}) bool {
	if currentRow == nil {
		return false
	}
	neg := strings.Contains(expr, "!=")
	sep := "!="
	if !neg {
		sep = "="
	}
	parts := strings.SplitN(expr, sep, 2)
	if len(parts) != 2 {
		return false
	}
	field := strings.TrimSpace(parts[0])
	want := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
	got := fmt.Sprint(currentRow[field])
	if neg {
		return got != want
	}
	return got == want
}

func isIncrement(old, next interface{}) bool {
	oldN, ok1 := asFloat(old)
	nextN, ok2 := asFloat(next)
	if !ok1 || !ok2 {
		return false
	}
	return nextN >= oldN
}

func isAppend(old, next interface{}) bool {
	oldStr, ok1 := old.(string)
	nextStr, ok2 := next.(string)
	if !ok1 || !ok2 {
		return false
	}
	return strings.HasPrefix(nextStr, oldStr)
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
