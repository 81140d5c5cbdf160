package docmodel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Store is the process-global, read-mostly cell holding the current
// Documents snapshot. Readers call Snapshot once per request and hold
// the returned value for the duration of that request; writers (hot
// reload) publish a new snapshot atomically via Reload. In-flight
// readers keep working against their already-acquired snapshot.
type Store struct {
	current atomic.Pointer[Documents]
	dir     string
}

// NewStore loads the five documents from dir using the conventional
// layout (schema.yaml, rules.yaml, types.yaml, groups.yaml, roles/*.yaml)
// and returns a Store ready for concurrent reads.
func NewStore(dir string) (*Store, error) {
	docs, err := LoadDirectory(dir)
	if err != nil {
		return nil, err
	}
	s := &Store{dir: dir}
	s.current.Store(docs)
	return s, nil
}

// Snapshot returns the current Documents. The returned value is
// immutable and safe to hold for the lifetime of a request or session.
func (s *Store) Snapshot() *Documents {
	return s.current.Load()
}

// Reload re-reads the configuration directory and publishes a new
// snapshot atomically. Requests already holding a prior snapshot are
// unaffected; new requests observe the new one.
func (s *Store) Reload() error {
	docs, err := LoadDirectory(s.dir)
	if err != nil {
		return err
	}
	s.current.Store(docs)
	return nil
}

// LoadDirectory loads all five documents from the conventional on-disk
// layout rooted at dir:
//
//	dir/schema.yaml
//	dir/rules.yaml
//	dir/types.yaml
//	dir/groups.yaml
//	dir/roles/*.yaml   (one file per role; file stem or embedded `name` wins)
func LoadDirectory(dir string) (*Documents, error) {
	schema, err := LoadSchema(filepath.Join(dir, "schema.yaml"))
	if err != nil {
		return nil, err
	}
	rules, err := LoadRules(filepath.Join(dir, "rules.yaml"))
	if err != nil {
		return nil, err
	}
	types, err := LoadTypes(filepath.Join(dir, "types.yaml"))
	if err != nil {
		// types.yaml is optional: rules may reference no named types.
		if !os.IsNotExist(err) {
			return nil, err
		}
		types = &Types{Types: map[string]TypeDef{}}
	}
	groups, err := LoadGroups(filepath.Join(dir, "groups.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		groups = &Groups{Groups: map[string]GroupDef{}}
	}

	roles, err := loadRoles(filepath.Join(dir, "roles"))
	if err != nil {
		return nil, err
	}

	if err := validateRoles(schema, roles); err != nil {
		return nil, err
	}

	return &Documents{
		Schema: schema,
		Rules:  rules,
		Roles:  roles,
		Types:  types,
		Groups: groups,
	}, nil
}

func loadRoles(dir string) (map[string]*Role, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Role{}, nil
		}
		return nil, fmt.Errorf("docmodel: read roles dir: %w", err)
	}
	roles := map[string]*Role{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		role, err := LoadRole(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		name := role.Name
		if name == "" {
			name = strings.TrimSuffix(e.Name(), ".yaml")
		}
		roles[name] = role
	}
	return roles, nil
}

// validateRoles enforces the invariant that every table a role names
// exists in schema, and every column it names exists on that table.
func validateRoles(schema *Schema, roles map[string]*Role) error {
	for roleName, role := range roles {
		for tableName, perms := range role.Tables {
			table, ok := schema.Table(tableName)
			if !ok {
				return fmt.Errorf("docmodel: role %q references unknown table %q", roleName, tableName)
			}
			if err := validateColumnSet(roleName, tableName, table, perms); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateColumnSet(roleName, tableName string, table *SchemaTable, perms TablePermissions) error {
	check := func(col string) error {
		if !table.HasColumn(col) {
			return fmt.Errorf("docmodel: role %q table %q references unknown column %q", roleName, tableName, col)
		}
		return nil
	}
	if perms.Readable != nil {
		for _, c := range perms.Readable.Columns {
			if err := check(c); err != nil {
				return err
			}
		}
	}
	if perms.Creatable != nil {
		for c := range perms.Creatable.Columns {
			if err := check(c); err != nil {
				return err
			}
		}
	}
	if perms.Updatable != nil {
		for c := range perms.Updatable.Columns {
			if err := check(c); err != nil {
				return err
			}
		}
	}
	return nil
}
