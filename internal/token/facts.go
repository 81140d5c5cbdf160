package token

// FactKind names the predicate a Fact carries. Block 0 (authority) carries
// role, table_access, readable, editable, blocked_table, max_rows, and
// minted_at facts; attenuation blocks carry tenant, source, and
// attenuated_at facts.
type FactKind string

const (
	FactRole         FactKind = "role"
	FactTableAccess  FactKind = "table_access"
	FactReadable     FactKind = "readable"
	FactEditable     FactKind = "editable"
	FactBlockedTable FactKind = "blocked_table"
	FactMaxRows      FactKind = "max_rows"
	FactMintedAt     FactKind = "minted_at"
	FactTenant       FactKind = "tenant"
	FactSource       FactKind = "source"
	FactAttenuatedAt FactKind = "attenuated_at"
)

// Fact is a single predicate instance carried on a block, e.g.
// role(support_agent) or readable(orders, total).
type Fact struct {
	Kind FactKind `json:"kind"`
	Args []string `json:"args"`
}

func roleFact(name string) Fact         { return Fact{Kind: FactRole, Args: []string{name}} }
func tableAccessFact(t string) Fact     { return Fact{Kind: FactTableAccess, Args: []string{t}} }
func readableFact(t, c string) Fact     { return Fact{Kind: FactReadable, Args: []string{t, c}} }
func editableFact(t, c string) Fact     { return Fact{Kind: FactEditable, Args: []string{t, c}} }
func blockedTableFact(t string) Fact    { return Fact{Kind: FactBlockedTable, Args: []string{t}} }
func maxRowsFact(n string) Fact         { return Fact{Kind: FactMaxRows, Args: []string{n}} }
func mintedAtFact(unix string) Fact     { return Fact{Kind: FactMintedAt, Args: []string{unix}} }
func tenantFact(id string) Fact         { return Fact{Kind: FactTenant, Args: []string{id}} }
func sourceFact(s string) Fact          { return Fact{Kind: FactSource, Args: []string{s}} }
func attenuatedAtFact(unix string) Fact { return Fact{Kind: FactAttenuatedAt, Args: []string{unix}} }

// factsOfKind returns every fact of the given kind across the block's
// fact list, in declaration order.
func factsOfKind(facts []Fact, kind FactKind) []Fact {
	var out []Fact
	for _, f := range facts {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// RoleClaims is the input to mint_role: the facts a freshly minted
// authority block carries.
type RoleClaims struct {
	Role          string
	TableAccess   []string
	Readable      []ColumnRef
	Editable      []ColumnRef
	BlockedTables []string
	MaxRows       int // 0 means "not set"
}

// ColumnRef names a (table, column) pair.
type ColumnRef struct {
	Table  string
	Column string
}
