package token

import (
	"crypto/ed25519"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Authority is the Token Authority: it owns the Ed25519 signing key and
// is the only component that can mint role tokens or attenuate them. It
// is immutable after construction and safe for concurrent use without
// locking, matching the concurrency model's "Token Authority is
// immutable after initialization; verification is lock-free".
type Authority struct {
	keys *Keypair
}

// NewAuthority constructs a Token Authority from a signing keypair.
func NewAuthority(keys *Keypair) *Authority {
	return &Authority{keys: keys}
}

// Verifier is a signature-verification-only view of the Token Authority,
// holding only the public key. The SQL and Tool gateways are constructed
// with a Verifier, never an Authority, so a compromised gateway process
// cannot mint tokens.
type Verifier struct {
	pub ed25519.PublicKey
}

// NewVerifier constructs a verify-only Token Authority view.
func NewVerifier(pub ed25519.PublicKey) *Verifier {
	return &Verifier{pub: pub}
}

// Verifier returns a verify-only view sharing this Authority's public
// key.
func (a *Authority) Verifier() *Verifier {
	return NewVerifier(a.keys.Public)
}

// VerifiedToken is the result of successfully verifying a token: the
// extracted, trustworthy facts. A VerifiedToken with Tenant == nil is a
// role token; it must never be accepted by a gateway.
type VerifiedToken struct {
	Role       string
	Tenant     *string
	BlockCount int
}

// IsAttenuated reports whether the token carries any attenuation blocks
// beyond the authority block.
func (v VerifiedToken) IsAttenuated() bool {
	return v.BlockCount > 1
}

// IsAgentToken reports whether this token carries a tenant fact and is
// therefore usable on the gateways.
func (v VerifiedToken) IsAgentToken() bool {
	return v.Tenant != nil
}

// MintRole produces a base (block-0) token carrying the facts derived
// from claims. Role tokens minted here carry no expiry; they are
// long-lived and are rejected by the gateways until attenuated with a
// tenant.
func (a *Authority) MintRole(claims RoleClaims) (string, error) {
	if claims.Role == "" {
		return "", newError(KindMissingRoleClaim, "claims.Role is empty")
	}
	facts := []Fact{roleFact(claims.Role)}
	for _, t := range claims.TableAccess {
		facts = append(facts, tableAccessFact(t))
	}
	for _, cr := range claims.Readable {
		facts = append(facts, readableFact(cr.Table, cr.Column))
	}
	for _, cr := range claims.Editable {
		facts = append(facts, editableFact(cr.Table, cr.Column))
	}
	for _, t := range claims.BlockedTables {
		facts = append(facts, blockedTableFact(t))
	}
	if claims.MaxRows > 0 {
		facts = append(facts, maxRowsFact(strconv.Itoa(claims.MaxRows)))
	}
	facts = append(facts, mintedAtFact(strconv.FormatInt(time.Now().Unix(), 10)))

	block, err := signBlock(a.keys.Private, facts, nil, nil)
	if err != nil {
		return "", err
	}
	tok := &Token{Blocks: []Block{block}}
	return tok.Encode()
}

// Attenuate appends a block to base carrying a tenant fact, an optional
// expiry check, and an optional source annotation. It fails only if base
// cannot be parsed; it never re-validates base's signatures (that is
// Verify's job), matching the contract that attenuation is cheap and
// purely additive.
func (a *Authority) Attenuate(base string, tenant string, expiresAt *time.Time, source string) (string, error) {
	tok, err := Decode(base)
	if err != nil {
		return "", err
	}
	prevSig := tok.Blocks[len(tok.Blocks)-1].Signature

	facts := []Fact{tenantFact(tenant)}
	var check *ExpiryCheck
	if expiresAt != nil {
		check = &ExpiryCheck{ExpiresAtUnix: expiresAt.Unix()}
	}
	if source != "" {
		facts = append(facts, sourceFact(source))
	}
	facts = append(facts, attenuatedAtFact(strconv.FormatInt(time.Now().Unix(), 10)))

	block, err := signBlock(a.keys.Private, facts, check, prevSig)
	if err != nil {
		return "", err
	}
	out := &Token{Blocks: append(append([]Block{}, tok.Blocks...), block)}
	return out.Encode()
}

// Verify validates every block's signature and chain linkage, evaluates
// any expiry checks against the current time, and extracts the role and
// (if present) tenant facts.
//
// Tie-breaks: more than one role fact on block 0 is a hard failure. More
// than one tenant fact across attenuation blocks resolves to the first
// one encountered in block order (first-block-wins), per the
// forward-compatible attenuation policy.
func (v *Verifier) Verify(encoded string) (VerifiedToken, error) {
	tok, err := Decode(encoded)
	if err != nil {
		return VerifiedToken{}, err
	}
	if err := verifyChain(v.pub, tok.Blocks); err != nil {
		return VerifiedToken{}, err
	}

	roleFacts := factsOfKind(tok.Blocks[0].Facts, FactRole)
	if len(roleFacts) == 0 {
		return VerifiedToken{}, newError(KindMissingRoleClaim, "block 0 carries no role fact")
	}
	if len(roleFacts) > 1 {
		return VerifiedToken{}, newError(KindMalformedToken, "block 0 carries multiple role facts")
	}
	role := roleFacts[0].Args[0]

	now := time.Now().Unix()
	var tenant *string
	for _, b := range tok.Blocks[1:] {
		if b.Check != nil && now >= b.Check.ExpiresAtUnix {
			return VerifiedToken{}, newError(KindExpired, "token expired at %d", b.Check.ExpiresAtUnix)
		}
		if tenant != nil {
			continue // first-block-wins: a later tenant fact does not override
		}
		if tf := factsOfKind(b.Facts, FactTenant); len(tf) > 0 {
			t := tf[0].Args[0]
			tenant = &t
		}
	}

	return VerifiedToken{Role: role, Tenant: tenant, BlockCount: len(tok.Blocks)}, nil
}

// RequireAgentToken enforces the gateway-level rule that only tokens
// carrying a tenant fact (agent tokens) may be used on the SQL or Tool
// gateway; role tokens are rejected with MissingTenantClaim.
func RequireAgentToken(vt VerifiedToken) error {
	if vt.Tenant == nil {
		return newError(KindMissingTenantClaim, "role token presented where an agent token is required")
	}
	return nil
}

// Inspection is the structural, signature-free view of a token returned
// by Inspect, used by the CLI for debugging. It must never be used on
// any enforcement path.
type Inspection struct {
	BlockCount int
	Blocks     []BlockView
}

// BlockView is one block's facts and check, without any signature
// material.
type BlockView struct {
	Facts []Fact
	Check *ExpiryCheck
}

// Inspect decodes a token's structure without verifying any signature.
func Inspect(encoded string) (Inspection, error) {
	tok, err := Decode(encoded)
	if err != nil {
		return Inspection{}, err
	}
	out := Inspection{BlockCount: len(tok.Blocks)}
	for _, b := range tok.Blocks {
		out.Blocks = append(out.Blocks, BlockView{Facts: b.Facts, Check: b.Check})
	}
	return out, nil
}

// Fingerprint computes a short, non-reversible correlation identifier
// for a token, suitable for audit log lines that must never echo the
// raw token material (per the propagation rule that verification
// failures are logged without echoing the token).
func Fingerprint(encoded string) string {
	sum := blake2b.Sum256([]byte(encoded))
	return fmt.Sprintf("%x", sum[:8])
}
