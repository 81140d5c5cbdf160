package token

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ExpiryCheck is the "check if time($t), $t < expires_at" constraint
// carried on an attenuation block.
type ExpiryCheck struct {
	ExpiresAtUnix int64 `json:"expires_at_unix"`
}

// Block is one signed link in a token's chain. Block 0 is the authority
// block; every later block is an attenuation.
type Block struct {
	Facts         []Fact       `json:"facts"`
	Check         *ExpiryCheck `json:"check,omitempty"`
	PrevSignature []byte       `json:"prev_signature,omitempty"`
	Signature     []byte       `json:"signature"`
}

// Token is the full chain of blocks, serialized as base64 for wire
// transport and storage.
type Token struct {
	Blocks []Block `json:"blocks"`
}

// signablePayload is the deterministic byte sequence a block's signature
// covers: its own facts and check, plus the raw bytes of the previous
// block's signature. Chaining the previous signature in is what makes
// tampering with, reordering, or truncating blocks detectable: changing
// any earlier block changes every later block's expected payload.
func signablePayload(facts []Fact, check *ExpiryCheck, prevSignature []byte) ([]byte, error) {
	type payload struct {
		Facts         []Fact       `json:"facts"`
		Check         *ExpiryCheck `json:"check,omitempty"`
		PrevSignature []byte       `json:"prev_signature,omitempty"`
	}
	buf, err := json.Marshal(payload{Facts: facts, Check: check, PrevSignature: prevSignature})
	if err != nil {
		return nil, fmt.Errorf("token: encode signable payload: %w", err)
	}
	return buf, nil
}

// signBlock produces a fully signed Block given its facts, optional
// expiry check, and the previous block's signature (nil for block 0).
func signBlock(priv ed25519.PrivateKey, facts []Fact, check *ExpiryCheck, prevSignature []byte) (Block, error) {
	payload, err := signablePayload(facts, check, prevSignature)
	if err != nil {
		return Block{}, err
	}
	sig := ed25519.Sign(priv, payload)
	return Block{
		Facts:         facts,
		Check:         check,
		PrevSignature: prevSignature,
		Signature:     sig,
	}, nil
}

// verifyChain checks every block's signature against pub, in order,
// confirming that each block's PrevSignature matches the actual
// signature of its predecessor. Returns InvalidSignature on any
// mismatch.
func verifyChain(pub ed25519.PublicKey, blocks []Block) error {
	if len(blocks) == 0 {
		return newError(KindMalformedToken, "token has no blocks")
	}
	var prevSig []byte
	for i, b := range blocks {
		if i > 0 && !bytes.Equal(b.PrevSignature, prevSig) {
			return newError(KindInvalidSignature, "block %d does not chain to block %d", i, i-1)
		}
		payload, err := signablePayload(b.Facts, b.Check, b.PrevSignature)
		if err != nil {
			return newError(KindMalformedToken, "block %d: %v", i, err)
		}
		if !ed25519.Verify(pub, payload, b.Signature) {
			return newError(KindInvalidSignature, "block %d signature invalid", i)
		}
		prevSig = b.Signature
	}
	return nil
}

// Encode serializes the token as URL-safe base64 of its JSON envelope.
func (t *Token) Encode() (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("token: encode: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Decode parses a base64-encoded token envelope without verifying any
// signature. Used internally by Verify (which does check signatures)
// and by Inspect (which deliberately does not).
func Decode(encoded string) (*Token, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		// Accept standard encoding too, since callers sometimes pass
		// tokens through systems that normalize "-_"  to "+/".
		raw, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, newError(KindMalformedToken, "invalid base64: %v", err)
		}
	}
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, newError(KindMalformedToken, "invalid envelope: %v", err)
	}
	if len(t.Blocks) == 0 {
		return nil, newError(KindMalformedToken, "token has no blocks")
	}
	return &t, nil
}
