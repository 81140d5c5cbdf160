// Package token implements the Token Authority: Ed25519-signed,
// block-chained capability tokens modeled on Biscuit-style attenuation.
// Block 0 (authority) carries role facts and is signed at mint time;
// each subsequent block is an attenuation that narrows the grant and is
// chained to the previous block's signature so tampering with or
// reordering blocks invalidates every block after the tamper point.
package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Keypair is an Ed25519 signing key pair. The private key is carried as
// its 32-byte seed for hex/env-var transport; the public key alone is
// sufficient for verification, and verifiers constructed via
// NewVerifier never hold the private half.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeypair creates a fresh random Ed25519 key pair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("token: generate keypair: %w", err)
	}
	return &Keypair{Public: pub, Private: priv}, nil
}

// PrivateSeedHex returns the 32-byte private seed, hex-encoded, suitable
// for the BISCUIT_PRIVATE_KEY environment variable.
func (k *Keypair) PrivateSeedHex() string {
	return hex.EncodeToString(k.Private.Seed())
}

// PublicHex returns the 32-byte public key, hex-encoded, suitable for
// the BISCUIT_PUBLIC_KEY environment variable.
func (k *Keypair) PublicHex() string {
	return hex.EncodeToString(k.Public)
}

// KeypairFromHex reconstructs a Keypair from a hex-encoded 32-byte seed.
// The public key is derived from the seed, not taken from input, so the
// two can never disagree.
func KeypairFromHex(privSeedHex string) (*Keypair, error) {
	seed, err := hex.DecodeString(privSeedHex)
	if err != nil {
		return nil, fmt.Errorf("token: decode private seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("token: private seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Keypair{Public: pub, Private: priv}, nil
}

// PublicKeyFromHex decodes a hex-encoded 32-byte Ed25519 public key, for
// constructing verify-only deployments (the SQL and Tool gateways hold
// only this, never the private key).
func PublicKeyFromHex(pubHex string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(pubHex)
	if err != nil {
		return nil, fmt.Errorf("token: decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("token: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}
