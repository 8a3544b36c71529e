// Package conditions generates the (condition, fulfillment) pairs that lock
// milestone escrows on the ledger.
//
// The scheme is a plain preimage reveal:
//
//	secret    = 32 random bytes
//	condition = SHA256(secret)
//
// Both values travel as base64 text. This is NOT a standards-compliant
// crypto-conditions encoding; a ledger that enforces RFC-style condition
// parsing needs a compliant codec swapped in here. Nothing outside this
// package depends on the encoding details.
package conditions

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// SecretSize is the length of the random preimage in bytes.
const SecretSize = 32

// Pair couples an escrow condition with the secret that unlocks it.
type Pair struct {
	ConditionB64   string
	FulfillmentB64 string
}

// GeneratePair draws a fresh secret from the system CSPRNG and derives its
// condition. Secrets are never reused across calls; uniqueness rests on the
// RNG, not on deduplication.
func GeneratePair() (Pair, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return Pair{}, fmt.Errorf("draw escrow secret: %w", err)
	}

	digest := sha256.Sum256(secret)
	return Pair{
		ConditionB64:   base64.StdEncoding.EncodeToString(digest[:]),
		FulfillmentB64: base64.StdEncoding.EncodeToString(secret),
	}, nil
}

// Verify reports whether the fulfillment is the preimage of the condition.
func Verify(conditionB64, fulfillmentB64 string) bool {
	condition, err := base64.StdEncoding.DecodeString(conditionB64)
	if err != nil {
		return false
	}
	secret, err := base64.StdEncoding.DecodeString(fulfillmentB64)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(secret)
	return subtle.ConstantTimeCompare(digest[:], condition) == 1
}
