// Package recovery generates and consumes single-use fallback codes for
// accounts whose authenticator device is unavailable.
package recovery

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/samber/lo"
)

const (
	// BatchSize is the number of codes issued per batch.
	BatchSize = 8
	// codeBytes is the entropy per code; 5 bytes hex-encodes to 10 characters.
	codeBytes = 5
)

// Generator defines an interface for producing recovery code batches.
type Generator interface {
	// Generate returns a fresh batch of unique codes or an error if the
	// random source fails.
	Generate() (Set, error)
}

// CodeGenerator produces cryptographically secure recovery codes.
//
// Each code is 10 uppercase hexadecimal characters (40 bits of entropy),
// e.g. "3F9A01BC7D".
type CodeGenerator struct{}

// NewCodeGenerator returns a new CodeGenerator.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// Generate produces a batch of BatchSize unique codes.
func (g *CodeGenerator) Generate() (Set, error) {
	out := make(Set, 0, BatchSize)
	seen := make(map[string]struct{}, BatchSize)

	for len(out) < BatchSize {
		buf := make([]byte, codeBytes)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}

		code := strings.ToUpper(hex.EncodeToString(buf))

		// extremely unlikely, but prevents accidental duplicates
		if _, ok := seen[code]; ok {
			continue
		}

		seen[code] = struct{}{}
		out = append(out, code)
	}

	return out, nil
}

// Set is a batch of unconsumed recovery codes. It marshals to a JSON array
// so it can be sealed and stored as a single value.
type Set []string

// ParseSet decodes a Set previously encoded with Encode.
func ParseSet(data []byte) (Set, error) {
	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Encode serializes the set for sealing.
func (s Set) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// Remaining reports how many codes are still unconsumed.
func (s Set) Remaining() int {
	return len(s)
}

// Consume matches the submitted code case-insensitively and, on a hit,
// returns the set without it. Each code can therefore only ever match once.
// The comparison is constant-time per candidate.
func (s Set) Consume(code string) (Set, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != codeBytes*2 {
		return s, false
	}

	matched, ok := lo.Find(s, func(candidate string) bool {
		return subtle.ConstantTimeCompare([]byte(candidate), []byte(normalized)) == 1
	})
	if !ok {
		return s, false
	}

	return lo.Without(s, matched), true
}
