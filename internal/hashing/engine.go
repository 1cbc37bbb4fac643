// Package hashing implements deterministic content digesting for document
// sealing. It is pure: identical bytes always produce identical digests, and
// no function in this package touches the network or the filesystem.
//
// Two digest modes are supported:
//   - classic: a single SHA-256 digest.
//   - quantum-safe: SHA3-256 (sponge construction) plus BLAKE2b-256, two
//     algorithmically unrelated primitives computed over the same bytes so a
//     break of either leaves the other intact.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Algorithm identifies a supported digest algorithm.
type Algorithm string

const (
	AlgSHA256     Algorithm = "sha256"
	AlgSHA3256    Algorithm = "sha3-256"
	AlgBLAKE2b256 Algorithm = "blake2b-256"
)

// Suites. The first algorithm in a suite is the primary one; its digest is
// stored as the artifact's payload hash.
var (
	SuiteClassic     = []Algorithm{AlgSHA256}
	SuiteQuantumSafe = []Algorithm{AlgSHA3256, AlgBLAKE2b256}
)

// Digest is a single hex-encoded digest with the algorithm that produced it.
type Digest struct {
	Algorithm Algorithm `json:"algorithm"`
	Hex       string    `json:"hex"`
}

// Engine computes digests. It is stateless and safe for concurrent use.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Digest computes the digest of data under the given algorithm.
// An unsupported algorithm is a configuration error, not a runtime condition;
// callers should treat it as fatal rather than retry.
func (e *Engine) Digest(data []byte, alg Algorithm) (Digest, error) {
	switch alg {
	case AlgSHA256:
		sum := sha256.Sum256(data)
		return Digest{Algorithm: alg, Hex: hex.EncodeToString(sum[:])}, nil
	case AlgSHA3256:
		sum := sha3.Sum256(data)
		return Digest{Algorithm: alg, Hex: hex.EncodeToString(sum[:])}, nil
	case AlgBLAKE2b256:
		sum := blake2b.Sum256(data)
		return Digest{Algorithm: alg, Hex: hex.EncodeToString(sum[:])}, nil
	default:
		return Digest{}, fmt.Errorf("unsupported digest algorithm %q", alg)
	}
}

// DigestSuite computes every digest in the suite over the same bytes.
// The returned slice preserves suite order; index 0 is the primary digest.
func (e *Engine) DigestSuite(data []byte, suite []Algorithm) ([]Digest, error) {
	if len(suite) == 0 {
		return nil, fmt.Errorf("empty digest suite")
	}
	out := make([]Digest, 0, len(suite))
	for _, alg := range suite {
		d, err := e.Digest(data, alg)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// SuiteByName maps a configuration string to a digest suite.
func SuiteByName(name string) ([]Algorithm, error) {
	switch name {
	case "", "classic":
		return SuiteClassic, nil
	case "quantum-safe":
		return SuiteQuantumSafe, nil
	default:
		return nil, fmt.Errorf("unknown digest suite %q", name)
	}
}
