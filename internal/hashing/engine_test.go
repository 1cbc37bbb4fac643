package hashing_test

import (
	"testing"

	"github.com/attestia/docseal/internal/hashing"
)

func TestDigest_deterministic(t *testing.T) {
	e := hashing.NewEngine()
	data := []byte("loan application v1")

	for _, alg := range []hashing.Algorithm{hashing.AlgSHA256, hashing.AlgSHA3256, hashing.AlgBLAKE2b256} {
		a, err := e.Digest(data, alg)
		if err != nil {
			t.Fatalf("%s: %v", alg, err)
		}
		b, err := e.Digest(data, alg)
		if err != nil {
			t.Fatalf("%s: %v", alg, err)
		}
		if a.Hex != b.Hex {
			t.Errorf("%s: same bytes produced different digests: %q vs %q", alg, a.Hex, b.Hex)
		}
		if len(a.Hex) != 64 {
			t.Errorf("%s: expected 64 hex chars, got %d", alg, len(a.Hex))
		}
	}
}

func TestDigest_distinctInputs(t *testing.T) {
	e := hashing.NewEngine()
	a, _ := e.Digest([]byte("document A"), hashing.AlgSHA256)
	b, _ := e.Digest([]byte("document B"), hashing.AlgSHA256)
	if a.Hex == b.Hex {
		t.Error("distinct inputs produced identical digests")
	}
}

func TestDigest_knownVector(t *testing.T) {
	e := hashing.NewEngine()
	// SHA-256 of the empty string is a fixed, well-known value.
	d, err := e.Digest(nil, hashing.AlgSHA256)
	if err != nil {
		t.Fatal(err)
	}
	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if d.Hex != want {
		t.Errorf("sha256(\"\") = %q, want %q", d.Hex, want)
	}
}

func TestDigest_unsupportedAlgorithm(t *testing.T) {
	e := hashing.NewEngine()
	if _, err := e.Digest([]byte("x"), "md5"); err == nil {
		t.Error("expected error for unsupported algorithm")
	}
}

func TestDigestSuite_quantumSafe(t *testing.T) {
	e := hashing.NewEngine()
	digests, err := e.DigestSuite([]byte("payload"), hashing.SuiteQuantumSafe)
	if err != nil {
		t.Fatal(err)
	}
	if len(digests) != 2 {
		t.Fatalf("expected 2 digests, got %d", len(digests))
	}
	if digests[0].Algorithm != hashing.AlgSHA3256 {
		t.Errorf("primary algorithm: got %s, want %s", digests[0].Algorithm, hashing.AlgSHA3256)
	}
	if digests[1].Algorithm != hashing.AlgBLAKE2b256 {
		t.Errorf("secondary algorithm: got %s, want %s", digests[1].Algorithm, hashing.AlgBLAKE2b256)
	}
	if digests[0].Hex == digests[1].Hex {
		t.Error("suite digests should differ across algorithms")
	}
}

func TestDigestSuite_empty(t *testing.T) {
	e := hashing.NewEngine()
	if _, err := e.DigestSuite([]byte("x"), nil); err == nil {
		t.Error("expected error for empty suite")
	}
}

func TestSuiteByName(t *testing.T) {
	tests := []struct {
		name    string
		wantLen int
		wantErr bool
	}{
		{"classic", 1, false},
		{"", 1, false},
		{"quantum-safe", 2, false},
		{"rot13", 0, true},
	}
	for _, tt := range tests {
		suite, err := hashing.SuiteByName(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SuiteByName(%q): expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("SuiteByName(%q): %v", tt.name, err)
			continue
		}
		if len(suite) != tt.wantLen {
			t.Errorf("SuiteByName(%q): got %d algorithms, want %d", tt.name, len(suite), tt.wantLen)
		}
	}
}
