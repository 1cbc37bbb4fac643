package service

import (
	"fmt"
	"sort"

	"github.com/attestia/docseal/internal/hashing"
	"github.com/attestia/docseal/internal/vault/model"
)

// DirectoryValidator performs bulk integrity checks over whole document
// sets. Hashing is pure and per-file, so validation runs fully in parallel
// inside the hash engine and holds no locks.
type DirectoryValidator struct {
	engine *hashing.Engine
}

// NewDirectoryValidator creates a DirectoryValidator.
func NewDirectoryValidator(engine *hashing.Engine) *DirectoryValidator {
	return &DirectoryValidator{engine: engine}
}

// HashDirectory digests every file and composes the path-ordered directory
// digest per the composite rule.
func (v *DirectoryValidator) HashDirectory(files []model.FilePayload) (*hashing.DirectoryDigest, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files to hash", ErrValidation)
	}
	in := make([]hashing.File, len(files))
	for i, f := range files {
		if f.Path == "" {
			return nil, fmt.Errorf("%w: file with empty path", ErrValidation)
		}
		in[i] = hashing.File{Path: f.Path, Data: f.Data}
	}
	return v.engine.DigestFiles(in, hashing.AlgSHA256)
}

// VerifyDirectory recomputes the directory digest for files and diffs it
// member-by-member against expected, reporting every changed, missing, and
// unexpected path so the caller can localize the damage.
func (v *DirectoryValidator) VerifyDirectory(expected hashing.DirectoryDigest, files []model.FilePayload) (*model.DirectoryVerification, error) {
	actual, err := v.HashDirectory(files)
	if err != nil {
		return nil, err
	}

	if actual.CompositeHash == expected.CompositeHash {
		return &model.DirectoryVerification{Matches: true, CompositeHash: actual.CompositeHash}, nil
	}

	expectedByPath := make(map[string]string, len(expected.MemberHashes))
	for _, m := range expected.MemberHashes {
		expectedByPath[m.Path] = m.Hex
	}

	var mismatched []string
	seen := make(map[string]bool, len(actual.MemberHashes))
	for _, m := range actual.MemberHashes {
		seen[m.Path] = true
		want, ok := expectedByPath[m.Path]
		if !ok || want != m.Hex {
			mismatched = append(mismatched, m.Path)
		}
	}
	for _, m := range expected.MemberHashes {
		if !seen[m.Path] {
			mismatched = append(mismatched, m.Path)
		}
	}
	sort.Strings(mismatched)

	return &model.DirectoryVerification{
		Matches:         false,
		CompositeHash:   actual.CompositeHash,
		MismatchedPaths: mismatched,
	}, nil
}
