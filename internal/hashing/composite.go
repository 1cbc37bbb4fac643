package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Member is one file's contribution to a directory composite.
type Member struct {
	Path string `json:"path"`
	Hex  string `json:"hex"`
}

// DirectoryDigest summarises a whole document package. MemberHashes is always
// ordered by path so the composite is reproducible regardless of the order in
// which the caller enumerated the files.
type DirectoryDigest struct {
	FileCount     int      `json:"file_count"`
	TotalBytes    int64    `json:"total_bytes"`
	CompositeHash string   `json:"composite_hash"`
	MemberHashes  []Member `json:"member_hashes"`
}

// Composite derives a single digest from a set of per-file digests.
//
// Members are sorted by path before composition. This is a design decision,
// not an implementation detail: the composite must be invariant under changes
// to upload/enumeration order, so the only stable ordering key is the path.
// Each member contributes "path NUL hex LF" to the hashed stream; the NUL
// separator prevents a crafted path from colliding with a hash prefix.
func Composite(members []Member) (Digest, error) {
	if len(members) == 0 {
		return Digest{}, fmt.Errorf("composite of zero members")
	}
	sorted := make([]Member, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()
	for _, m := range sorted {
		if m.Path == "" {
			return Digest{}, fmt.Errorf("composite member with empty path")
		}
		if strings.ContainsRune(m.Path, '\x00') {
			return Digest{}, fmt.Errorf("composite member path contains NUL: %q", m.Path)
		}
		fmt.Fprintf(h, "%s\x00%s\n", m.Path, m.Hex)
	}
	return Digest{Algorithm: AlgSHA256, Hex: hex.EncodeToString(h.Sum(nil))}, nil
}

// File is an in-memory file handed to DigestFiles.
type File struct {
	Path string
	Data []byte
}

// DigestFiles hashes each file under alg with bounded concurrency and returns
// the full DirectoryDigest. Per-file hashing shares no mutable state, so the
// fan-out is safe; results are reassembled by index before sorting by path.
func (e *Engine) DigestFiles(files []File, alg Algorithm) (*DirectoryDigest, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to digest")
	}

	members := make([]Member, len(files))
	errs := make([]error, len(files))

	sem := make(chan struct{}, 8)
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f File) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			d, err := e.Digest(f.Data, alg)
			if err != nil {
				errs[i] = err
				return
			}
			members[i] = Member{Path: f.Path, Hex: d.Hex}
		}(i, f)
	}
	wg.Wait()

	var total int64
	for i, f := range files {
		if errs[i] != nil {
			return nil, fmt.Errorf("digest %s: %w", f.Path, errs[i])
		}
		total += int64(len(f.Data))
	}

	composite, err := Composite(members)
	if err != nil {
		return nil, err
	}

	sort.Slice(members, func(i, j int) bool { return members[i].Path < members[j].Path })
	return &DirectoryDigest{
		FileCount:     len(files),
		TotalBytes:    total,
		CompositeHash: composite.Hex,
		MemberHashes:  members,
	}, nil
}
