package model

import "github.com/attestia/docseal/internal/hashing"

// FilePayload is one file in a seal request, delivered by the transport layer
// with raw bytes already decoded. The engine never parses file formats.
type FilePayload struct {
	Path string
	Data []byte
}

// SealRequest is the payload for sealing a new artifact.
type SealRequest struct {
	GroupKey string
	Suite    string // "classic" (default) or "quantum-safe"
	Files    []FilePayload
	Meta     DocumentMeta

	// Actor is set from the authenticated caller, never from the client body.
	Actor string
}

// SealResult is returned by the sealing orchestrator.
type SealResult struct {
	Artifact  *Artifact `json:"artifact"`
	Simulated bool      `json:"simulated"`
}

// VerifyDirectoryRequest carries an expected directory digest plus the
// current files to diff against it.
type VerifyDirectoryRequest struct {
	Expected hashing.DirectoryDigest
	Files    []FilePayload
}

// DirectoryVerification is a full per-member diff result. MismatchedPaths
// localizes exactly which files changed, were removed, or appeared, rather
// than only reporting that the composite differs.
type DirectoryVerification struct {
	Matches         bool     `json:"matches"`
	CompositeHash   string   `json:"composite_hash"`
	MismatchedPaths []string `json:"mismatched_paths,omitempty"`
}
