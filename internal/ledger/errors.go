package ledger

import "errors"

// Sentinel errors for ledger interactions. Callers branch on these to decide
// retry and fallback behaviour, so they must stay stable.
var (
	// ErrUnreachable covers network failures, timeouts, and non-2xx responses
	// that do not carry an explicit rejection. Transient; safe to retry.
	ErrUnreachable = errors.New("ledger unreachable")

	// ErrRejected means the ledger accepted the request and refused it.
	// Permanent; retrying the same payload cannot succeed.
	ErrRejected = errors.New("ledger rejected seal")

	// ErrNotFound is returned by VerifyRemote when the ledger has no record
	// of the hash.
	ErrNotFound = errors.New("hash not recorded on ledger")
)
