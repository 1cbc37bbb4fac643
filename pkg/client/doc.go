// Package client is the docseal Go SDK.
//
// It covers the full surface of a docseal server: sealing documents and
// document packages, verifying hashes, inspecting deleted-document
// provenance, bulk directory validation, and the audit trail.
//
// # Sealing a document
//
//	c := client.New("http://localhost:8080", client.WithBearerToken(token))
//	result, err := c.Seal(ctx, client.SealRequest{
//	    GroupKey: "acct-1042",
//	    Suite:    "quantum-safe",
//	    Files: []client.FileUpload{
//	        {Path: "statement.pdf", Data: pdfBytes},
//	    },
//	})
//	fmt.Println(result.Artifact.PayloadHash, result.Simulated)
//
// Multiple files seal as one package; the package hash is independent of
// upload order. Simulated is true when the remote ledger was unreachable and
// the server fell back to a local seal.
//
// # Verifying a hash
//
// Verification is public and requires no token. The outcome is data, never an
// error: "verified", "tampered", "deleted", or "not_found".
//
//	v, err := c.VerifyHash(ctx, hexDigest)
//	if v.Outcome == "tampered" {
//	    // stored content no longer matches its sealed digest
//	}
//
// # Deleting with provenance
//
// Deletion requires a reason and leaves a permanent archival record. The
// document's hash remains verifiable afterwards:
//
//	doc, err := c.DeleteArtifact(ctx, artifactID, "duplicate upload")
//	v, _ := c.VerifyHash(ctx, doc.PayloadHash) // outcome "deleted", with provenance
//
// # Directory validation
//
// HashDirectory fingerprints a file set without sealing it; VerifyDirectory
// diffs the current files against a stored digest and names the paths that
// changed, went missing, or appeared:
//
//	digest, _ := c.HashDirectory(ctx, files)
//	check, _ := c.VerifyDirectory(ctx, *digest, filesNow)
//	fmt.Println(check.Matches, check.MismatchedPaths)
//
// # Authentication
//
// Sealing and deletion require a Bearer token when the server runs with JWT
// auth enabled. Against a dev server with auth disabled, WithActor sets the
// acting identity instead.
package client
