package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/attestia/docseal/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	token     string
	actor     string
	insecure  bool
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sealctl",
	Short: "docseal command-line interface",
	Long: `sealctl is the command-line interface for a docseal server.

It seals documents and document packages, verifies hashes, inspects
deleted-document provenance, and validates directories against stored
fingerprints.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.docseal")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if token == "" {
			token = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.docseal/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "docseal server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "JWT Bearer token")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "", "acting identity for servers running without auth")
	rootCmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification (development only)")

	rootCmd.AddCommand(sealCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(resealCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(hashdirCmd)
	rootCmd.AddCommand(checkdirCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	opts := []client.Option{}
	if token != "" {
		opts = append(opts, client.WithBearerToken(token))
	} else if actor != "" {
		opts = append(opts, client.WithActor(actor))
	}
	if insecure {
		opts = append(opts, client.WithInsecureSkipVerify())
	}
	return client.New(serverURL, opts...)
}

// collectFiles expands file and directory arguments into uploads. Directory
// members are addressed by their path relative to the directory root.
func collectFiles(args []string) ([]client.FileUpload, error) {
	var uploads []client.FileUpload
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", arg, err)
		}

		if !info.IsDir() {
			data, err := os.ReadFile(arg)
			if err != nil {
				return nil, fmt.Errorf("read %q: %w", arg, err)
			}
			uploads = append(uploads, client.FileUpload{Path: filepath.Base(arg), Data: data})
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(arg, path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %q: %w", path, err)
			}
			uploads = append(uploads, client.FileUpload{Path: filepath.ToSlash(rel), Data: data})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return uploads, nil
}

// ── seal ─────────────────────────────────────────────────────────────────────

var (
	sealGroup string
	sealSuite string
	sealTitle string
)

var sealCmd = &cobra.Command{
	Use:   "seal <file|dir> [file|dir] ...",
	Short: "Seal documents into a tamper-evident artifact",
	Long: `Seal hashes the given files, records them server-side, and anchors the
digest on the configured ledger. A single file seals as a document; multiple
files (or a directory) seal as one package whose hash does not depend on
upload order.

  sealctl seal --group acct-1042 statement.pdf
  sealctl seal --group acct-1042 --suite quantum-safe reports/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := collectFiles(args)
		if err != nil {
			return err
		}

		result, err := newClient().Seal(context.Background(), client.SealRequest{
			GroupKey: sealGroup,
			Suite:    sealSuite,
			Meta:     client.DocumentMeta{Title: sealTitle},
			Files:    files,
		})
		if err != nil {
			return fmt.Errorf("seal: %w", err)
		}

		a := result.Artifact
		fmt.Printf("✓ Sealed %d file(s) as %s\n\n", len(files), a.ArtifactType)
		fmt.Printf("  ID:      %s\n", a.ID)
		fmt.Printf("  Hash:    %s\n", a.PayloadHash)
		fmt.Printf("  Status:  %s\n", a.SealStatus)
		if a.LedgerTxRef != "" {
			fmt.Printf("  Tx Ref:  %s\n", a.LedgerTxRef)
		}
		if result.Simulated {
			fmt.Println("\n⚠ Ledger unreachable; seal was simulated locally.")
			fmt.Printf("  Retry later with: sealctl reseal %s\n", a.ID)
		}
		if a.SealStatus == "seal_failed" {
			fmt.Printf("\n✗ Ledger seal failed. Retry with: sealctl reseal %s\n", a.ID)
		}
		return nil
	},
}

func init() {
	sealCmd.Flags().StringVar(&sealGroup, "group", "", "Group key the artifact belongs to (e.g. an account or case ID)")
	sealCmd.Flags().StringVar(&sealSuite, "suite", "", "Hash suite: classic (default) or quantum-safe")
	sealCmd.Flags().StringVar(&sealTitle, "title", "", "Document title stored in the artifact metadata")
	_ = sealCmd.MarkFlagRequired("group")
}

// ── verify ───────────────────────────────────────────────────────────────────

var verifyFormat string

var verifyCmd = &cobra.Command{
	Use:   "verify <hex-hash>",
	Short: "Classify a hash against the server's sealed records",
	Long: `Verify looks up a hex digest and reports one of four outcomes:

  verified   the content still matches its sealed digest
  tampered   stored content no longer matches what was sealed
  deleted    the document was removed, with full provenance
  not_found  the hash matches nothing on record`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newClient().VerifyHash(context.Background(), strings.ToLower(args[0]))
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}

		if verifyFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		switch result.Outcome {
		case "verified":
			fmt.Println("✓ verified")
			fmt.Printf("  Artifact:  %s\n", result.ArtifactID)
			fmt.Printf("  Group:     %s\n", result.GroupKey)
			fmt.Printf("  Algorithm: %s\n", result.MatchedAlgorithm)
			if result.Simulated {
				fmt.Println("  Note:      sealed via simulated fallback, not the remote ledger")
			}
		case "tampered":
			fmt.Println("✗ TAMPERED")
			fmt.Printf("  Artifact: %s\n", result.ArtifactID)
			fmt.Println("  Stored content no longer matches its sealed digest.")
		case "deleted":
			fmt.Println("⊘ deleted")
			fmt.Printf("  %s\n", result.Message)
		default:
			fmt.Println("? not found")
			fmt.Println("  No sealed or deleted document matches this hash.")
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyFormat, "format", "text", "Output format: text or json")
}

// ── delete ───────────────────────────────────────────────────────────────────

var deleteReason string

var deleteCmd = &cobra.Command{
	Use:   "delete <artifact-id>",
	Short: "Soft-delete an artifact, preserving its verifiability",
	Long: `Delete removes an artifact's content but leaves a permanent archival
record. The document's hash stays verifiable afterwards and reports who
deleted it, when, and why. A reason is mandatory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := newClient().DeleteArtifact(context.Background(), args[0], deleteReason)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}

		fmt.Println("✓ Deleted")
		fmt.Printf("  Hash:       %s\n", doc.PayloadHash)
		fmt.Printf("  Deleted by: %s\n", doc.DeletedBy)
		fmt.Printf("  Reason:     %s\n", doc.DeletionReason)
		fmt.Println("\nThe hash remains verifiable: sealctl verify " + doc.PayloadHash)
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteReason, "reason", "", "Why the document is being removed (recorded permanently)")
	_ = deleteCmd.MarkFlagRequired("reason")
}

// ── reseal ───────────────────────────────────────────────────────────────────

var resealCmd = &cobra.Command{
	Use:   "reseal <artifact-id>",
	Short: "Retry the ledger seal of a pending or failed artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newClient().Reseal(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("reseal: %w", err)
		}

		a := result.Artifact
		fmt.Printf("Status: %s\n", a.SealStatus)
		if a.LedgerTxRef != "" {
			fmt.Printf("Tx Ref: %s\n", a.LedgerTxRef)
		}
		if result.Simulated {
			fmt.Println("Seal is simulated; the remote ledger is still unreachable.")
		}
		return nil
	},
}

// ── events ───────────────────────────────────────────────────────────────────

var eventsCmd = &cobra.Command{
	Use:   "events <artifact-id>",
	Short: "Show the audit trail of an artifact",
	Long: `Events prints every recorded lifecycle event of an artifact in order:
creation, seal attempts, verifications, and deletion. The trail survives
deletion of the artifact itself.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := newClient().Events(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No events recorded for this artifact.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "IDX\tTIME\tEVENT\tACTOR")
		for _, e := range events {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
				e.Index, e.Timestamp.Format(time.RFC3339), e.EventType, e.Actor)
		}
		return w.Flush()
	},
}

// ── hashdir / checkdir ───────────────────────────────────────────────────────

var hashdirOutput string

var hashdirCmd = &cobra.Command{
	Use:   "hashdir <dir>",
	Short: "Fingerprint a directory without sealing it",
	Long: `Hashdir computes the composite digest of every file under a directory.
The digest is independent of traversal order. Save it with --output and
check the directory later with 'sealctl checkdir'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := collectFiles(args)
		if err != nil {
			return err
		}

		digest, err := newClient().HashDirectory(context.Background(), files)
		if err != nil {
			return fmt.Errorf("hashdir: %w", err)
		}

		if hashdirOutput != "" {
			data, err := json.MarshalIndent(digest, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(hashdirOutput, data, 0o644); err != nil {
				return fmt.Errorf("write %q: %w", hashdirOutput, err)
			}
			fmt.Printf("Digest written to %s\n", hashdirOutput)
		}

		fmt.Printf("Files:     %d\n", digest.FileCount)
		fmt.Printf("Bytes:     %d\n", digest.TotalBytes)
		fmt.Printf("Composite: %s\n", digest.CompositeHash)
		return nil
	},
}

var checkdirExpected string

var checkdirCmd = &cobra.Command{
	Use:   "checkdir <dir>",
	Short: "Diff a directory against a stored fingerprint",
	Long: `Checkdir re-hashes a directory and compares it to a digest previously
saved by 'sealctl hashdir --output'. Changed, missing, and unexpected files
are listed by path.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(checkdirExpected)
		if err != nil {
			return fmt.Errorf("read expected digest: %w", err)
		}
		var expected client.DirectoryDigest
		if err := json.Unmarshal(data, &expected); err != nil {
			return fmt.Errorf("parse expected digest: %w", err)
		}

		files, err := collectFiles(args)
		if err != nil {
			return err
		}

		result, err := newClient().VerifyDirectory(context.Background(), expected, files)
		if err != nil {
			return fmt.Errorf("checkdir: %w", err)
		}

		if result.Matches {
			fmt.Println("✓ Directory matches the stored fingerprint.")
			return nil
		}
		fmt.Println("✗ Directory has changed:")
		for _, p := range result.MismatchedPaths {
			fmt.Printf("  %s\n", p)
		}
		return nil
	},
}

func init() {
	hashdirCmd.Flags().StringVar(&hashdirOutput, "output", "", "Write the digest as JSON to this file")
	checkdirCmd.Flags().StringVar(&checkdirExpected, "expected", "", "JSON digest file produced by 'sealctl hashdir --output'")
	_ = checkdirCmd.MarkFlagRequired("expected")
}

// ── ledger / audit ───────────────────────────────────────────────────────────

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show the server's view of the remote seal ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		health, err := newClient().LedgerHealth(context.Background())
		if err != nil {
			return fmt.Errorf("ledger health: %w", err)
		}

		if !health.Configured {
			fmt.Println("No remote ledger configured; seals use the simulated fallback.")
			return nil
		}
		s := health.Status
		fmt.Printf("Up:        %t\n", s.Up)
		fmt.Printf("Degraded:  %t\n", s.Degraded)
		fmt.Printf("Latency:   %d ms\n", s.LatencyMs)
		fmt.Printf("Failures:  %d\n", s.FailCount)
		fmt.Printf("Checked:   %s\n", s.CheckedAt.Format(time.RFC3339))
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Verify the server's hash-chained audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		ctx := context.Background()

		entries, root, err := c.AuditOverview(ctx)
		if err != nil {
			return fmt.Errorf("audit overview: %w", err)
		}
		fmt.Printf("Entries: %d\n", entries)
		fmt.Printf("Root:    %s\n", root)

		valid, detail, err := c.AuditVerify(ctx)
		if err != nil {
			return fmt.Errorf("audit verify: %w", err)
		}
		if valid {
			fmt.Println("Chain:   ✓ intact")
		} else {
			fmt.Printf("Chain:   ✗ BROKEN — %s\n", detail)
		}
		return nil
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sealctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sealctl %s\n", version)
	},
}
