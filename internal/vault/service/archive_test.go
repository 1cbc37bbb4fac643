package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/attestia/docseal/internal/eventlog"
	"github.com/attestia/docseal/internal/hashing"
	"github.com/attestia/docseal/internal/ledger"
	"github.com/attestia/docseal/internal/vault/model"
	"github.com/attestia/docseal/internal/vault/repository"
	"github.com/attestia/docseal/internal/vault/service"
)

func newArchive(t *testing.T) (*service.ArchiveService, *service.SealingService, *repository.MemoryStore, *eventlog.MemoryLog) {
	t.Helper()
	store := repository.NewMemoryStore()
	events := eventlog.NewMemoryLog()
	sealer := &fakeSealer{receipt: &ledger.SealReceipt{TxRef: "tx-a", SealedAt: time.Now().UTC()}}
	sealing := service.NewSealingService(store, hashing.NewEngine(), sealer, events, zap.NewNop())
	archive := service.NewArchiveService(store, events, zap.NewNop())
	return archive, sealing, store, events
}

func TestArchive_removesArtifactAndKeepsRecord(t *testing.T) {
	archive, sealing, store, events := newArchive(t)
	notifier := &captureNotifier{}
	archive.SetNotifier(notifier)

	res, err := sealing.Seal(context.Background(), sealRequest("A-1", model.FilePayload{Path: "a.pdf", Data: []byte("content")}))
	if err != nil {
		t.Fatal(err)
	}

	doc, err := archive.Archive(context.Background(), res.Artifact.ID, "bob", "superseded by v2")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if doc.OriginalArtifactID != res.Artifact.ID {
		t.Fatal("archival record points at the wrong artifact")
	}
	if doc.PayloadHash != res.Artifact.PayloadHash {
		t.Fatal("archival record lost the payload hash")
	}
	if doc.LedgerTxRef != "tx-a" {
		t.Fatalf("tx ref = %q, want tx-a", doc.LedgerTxRef)
	}
	if doc.OriginalCreatedBy != "alice" || doc.DeletedBy != "bob" {
		t.Fatalf("custody fields wrong: created_by=%q deleted_by=%q", doc.OriginalCreatedBy, doc.DeletedBy)
	}

	if _, err := store.GetByID(context.Background(), res.Artifact.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("artifact still retrievable after archive: %v", err)
	}
	if files, _ := store.GetFiles(context.Background(), res.Artifact.ID); len(files) != 0 {
		t.Fatal("file blobs must be purged on archive")
	}

	evs, _ := events.ListByArtifact(context.Background(), res.Artifact.ID.String())
	last := evs[len(evs)-1]
	if last.EventType != eventlog.EventDeleted || last.Actor != "bob" {
		t.Fatalf("last event = %s by %s, want deleted by bob", last.EventType, last.Actor)
	}
	if !notifier.seen("artifact.deleted") {
		t.Fatal("artifact.deleted notification not dispatched")
	}
}

func TestArchive_repeatDeleteReportsAlreadyDeleted(t *testing.T) {
	archive, sealing, _, _ := newArchive(t)

	res, err := sealing.Seal(context.Background(), sealRequest("A-2", model.FilePayload{Path: "a.pdf", Data: []byte("x")}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Archive(context.Background(), res.Artifact.ID, "bob", "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Archive(context.Background(), res.Artifact.ID, "bob", "second"); !errors.Is(err, repository.ErrAlreadyDeleted) {
		t.Fatalf("err = %v, want ErrAlreadyDeleted", err)
	}

	// Exactly one archival record survives.
	doc, err := archive.GetByOriginalID(context.Background(), res.Artifact.ID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.DeletionReason != "first" {
		t.Fatalf("reason = %q, the first deletion must win", doc.DeletionReason)
	}
}

func TestArchive_unknownArtifact(t *testing.T) {
	archive, _, _, _ := newArchive(t)
	if _, err := archive.Archive(context.Background(), uuid.New(), "bob", "cleanup"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestArchive_validation(t *testing.T) {
	archive, sealing, _, _ := newArchive(t)

	res, err := sealing.Seal(context.Background(), sealRequest("A-3", model.FilePayload{Path: "a.pdf", Data: []byte("x")}))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := archive.Archive(context.Background(), res.Artifact.ID, "", "cleanup"); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("missing actor: err = %v, want ErrValidation", err)
	}
	if _, err := archive.Archive(context.Background(), res.Artifact.ID, "bob", ""); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("missing reason: err = %v, want ErrValidation", err)
	}
}

func TestArchive_lookupByHashAndGroup(t *testing.T) {
	archive, sealing, _, _ := newArchive(t)

	res, err := sealing.Seal(context.Background(), sealRequest("A-4", model.FilePayload{Path: "a.pdf", Data: []byte("findable")}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Archive(context.Background(), res.Artifact.ID, "bob", "cleanup"); err != nil {
		t.Fatal(err)
	}

	byHash, err := archive.GetByHash(context.Background(), res.Artifact.PayloadHash)
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if byHash.OriginalArtifactID != res.Artifact.ID {
		t.Fatal("hash lookup returned the wrong record")
	}

	byGroup, err := archive.ListByGroupKey(context.Background(), "A-4", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(byGroup) != 1 {
		t.Fatalf("got %d records for group, want 1", len(byGroup))
	}
}
