package service_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/attestia/docseal/internal/hashing"
	"github.com/attestia/docseal/internal/vault/model"
	"github.com/attestia/docseal/internal/vault/service"
)

func dirFiles() []model.FilePayload {
	return []model.FilePayload{
		{Path: "statements/jan.csv", Data: []byte("jan data")},
		{Path: "statements/feb.csv", Data: []byte("feb data")},
		{Path: "summary.pdf", Data: []byte("summary")},
	}
}

func TestHashDirectory_orderIndependent(t *testing.T) {
	v := service.NewDirectoryValidator(hashing.NewEngine())

	files := dirFiles()
	first, err := v.HashDirectory(files)
	if err != nil {
		t.Fatal(err)
	}

	reversed := []model.FilePayload{files[2], files[1], files[0]}
	second, err := v.HashDirectory(reversed)
	if err != nil {
		t.Fatal(err)
	}
	if first.CompositeHash != second.CompositeHash {
		t.Fatalf("composite differs across enumeration order: %q vs %q", first.CompositeHash, second.CompositeHash)
	}
	if first.FileCount != 3 {
		t.Fatalf("file count = %d, want 3", first.FileCount)
	}
}

func TestVerifyDirectory_match(t *testing.T) {
	v := service.NewDirectoryValidator(hashing.NewEngine())

	expected, err := v.HashDirectory(dirFiles())
	if err != nil {
		t.Fatal(err)
	}
	out, err := v.VerifyDirectory(*expected, dirFiles())
	if err != nil {
		t.Fatal(err)
	}
	if !out.Matches {
		t.Fatal("identical directory must match")
	}
	if len(out.MismatchedPaths) != 0 {
		t.Fatalf("mismatched paths on a match: %v", out.MismatchedPaths)
	}
}

func TestVerifyDirectory_localizesChangedFile(t *testing.T) {
	v := service.NewDirectoryValidator(hashing.NewEngine())

	expected, err := v.HashDirectory(dirFiles())
	if err != nil {
		t.Fatal(err)
	}

	changed := dirFiles()
	changed[1].Data = []byte("feb data, restated")
	out, err := v.VerifyDirectory(*expected, changed)
	if err != nil {
		t.Fatal(err)
	}
	if out.Matches {
		t.Fatal("changed file must fail verification")
	}
	if !reflect.DeepEqual(out.MismatchedPaths, []string{"statements/feb.csv"}) {
		t.Fatalf("mismatched paths = %v, want only the changed file", out.MismatchedPaths)
	}
}

func TestVerifyDirectory_reportsMissingAndExtraFiles(t *testing.T) {
	v := service.NewDirectoryValidator(hashing.NewEngine())

	expected, err := v.HashDirectory(dirFiles())
	if err != nil {
		t.Fatal(err)
	}

	// summary.pdf removed, audit.log added.
	current := []model.FilePayload{
		{Path: "statements/jan.csv", Data: []byte("jan data")},
		{Path: "statements/feb.csv", Data: []byte("feb data")},
		{Path: "audit.log", Data: []byte("new file")},
	}
	out, err := v.VerifyDirectory(*expected, current)
	if err != nil {
		t.Fatal(err)
	}
	if out.Matches {
		t.Fatal("directory with added and removed files must fail verification")
	}
	if !reflect.DeepEqual(out.MismatchedPaths, []string{"audit.log", "summary.pdf"}) {
		t.Fatalf("mismatched paths = %v, want sorted added+removed", out.MismatchedPaths)
	}
}

func TestHashDirectory_validation(t *testing.T) {
	v := service.NewDirectoryValidator(hashing.NewEngine())

	if _, err := v.HashDirectory(nil); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("empty set: err = %v, want ErrValidation", err)
	}
	if _, err := v.HashDirectory([]model.FilePayload{{Path: "", Data: []byte("x")}}); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("empty path: err = %v, want ErrValidation", err)
	}
}
