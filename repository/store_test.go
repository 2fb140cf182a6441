package repository

import (
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/declarr/declarr/faults"
)

func TestFilesystemStoreWrite(t *testing.T) {
	t.Parallel()

	store, err := NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore returned error: %v", err)
	}

	path, err := store.Write("prowlarr.yaml", []byte("ui:\n  theme: dark\n"))
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read dump: %v", err)
	}
	if string(data) != "ui:\n  theme: dark\n" {
		t.Fatalf("dump content = %q", data)
	}

	// Nested names create their directories.
	if _, err := store.Write(filepath.Join("main", "prowlarr.yaml"), []byte("x")); err != nil {
		t.Fatalf("nested Write returned error: %v", err)
	}
}

func TestFilesystemStoreRejectsEscapingNames(t *testing.T) {
	t.Parallel()

	store, err := NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStore returned error: %v", err)
	}

	cases := []string{"", "../escape.yaml", "/abs/path.yaml", "a/../../b"}
	for _, name := range cases {
		if _, err := store.Write(name, []byte("x")); !faults.IsCategory(err, faults.ValidationError) {
			t.Errorf("Write(%q) error = %v, want ValidationError", name, err)
		}
	}
}

func TestGitStoreCommitsEachDump(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewGitStore(dir, "tester", "tester@localhost")
	if err != nil {
		t.Fatalf("NewGitStore returned error: %v", err)
	}

	if _, err := store.Write("prowlarr.yaml", []byte("v1\n")); err != nil {
		t.Fatalf("first Write returned error: %v", err)
	}
	if _, err := store.Write("prowlarr.yaml", []byte("v2\n")); err != nil {
		t.Fatalf("second Write returned error: %v", err)
	}
	// Identical content must not create an empty commit.
	if _, err := store.Write("prowlarr.yaml", []byte("v2\n")); err != nil {
		t.Fatalf("third Write returned error: %v", err)
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("failed to open repository: %v", err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("failed to read HEAD: %v", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	count := 0
	if err := iter.ForEach(func(*object.Commit) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("failed to iterate log: %v", err)
	}
	if count != 2 {
		t.Fatalf("commit count = %d, want 2", count)
	}
}
