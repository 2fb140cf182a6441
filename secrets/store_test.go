package secrets

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/declarr/declarr/faults"
)

func TestStoreCRUD(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keys.enc")
	store, err := Open(path, "", "change-me")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	if err := store.Set("prowlarr-main", "top-secret"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	value, err := store.Get("prowlarr-main")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if value != "top-secret" {
		t.Fatalf("expected top-secret, got %q", value)
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"prowlarr-main"}) {
		t.Fatalf("expected [prowlarr-main], got %#v", names)
	}

	encoded, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read encrypted file: %v", err)
	}
	if strings.Contains(string(encoded), "top-secret") {
		t.Fatal("store file contains plaintext secret")
	}

	if err := store.Delete("prowlarr-main"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := store.Get("prowlarr-main"); !faults.IsCategory(err, faults.NotFoundError) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keys.enc")
	first, err := Open(path, "", "change-me")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := first.Set("main", "abc123"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	second, err := Open(path, "", "change-me")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	value, err := second.Get("main")
	if err != nil {
		t.Fatalf("Get after reopen returned error: %v", err)
	}
	if value != "abc123" {
		t.Fatalf("expected abc123, got %q", value)
	}
}

func TestStoreRejectsWrongPassphrase(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keys.enc")
	store, err := Open(path, "", "correct")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := store.Set("main", "abc123"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	wrong, err := Open(path, "", "incorrect")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if _, err := wrong.Get("main"); !faults.IsCategory(err, faults.AuthError) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestStoreRawKeyMaterial(t *testing.T) {
	t.Parallel()

	key := hex.EncodeToString([]byte(strings.Repeat("k", keyLengthBytes)))
	path := filepath.Join(t.TempDir(), "keys.enc")
	store, err := Open(path, key, "")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if err := store.Set("main", "abc123"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	value, err := store.Get("main")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if value != "abc123" {
		t.Fatalf("expected abc123, got %q", value)
	}
}

func TestOpenValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		path       string
		key        string
		passphrase string
	}{
		{"missing path", "", "", "pass"},
		{"no key material", "keys.enc", "", ""},
		{"both key and passphrase", "keys.enc", strings.Repeat("k", 32), "pass"},
		{"short key", "keys.enc", "short", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Open(tc.path, tc.key, tc.passphrase); !faults.IsCategory(err, faults.ValidationError) {
				t.Fatalf("Open(%q) error = %v, want ValidationError", tc.name, err)
			}
		})
	}
}
