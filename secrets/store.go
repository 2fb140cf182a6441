// Package secrets holds the encrypted API-key cache. Keys are stored in a
// single AES-256-GCM sealed file keyed either by a raw 32-byte key or by a
// passphrase run through argon2id.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"

	"github.com/declarr/declarr/faults"
)

const (
	storeVersion     = 1
	keyLengthBytes   = 32
	nonceLengthBytes = 12
	saltLengthBytes  = 16

	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
)

// Store is the on-disk encrypted key cache. All operations are serialized;
// writes replace the file atomically.
type Store struct {
	path       string
	key        []byte
	passphrase []byte

	mu sync.Mutex
}

type envelope struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt,omitempty"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

type snapshot struct {
	Keys map[string]string `json:"keys"`
}

// Open prepares a store at path. Exactly one of key and passphrase must be
// set: key is a 32-byte value in raw, hex, or base64 form; a passphrase is
// stretched with argon2id using a per-write random salt.
func Open(path, key, passphrase string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, validationError("secret store path is required", nil)
	}
	hasKey := strings.TrimSpace(key) != ""
	hasPassphrase := strings.TrimSpace(passphrase) != ""
	if hasKey == hasPassphrase {
		return nil, validationError("exactly one of key and passphrase must be set", nil)
	}

	store := &Store{path: filepath.Clean(path)}
	if hasKey {
		parsed, err := parseKey(key)
		if err != nil {
			return nil, err
		}
		store.key = parsed
	} else {
		store.passphrase = []byte(strings.TrimSpace(passphrase))
	}
	return store, nil
}

// Set stores the API key for an instance, creating the store file on first
// use.
func (s *Store) Set(instance, apiKey string) error {
	name, err := normalizeInstance(instance)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.readLocked()
	if err != nil {
		return err
	}
	snap.Keys[name] = apiKey
	return s.writeLocked(snap)
}

// Get returns the stored API key for an instance.
func (s *Store) Get(instance string) (string, error) {
	name, err := normalizeInstance(instance)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.readLocked()
	if err != nil {
		return "", err
	}
	value, found := snap.Keys[name]
	if !found {
		return "", faults.NewTypedError(faults.NotFoundError, "no api key stored for instance", nil)
	}
	return value, nil
}

// Delete removes the stored API key for an instance. Deleting an absent key
// is not an error.
func (s *Store) Delete(instance string) error {
	name, err := normalizeInstance(instance)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.readLocked()
	if err != nil {
		return err
	}
	delete(snap.Keys, name)
	return s.writeLocked(snap)
}

// List returns the instance names with stored keys in lexical order. Key
// values are never listed.
func (s *Store) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(snap.Keys))
	for name := range snap.Keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) readLocked() (snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return snapshot{Keys: map[string]string{}}, nil
		}
		return snapshot{}, internalError("failed to read secret store", err)
	}

	var sealed envelope
	if err := json.Unmarshal(data, &sealed); err != nil {
		return snapshot{}, internalError("failed to decode secret store envelope", err)
	}
	if sealed.Version != storeVersion {
		return snapshot{}, validationError("secret store format version is unsupported", nil)
	}

	nonce, err := base64.StdEncoding.DecodeString(sealed.Nonce)
	if err != nil {
		return snapshot{}, validationError("secret store nonce is invalid", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(sealed.Ciphertext)
	if err != nil {
		return snapshot{}, validationError("secret store ciphertext is invalid", err)
	}
	var salt []byte
	if sealed.Salt != "" {
		salt, err = base64.StdEncoding.DecodeString(sealed.Salt)
		if err != nil {
			return snapshot{}, validationError("secret store salt is invalid", err)
		}
	}

	gcm, err := s.cipherFor(salt)
	if err != nil {
		return snapshot{}, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return snapshot{}, faults.NewTypedError(faults.AuthError, "failed to decrypt secret store with provided key material", err)
	}

	var snap snapshot
	if err := json.Unmarshal(plaintext, &snap); err != nil {
		return snapshot{}, internalError("failed to decode decrypted secret store", err)
	}
	if snap.Keys == nil {
		snap.Keys = map[string]string{}
	}
	return snap, nil
}

func (s *Store) writeLocked(snap snapshot) error {
	plaintext, err := json.Marshal(snap)
	if err != nil {
		return internalError("failed to encode secret snapshot", err)
	}

	nonce, err := randomBytes(nonceLengthBytes)
	if err != nil {
		return internalError("failed to generate nonce", err)
	}
	var salt []byte
	if len(s.passphrase) > 0 {
		salt, err = randomBytes(saltLengthBytes)
		if err != nil {
			return internalError("failed to generate salt", err)
		}
	}

	gcm, err := s.cipherFor(salt)
	if err != nil {
		return err
	}
	sealed := envelope{
		Version:    storeVersion,
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, plaintext, nil)),
	}
	if len(salt) > 0 {
		sealed.Salt = base64.StdEncoding.EncodeToString(salt)
	}

	encoded, err := json.Marshal(sealed)
	if err != nil {
		return internalError("failed to encode secret store envelope", err)
	}
	return writeAtomic(s.path, encoded, 0o600)
}

func (s *Store) cipherFor(salt []byte) (cipher.AEAD, error) {
	key := s.key
	if len(key) == 0 {
		if len(salt) == 0 {
			return nil, validationError("secret store salt is missing", nil)
		}
		key = argon2.IDKey(s.passphrase, salt, kdfTime, kdfMemory, kdfThreads, keyLengthBytes)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, internalError("failed to initialize cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, internalError("failed to initialize cipher mode", err)
	}
	return gcm, nil
}

func parseKey(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if decoded, err := hex.DecodeString(trimmed); err == nil && len(decoded) == keyLengthBytes {
		return decoded, nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil && len(decoded) == keyLengthBytes {
		return decoded, nil
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(trimmed); err == nil && len(decoded) == keyLengthBytes {
		return decoded, nil
	}
	if len(trimmed) == keyLengthBytes {
		return []byte(trimmed), nil
	}
	return nil, validationError("secret store key must be 32-byte raw, base64, or hex", nil)
}

func normalizeInstance(instance string) (string, error) {
	trimmed := strings.TrimSpace(instance)
	if trimmed == "" {
		return "", validationError("instance name must not be empty", nil)
	}
	return trimmed, nil
}

func randomBytes(length int) ([]byte, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}

func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return internalError("failed to create secret store directory", err)
	}

	tempFile, err := os.CreateTemp(dir, ".declarr-secret-*")
	if err != nil {
		return internalError("failed to create temporary secret file", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return internalError("failed to write temporary secret file", err)
	}
	if err := tempFile.Chmod(mode); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return internalError("failed to set secret file permissions", err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return internalError("failed to close temporary secret file", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return internalError("failed to replace secret store file", err)
	}
	return nil
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
