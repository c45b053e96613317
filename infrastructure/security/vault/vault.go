// Package vault provides an encrypted in-memory secret store scoped to a
// single provisioning run.
//
// Secrets are encrypted at rest with AES-256-GCM under a key generated at
// construction. The key never derives from user input, never leaves
// process memory, and is overwritten on Destroy.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"
)

// Vault errors; match with errors.Is.
var (
	// ErrVaultDestroyed is returned by every operation after Destroy.
	ErrVaultDestroyed = errors.New("vault has been destroyed")

	// ErrSecretNotFound is returned when a resolved reference names a
	// secret that was never stored.
	ErrSecretNotFound = errors.New("secret not found")
)

// referencePattern matches {{secrets.<name>}} placeholders.
var referencePattern = regexp.MustCompile(`\{\{secrets\.([A-Za-z0-9_.-]+)\}\}`)

// secret is one encrypted entry: a fresh nonce per Store call plus the
// sealed ciphertext.
type secret struct {
	nonce      []byte
	ciphertext []byte
}

// Status reports vault introspection data. Values are never included.
type Status struct {
	Secrets   int  `json:"secrets"`
	Destroyed bool `json:"destroyed"`
}

// Vault is an encrypted in-memory key/value store. Safe for concurrent
// use; Destroy is a one-way barrier observed by all later operations.
type Vault struct {
	mu        sync.RWMutex
	key       []byte
	aead      cipher.AEAD
	secrets   map[string]secret
	destroyed bool
}

// New constructs a vault with a fresh random 256-bit key.
func New() (*Vault, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate vault key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init vault cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init vault cipher: %w", err)
	}
	return &Vault{
		key:     key,
		aead:    aead,
		secrets: make(map[string]secret),
	}, nil
}

// Store encrypts value under a fresh nonce and saves it, overwriting any
// prior secret under the same key. Storing the same value twice yields
// different ciphertext.
func (v *Vault) Store(key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return ErrVaultDestroyed
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	v.secrets[key] = secret{
		nonce:      nonce,
		ciphertext: v.aead.Seal(nil, nonce, []byte(value), nil),
	}
	return nil
}

// Retrieve decrypts and returns the plaintext for key. The second return
// is false when the key was never stored; absence is not an error.
func (v *Vault) Retrieve(key string) (string, bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.destroyed {
		return "", false, ErrVaultDestroyed
	}

	s, ok := v.secrets[key]
	if !ok {
		return "", false, nil
	}
	plaintext, err := v.aead.Open(nil, s.nonce, s.ciphertext, nil)
	if err != nil {
		return "", false, fmt.Errorf("decrypt secret %q: %w", key, err)
	}
	return string(plaintext), true, nil
}

// Resolve substitutes {{secrets.<name>}} placeholders in reference with
// the decrypted secret values. Input without a placeholder is returned
// unchanged. A placeholder naming an absent key fails with
// ErrSecretNotFound.
func (v *Vault) Resolve(reference string) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.destroyed {
		return "", ErrVaultDestroyed
	}

	matches := referencePattern.FindAllStringSubmatchIndex(reference, -1)
	if len(matches) == 0 {
		return reference, nil
	}

	out := reference
	// Substitute back to front so earlier indexes stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		name := reference[m[2]:m[3]]
		s, ok := v.secrets[name]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrSecretNotFound, name)
		}
		plaintext, err := v.aead.Open(nil, s.nonce, s.ciphertext, nil)
		if err != nil {
			return "", fmt.Errorf("decrypt secret %q: %w", name, err)
		}
		out = out[:m[0]] + string(plaintext) + out[m[1]:]
	}
	return out, nil
}

// Has reports whether a secret exists under key.
func (v *Vault) Has(key string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.destroyed {
		return false
	}
	_, ok := v.secrets[key]
	return ok
}

// Delete removes the secret under key. Deleting an absent key is a no-op.
func (v *Vault) Delete(key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return ErrVaultDestroyed
	}
	delete(v.secrets, key)
	return nil
}

// Keys returns the stored secret names, never values.
func (v *Vault) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.destroyed {
		return nil
	}
	keys := make([]string, 0, len(v.secrets))
	for k := range v.secrets {
		keys = append(keys, k)
	}
	return keys
}

// Status returns the secret count and destroyed flag.
func (v *Vault) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return Status{Secrets: len(v.secrets), Destroyed: v.destroyed}
}

// Destroy clears all secrets, overwrites the key material, and transitions
// the vault to its terminal destroyed state. All subsequent operations
// fail with ErrVaultDestroyed. Idempotent.
func (v *Vault) Destroy() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return
	}
	for k, s := range v.secrets {
		zero(s.nonce)
		zero(s.ciphertext)
		delete(v.secrets, k)
	}
	zero(v.key)
	v.key = nil
	v.aead = nil
	v.destroyed = true
}

// zero overwrites b in place.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
