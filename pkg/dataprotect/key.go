package dataprotect

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/valtok-go/pkg/crypto/adaptive"
)

const (
	// MaterialSize is the length of key material in bytes.
	MaterialSize = 32

	// MinPassphraseLength is the minimum passphrase length for DeriveKey.
	MinPassphraseLength = 12

	// subkeyInfo prefixes the HKDF info so subkeys are domain separated from
	// any other use of the same material.
	subkeyInfo = "valtok/dataprotect/v1\x00"

	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

// Key is one entry of a key ring.
type Key struct {
	ID        ulid.ULID
	Material  []byte
	Algorithm adaptive.CipherType
}

// GenerateKey creates a key with fresh random material and a new ID.
func GenerateKey(alg adaptive.CipherType) (*Key, error) {
	material := make([]byte, MaterialSize)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("dataprotect: generate key: %w", err)
	}
	return NewKey(ulid.Make(), material, alg)
}

// NewKey validates and copies the given material. An empty algorithm selects
// the platform's preferred cipher.
func NewKey(id ulid.ULID, material []byte, alg adaptive.CipherType) (*Key, error) {
	if id == (ulid.ULID{}) {
		return nil, fmt.Errorf("%w: zero key id", ErrInvalidKey)
	}
	if len(material) != MaterialSize {
		return nil, fmt.Errorf("%w: material must be %d bytes, got %d", ErrInvalidKey, MaterialSize, len(material))
	}
	parsed, err := adaptive.ParseCipherType(string(alg))
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}
	return &Key{ID: id, Material: bytes.Clone(material), Algorithm: parsed}, nil
}

// DeriveKey derives key material from a passphrase with Argon2id, using the
// key ID as salt. The same (id, passphrase) always yields the same key.
func DeriveKey(id ulid.ULID, passphrase []byte, alg adaptive.CipherType) (*Key, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, fmt.Errorf("%w: minimum %d characters", ErrPassphraseTooShort, MinPassphraseLength)
	}
	material := argon2.IDKey(passphrase, id[:], argon2Time, argon2Memory, argon2Threads, MaterialSize)
	return NewKey(id, material, alg)
}

// CreatedAt returns the creation time embedded in the key ID.
func (k *Key) CreatedAt() time.Time {
	return ulid.Time(k.ID.Time()).UTC()
}

// subkey derives the per-purpose encryption key.
func (k *Key) subkey(purpose string) ([]byte, error) {
	r := hkdf.New(sha256.New, k.Material, k.ID[:], []byte(subkeyInfo+purpose))
	out := make([]byte, adaptive.KeySize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("dataprotect: derive subkey: %w", err)
	}
	return out, nil
}

// ParseKeyID parses the canonical 26-character ULID form of a key ID.
func ParseKeyID(s string) (ulid.ULID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return ulid.ULID{}, fmt.Errorf("%w: key id %q: %w", ErrInvalidKey, s, err)
	}
	return id, nil
}

// EncodeMaterial renders key material for configuration files.
func EncodeMaterial(material []byte) string {
	return base64.StdEncoding.EncodeToString(material)
}

// DecodeMaterial parses key material produced by EncodeMaterial.
func DecodeMaterial(s string) ([]byte, error) {
	b, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: key material: %w", ErrInvalidKey, err)
	}
	return b, nil
}
