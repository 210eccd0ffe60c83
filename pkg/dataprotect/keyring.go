package dataprotect

import (
	"errors"
	"fmt"
	"slices"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/valtok-go/pkg/cmap"
	"github.com/yndnr/valtok-go/pkg/crypto/adaptive"
)

// Protector is an authenticated-encryption provider scoped by purpose.
type Protector interface {
	// Protect encrypts and authenticates plaintext under purpose.
	Protect(plaintext []byte, purpose string) ([]byte, error)

	// Unprotect reverses Protect. It fails when the payload was modified,
	// was produced under another purpose, or its key is not available.
	Unprotect(protected []byte, purpose string) ([]byte, error)
}

// KeyRing protects with its default key and unprotects with whichever ring
// key the envelope names. It is immutable and safe for concurrent use.
type KeyRing struct {
	defaultKey *Key
	keys       map[ulid.ULID]*Key
	ciphers    *cmap.Map[adaptive.Cipher]
}

// NewKeyRing builds a ring from keys. defaultID must name one of them.
func NewKeyRing(defaultID ulid.ULID, keys ...*Key) (*KeyRing, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	r := &KeyRing{
		keys:    make(map[ulid.ULID]*Key, len(keys)),
		ciphers: cmap.New[adaptive.Cipher](),
	}
	for _, k := range keys {
		if k == nil {
			return nil, fmt.Errorf("%w: nil key", ErrInvalidKey)
		}
		if _, dup := r.keys[k.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, k.ID)
		}
		r.keys[k.ID] = k
	}

	def, ok := r.keys[defaultID]
	if !ok {
		return nil, fmt.Errorf("%w: default key %s", ErrUnknownKey, defaultID)
	}
	r.defaultKey = def
	return r, nil
}

// Protect implements Protector.
func (r *KeyRing) Protect(plaintext []byte, purpose string) ([]byte, error) {
	c, err := r.cipherFor(r.defaultKey, purpose)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	sealed, err := c.Encrypt(plaintext, associatedData(r.defaultKey.ID, purpose))
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	out := make([]byte, 0, headerSize+len(sealed))
	out = appendHeader(out, r.defaultKey.ID)
	return append(out, sealed...), nil
}

// Unprotect implements Protector.
func (r *KeyRing) Unprotect(protected []byte, purpose string) ([]byte, error) {
	id, body, err := splitEnvelope(protected)
	if err != nil {
		return nil, err
	}

	k, ok := r.keys[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, id)
	}

	c, err := r.cipherFor(k, purpose)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}

	plaintext, err := c.Decrypt(body, associatedData(id, purpose))
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// DefaultKeyID returns the ID of the key used by Protect.
func (r *KeyRing) DefaultKeyID() ulid.ULID {
	return r.defaultKey.ID
}

// KeyIDs returns all key IDs in ascending (creation) order.
func (r *KeyRing) KeyIDs() []ulid.ULID {
	ids := make([]ulid.ULID, 0, len(r.keys))
	for id := range r.keys {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b ulid.ULID) int { return a.Compare(b) })
	return ids
}

// Len returns the number of keys in the ring.
func (r *KeyRing) Len() int {
	return len(r.keys)
}

// cipherFor returns the cached cipher for (key, purpose).
func (r *KeyRing) cipherFor(k *Key, purpose string) (adaptive.Cipher, error) {
	// ULID strings are fixed width, so the separator cannot be ambiguous.
	return r.ciphers.GetOrCompute(k.ID.String()+"\x00"+purpose, func() (adaptive.Cipher, error) {
		sub, err := k.subkey(purpose)
		if err != nil {
			return nil, err
		}
		return adaptive.NewWithType(sub, k.Algorithm)
	})
}
