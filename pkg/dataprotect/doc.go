// Package dataprotect provides purpose-scoped authenticated encryption.
//
// A Protector seals bytes under a purpose string; Unprotect succeeds only for
// the same purpose and an untouched payload. KeyRing is the standard
// implementation: it holds one default key used for protection plus any number
// of older keys that are still accepted for unprotection.
//
// Envelope layout:
//
//	[magic: 09 F0 C9 F0][key id: 16-byte ULID][nonce][ciphertext][tag]
//
// Each (key, purpose) pair gets its own subkey, derived with HKDF-SHA256 using
// the key ID as salt and the purpose as info. The magic, key ID and purpose
// are also bound as AEAD associated data.
//
// Keys are 32 bytes of random material, or are derived from a passphrase with
// Argon2id salted by the key ID. Deciding when keys are created or retired is
// left to the operator; Swappable lets a running process replace its ring.
//
// Errors from Unprotect wrap one of ErrMalformedEnvelope, ErrUnknownKey or
// ErrDecryptionFailed.
package dataprotect
