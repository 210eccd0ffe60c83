package dataprotect

import "errors"

var (
	// Key ring construction errors
	ErrNoKeys             = errors.New("dataprotect: key ring has no keys")
	ErrDuplicateKey       = errors.New("dataprotect: duplicate key id")
	ErrInvalidKey         = errors.New("dataprotect: invalid key")
	ErrPassphraseTooShort = errors.New("dataprotect: passphrase too short")

	// Protect/Unprotect errors
	ErrEncryptionFailed  = errors.New("dataprotect: encryption failed")
	ErrMalformedEnvelope = errors.New("dataprotect: malformed envelope")
	ErrUnknownKey        = errors.New("dataprotect: key not found in ring")
	ErrDecryptionFailed  = errors.New("dataprotect: decryption failed")
	ErrNoKeyRing         = errors.New("dataprotect: no key ring loaded")
)
