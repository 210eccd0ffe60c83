// Package adaptive provides the AEAD primitives behind valtok's data protection.
//
// A Cipher seals plaintext with a random nonce and binds optional associated
// data, so any modification of the ciphertext or a mismatched associated data
// value fails decryption.
//
// Supported Algorithms:
//
//   - AES-256-GCM: preferred when the CPU accelerates AES (amd64, arm64)
//   - ChaCha20-Poly1305: portable fallback, selected explicitly or elsewhere
//
// Ciphertext layout:
//
//	[nonce][ciphertext][tag]
//
// Usage:
//
//	c, err := adaptive.New(key)
//	sealed, err := c.Encrypt(plaintext, aad)
//	plaintext, err := c.Decrypt(sealed, aad)
//
// All Cipher implementations are safe for concurrent use.
package adaptive
