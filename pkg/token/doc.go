// Package token issues and validates short-lived validation tokens for
// second-factor confirmation flows such as email confirmation and password
// reset links.
//
// A token binds a purpose, a resource ID and a caller-held security stamp:
//
//   - Payload: creation time (int64 ticks) followed by three length-prefixed
//     UTF-8 strings, in that fixed order, with no trailing bytes.
//   - Envelope: the payload is protected by a dataprotect.Protector under the
//     provider name, then encoded with standard base64.
//   - Validation: decode, decrypt, parse, expiry, resource ID, purpose and
//     finally a constant-time stamp comparison. The first failing step wins.
//
// Validate only ever answers true or false. Failure reasons go to the
// Provider's Sink and are never returned to the caller.
package token
