package dataprotect

import "sync/atomic"

// Swappable is a Protector whose key ring can be replaced while in use,
// e.g. when the key file changes on disk. In-flight calls keep the ring they
// loaded.
type Swappable struct {
	ring atomic.Pointer[KeyRing]
}

// NewSwappable returns a Swappable holding r (which may be nil).
func NewSwappable(r *KeyRing) *Swappable {
	s := &Swappable{}
	if r != nil {
		s.ring.Store(r)
	}
	return s
}

// Store replaces the current ring.
func (s *Swappable) Store(r *KeyRing) {
	s.ring.Store(r)
}

// Load returns the current ring, or nil.
func (s *Swappable) Load() *KeyRing {
	return s.ring.Load()
}

// Protect implements Protector.
func (s *Swappable) Protect(plaintext []byte, purpose string) ([]byte, error) {
	r := s.ring.Load()
	if r == nil {
		return nil, ErrNoKeyRing
	}
	return r.Protect(plaintext, purpose)
}

// Unprotect implements Protector.
func (s *Swappable) Unprotect(protected []byte, purpose string) ([]byte, error) {
	r := s.ring.Load()
	if r == nil {
		return nil, ErrNoKeyRing
	}
	return r.Unprotect(protected, purpose)
}
