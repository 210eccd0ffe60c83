package token

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"io"
	"sync"
)

// StampSize is the number of random bytes in a security stamp.
const StampSize = 20

// StampGenerator produces security stamps from a random source. Reads from
// the source are serialized, so any io.Reader may back it.
type StampGenerator struct {
	mu sync.Mutex
	r  io.Reader
}

// NewStampGenerator returns a generator reading from r, or from crypto/rand
// when r is nil.
func NewStampGenerator(r io.Reader) *StampGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &StampGenerator{r: r}
}

// New returns StampSize random bytes as 32 base32 characters.
func (g *StampGenerator) New() (string, error) {
	var b [StampSize]byte
	g.mu.Lock()
	_, err := io.ReadFull(g.r, b[:])
	g.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("token: read stamp entropy: %w", err)
	}
	return base32.StdEncoding.EncodeToString(b[:]), nil
}

var defaultStamps = sync.OnceValue(func() *StampGenerator {
	return NewStampGenerator(rand.Reader)
})

// NewSecurityStamp returns a fresh security stamp from the process-wide
// generator.
func NewSecurityStamp() string {
	s, err := defaultStamps().New()
	if err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(err)
	}
	return s
}
