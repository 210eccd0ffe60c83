package benchmark

import (
	"net/http"
	"testing"

	"github.com/yndnr/valtok-go/internal/server/httpserver"
	"github.com/yndnr/valtok-go/pkg/crypto/adaptive"
	"github.com/yndnr/valtok-go/pkg/dataprotect"
	"github.com/yndnr/valtok-go/pkg/token"
)

// RingSizes defines the key ring sizes for benchmarking. Validation looks up
// the key named in the envelope, so the ring size should not matter.
var RingSizes = []int{1, 4, 16, 64}

func newKeys(b *testing.B, n int, alg adaptive.CipherType) []*dataprotect.Key {
	b.Helper()
	keys := make([]*dataprotect.Key, n)
	for i := range keys {
		k, err := dataprotect.GenerateKey(alg)
		if err != nil {
			b.Fatalf("GenerateKey failed: %v", err)
		}
		keys[i] = k
	}
	return keys
}

func ringOf(b *testing.B, def *dataprotect.Key, keys ...*dataprotect.Key) *dataprotect.KeyRing {
	b.Helper()
	ring, err := dataprotect.NewKeyRing(def.ID, keys...)
	if err != nil {
		b.Fatalf("NewKeyRing failed: %v", err)
	}
	return ring
}

// newRing builds a ring of n random keys whose newest key is the default.
func newRing(b *testing.B, n int, alg adaptive.CipherType) *dataprotect.KeyRing {
	keys := newKeys(b, n, alg)
	return ringOf(b, keys[n-1], keys...)
}

func newProvider(b *testing.B, p dataprotect.Protector) *token.Provider {
	b.Helper()
	provider, err := token.NewProvider(p)
	if err != nil {
		b.Fatalf("NewProvider failed: %v", err)
	}
	return provider
}

// newRouter returns the full API stack with rate limiting disabled.
func newRouter(b *testing.B, provider *token.Provider) http.Handler {
	b.Helper()
	cfg := httpserver.DefaultRouterConfig()
	cfg.Tokens = provider
	cfg.Stamps = token.NewStampGenerator(nil)
	cfg.APIKeys = []string{"bench-key"}
	cfg.RateLimit = 0
	cfg.EnableAudit = false
	return httpserver.NewRouter(cfg)
}
