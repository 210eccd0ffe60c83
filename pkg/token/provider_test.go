package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/valtok-go/pkg/dataprotect"
)

const (
	testPurpose  = "purpose"
	testResource = "bfaf2b0b-4b6b-4d5d-9a0c-0b5c1f6a9d11"
)

// fakeClock is a settable clock shared by a provider under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recorder collects events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Observe(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) last(t *testing.T) Event {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		t.Fatal("no events recorded")
	}
	return r.events[len(r.events)-1]
}

func newTestRing(t testing.TB) *dataprotect.KeyRing {
	t.Helper()
	k, err := dataprotect.GenerateKey("")
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}
	r, err := dataprotect.NewKeyRing(k.ID, k)
	if err != nil {
		t.Fatalf("NewKeyRing() error = %v", err)
	}
	return r
}

func newTestProvider(t *testing.T, opts ...Option) (*Provider, *fakeClock, *recorder) {
	t.Helper()
	clock := newFakeClock()
	rec := &recorder{}
	opts = append([]Option{WithClock(clock.Now), WithSink(rec)}, opts...)
	p, err := NewProvider(newTestRing(t), opts...)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	return p, clock, rec
}

func TestNewProvider(t *testing.T) {
	ring := newTestRing(t)

	p, err := NewProvider(ring)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if p.Name() != DefaultName || p.Lifespan() != DefaultLifespan {
		t.Errorf("defaults = (%q, %s), want (%q, %s)", p.Name(), p.Lifespan(), DefaultName, DefaultLifespan)
	}

	if _, err := NewProvider(nil); err == nil {
		t.Error("NewProvider(nil) should fail")
	}
	if _, err := NewProvider(ring, WithLifespan(0)); err == nil {
		t.Error("NewProvider() with zero lifespan should fail")
	}
	if _, err := NewProvider(ring, WithLifespan(-time.Minute)); err == nil {
		t.Error("NewProvider() with negative lifespan should fail")
	}
	if _, err := NewProvider(ring, WithSink(nil), WithClock(nil)); err != nil {
		t.Errorf("NewProvider() with nil sink and clock error = %v", err)
	}
}

func TestProvider_GenerateValidate(t *testing.T) {
	p, _, rec := newTestProvider(t)

	inputs := []struct{ purpose, resource, stamp string }{
		{testPurpose, testResource, NewSecurityStamp()},
		{"", "", ""},
		{"ConfirmEmail", "ユーザー", NewSecurityStamp()},
		{strings.Repeat("p", MaxFieldLength), strings.Repeat("r", MaxFieldLength), strings.Repeat("s", MaxFieldLength)},
	}

	for _, in := range inputs {
		tok, err := p.Generate(in.purpose, in.resource, in.stamp)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if ev := rec.last(t); ev.Op != OpGenerate || ev.Reason != ReasonOK || ev.Fingerprint != Fingerprint(tok) {
			t.Errorf("generate event = %+v", ev)
		}

		if !p.Validate(tok, in.purpose, in.resource, in.stamp) {
			t.Errorf("Validate() = false for freshly generated token (reason %s)", rec.last(t).Reason)
		}
		if ev := rec.last(t); ev.Op != OpValidate || ev.Reason != ReasonOK || ev.Err != nil {
			t.Errorf("validate event = %+v", ev)
		}
	}
}

func TestProvider_TokenIsStandardBase64(t *testing.T) {
	p, _, _ := newTestProvider(t)
	tok, err := p.Generate(testPurpose, testResource, "stamp")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := base64.StdEncoding.Strict().DecodeString(tok); err != nil {
		t.Errorf("token is not strict standard base64: %v", err)
	}
}

func TestProvider_Issue(t *testing.T) {
	p, clock, _ := newTestProvider(t, WithLifespan(time.Hour))
	iss, err := p.Issue(testPurpose, testResource, "stamp")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !iss.CreatedAt.Equal(clock.Now()) {
		t.Errorf("CreatedAt = %v, want %v", iss.CreatedAt, clock.Now())
	}
	if !iss.ExpiresAt.Equal(clock.Now().Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", iss.ExpiresAt, clock.Now().Add(time.Hour))
	}
}

func TestProvider_ValidateRejections(t *testing.T) {
	p, _, rec := newTestProvider(t)
	stamp := NewSecurityStamp()
	tok, err := p.Generate(testPurpose, testResource, stamp)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	tests := []struct {
		name                      string
		token, purpose, res, stmp string
		wantReason                Reason
		wantErr                   error
	}{
		{"empty token", "", testPurpose, testResource, stamp, ReasonMalformedToken, ErrMalformedToken},
		{"not base64", "not base64!", testPurpose, testResource, stamp, ReasonMalformedToken, ErrMalformedToken},
		{"unpadded base64", strings.TrimRight(tok, "="), testPurpose, testResource, stamp, ReasonMalformedToken, ErrMalformedToken},
		{"random bytes", base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef0123456789")), testPurpose, testResource, stamp, ReasonDecryptFailed, ErrTokenRejected},
		{"purpose mismatch", tok, "invalidPurpose", testResource, stamp, ReasonPurposeMismatch, ErrFieldMismatch},
		{"resource mismatch", tok, testPurpose, "invalidResource", stamp, ReasonResourceMismatch, ErrFieldMismatch},
		{"stamp mismatch", tok, testPurpose, testResource, NewSecurityStamp(), ReasonStampMismatch, ErrFieldMismatch},
		{"stamp prefix", tok, testPurpose, testResource, stamp[:10], ReasonStampMismatch, ErrFieldMismatch},
		{"resource checked before purpose", tok, "invalidPurpose", "invalidResource", stamp, ReasonResourceMismatch, ErrFieldMismatch},
		{"purpose checked before stamp", tok, "invalidPurpose", testResource, "wrong", ReasonPurposeMismatch, ErrFieldMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if p.Validate(tt.token, tt.purpose, tt.res, tt.stmp) {
				t.Fatal("Validate() = true, want false")
			}
			ev := rec.last(t)
			if ev.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", ev.Reason, tt.wantReason)
			}
			if !errors.Is(ev.Err, tt.wantErr) {
				t.Errorf("event error = %v, want %v", ev.Err, tt.wantErr)
			}
		})
	}
}

func TestProvider_Expiration(t *testing.T) {
	p, clock, rec := newTestProvider(t)
	tok, err := p.Generate(testPurpose, testResource, "stamp")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	clock.Advance(DefaultLifespan)
	if !p.Validate(tok, testPurpose, testResource, "stamp") {
		t.Errorf("Validate() at exact expiry = false (reason %s), want true", rec.last(t).Reason)
	}

	clock.Advance(Precision)
	if p.Validate(tok, testPurpose, testResource, "stamp") {
		t.Fatal("Validate() after lifespan = true, want false")
	}
	if ev := rec.last(t); ev.Reason != ReasonExpired || !errors.Is(ev.Err, ErrTokenExpired) {
		t.Errorf("event = %+v, want expired", ev)
	}

	// Expiry is checked before identity fields.
	p.Validate(tok, "other", "other", "other")
	if rec.last(t).Reason != ReasonExpired {
		t.Errorf("reason = %s, want %s", rec.last(t).Reason, ReasonExpired)
	}
}

func TestProvider_CustomLifespan(t *testing.T) {
	p, clock, _ := newTestProvider(t, WithLifespan(15*time.Minute))
	tok, err := p.Generate(testPurpose, testResource, "stamp")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	clock.Advance(14 * time.Minute)
	if !p.Validate(tok, testPurpose, testResource, "stamp") {
		t.Error("Validate() within lifespan = false")
	}
	clock.Advance(2 * time.Minute)
	if p.Validate(tok, testPurpose, testResource, "stamp") {
		t.Error("Validate() after lifespan = true")
	}
}

func TestProvider_FutureDatedTokenAccepted(t *testing.T) {
	p, clock, _ := newTestProvider(t)
	tok, err := p.Generate(testPurpose, testResource, "stamp")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	clock.Advance(-time.Hour)
	if !p.Validate(tok, testPurpose, testResource, "stamp") {
		t.Error("Validate() of token created in the future = false, want true")
	}
}

func TestProvider_Tampering(t *testing.T) {
	p, _, rec := newTestProvider(t)
	tok, err := p.Generate(testPurpose, testResource, "stamp")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}

	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte(nil), raw...)
			tampered[i] ^= 1 << bit
			if p.Validate(base64.StdEncoding.EncodeToString(tampered), testPurpose, testResource, "stamp") {
				t.Fatalf("Validate() accepted token with bit %d of byte %d flipped", bit, i)
			}
			if r := rec.last(t).Reason; r != ReasonDecryptFailed {
				t.Fatalf("tampered byte %d reason = %s, want %s", i, r, ReasonDecryptFailed)
			}
		}
	}

	truncated := base64.StdEncoding.EncodeToString(raw[:len(raw)-1])
	if p.Validate(truncated, testPurpose, testResource, "stamp") {
		t.Error("Validate() accepted truncated token")
	}
}

func TestProvider_TrailingBytesRejected(t *testing.T) {
	ring := newTestRing(t)
	rec := &recorder{}
	p, err := NewProvider(ring, WithSink(rec))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	plain, err := EncodePayload(Payload{CreatedAt: time.Now(), ResourceID: testResource, Purpose: testPurpose, SecurityStamp: "stamp"})
	if err != nil {
		t.Fatalf("EncodePayload() error = %v", err)
	}
	protected, err := ring.Protect(append(plain, 0x00), DefaultName)
	if err != nil {
		t.Fatalf("Protect() error = %v", err)
	}

	if p.Validate(base64.StdEncoding.EncodeToString(protected), testPurpose, testResource, "stamp") {
		t.Fatal("Validate() accepted payload with trailing byte")
	}
	if ev := rec.last(t); ev.Reason != ReasonMalformedPayload || !errors.Is(ev.Err, ErrMalformedPayload) {
		t.Errorf("event = %+v, want malformed payload", ev)
	}
}

func TestProvider_NameIsolation(t *testing.T) {
	ring := newTestRing(t)
	a, err := NewProvider(ring, WithName("EmailConfirmation"))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	b, err := NewProvider(ring, WithName("PasswordReset"))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	tok, err := a.Generate(testPurpose, testResource, "stamp")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if b.Validate(tok, testPurpose, testResource, "stamp") {
		t.Error("token validated under a different provider name")
	}
	if !a.Validate(tok, testPurpose, testResource, "stamp") {
		t.Error("token did not validate under its own provider name")
	}
}

func TestProvider_KeyRotation(t *testing.T) {
	oldKey, _ := dataprotect.GenerateKey("")
	newKey, _ := dataprotect.GenerateKey("")
	oldRing, err := dataprotect.NewKeyRing(oldKey.ID, oldKey)
	if err != nil {
		t.Fatalf("NewKeyRing() error = %v", err)
	}
	rotated, err := dataprotect.NewKeyRing(newKey.ID, newKey, oldKey)
	if err != nil {
		t.Fatalf("NewKeyRing() error = %v", err)
	}
	unrelated := newTestRing(t)

	swap := dataprotect.NewSwappable(oldRing)
	p, err := NewProvider(swap)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	tok, err := p.Generate(testPurpose, testResource, "stamp")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	swap.Store(rotated)
	if !p.Validate(tok, testPurpose, testResource, "stamp") {
		t.Error("token from retired key should still validate")
	}

	swap.Store(unrelated)
	if p.Validate(tok, testPurpose, testResource, "stamp") {
		t.Error("token validated with a key ring that does not hold its key")
	}
}

func TestProvider_GenerateInvalidInput(t *testing.T) {
	p, _, rec := newTestProvider(t)

	tests := []struct {
		name                     string
		purpose, resource, stamp string
	}{
		{"invalid utf8 purpose", "\xff", testResource, "s"},
		{"invalid utf8 resource", testPurpose, "a\xc3\x28", "s"},
		{"oversized stamp", testPurpose, testResource, strings.Repeat("s", MaxFieldLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := p.Generate(tt.purpose, tt.resource, tt.stamp)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("Generate() error = %v, want ErrInvalidInput", err)
			}
			if tok != "" {
				t.Errorf("Generate() token = %q, want empty", tok)
			}
			if CodeOf(err) != "VT-ARG-4001" {
				t.Errorf("CodeOf() = %q", CodeOf(err))
			}
			if ev := rec.last(t); ev.Reason != ReasonInvalidInput {
				t.Errorf("reason = %s, want %s", ev.Reason, ReasonInvalidInput)
			}
		})
	}
}

// stubProtector lets tests control protector behavior.
type stubProtector struct {
	protect   func([]byte, string) ([]byte, error)
	unprotect func([]byte, string) ([]byte, error)
}

func (s stubProtector) Protect(b []byte, purpose string) ([]byte, error) {
	return s.protect(b, purpose)
}

func (s stubProtector) Unprotect(b []byte, purpose string) ([]byte, error) {
	return s.unprotect(b, purpose)
}

func TestProvider_ProtectFailure(t *testing.T) {
	boom := errors.New("hsm unavailable")
	rec := &recorder{}
	p, err := NewProvider(stubProtector{
		protect: func([]byte, string) ([]byte, error) { return nil, boom },
	}, WithSink(rec))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	_, err = p.Generate(testPurpose, testResource, "stamp")
	if !errors.Is(err, ErrProtectFailed) || !errors.Is(err, boom) {
		t.Errorf("Generate() error = %v, want ErrProtectFailed wrapping cause", err)
	}
	if rec.last(t).Reason != ReasonProtectFailed {
		t.Errorf("reason = %s, want %s", rec.last(t).Reason, ReasonProtectFailed)
	}
}

func TestProvider_ValidateRecoversPanics(t *testing.T) {
	rec := &recorder{}
	p, err := NewProvider(stubProtector{
		unprotect: func([]byte, string) ([]byte, error) { panic("corrupted state") },
	}, WithSink(rec))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	if p.Validate(base64.StdEncoding.EncodeToString([]byte("anything")), testPurpose, testResource, "stamp") {
		t.Fatal("Validate() = true after panic")
	}
	if ev := rec.last(t); ev.Reason != ReasonInternal || !errors.Is(ev.Err, ErrInternal) {
		t.Errorf("event = %+v, want internal", ev)
	}
}

func TestProvider_PanickingSinkIgnored(t *testing.T) {
	ring := newTestRing(t)
	p, err := NewProvider(ring, WithSink(SinkFunc(func(Event) { panic("sink") })))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	tok, err := p.Generate(testPurpose, testResource, "stamp")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !p.Validate(tok, testPurpose, testResource, "stamp") {
		t.Error("Validate() = false with panicking sink")
	}
}

func TestProvider_EventsCarryNoPayload(t *testing.T) {
	p, _, rec := newTestProvider(t)
	stamp := NewSecurityStamp()
	tok, _ := p.Generate(testPurpose, testResource, stamp)
	p.Validate(tok, testPurpose, testResource, "wrong-stamp")

	for _, ev := range rec.events {
		s := ev.Fingerprint
		if ev.Err != nil {
			s += ev.Err.Error()
		}
		if strings.Contains(s, stamp) || strings.Contains(s, testResource) || strings.Contains(s, tok) {
			t.Errorf("event leaks token data: %+v", ev)
		}
	}
}

func TestProvider_Concurrent(t *testing.T) {
	p, _, _ := newTestProvider(t)
	var wg sync.WaitGroup
	failures := make(chan string, 64)

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stamp := NewSecurityStamp()
			tok, err := p.Generate(testPurpose, testResource, stamp)
			if err != nil {
				failures <- err.Error()
				return
			}
			if !p.Validate(tok, testPurpose, testResource, stamp) {
				failures <- "valid token rejected"
			}
			if p.Validate(tok, testPurpose, testResource, NewSecurityStamp()) {
				failures <- "wrong stamp accepted"
			}
		}()
	}
	wg.Wait()
	close(failures)

	for f := range failures {
		t.Error(f)
	}
}

func BenchmarkProvider_Generate(b *testing.B) {
	p, _ := NewProvider(newTestRing(b))
	stamp := NewSecurityStamp()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Generate(testPurpose, testResource, stamp)
	}
}

func BenchmarkProvider_Validate(b *testing.B) {
	p, _ := NewProvider(newTestRing(b))
	stamp := NewSecurityStamp()
	tok, _ := p.Generate(testPurpose, testResource, stamp)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Validate(tok, testPurpose, testResource, stamp)
	}
}
