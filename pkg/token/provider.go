package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/valtok-go/pkg/dataprotect"
)

const (
	// DefaultLifespan is how long a token stays valid after Generate.
	DefaultLifespan = 24 * time.Hour

	// DefaultName is the protection purpose the provider passes to its
	// Protector. It is unrelated to the purpose bound into the payload.
	DefaultName = "ValidationTokenProvider"
)

var tokenEncoding = base64.StdEncoding.Strict()

// Provider generates and validates tokens. It holds no mutable state and is
// safe for concurrent use as long as its Protector and Sink are.
type Provider struct {
	protector dataprotect.Protector
	name      string
	lifespan  time.Duration
	now       func() time.Time
	sink      Sink
}

// Option configures a Provider.
type Option func(*Provider)

// WithLifespan sets the token lifespan.
func WithLifespan(d time.Duration) Option {
	return func(p *Provider) { p.lifespan = d }
}

// WithName sets the protection purpose passed to the Protector. Tokens
// generated under one name never validate under another.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithSink sets the event sink.
func WithSink(s Sink) Option {
	return func(p *Provider) { p.sink = s }
}

// NewProvider returns a Provider protecting payloads with protector.
func NewProvider(protector dataprotect.Protector, opts ...Option) (*Provider, error) {
	if protector == nil {
		return nil, errors.New("token: nil protector")
	}
	p := &Provider{
		protector: protector,
		name:      DefaultName,
		lifespan:  DefaultLifespan,
		now:       time.Now,
		sink:      NopSink,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.lifespan <= 0 {
		return nil, fmt.Errorf("token: lifespan must be positive, got %s", p.lifespan)
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.sink == nil {
		p.sink = NopSink
	}
	return p, nil
}

// Name returns the provider's protection purpose.
func (p *Provider) Name() string { return p.name }

// Lifespan returns the token lifespan.
func (p *Provider) Lifespan() time.Duration { return p.lifespan }

// Issued is a freshly generated token.
type Issued struct {
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Generate returns a token binding purpose, resourceID and securityStamp.
// Errors are ErrInvalidInput or ErrProtectFailed.
func (p *Provider) Generate(purpose, resourceID, securityStamp string) (string, error) {
	iss, err := p.Issue(purpose, resourceID, securityStamp)
	if err != nil {
		return "", err
	}
	return iss.Token, nil
}

// Issue is Generate that also reports the token's validity window.
func (p *Provider) Issue(purpose, resourceID, securityStamp string) (Issued, error) {
	start := time.Now()
	ev := Event{Op: OpGenerate}
	defer func() {
		ev.Duration = time.Since(start)
		p.emit(ev)
	}()

	created := p.now().UTC().Truncate(Precision)
	plain, err := EncodePayload(Payload{
		CreatedAt:     created,
		ResourceID:    resourceID,
		Purpose:       purpose,
		SecurityStamp: securityStamp,
	})
	if err != nil {
		ev.Reason, ev.Err = ReasonInvalidInput, err
		return Issued{}, err
	}

	protected, err := p.protector.Protect(plain, p.name)
	if err != nil {
		err = ErrProtectFailed.WithCause(err)
		ev.Reason, ev.Err = ReasonProtectFailed, err
		return Issued{}, err
	}

	tok := tokenEncoding.EncodeToString(protected)
	ev.Reason, ev.Fingerprint = ReasonOK, Fingerprint(tok)
	return Issued{Token: tok, CreatedAt: created, ExpiresAt: created.Add(p.lifespan)}, nil
}

// Validate reports whether token was generated by a provider with the same
// name and keys for exactly these values and has not expired. It never
// panics; the failure reason is only reported to the Sink.
func (p *Provider) Validate(token, expectedPurpose, expectedResourceID, expectedSecurityStamp string) (valid bool) {
	start := time.Now()
	ev := Event{Op: OpValidate, Fingerprint: Fingerprint(token)}
	defer func() {
		if r := recover(); r != nil {
			valid = false
			ev.Reason = ReasonInternal
			ev.Err = ErrInternal.WithDetails(fmt.Sprint(r))
		}
		ev.Duration = time.Since(start)
		p.emit(ev)
	}()

	ev.Reason, ev.Err = p.check(token, expectedPurpose, expectedResourceID, expectedSecurityStamp)
	return ev.Reason == ReasonOK
}

// check runs the validation steps in order and returns the first failure.
func (p *Provider) check(token, purpose, resourceID, stamp string) (Reason, error) {
	if token == "" {
		return ReasonMalformedToken, ErrMalformedToken.WithDetails("empty token")
	}
	raw, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return ReasonMalformedToken, ErrMalformedToken.WithCause(err)
	}

	plain, err := p.protector.Unprotect(raw, p.name)
	if err != nil {
		return ReasonDecryptFailed, ErrTokenRejected.WithCause(err)
	}

	payload, err := DecodePayload(plain)
	if err != nil {
		return ReasonMalformedPayload, err
	}

	if payload.CreatedAt.Add(p.lifespan).Before(p.now()) {
		return ReasonExpired, ErrTokenExpired
	}
	if payload.ResourceID != resourceID {
		return ReasonResourceMismatch, ErrFieldMismatch.WithDetails("resource_id")
	}
	if payload.Purpose != purpose {
		return ReasonPurposeMismatch, ErrFieldMismatch.WithDetails("purpose")
	}
	if !ConstantTimeEqual(payload.SecurityStamp, stamp) {
		return ReasonStampMismatch, ErrFieldMismatch.WithDetails("security_stamp")
	}
	return ReasonOK, nil
}

// emit delivers e to the sink. A panicking sink is ignored.
func (p *Provider) emit(e Event) {
	defer func() { _ = recover() }()
	p.sink.Observe(e)
}
