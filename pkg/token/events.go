package token

import "time"

// Op identifies the provider operation that produced an Event.
type Op string

const (
	OpGenerate Op = "generate"
	OpValidate Op = "validate"
)

// Reason is the outcome of an operation.
type Reason string

const (
	ReasonOK               Reason = "ok"
	ReasonInvalidInput     Reason = "invalid_input"
	ReasonProtectFailed    Reason = "protect_failed"
	ReasonMalformedToken   Reason = "malformed_token"
	ReasonDecryptFailed    Reason = "decrypt_failed"
	ReasonMalformedPayload Reason = "malformed_payload"
	ReasonExpired          Reason = "expired"
	ReasonResourceMismatch Reason = "resource_mismatch"
	ReasonPurposeMismatch  Reason = "purpose_mismatch"
	ReasonStampMismatch    Reason = "stamp_mismatch"
	ReasonInternal         Reason = "internal"
)

// Event describes one Generate or Validate call. It never carries payload
// contents; the token is identified only by Fingerprint.
type Event struct {
	Op          Op
	Reason      Reason
	Err         error // nil when Reason is ReasonOK
	Fingerprint string
	Duration    time.Duration
}

// Sink receives provider events. Implementations must be safe for
// concurrent use and should not block.
type Sink interface {
	Observe(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Observe calls f(e).
func (f SinkFunc) Observe(e Event) { f(e) }

type nopSink struct{}

func (nopSink) Observe(Event) {}

// NopSink discards all events.
var NopSink Sink = nopSink{}

type multiSink []Sink

func (m multiSink) Observe(e Event) {
	for _, s := range m {
		s.Observe(e)
	}
}

// MultiSink fans events out to every non-nil sink in order.
func MultiSink(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return NopSink
	case 1:
		return out[0]
	}
	return out
}
