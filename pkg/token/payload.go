package token

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	// MaxFieldLength is the maximum encoded length of each string field.
	MaxFieldLength = 4096

	// Precision is the resolution of the encoded creation time.
	Precision = 100 * time.Nanosecond

	ticksPerSecond = int64(time.Second / Precision)

	// secondsToUnix is the number of seconds between 0001-01-01 and 1970-01-01.
	secondsToUnix = 62135596800

	// maxTicks is 9999-12-31T23:59:59.9999999Z.
	maxTicks = 3155378975999999999

	timestampSize = 8
)

// Payload is the plaintext bound into a token.
type Payload struct {
	CreatedAt     time.Time
	ResourceID    string
	Purpose       string
	SecurityStamp string
}

// Equal reports whether p and o describe the same payload. CreatedAt is
// compared as an instant.
func (p Payload) Equal(o Payload) bool {
	return p.CreatedAt.Equal(o.CreatedAt) &&
		p.ResourceID == o.ResourceID &&
		p.Purpose == o.Purpose &&
		p.SecurityStamp == o.SecurityStamp
}

// EncodePayload writes p in wire order. Finer than Precision is truncated.
func EncodePayload(p Payload) ([]byte, error) {
	ticks, err := toTicks(p.CreatedAt)
	if err != nil {
		return nil, err
	}
	fields := [...]struct{ name, value string }{
		{"resource_id", p.ResourceID},
		{"purpose", p.Purpose},
		{"security_stamp", p.SecurityStamp},
	}

	size := timestampSize
	for _, f := range fields {
		if err := checkField(f.name, f.value); err != nil {
			return nil, err
		}
		size += uvarintLen(uint64(len(f.value))) + len(f.value)
	}

	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(ticks))
	for _, f := range fields {
		buf = binary.AppendUvarint(buf, uint64(len(f.value)))
		buf = append(buf, f.value...)
	}
	return buf, nil
}

// DecodePayload is the exact inverse of EncodePayload. Any deviation from
// the layout, including trailing bytes, is an ErrMalformedPayload.
func DecodePayload(b []byte) (Payload, error) {
	var p Payload
	if len(b) < timestampSize {
		return p, ErrMalformedPayload.WithDetails("short timestamp")
	}

	created, err := fromTicks(int64(binary.LittleEndian.Uint64(b)))
	if err != nil {
		return p, err
	}
	p.CreatedAt = created

	r := b[timestampSize:]
	if p.ResourceID, r, err = readString(r, "resource_id"); err != nil {
		return Payload{}, err
	}
	if p.Purpose, r, err = readString(r, "purpose"); err != nil {
		return Payload{}, err
	}
	if p.SecurityStamp, r, err = readString(r, "security_stamp"); err != nil {
		return Payload{}, err
	}
	if len(r) != 0 {
		return Payload{}, ErrMalformedPayload.WithDetails(fmt.Sprintf("%d trailing bytes", len(r)))
	}
	return p, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p Payload) MarshalBinary() ([]byte, error) {
	return EncodePayload(p)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Payload) UnmarshalBinary(b []byte) error {
	decoded, err := DecodePayload(b)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

func checkField(name, s string) error {
	if len(s) > MaxFieldLength {
		return ErrInvalidInput.WithDetails(fmt.Sprintf("%s exceeds %d bytes", name, MaxFieldLength))
	}
	if !utf8.ValidString(s) {
		return ErrInvalidInput.WithDetails(name + " is not valid UTF-8")
	}
	return nil
}

// readString reads one minimal-uvarint length-prefixed UTF-8 string.
func readString(b []byte, name string) (string, []byte, error) {
	n, size := binary.Uvarint(b)
	if size <= 0 {
		return "", nil, ErrMalformedPayload.WithDetails(name + ": bad length prefix")
	}
	if size != uvarintLen(n) {
		return "", nil, ErrMalformedPayload.WithDetails(name + ": non-minimal length prefix")
	}
	if n > MaxFieldLength {
		return "", nil, ErrMalformedPayload.WithDetails(fmt.Sprintf("%s: length %d exceeds %d", name, n, MaxFieldLength))
	}
	b = b[size:]
	if uint64(len(b)) < n {
		return "", nil, ErrMalformedPayload.WithDetails(name + ": truncated")
	}
	s := b[:n]
	if !utf8.Valid(s) {
		return "", nil, ErrMalformedPayload.WithDetails(name + ": invalid UTF-8")
	}
	return string(s), b[n:], nil
}

func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// toTicks converts t to 100ns intervals since 0001-01-01T00:00:00Z.
func toTicks(t time.Time) (int64, error) {
	sec := t.Unix() + secondsToUnix
	if sec < 0 || sec > maxTicks/ticksPerSecond {
		return 0, ErrInvalidInput.WithDetails("created_at out of range")
	}
	return sec*ticksPerSecond + int64(t.Nanosecond())/int64(Precision), nil
}

func fromTicks(ticks int64) (time.Time, error) {
	if ticks < 0 || ticks > maxTicks {
		return time.Time{}, ErrMalformedPayload.WithDetails("timestamp out of range")
	}
	sec := ticks/ticksPerSecond - secondsToUnix
	nsec := (ticks % ticksPerSecond) * int64(Precision)
	return time.Unix(sec, nsec).UTC(), nil
}
