package dataprotect

import (
	"bytes"

	"github.com/oklog/ulid/v2"
)

var envelopeMagic = [4]byte{0x09, 0xF0, 0xC9, 0xF0}

// headerSize is magic (4) + key id (16).
const headerSize = len(envelopeMagic) + len(ulid.ULID{})

func appendHeader(dst []byte, id ulid.ULID) []byte {
	dst = append(dst, envelopeMagic[:]...)
	return append(dst, id[:]...)
}

// splitEnvelope returns the key ID and the sealed body of an envelope.
func splitEnvelope(b []byte) (ulid.ULID, []byte, error) {
	var id ulid.ULID
	if len(b) < headerSize || !bytes.Equal(b[:len(envelopeMagic)], envelopeMagic[:]) {
		return id, nil, ErrMalformedEnvelope
	}
	copy(id[:], b[len(envelopeMagic):headerSize])
	return id, b[headerSize:], nil
}

// associatedData binds the header and the purpose to the ciphertext.
func associatedData(id ulid.ULID, purpose string) []byte {
	ad := make([]byte, 0, headerSize+len(purpose))
	ad = appendHeader(ad, id)
	return append(ad, purpose...)
}
