// Package handid generates identifiers for dealt hands. IDs are
// time-ordered (a UUIDv7 layout) and rendered as 26 characters of
// Crockford base32, so hand logs sort chronologically as strings.
package handid

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	alphabet = "0123456789abcdefghjkmnpqrstvwxyz"
	idLen    = 26
)

// New returns a fresh hand identifier.
func New() string {
	return NewAt(time.Now(), rand.Reader)
}

// NewAt builds an identifier from an explicit timestamp and entropy
// source. Tests pass a fixed reader for reproducible IDs.
func NewAt(t time.Time, entropy io.Reader) string {
	var raw [16]byte

	ms := t.UnixMilli()
	raw[0] = byte(ms >> 40)
	raw[1] = byte(ms >> 32)
	raw[2] = byte(ms >> 24)
	raw[3] = byte(ms >> 16)
	raw[4] = byte(ms >> 8)
	raw[5] = byte(ms)

	if _, err := io.ReadFull(entropy, raw[6:]); err != nil {
		panic("handid: reading entropy: " + err.Error())
	}

	// Version 7, RFC 4122 variant.
	raw[6] = (raw[6] & 0x0f) | 0x70
	raw[8] = (raw[8] & 0x3f) | 0x80

	return encode(raw)
}

// encode renders 128 bits as 26 base32 characters, most significant
// bits first. The final character carries only 3 data bits.
func encode(raw [16]byte) string {
	var b strings.Builder
	b.Grow(idLen)

	for i := 0; i < idLen; i++ {
		bit := i * 5
		idx := bit / 8
		off := bit % 8

		var v byte
		switch {
		case off <= 3:
			v = (raw[idx] >> (3 - off)) & 0x1f
		case idx+1 < len(raw):
			v = (raw[idx]<<(off-3) | raw[idx+1]>>(11-off)) & 0x1f
		default:
			v = (raw[idx] << (off - 3)) & 0x1f
		}
		b.WriteByte(alphabet[v])
	}
	return b.String()
}

// Valid reports whether id is a well-formed hand identifier.
func Valid(id string) error {
	if len(id) != idLen {
		return fmt.Errorf("hand id must be %d characters, got %d", idLen, len(id))
	}
	// 130 encoded bits hold only 128 bits of data, so the leading
	// character cannot exceed '7'.
	if id[0] > '7' {
		return fmt.Errorf("hand id starts with %q, want 0-7", id[0])
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(alphabet, id[i]) < 0 {
			return fmt.Errorf("invalid character %q at position %d", id[i], i)
		}
	}
	return nil
}
