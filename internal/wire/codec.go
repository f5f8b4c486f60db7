// Package wire implements the byte-level framing of PostgreSQL protocol
// messages: big/little-endian integer conversions and length-prefixed
// frame encoding.
package wire

import "fmt"

// BintToBytes converts a 32-bit value to 4 big-endian bytes, the encoding
// used for protocol length prefixes and the startup/SSL-request sentinels.
func BintToBytes(val uint32) []byte {
	return []byte{
		byte(val >> 24),
		byte(val >> 16),
		byte(val >> 8),
		byte(val),
	}
}

// BytesToBint reads 4 big-endian bytes as a uint32.
func BytesToBint(b []byte) uint32 {
	var r uint32
	for _, c := range b[:4] {
		r = r<<8 | uint32(c)
	}
	return r
}

// LintToBytes converts a 32-bit value to 4 little-endian bytes, used by a
// handful of legacy fields the decoder encounters.
func LintToBytes(val uint32) []byte {
	return []byte{
		byte(val),
		byte(val >> 8),
		byte(val >> 16),
		byte(val >> 24),
	}
}

// BytesToLint reads 4 little-endian bytes as a uint32.
func BytesToLint(b []byte) uint32 {
	var r uint32
	for i := 3; i >= 0; i-- {
		r = r<<8 | uint32(b[i])
	}
	return r
}

// errLen reports a frame whose declared length is nonsensical.
func errLen(n int) error {
	return fmt.Errorf("wire: invalid frame length: %d", n)
}
