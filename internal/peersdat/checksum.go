package peersdat

import (
	"bytes"
	"crypto/sha256"
	"fmt"
)

// Integrity is the outcome of checking the checksum trailer.
type Integrity string

const (
	// IntegrityValid means the trailer matches the payload.
	IntegrityValid Integrity = "valid"

	// IntegrityInvalid means the trailer does not match the payload.
	IntegrityInvalid Integrity = "invalid"
)

// doubleSHA256 returns SHA-256(SHA-256(b)).
func doubleSHA256(b []byte) [sha256.Size]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

// Checksum computes the trailer value for payload, which must not include
// the trailer itself.
func Checksum(payload []byte) [ChecksumSize]byte {
	return doubleSHA256(payload)
}

// VerifyChecksum compares the last 32 bytes of buf with the double-SHA256 of
// everything before them.
func VerifyChecksum(buf []byte) (Integrity, error) {
	if len(buf) < ChecksumSize {
		str := fmt.Sprintf("buffer of %d bytes cannot hold a %d byte "+
			"checksum", len(buf), ChecksumSize)
		return IntegrityInvalid, makeError(ErrBadBuffer, str)
	}
	split := len(buf) - ChecksumSize
	want := doubleSHA256(buf[:split])
	if !bytes.Equal(want[:], buf[split:]) {
		return IntegrityInvalid, nil
	}
	return IntegrityValid, nil
}
