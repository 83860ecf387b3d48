package peersdat

import (
	"encoding/binary"
	"testing"
)

var testMagic = Magic{0xfa, 0xc3, 0xb6, 0xda}

// buildFile lays out a file with the given address fields, all in the new
// table, and a valid trailer.
func buildFile(t *testing.T, magic Magic, version uint8, fields ...[16]byte) []byte {
	t.Helper()
	buf := make([]byte, HeaderSize+len(fields)*RecordSize+ChecksumSize)
	copy(buf, magic[:])
	buf[offsetVersion] = version
	buf[offsetKeySize] = BucketKeySize
	binary.LittleEndian.PutUint32(buf[offsetNewCount:], uint32(len(fields)))
	binary.LittleEndian.PutUint32(buf[offsetBucketCount:], 1024|bucketCountFlag)
	for i, f := range fields {
		off := HeaderSize + i*RecordSize
		copy(buf[off+addrFieldStart:off+addrFieldEnd], f[:])
	}
	resum(buf)
	return buf
}

// resum rewrites the trailer after buf was modified.
func resum(buf []byte) {
	split := len(buf) - ChecksumSize
	sum := Checksum(buf[:split])
	copy(buf[split:], sum[:])
}

func v4(a, b, c, d byte) [16]byte {
	var f [16]byte
	f[10], f[11] = 0xff, 0xff
	f[12], f[13], f[14], f[15] = a, b, c, d
	return f
}

func v6(prefix ...byte) [16]byte {
	var f [16]byte
	copy(f[:], prefix)
	f[15] = 1
	return f
}
