package peersdat

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

const (
	// HeaderSize is the size of the fixed header preceding the record table.
	HeaderSize = 50

	// RecordSize is the stride of a single legacy peer record.
	RecordSize = 62

	// ChecksumSize is the size of the double-SHA256 trailer.
	ChecksumSize = 32

	// BucketKeySize is the size of the bucket key stored after the version bytes.
	BucketKeySize = 32

	// MaxKnownVersion is the newest file format version this decoder was
	// written against.  Newer versions are decoded with a warning.
	MaxKnownVersion = 4

	// bucketCountFlag is always set on the stored new-bucket count.
	bucketCountFlag = 1 << 30

	offsetVersion     = 4
	offsetKeySize     = 5
	offsetNewCount    = 38
	offsetTriedCount  = 42
	offsetBucketCount = 46
)

// Magic is the four byte network signature that opens every file.
type Magic [4]byte

// String returns the magic as lowercase hex.
func (m Magic) String() string {
	return hex.EncodeToString(m[:])
}

// MarshalText renders the magic as hex so it reads naturally in JSON.
func (m Magic) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a hex encoded magic.
func (m *Magic) UnmarshalText(text []byte) error {
	parsed, err := ParseMagic(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMagic decodes an 8 digit hex string such as "fac3b6da".
func ParseMagic(s string) (Magic, error) {
	var m Magic
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return m, fmt.Errorf("parse magic %q: %w", s, err)
	}
	if len(b) != len(m) {
		return m, fmt.Errorf("parse magic %q: want %d bytes, got %d", s, len(m), len(b))
	}
	copy(m[:], b)
	return m, nil
}

// MagicSet maps accepted magics to a network name.  An empty set accepts any
// magic.
type MagicSet map[Magic]string

// KnownNetworks lists the signatures of common Bitcoin-derived networks.
var KnownNetworks = MagicSet{
	{0xf9, 0xbe, 0xb4, 0xd9}: "bitcoin-mainnet",
	{0x0b, 0x11, 0x09, 0x07}: "bitcoin-testnet3",
	{0x1c, 0x16, 0x3f, 0x28}: "bitcoin-testnet4",
	{0x0a, 0x03, 0xcf, 0x40}: "bitcoin-signet",
	{0xfa, 0xbf, 0xb5, 0xda}: "bitcoin-regtest",
	{0xfa, 0xc3, 0xb6, 0xda}: "digibyte-mainnet",
	{0xfb, 0xc0, 0xb6, 0xdb}: "litecoin-mainnet",
	{0xc0, 0xc0, 0xc0, 0xc0}: "dogecoin-mainnet",
}

// Clone returns a copy of the set that can be extended safely.
func (s MagicSet) Clone() MagicSet {
	out := make(MagicSet, len(s))
	for m, name := range s {
		out[m] = name
	}
	return out
}

// Names returns the sorted network names in the set.
func (s MagicSet) Names() []string {
	names := make([]string, 0, len(s))
	for _, name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Header is the decoded fixed-size file header.
type Header struct {
	Magic          Magic  `json:"magic"`
	Network        string `json:"network,omitempty"`
	Version        uint8  `json:"version"`
	KeySize        uint8  `json:"keySize"`
	NewCount       uint32 `json:"newCount"`
	TriedCount     uint32 `json:"triedCount"`
	NewBucketCount uint32 `json:"newBucketCount"`
}

// RecordCount is the number of peer records that follow the header.
func (h Header) RecordCount() uint64 {
	return uint64(h.NewCount) + uint64(h.TriedCount)
}

// IsNewerVersion reports whether the header was written by a format version
// this decoder does not know about.
func (h Header) IsNewerVersion() bool {
	return h.Version > MaxKnownVersion
}

// ParseHeader decodes the file header at the start of buf.  The first four
// bytes must be present in magics unless magics is empty.
func ParseHeader(buf []byte, magics MagicSet) (Header, error) {
	var hdr Header
	if len(buf) < HeaderSize {
		str := fmt.Sprintf("buffer of %d bytes is shorter than the %d byte "+
			"header", len(buf), HeaderSize)
		return hdr, makeError(ErrTooShort, str)
	}
	copy(hdr.Magic[:], buf[:4])
	if len(magics) > 0 {
		name, ok := magics[hdr.Magic]
		if !ok {
			str := fmt.Sprintf("unrecognized magic %s", hdr.Magic)
			return hdr, makeError(ErrUnrecognizedMagic, str)
		}
		hdr.Network = name
	}
	hdr.Version = buf[offsetVersion]
	hdr.KeySize = buf[offsetKeySize]
	hdr.NewCount = binary.LittleEndian.Uint32(buf[offsetNewCount:])
	hdr.TriedCount = binary.LittleEndian.Uint32(buf[offsetTriedCount:])
	hdr.NewBucketCount = binary.LittleEndian.Uint32(buf[offsetBucketCount:]) ^ bucketCountFlag
	return hdr, nil
}
