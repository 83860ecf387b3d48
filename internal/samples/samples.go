package samples

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"

	"example.com/peersgate/internal/peersdat"
)

const (
	// File name exposed for generator consumers.
	PeersFileName = "sample_peers.dat"

	legacyRecordVersion = 1
	defaultPort         = 12024
	baseTimestamp       = 1_700_000_000
	nodeNetwork         = 1
	nodeWitness         = 1 << 3
)

// DigiByteMagic is the mainnet signature the sample file is written with.
var DigiByteMagic = peersdat.Magic{0xfa, 0xc3, 0xb6, 0xda}

// Peer is a single record to encode.  Field is written verbatim as the
// 16 byte address field.
type Peer struct {
	Field [16]byte
	Port  uint16
	Tried bool
}

// File describes a peers.dat to build.
type File struct {
	Magic   peersdat.Magic
	Version uint8
	Buckets uint32
	Peers   []Peer
}

// IPv4Field returns the IPv4-mapped form of a dotted-decimal address.
func IPv4Field(s string) ([16]byte, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return [16]byte{}, err
	}
	if !ip.Is4() {
		return [16]byte{}, fmt.Errorf("%s is not an IPv4 address", s)
	}
	return ip.As16(), nil
}

// IPv6Field returns the raw bytes of an IPv6 address.
func IPv6Field(s string) ([16]byte, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return [16]byte{}, err
	}
	if !ip.Is6() || ip.Is4In6() {
		return [16]byte{}, fmt.Errorf("%s is not a native IPv6 address", s)
	}
	return ip.As16(), nil
}

// PeersFromAddrs builds new-table peers from textual addresses.
func PeersFromAddrs(addrs ...string) ([]Peer, error) {
	peers := make([]Peer, 0, len(addrs))
	for _, a := range addrs {
		ip, err := netip.ParseAddr(a)
		if err != nil {
			return nil, err
		}
		var field [16]byte
		if ip.Is4() {
			field, err = IPv4Field(a)
		} else {
			field, err = IPv6Field(a)
		}
		if err != nil {
			return nil, err
		}
		peers = append(peers, Peer{Field: field, Port: defaultPort})
	}
	return peers, nil
}

// Build encodes f in the legacy fixed-record layout with a valid checksum
// trailer.
func Build(f File) []byte {
	var newCount, triedCount uint32
	for _, p := range f.Peers {
		if p.Tried {
			triedCount++
		} else {
			newCount++
		}
	}
	size := peersdat.HeaderSize + len(f.Peers)*peersdat.RecordSize + peersdat.ChecksumSize
	buf := make([]byte, size)
	copy(buf[0:4], f.Magic[:])
	buf[4] = f.Version
	buf[5] = peersdat.BucketKeySize
	for i := 0; i < peersdat.BucketKeySize; i++ {
		buf[6+i] = byte(i * 7)
	}
	binary.LittleEndian.PutUint32(buf[38:42], newCount)
	binary.LittleEndian.PutUint32(buf[42:46], triedCount)
	binary.LittleEndian.PutUint32(buf[46:50], f.Buckets^(1<<30))

	// New-table records precede tried-table records.
	offset := peersdat.HeaderSize
	for _, tried := range []bool{false, true} {
		for i, p := range f.Peers {
			if p.Tried != tried {
				continue
			}
			encodeRecord(buf[offset:offset+peersdat.RecordSize], p, i)
			offset += peersdat.RecordSize
		}
	}

	sum := peersdat.Checksum(buf[:offset])
	copy(buf[offset:], sum[:])
	return buf
}

func encodeRecord(rec []byte, p Peer, seq int) {
	binary.LittleEndian.PutUint32(rec[0:4], legacyRecordVersion)
	binary.LittleEndian.PutUint32(rec[4:8], uint32(baseTimestamp+seq*600))
	binary.LittleEndian.PutUint64(rec[8:16], nodeNetwork|nodeWitness)
	copy(rec[16:32], p.Field[:])
	port := p.Port
	if port == 0 {
		port = defaultPort
	}
	binary.BigEndian.PutUint16(rec[32:34], port)
	// Source address: the node the peer was learned from.
	copy(rec[34:50], p.Field[:])
	if p.Tried {
		binary.LittleEndian.PutUint64(rec[50:58], uint64(baseTimestamp+seq*600))
	}
	binary.LittleEndian.PutUint32(rec[58:62], uint32(seq%3))
}

// SampleAddrs are the unique endpoints carried by the deterministic sample.
var SampleAddrs = []string{
	"1.2.3.4",
	"8.8.8.8",
	"192.168.1.10",
	"203.0.113.7",
	"2001:db8::1",
	"2a01:4f8:c17:1a4b::1",
}

// BuildSample constructs the deterministic sample file.  The second address
// is repeated in the tried table.
func BuildSample() ([]byte, error) {
	peers, err := PeersFromAddrs(SampleAddrs...)
	if err != nil {
		return nil, fmt.Errorf("build sample peers: %w", err)
	}
	dup := peers[1]
	dup.Tried = true
	peers = append(peers, dup)
	return Build(File{
		Magic:   DigiByteMagic,
		Version: 1,
		Buckets: 1024,
		Peers:   peers,
	}), nil
}

// WriteFiles materializes the generated sample under dir.
func WriteFiles(dir string) error {
	data, err := BuildSample()
	if err != nil {
		return err
	}
	return writeFileIfChanged(filepath.Join(dir, PeersFileName), data)
}

func writeFileIfChanged(path string, data []byte) error {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return nil
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	return nil
}
