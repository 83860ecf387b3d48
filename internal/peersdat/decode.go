// Package peersdat decodes the legacy peers.dat address database written by
// Bitcoin-derived nodes.
//
// A file is a 50 byte header, a table of fixed 62 byte peer records and a
// 32 byte double-SHA256 trailer.  Decode walks the table once, collecting the
// unique endpoints it contains split into IPv4 and IPv6, and reports whether
// the trailer matches.  Decoding never mutates its input and keeps no state
// between calls, so independent buffers may be decoded concurrently.
package peersdat

import (
	"errors"
	"fmt"
	"io"
)

// maxSkippedDetail caps how many skipped records are listed individually in a
// Result.  The total is always counted.
const maxSkippedDetail = 256

// SkippedRecord identifies a record whose address field could not be parsed.
type SkippedRecord struct {
	Index  uint64 `json:"index"`
	Offset int64  `json:"offset"`
}

// Result is the outcome of decoding a buffer.
type Result struct {
	Header    Header
	Addresses *AddressSet
	Integrity Integrity

	// Records is the number of records walked.
	Records uint64

	// Skipped counts records whose address field was unparseable and
	// SkippedRecords lists the first of them.
	Skipped        int
	SkippedRecords []SkippedRecord

	// Duplicates counts records repeating an address already seen.
	Duplicates int

	// Routable counts unique addresses reachable over the public internet.
	Routable int

	// Warnings holds non-fatal observations such as an unknown version.
	Warnings []string
}

// TotalUnique returns the number of unique addresses.
func (r *Result) TotalUnique() int {
	return r.Addresses.Len()
}

// TotalIPv4 returns the number of unique IPv4 addresses.
func (r *Result) TotalIPv4() int {
	return r.Addresses.LenIPv4()
}

// TotalIPv6 returns the number of unique IPv6 addresses.
func (r *Result) TotalIPv6() int {
	return r.Addresses.LenIPv6()
}

// IPv4 returns the sorted unique IPv4 addresses.
func (r *Result) IPv4() []string {
	return r.Addresses.IPv4()
}

// IPv6 returns the sorted unique IPv6 addresses.
func (r *Result) IPv6() []string {
	return r.Addresses.IPv6()
}

// Valid reports whether the checksum trailer matched.
func (r *Result) Valid() bool {
	return r.Integrity == IntegrityValid
}

type config struct {
	magics MagicSet
}

// Option configures Decode.
type Option func(*config)

// WithMagics restricts the accepted network magics to magics.
func WithMagics(magics MagicSet) Option {
	return func(c *config) {
		c.magics = magics
	}
}

// WithAnyMagic disables the magic check.
func WithAnyMagic() Option {
	return func(c *config) {
		c.magics = nil
	}
}

// Decode parses buf.  Structural problems (a short header, an unknown magic,
// a truncated record table) abort with no result.  A checksum mismatch
// returns the complete result together with an error wrapping
// ErrChecksumMismatch so the caller can decide whether to accept it.
func Decode(buf []byte, opts ...Option) (*Result, error) {
	cfg := config{magics: KnownNetworks}
	for _, opt := range opts {
		opt(&cfg)
	}

	hdr, err := ParseHeader(buf, cfg.magics)
	if err != nil {
		return nil, err
	}
	// The trailer must exist before the record table is trusted.
	if len(buf) < HeaderSize+ChecksumSize && hdr.RecordCount() == 0 {
		str := fmt.Sprintf("buffer of %d bytes has no room for the checksum "+
			"after the header", len(buf))
		return nil, makeError(ErrBadBuffer, str)
	}
	log.Debugf("Header: magic %s (%s) version %d, %d new, %d tried, "+
		"%d buckets", hdr.Magic, hdr.Network, hdr.Version, hdr.NewCount,
		hdr.TriedCount, hdr.NewBucketCount)

	res := &Result{
		Header:    hdr,
		Addresses: NewAddressSet(),
	}
	if hdr.IsNewerVersion() {
		msg := fmt.Sprintf("file format version %d is newer than the "+
			"newest known version %d", hdr.Version, MaxKnownVersion)
		log.Warnf("%s; decoding anyway", msg)
		res.Warnings = append(res.Warnings, msg)
	}

	records := NewRecordReader(buf, hdr)
	for {
		rec, err := records.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		res.Records++

		entry, ok := ClassifyAddress(rec.Addr)
		if !ok {
			log.Tracef("Skipping unparseable address in record %d at "+
				"offset %d", rec.Index, rec.Offset)
			res.Skipped++
			if len(res.SkippedRecords) < maxSkippedDetail {
				res.SkippedRecords = append(res.SkippedRecords, SkippedRecord{
					Index:  rec.Index,
					Offset: rec.Offset,
				})
			}
			continue
		}
		if !res.Addresses.Add(entry) {
			res.Duplicates++
			continue
		}
		if isRoutable(entry) {
			res.Routable++
		}
	}

	integrity, err := VerifyChecksum(buf)
	if err != nil {
		return nil, err
	}
	res.Integrity = integrity
	log.Debugf("Decoded %d records: %d unique (%d ipv4, %d ipv6), %d "+
		"duplicates, %d skipped, checksum %s", res.Records, res.TotalUnique(),
		res.TotalIPv4(), res.TotalIPv6(), res.Duplicates, res.Skipped,
		integrity)
	if integrity != IntegrityValid {
		str := fmt.Sprintf("checksum trailer does not match the double-SHA256 "+
			"of the first %d bytes", len(buf)-ChecksumSize)
		return res, makeError(ErrChecksumMismatch, str)
	}
	return res, nil
}
