package peersdat

import (
	"fmt"
	"io"
)

const (
	// addrFieldStart and addrFieldEnd bound the embedded address inside a
	// record.  The bytes before it hold the record version, timestamp and
	// service flags.
	addrFieldStart = 16
	addrFieldEnd   = 32
)

// Record is the address field of a single peer record along with its
// position in the file.
type Record struct {
	Index  uint64
	Offset int64
	Addr   []byte
}

// RecordReader walks the record table of a buffer in file order.  The
// address slices it returns alias the buffer and must not be modified.
type RecordReader struct {
	buf   []byte
	limit int64
	count uint64
	next  uint64
}

// NewRecordReader returns a reader over the records declared by hdr.  The
// checksum trailer is never treated as record data.
func NewRecordReader(buf []byte, hdr Header) *RecordReader {
	limit := int64(len(buf)) - ChecksumSize
	if limit < HeaderSize {
		limit = HeaderSize
	}
	return &RecordReader{buf: buf, limit: limit, count: hdr.RecordCount()}
}

// Len returns the number of records the header declares.
func (r *RecordReader) Len() uint64 {
	return r.count
}

// Reset rewinds the reader to the first record.
func (r *RecordReader) Reset() {
	r.next = 0
}

// Next returns the next record.  It returns io.EOF once every declared record
// has been read and ErrTruncatedRecord when the buffer ends early.
func (r *RecordReader) Next() (Record, error) {
	if r.next >= r.count {
		return Record{}, io.EOF
	}
	offset := int64(HeaderSize) + int64(r.next)*RecordSize
	end := offset + RecordSize
	if end > r.limit {
		str := fmt.Sprintf("record %d of %d at offset %d needs %d bytes, "+
			"only %d available before the checksum", r.next, r.count,
			offset, RecordSize, max(r.limit-offset, 0))
		return Record{}, makeError(ErrTruncatedRecord, str)
	}
	rec := Record{
		Index:  r.next,
		Offset: offset,
		Addr:   r.buf[offset+addrFieldStart : offset+addrFieldEnd],
	}
	r.next++
	return rec, nil
}

// RequiredSize returns the minimum file size able to hold hdr's records and
// the checksum trailer.
func RequiredSize(hdr Header) int64 {
	return int64(HeaderSize) + int64(hdr.RecordCount())*RecordSize + ChecksumSize
}
