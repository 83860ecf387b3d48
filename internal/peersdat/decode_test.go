package peersdat

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestDecode(t *testing.T) {
	buf := buildFile(t, testMagic, 1,
		v4(8, 8, 8, 8),
		v6(0x2a, 0x01, 0x04, 0xf8),
		v4(192, 168, 1, 10),
		v4(8, 8, 8, 8),
		v6(0x2a, 0x01, 0x04, 0xf8),
		v4(1, 2, 3, 4),
	)
	res, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !res.Valid() {
		t.Fatalf("integrity = %s, want valid", res.Integrity)
	}
	if res.Records != 6 {
		t.Fatalf("records = %d, want 6", res.Records)
	}
	if got, want := res.IPv4(), []string{"1.2.3.4", "192.168.1.10", "8.8.8.8"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("IPv4 = %v, want %v", got, want)
	}
	if got, want := res.IPv6(), []string{"2a01:4f8::1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("IPv6 = %v, want %v", got, want)
	}
	if res.TotalUnique() != 4 || res.TotalIPv4() != 3 || res.TotalIPv6() != 1 {
		t.Fatalf("totals = %d/%d/%d, want 4/3/1", res.TotalUnique(), res.TotalIPv4(), res.TotalIPv6())
	}
	if res.Duplicates != 2 || res.Skipped != 0 {
		t.Fatalf("duplicates/skipped = %d/%d, want 2/0", res.Duplicates, res.Skipped)
	}
	if res.Routable != 3 {
		t.Fatalf("routable = %d, want 3", res.Routable)
	}
	if res.Header.NewBucketCount != 1024 {
		t.Fatalf("bucket count = %d, want 1024", res.Header.NewBucketCount)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
}

func TestDecodeUniqueBound(t *testing.T) {
	tests := []struct {
		name   string
		fields [][16]byte
	}{
		{name: "empty table"},
		{name: "all same", fields: [][16]byte{v4(1, 1, 1, 1), v4(1, 1, 1, 1), v4(1, 1, 1, 1)}},
		{name: "mixed", fields: [][16]byte{v4(1, 1, 1, 1), v6(0xfe, 0x80), v4(2, 2, 2, 2), v6(0xfe, 0x80)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Decode(buildFile(t, testMagic, 1, tc.fields...))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			total := res.TotalIPv4() + res.TotalIPv6()
			if uint64(total) > res.Header.RecordCount() {
				t.Fatalf("unique %d exceeds record count %d", total, res.Header.RecordCount())
			}
			if total+res.Duplicates+res.Skipped != len(tc.fields) {
				t.Fatalf("unique %d + dup %d + skipped %d != %d records",
					total, res.Duplicates, res.Skipped, len(tc.fields))
			}
		})
	}
}

func TestDecodeDeterministic(t *testing.T) {
	buf := buildFile(t, testMagic, 1, v4(9, 9, 9, 9), v6(0x20, 0x01, 0x0d, 0xb8), v4(1, 0, 0, 1))
	orig := append([]byte(nil), buf...)
	first, err := Decode(buf)
	if err != nil {
		t.Fatalf("first Decode: %v", err)
	}
	second, err := Decode(buf)
	if err != nil {
		t.Fatalf("second Decode: %v", err)
	}
	if !reflect.DeepEqual(first.Addresses.Entries(), second.Addresses.Entries()) {
		t.Fatalf("decodes differ:\n%s\n%s", spew.Sdump(first.Addresses.Entries()),
			spew.Sdump(second.Addresses.Entries()))
	}
	if !reflect.DeepEqual(buf, orig) {
		t.Fatalf("Decode modified its input")
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	buf := buildFile(t, testMagic, 1, v4(1, 2, 3, 4), v6(0x2a, 0x01))
	buf[len(buf)-1] ^= 0xff

	res, err := Decode(buf)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("error = %v, want ErrChecksumMismatch", err)
	}
	if res == nil {
		t.Fatalf("expected a result alongside the checksum mismatch")
	}
	if res.Valid() || res.Integrity != IntegrityInvalid {
		t.Fatalf("integrity = %s, want invalid", res.Integrity)
	}
	if res.TotalUnique() != 2 {
		t.Fatalf("unique = %d, want 2", res.TotalUnique())
	}
}

func TestDecodeStructuralErrors(t *testing.T) {
	good := buildFile(t, testMagic, 1, v4(1, 2, 3, 4), v4(5, 6, 7, 8))

	truncated := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(truncated[offsetTriedCount:], 3)
	resum(truncated)

	badMagic := append([]byte(nil), good...)
	copy(badMagic, []byte{1, 2, 3, 4})
	resum(badMagic)

	tests := []struct {
		name    string
		buf     []byte
		opts    []Option
		wantErr error
	}{
		{name: "empty", buf: nil, wantErr: ErrTooShort},
		{name: "short header", buf: good[:HeaderSize-1], wantErr: ErrTooShort},
		{name: "unknown magic", buf: badMagic, wantErr: ErrUnrecognizedMagic},
		{name: "unknown magic restricted set", buf: good, opts: []Option{WithMagics(MagicSet{{1, 2, 3, 4}: "other"})}, wantErr: ErrUnrecognizedMagic},
		{name: "truncated table", buf: truncated, wantErr: ErrTruncatedRecord},
		{name: "cut mid record", buf: good[:HeaderSize+RecordSize+10], wantErr: ErrTruncatedRecord},
		{name: "header without trailer", buf: buildFile(t, testMagic, 1)[:HeaderSize], wantErr: ErrBadBuffer},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Decode(tc.buf, tc.opts...)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
			if res != nil {
				t.Fatalf("structural failure returned a result: %s", spew.Sdump(res))
			}
		})
	}
}

func TestDecodeAnyMagic(t *testing.T) {
	buf := buildFile(t, Magic{1, 2, 3, 4}, 1, v4(1, 2, 3, 4))
	if _, err := Decode(buf); !errors.Is(err, ErrUnrecognizedMagic) {
		t.Fatalf("default magics: error = %v", err)
	}
	res, err := Decode(buf, WithAnyMagic())
	if err != nil {
		t.Fatalf("WithAnyMagic: %v", err)
	}
	if res.Header.Network != "" {
		t.Fatalf("network = %q, want empty", res.Header.Network)
	}
	extra := KnownNetworks.Clone()
	extra[Magic{1, 2, 3, 4}] = "private-net"
	res, err = Decode(buf, WithMagics(extra))
	if err != nil {
		t.Fatalf("WithMagics: %v", err)
	}
	if res.Header.Network != "private-net" {
		t.Fatalf("network = %q, want private-net", res.Header.Network)
	}
	if _, ok := KnownNetworks[Magic{1, 2, 3, 4}]; ok {
		t.Fatalf("Clone shares storage with KnownNetworks")
	}
}

func TestDecodeNewerVersionWarns(t *testing.T) {
	res, err := Decode(buildFile(t, testMagic, MaxKnownVersion+1, v4(1, 2, 3, 4)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one", res.Warnings)
	}
	if res.TotalIPv4() != 1 {
		t.Fatalf("ipv4 = %d, want 1", res.TotalIPv4())
	}
}
