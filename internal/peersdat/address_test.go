package peersdat

import (
	"reflect"
	"testing"
)

func TestClassifyAddress(t *testing.T) {
	mapped := make([]byte, 16)
	copy(mapped[12:], []byte{1, 2, 3, 4})
	native := []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	full := []byte{0xfe, 0x80, 0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	long := append(append([]byte(nil), mapped...), 0xaa, 0xbb)
	zeroShort := make([]byte, 10)
	private := v4(10, 0, 0, 1)

	tests := []struct {
		name   string
		field  []byte
		want   AddressEntry
		wantOK bool
	}{
		{name: "ipv4 mapped", field: mapped, want: AddressEntry{Text: "1.2.3.4", Family: FamilyIPv4}, wantOK: true},
		{name: "ipv4 any zero prefix", field: private[:], want: AddressEntry{Text: "10.0.0.1", Family: FamilyIPv4}, wantOK: true},
		{name: "ipv6 compressed", field: native, want: AddressEntry{Text: "2001:db8::1", Family: FamilyIPv6}, wantOK: true},
		{name: "ipv6 full", field: full, want: AddressEntry{Text: "fe80:1234:5678:9abc:def0:1122:3344:5566", Family: FamilyIPv6}, wantOK: true},
		{name: "zero prefix longer than 16", field: long, want: AddressEntry{Text: "1.2.3.4", Family: FamilyIPv4}, wantOK: true},
		{name: "empty", field: nil},
		{name: "ten bytes", field: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{name: "ten zero bytes", field: zeroShort},
		{name: "seventeen non-zero", field: append([]byte{0x20}, make([]byte, 16)...)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ClassifyAddress(tc.field)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if got != tc.want {
				t.Fatalf("entry = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestFamilyString(t *testing.T) {
	tests := []struct {
		in   Family
		want string
	}{
		{FamilyIPv4, "ipv4"},
		{FamilyIPv6, "ipv6"},
		{Family(0), "unknown"},
	}
	for _, test := range tests {
		if got := test.in.String(); got != test.want {
			t.Errorf("Family(%d).String() = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestAddressSetDedup(t *testing.T) {
	s := NewAddressSet()
	adds := []struct {
		entry AddressEntry
		isNew bool
	}{
		{AddressEntry{"8.8.8.8", FamilyIPv4}, true},
		{AddressEntry{"1.2.3.4", FamilyIPv4}, true},
		{AddressEntry{"8.8.8.8", FamilyIPv4}, false},
		{AddressEntry{"2001:db8::1", FamilyIPv6}, true},
		{AddressEntry{"2001:db8::1", FamilyIPv6}, false},
		// Family is fixed at first insertion.
		{AddressEntry{"1.2.3.4", FamilyIPv6}, false},
	}
	for i, a := range adds {
		if got := s.Add(a.entry); got != a.isNew {
			t.Fatalf("add #%d %v = %v, want %v", i, a.entry, got, a.isNew)
		}
	}
	if s.Len() != 3 || s.LenIPv4() != 2 || s.LenIPv6() != 1 {
		t.Fatalf("lens = %d/%d/%d, want 3/2/1", s.Len(), s.LenIPv4(), s.LenIPv6())
	}
	if got, want := s.IPv4(), []string{"1.2.3.4", "8.8.8.8"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("IPv4 = %v, want %v", got, want)
	}
	if got, want := s.IPv6(), []string{"2001:db8::1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("IPv6 = %v, want %v", got, want)
	}
	if !s.Contains("8.8.8.8") || s.Contains("9.9.9.9") {
		t.Fatalf("Contains mismatch")
	}
	entries := s.Entries()
	if len(entries) != 3 || entries[2].Family != FamilyIPv6 {
		t.Fatalf("Entries = %+v", entries)
	}
}

func TestIsRoutable(t *testing.T) {
	tests := []struct {
		entry AddressEntry
		want  bool
	}{
		{AddressEntry{"8.8.8.8", FamilyIPv4}, true},
		{AddressEntry{"192.168.1.10", FamilyIPv4}, false},
		{AddressEntry{"10.1.2.3", FamilyIPv4}, false},
		{AddressEntry{"127.0.0.1", FamilyIPv4}, false},
		{AddressEntry{"2001:db8::1", FamilyIPv6}, false},
		{AddressEntry{"not-an-ip", FamilyIPv6}, false},
	}
	for _, test := range tests {
		if got := isRoutable(test.entry); got != test.want {
			t.Errorf("isRoutable(%s) = %v, want %v", test.entry.Text, got, test.want)
		}
	}
}
