package peersdat

import (
	"net"
	"net/netip"
	"sort"

	"github.com/decred/dcrd/addrmgr/v3"
)

// Family identifies the address family of a decoded endpoint.
type Family uint8

const (
	// FamilyIPv4 marks an address carried in the IPv4-mapped form.
	FamilyIPv4 Family = 4

	// FamilyIPv6 marks a native 16 byte IPv6 address.
	FamilyIPv6 Family = 6
)

// String returns a human-readable name for the family.
func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	}
	return "unknown"
}

// AddressEntry is a classified address.  Two entries are equal when their
// text is equal.
type AddressEntry struct {
	Text   string `json:"address"`
	Family Family `json:"family"`
}

// ClassifyAddress interprets a raw address field.  A leading zero byte marks
// an IPv4 address stored in the last four bytes of a 16 byte field; any other
// 16 byte field is native IPv6.  Everything else is unparseable and reported
// with ok == false.
func ClassifyAddress(field []byte) (entry AddressEntry, ok bool) {
	switch {
	case len(field) == 0:
		return AddressEntry{}, false

	case field[0] == 0 && len(field) >= 16:
		ip := netip.AddrFrom4([4]byte(field[12:16]))
		return AddressEntry{Text: ip.String(), Family: FamilyIPv4}, true

	case len(field) == 16:
		ip := netip.AddrFrom16([16]byte(field))
		return AddressEntry{Text: ip.String(), Family: FamilyIPv6}, true
	}
	return AddressEntry{}, false
}

// isRoutable reports whether the entry is reachable over the public
// internet.
func isRoutable(entry AddressEntry) bool {
	ip := net.ParseIP(entry.Text)
	if ip == nil {
		return false
	}
	return addrmgr.IsRoutable(ip)
}

// AddressSet accumulates unique addresses split by family.  The zero value is
// not usable; create one with NewAddressSet.
type AddressSet struct {
	seen map[string]Family
	ipv4 int
	ipv6 int
}

// NewAddressSet returns an empty set.
func NewAddressSet() *AddressSet {
	return &AddressSet{seen: make(map[string]Family)}
}

// Add inserts entry and reports whether it was not already present.  The
// family recorded on first insertion is never changed.
func (s *AddressSet) Add(entry AddressEntry) bool {
	if _, ok := s.seen[entry.Text]; ok {
		return false
	}
	s.seen[entry.Text] = entry.Family
	switch entry.Family {
	case FamilyIPv4:
		s.ipv4++
	case FamilyIPv6:
		s.ipv6++
	}
	return true
}

// Contains reports whether text has been added.
func (s *AddressSet) Contains(text string) bool {
	_, ok := s.seen[text]
	return ok
}

// Len returns the number of unique addresses.
func (s *AddressSet) Len() int {
	return len(s.seen)
}

// LenIPv4 returns the number of unique IPv4 addresses.
func (s *AddressSet) LenIPv4() int {
	return s.ipv4
}

// LenIPv6 returns the number of unique IPv6 addresses.
func (s *AddressSet) LenIPv6() int {
	return s.ipv6
}

// IPv4 returns the IPv4 subset sorted lexicographically.
func (s *AddressSet) IPv4() []string {
	return s.sorted(FamilyIPv4, s.ipv4)
}

// IPv6 returns the IPv6 subset sorted lexicographically.
func (s *AddressSet) IPv6() []string {
	return s.sorted(FamilyIPv6, s.ipv6)
}

// Entries returns every address sorted by family and then text.
func (s *AddressSet) Entries() []AddressEntry {
	out := make([]AddressEntry, 0, len(s.seen))
	for _, text := range s.IPv4() {
		out = append(out, AddressEntry{Text: text, Family: FamilyIPv4})
	}
	for _, text := range s.IPv6() {
		out = append(out, AddressEntry{Text: text, Family: FamilyIPv6})
	}
	return out
}

func (s *AddressSet) sorted(family Family, n int) []string {
	out := make([]string, 0, n)
	for text, f := range s.seen {
		if f == family {
			out = append(out, text)
		}
	}
	sort.Strings(out)
	return out
}
