package peersdat_test

import (
	"reflect"
	"sort"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"example.com/peersgate/internal/samples"
	"example.com/peersgate/internal/peersdat"
)

func TestDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		addrs []string
		tried map[int]bool
	}{
		{name: "ipv4 only", addrs: []string{"1.2.3.4", "8.8.4.4", "100.64.0.1"}},
		{name: "ipv6 only", addrs: []string{"2001:db8::1", "fe80::1", "2a00:1450:4001:82a::200e"}},
		{name: "mixed tried", addrs: []string{"5.6.7.8", "2600::1", "9.9.9.9"}, tried: map[int]bool{1: true}},
		{name: "none"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			peers, err := samples.PeersFromAddrs(tc.addrs...)
			if err != nil {
				t.Fatalf("PeersFromAddrs: %v", err)
			}
			for i := range peers {
				peers[i].Tried = tc.tried[i]
			}
			buf := samples.Build(samples.File{
				Magic:   samples.DigiByteMagic,
				Version: 1,
				Buckets: 1024,
				Peers:   peers,
			})
			res, err := peersdat.Decode(buf)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			got := append(res.IPv4(), res.IPv6()...)
			sort.Strings(got)
			want := append([]string{}, tc.addrs...)
			sort.Strings(want)
			if len(want) == 0 {
				want = []string{}
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("addresses mismatch\n got: %s\nwant: %s", spew.Sdump(got), spew.Sdump(want))
			}
			if got := int(res.Header.TriedCount); got != len(tc.tried) {
				t.Fatalf("tried count = %d, want %d", got, len(tc.tried))
			}
		})
	}
}

func TestDecodeSample(t *testing.T) {
	buf, err := samples.BuildSample()
	if err != nil {
		t.Fatalf("BuildSample: %v", err)
	}
	res, err := peersdat.Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Header.Network != "digibyte-mainnet" {
		t.Fatalf("network = %q", res.Header.Network)
	}
	if res.TotalUnique() != len(samples.SampleAddrs) {
		t.Fatalf("unique = %d, want %d", res.TotalUnique(), len(samples.SampleAddrs))
	}
	if res.TotalIPv4() != 4 || res.TotalIPv6() != 2 {
		t.Fatalf("ipv4/ipv6 = %d/%d, want 4/2", res.TotalIPv4(), res.TotalIPv6())
	}
	if res.Duplicates != 1 {
		t.Fatalf("duplicates = %d, want 1", res.Duplicates)
	}
}
