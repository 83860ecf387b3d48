package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"example.com/peersgate/internal/peersdat"
)

// Summary is the JSON document produced for a decoded peers file.
type Summary struct {
	File                 string             `json:"file,omitempty"`
	SHA256               string             `json:"sha256,omitempty"`
	Header               peersdat.Header    `json:"header"`
	Integrity            peersdat.Integrity `json:"integrity"`
	Records              uint64             `json:"records"`
	Skipped              int                `json:"skipped"`
	Duplicates           int                `json:"duplicates"`
	Routable             int                `json:"routable"`
	Warnings             []string           `json:"warnings,omitempty"`
	UniqueIPv4Addresses  []string           `json:"uniqueIPv4Addresses"`
	UniqueIPv6Addresses  []string           `json:"uniqueIPv6Addresses"`
	TotalUniquePeers     int                `json:"totalUniquePeers"`
	TotalUniqueIPv4Peers int                `json:"totalUniqueIPv4Peers"`
	TotalUniqueIPv6Peers int                `json:"totalUniqueIPv6Peers"`
}

// NewSummary flattens a decode result.  digest is the hex SHA-256 of the
// input file and may be empty.
func NewSummary(file, digest string, res *peersdat.Result) Summary {
	s := Summary{
		File:                 file,
		SHA256:               digest,
		Header:               res.Header,
		Integrity:            res.Integrity,
		Records:              res.Records,
		Skipped:              res.Skipped,
		Duplicates:           res.Duplicates,
		Routable:             res.Routable,
		Warnings:             res.Warnings,
		UniqueIPv4Addresses:  res.IPv4(),
		UniqueIPv6Addresses:  res.IPv6(),
		TotalUniquePeers:     res.TotalUnique(),
		TotalUniqueIPv4Peers: res.TotalIPv4(),
		TotalUniqueIPv6Peers: res.TotalIPv6(),
	}
	return s
}

// Valid reports whether the summarized file had a matching checksum.
func (s Summary) Valid() bool {
	return s.Integrity == peersdat.IntegrityValid
}

func SaveJSON(s Summary, out string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadJSON(path string) (Summary, error) {
	var s Summary
	b, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(b, &s)
	return s, err
}

// WriteText prints a human readable rendition of s.  Addresses are listed
// only when listAddrs is set.
func WriteText(w io.Writer, s Summary, tr Translator, listAddrs bool) error {
	var b strings.Builder
	row := func(key string, value any) {
		fmt.Fprintf(&b, "%-24s %v\n", tr.T(key)+":", value)
	}
	if s.File != "" {
		row("summary.file", s.File)
	}
	if s.SHA256 != "" {
		row("summary.sha256", s.SHA256)
	}
	network := s.Header.Network
	if network == "" {
		network = "-"
	}
	row("summary.magic", fmt.Sprintf("%s (%s)", s.Header.Magic, network))
	row("summary.version", s.Header.Version)
	row("summary.records", s.Records)
	row("summary.integrity", integrityLabel(tr, s.Integrity))
	row("summary.totalUnique", s.TotalUniquePeers)
	row("summary.totalIPv4", s.TotalUniqueIPv4Peers)
	row("summary.totalIPv6", s.TotalUniqueIPv6Peers)
	row("summary.routable", s.Routable)
	row("summary.duplicates", s.Duplicates)
	row("summary.skipped", s.Skipped)
	for _, warn := range s.Warnings {
		fmt.Fprintf(&b, "%s: %s\n", tr.T("summary.warning"), warn)
	}
	if listAddrs {
		for _, group := range []struct {
			key   string
			addrs []string
		}{
			{"summary.ipv4List", s.UniqueIPv4Addresses},
			{"summary.ipv6List", s.UniqueIPv6Addresses},
		} {
			fmt.Fprintf(&b, "\n%s\n", tr.T(group.key))
			for _, a := range group.addrs {
				fmt.Fprintf(&b, "  %s\n", a)
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func integrityLabel(tr Translator, in peersdat.Integrity) string {
	if in == peersdat.IntegrityValid {
		return tr.T("integrity.valid")
	}
	return tr.T("integrity.invalid")
}
