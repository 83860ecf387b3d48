package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/peersgate/internal/peersdat"
	"example.com/peersgate/internal/report"
)

func summary(digest string, peers int) report.Summary {
	return report.Summary{
		File:                digest + ".dat",
		SHA256:              digest,
		Integrity:           peersdat.IntegrityValid,
		UniqueIPv4Addresses: []string{"1.2.3.4"},
		UniqueIPv6Addresses: []string{},
		TotalUniquePeers:    peers,
	}
}

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestPutGet(t *testing.T) {
	s := openTest(t)

	_, err := s.Get("aa")
	require.ErrorIs(t, err, ErrNotFound)

	stored, err := s.Put(summary("aa", 3))
	require.NoError(t, err)

	got, err := s.Get("aa")
	require.NoError(t, err)
	require.Equal(t, 3, got.Summary.TotalUniquePeers)
	require.Equal(t, []string{"1.2.3.4"}, got.Summary.UniqueIPv4Addresses)
	require.True(t, got.StoredAt.Equal(stored.StoredAt))

	_, err = s.Put(report.Summary{})
	require.Error(t, err)
}

func TestListNewestFirst(t *testing.T) {
	s := openTest(t)
	for _, d := range []string{"aa", "bb", "cc"} {
		_, err := s.Put(summary(d, 1))
		require.NoError(t, err)
	}
	// Re-storing moves the entry to the front without duplicating it.
	_, err := s.Put(summary("aa", 9))
	require.NoError(t, err)

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "aa", all[0].Summary.SHA256)
	require.Equal(t, 9, all[0].Summary.TotalUniquePeers)
	require.Equal(t, "cc", all[1].Summary.SHA256)
	require.Equal(t, "bb", all[2].Summary.SHA256)

	two, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, two, 2)
}

func TestReopenAndClose(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.Put(summary("dd", 2))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Get("dd")
	require.ErrorIs(t, err, ErrClosed)

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get("dd")
	require.NoError(t, err)
	require.Equal(t, 2, got.Summary.TotalUniquePeers)
}
