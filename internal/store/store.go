// Package store keeps a history of decoded peers files in a LevelDB
// database keyed by the SHA-256 digest of the file.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"example.com/peersgate/internal/report"
)

const dbName = "history"

var (
	// ErrNotFound is returned by Get for an unknown digest.
	ErrNotFound = errors.New("store: entry not found")

	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("store: closed")

	summaryPrefix = []byte("s/")
	timePrefix    = []byte("t/")
)

// Entry is a stored decode summary.
type Entry struct {
	StoredAt time.Time      `json:"storedAt"`
	Summary  report.Summary `json:"summary"`
}

// Store is a decode history.  It is safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	db  *leveldb.DB
	now func() time.Time
}

// Open opens (or creates) the history database under dir.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, dbName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	log.Infof("Opening decode history at '%s'", dbPath)
	opts := opt.Options{
		Strict: opt.DefaultStrict,
		Filter: filter.NewBloomFilter(10),
	}
	db, err := leveldb.OpenFile(dbPath, &opts)
	if ldberrors.IsCorrupted(err) {
		log.Warnf("History database is corrupted, attempting recovery: %v", err)
		db, err = leveldb.RecoverFile(dbPath, &opts)
	}
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func summaryKey(digest string) []byte {
	return append(append([]byte{}, summaryPrefix...), digest...)
}

func timeKey(at time.Time, digest string) []byte {
	key := make([]byte, 0, len(timePrefix)+8+len(digest))
	key = append(key, timePrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(at.UnixNano()))
	return append(key, digest...)
}

// Put records s under its digest, replacing any earlier entry for the same
// file.
func (s *Store) Put(sum report.Summary) (Entry, error) {
	if sum.SHA256 == "" {
		return Entry{}, fmt.Errorf("store: summary has no digest")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return Entry{}, ErrClosed
	}

	entry := Entry{StoredAt: s.now().UTC(), Summary: sum}
	val, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, err
	}

	batch := new(leveldb.Batch)
	if prev, err := s.get(sum.SHA256); err == nil {
		batch.Delete(timeKey(prev.StoredAt, sum.SHA256))
	} else if !errors.Is(err, ErrNotFound) {
		return Entry{}, err
	}
	batch.Put(summaryKey(sum.SHA256), val)
	batch.Put(timeKey(entry.StoredAt, sum.SHA256), []byte(sum.SHA256))
	if err := s.db.Write(batch, nil); err != nil {
		return Entry{}, fmt.Errorf("store %s: %w", sum.SHA256, err)
	}
	log.Debugf("Stored summary for %s", sum.SHA256)
	return entry, nil
}

// Get returns the entry for digest or ErrNotFound.
func (s *Store) Get(digest string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return Entry{}, ErrClosed
	}
	return s.get(digest)
}

func (s *Store) get(digest string) (Entry, error) {
	var entry Entry
	val, err := s.db.Get(summaryKey(digest), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return entry, ErrNotFound
	}
	if err != nil {
		return entry, fmt.Errorf("load %s: %w", digest, err)
	}
	if err := json.Unmarshal(val, &entry); err != nil {
		return entry, fmt.Errorf("decode %s: %w", digest, err)
	}
	return entry, nil
}

// List returns up to limit entries, newest first.  A limit <= 0 returns
// everything.
func (s *Store) List(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	iter := s.db.NewIterator(util.BytesPrefix(timePrefix), nil)
	defer iter.Release()

	var entries []Entry
	for ok := iter.Last(); ok; ok = iter.Prev() {
		if limit > 0 && len(entries) >= limit {
			break
		}
		entry, err := s.get(string(iter.Value()))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Close releases the database.  Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
