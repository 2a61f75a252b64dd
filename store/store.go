// Package store persists model-selection summaries in BadgerDB so results
// can be inspected and extracted after the run that produced them.
//
// Keys:
//
//	run/<uuid>  → JSON selection.Summary
//	latest      → uuid of the most recently saved run
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/katalvlaran/mmgsem/selection"
)

const (
	runPrefix = "run/"
	latestKey = "latest"
)

// ErrNotFound reports an unknown run ID or an empty store.
var ErrNotFound = errors.New("store: run not found")

// Config configures Open.
type Config struct {
	// Path is the database directory; ignored when InMemory.
	Path string

	// InMemory keeps everything in memory (tests).
	InMemory bool

	SyncWrites bool

	// Logger receives BadgerDB's own messages; nil silences them.
	Logger *slog.Logger
}

// Store is a BadgerDB-backed run archive. It is safe for concurrent use.
type Store struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens or creates the store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store: path is required for a persistent store")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Save writes sum and marks it as the latest run.
func (s *Store) Save(sum selection.Summary) error {
	if sum.RunID == "" {
		return errors.New("store: summary without run ID")
	}
	data, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("store: encode run %s: %w", sum.RunID, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(runPrefix+sum.RunID), data); err != nil {
			return err
		}

		return txn.Set([]byte(latestKey), []byte(sum.RunID))
	})
}

// Load reads one run.
func (s *Store) Load(runID string) (selection.Summary, error) {
	var sum selection.Summary
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runPrefix + runID))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sum)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return selection.Summary{}, fmt.Errorf("store: %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return selection.Summary{}, fmt.Errorf("store: load %s: %w", runID, err)
	}

	return sum, nil
}

// Latest reads the most recently saved run.
func (s *Store) Latest() (selection.Summary, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(latestKey))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		id = string(val)

		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return selection.Summary{}, ErrNotFound
	}
	if err != nil {
		return selection.Summary{}, fmt.Errorf("store: latest: %w", err)
	}

	return s.Load(id)
}

// List returns the stored run IDs in lexical order.
func (s *Store) List() ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(runPrefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), runPrefix))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	sort.Strings(ids)

	return ids, nil
}
