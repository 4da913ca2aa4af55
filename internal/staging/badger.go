package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go-retail-catalog/internal/importer"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var badgerKeyPrefix = []byte("batch/")

// BadgerConfig selects where the embedded store keeps its files.
type BadgerConfig struct {
	Path     string
	InMemory bool
	Logger   *zap.Logger
}

// badgerLogger adapts zap to badger's logger interface.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.s.Infof(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }

// Badger keeps staged batches in an embedded BadgerDB so they survive a
// restart of a single-instance deployment.
type Badger struct {
	db *badger.DB
}

func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required for persistent staging")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create staging directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{s: cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger staging store: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Close() error { return b.db.Close() }

func badgerKey(id string) []byte {
	return append(append([]byte{}, badgerKeyPrefix...), id...)
}

func (b *Badger) Get(_ context.Context, id string) (*importer.Batch, error) {
	var batch importer.Batch
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &batch)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get batch %s: %w", id, err)
	}
	if batch.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return &batch, nil
}

func (b *Badger) Put(_ context.Context, batch *importer.Batch) error {
	ttl := time.Until(batch.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("batch %s is already expired", batch.ID)
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode batch %s: %w", batch.ID, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(badgerKey(batch.ID), data).WithTTL(ttl))
	})
}

func (b *Badger) Delete(_ context.Context, id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(id))
	})
}

// SweepExpired removes batches whose recorded expiry is before now. Badger
// already hides entries past their TTL; this catches the rest.
func (b *Badger) SweepExpired(_ context.Context, now time.Time) ([]string, error) {
	var expired []string
	err := b.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		var keys [][]byte
		for it.Seek(badgerKeyPrefix); it.ValidForPrefix(badgerKeyPrefix); it.Next() {
			item := it.Item()
			var batch importer.Batch
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &batch)
			}); err != nil {
				it.Close()
				return err
			}
			if batch.Expired(now) {
				keys = append(keys, item.KeyCopy(nil))
				expired = append(expired, batch.ID)
			}
		}
		it.Close()

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}
