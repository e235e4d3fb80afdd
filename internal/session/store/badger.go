package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/heygen-community/heygen-streaming/internal/session"
)

const badgerKeyPrefix = "sess:"

// BadgerStore persists session records in an embedded Badger database.
// Keys are "sess:<session_id>", values are the JSON-encoded record.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) the Badger database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger store: open: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(sessionID string) []byte {
	return []byte(badgerKeyPrefix + sessionID)
}

func (s *BadgerStore) Put(_ context.Context, rec *session.Record) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("badger store: marshal: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(rec.SessionID), buf)
	})
	if err != nil {
		return fmt.Errorf("badger store: put %s: %w", rec.SessionID, err)
	}
	return nil
}

func (s *BadgerStore) Get(_ context.Context, sessionID string) (*session.Record, error) {
	var rec session.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger store: get %s: %w", sessionID, err)
	}
	return &rec, nil
}

func (s *BadgerStore) List(_ context.Context) ([]*session.Record, error) {
	var out []*session.Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec session.Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger store: list: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Delete(_ context.Context, sessionID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		// Badger deletes are blind writes; check existence first so
		// callers can distinguish a missing record.
		if _, err := txn.Get(badgerKey(sessionID)); err != nil {
			return err
		}
		return txn.Delete(badgerKey(sessionID))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("badger store: delete %s: %w", sessionID, err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
