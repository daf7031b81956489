// Package session persists the logged-in identity between CLI invocations.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"lectern/client/internal/api"
)

// ErrNoSession is returned when no identity has been saved yet.
var ErrNoSession = errors.New("session: not logged in")

var identityKey = []byte("identity")

// identityRecord is the stored shape; LoggedInAt is kept for `status`
// output.
type identityRecord struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Store is a badger-backed single-identity store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the session database under dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return &Store{db: db}, nil
}

// Save records identity as the active login, replacing any previous one.
func (s *Store) Save(identity api.Identity) error {
	record := identityRecord{
		ID:         identity.ID,
		Username:   identity.Username,
		LoggedInAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(identityKey, payload)
	})
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// Load returns the active identity and when it logged in.
func (s *Store) Load() (api.Identity, time.Time, error) {
	var record identityRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(identityKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return api.Identity{}, time.Time{}, ErrNoSession
	}
	if err != nil {
		return api.Identity{}, time.Time{}, fmt.Errorf("load identity: %w", err)
	}
	return api.Identity{ID: record.ID, Username: record.Username}, record.LoggedInAt, nil
}

// Clear removes the active identity. Clearing an empty store is not an
// error.
func (s *Store) Clear() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(identityKey)
	})
	if err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
