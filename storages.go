package gowait

import (
	"context"
	"errors"
	"sync"

	badger "github.com/dgraph-io/badger/v2"
)

// Storage defines abstract baseline storage interface
// used to keep the latest bench report for later comparison.
type Storage interface {
	Get(context.Context) ([]byte, error)
	Set(context.Context, []byte) error
}

type smemory struct {
	buffer []byte
	lock   sync.Mutex
}

// NewStorageMemory creates in memory storage instance.
func NewStorageMemory() *smemory {
	return &smemory{}
}

func (s *smemory) Get(context.Context) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.buffer == nil {
		return nil, errors.New("storage has no stored baseline")
	}
	buffer := make([]byte, len(s.buffer))
	copy(buffer, s.buffer)
	return buffer, nil
}

func (s *smemory) Set(_ context.Context, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if data == nil {
		return errors.New("storage can't store empty baseline")
	}
	s.buffer = data
	return nil
}

type sbadger struct {
	memconnect Runnable
	db         *badger.DB
	key        []byte
	lock       sync.Mutex
}

// NewStorageBadger creates badger storage instance
// with memoized database connection
// which keeps the baseline under the provided key at the provided path.
func NewStorageBadger(path string, key string) *sbadger {
	s := &sbadger{key: []byte(key)}
	s.memconnect, _ = memoized(func(ctx context.Context) error {
		db, err := badger.Open(badger.DefaultOptions(path))
		if err != nil {
			return err
		}
		s.db = db
		return nil
	})
	return s
}

func (s *sbadger) Get(ctx context.Context) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.memconnect(ctx); err != nil {
		return nil, err
	}
	var result []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if err == nil {
			result, err = item.ValueCopy(nil)
		}
		return err
	})
	return result, err
}

func (s *sbadger) Set(ctx context.Context, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.memconnect(ctx); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key, data)
	})
}

// Close closes underlying badger database if it was opened.
func (s *sbadger) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
