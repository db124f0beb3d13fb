// Package memstore keeps the session record in process memory. A login made
// with it lasts until the process exits.
package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-portal-client/sessions"
)

var _ sessions.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	record sessions.Record
}

func New() *Store {
	return &Store{}
}

func (s *Store) Load(_ context.Context) (sessions.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record, nil
}

func (s *Store) Save(_ context.Context, record sessions.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = record
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = sessions.Record{}
	return nil
}
