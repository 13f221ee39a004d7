// Package inmemstore is an in-memory session.Storage for DEV|TEST mode.
package inmemstore

import (
	"context"
	"sync"

	"github.com/darasahq/darasa/core/session"
)

type (
	namespace struct {
		snapshot *session.Snapshot
		flashes  []session.Flash
	}

	Store struct {
		mutex      sync.RWMutex
		namespaces map[string]*namespace
	}
)

var _ session.Storage = (*Store)(nil)

func Open() *Store {
	return &Store{namespaces: make(map[string]*namespace)}
}

func (s *Store) LoadSnapshot(_ context.Context, sid string) (session.Snapshot, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	ns, ok := s.namespaces[sid]
	if !ok || ns.snapshot == nil {
		return session.Snapshot{}, session.ErrNoSnapshot
	}
	return *ns.snapshot, nil
}

func (s *Store) SaveSnapshot(_ context.Context, sid string, snap session.Snapshot) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ns := s.ensure(sid)
	ns.snapshot = &snap // full replace
	return nil
}

func (s *Store) ClearNamespace(_ context.Context, sid string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.namespaces, sid)
	return nil
}

func (s *Store) PushFlash(_ context.Context, sid string, f session.Flash) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ns := s.ensure(sid)
	ns.flashes = append(ns.flashes, f)
	return nil
}

func (s *Store) PopFlashes(_ context.Context, sid string) ([]session.Flash, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ns, ok := s.namespaces[sid]
	if !ok || len(ns.flashes) == 0 {
		return nil, nil
	}
	flashes := ns.flashes
	ns.flashes = nil
	return flashes, nil
}

func (s *Store) ensure(sid string) *namespace {
	ns, ok := s.namespaces[sid]
	if !ok {
		ns = &namespace{}
		s.namespaces[sid] = ns
	}
	return ns
}
