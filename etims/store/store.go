// Package store keeps the receipts of the last committed batch in memory.
package store

import (
	"sync/atomic"

	"github.com/alapierre/go-etims-receipts/etims/model"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "etims.store")

type snapshot struct {
	ordered []model.Receipt
	byID    map[string]int
}

var empty = &snapshot{byID: map[string]int{}}

// Store maps transaction ids to receipts. Readers never block: Replace builds a complete
// snapshot and swaps it in one step, so a reader sees either the old batch or the new one.
type Store struct {
	current atomic.Pointer[snapshot]
}

func New() *Store {
	s := &Store{}
	s.current.Store(empty)
	return s
}

// Replace installs receipts as the new content. On duplicate ids the first occurrence wins.
// Returns the number of receipts stored.
func (s *Store) Replace(receipts []model.Receipt) int {
	next := &snapshot{
		ordered: make([]model.Receipt, 0, len(receipts)),
		byID:    make(map[string]int, len(receipts)),
	}
	for _, r := range receipts {
		if _, dup := next.byID[r.ID]; dup {
			logger.WithField("transaction_id", r.ID).Warn("Duplicate transaction id ignored")
			continue
		}
		next.byID[r.ID] = len(next.ordered)
		next.ordered = append(next.ordered, r)
	}

	s.current.Store(next)
	return len(next.ordered)
}

func (s *Store) Get(id string) (model.Receipt, bool) {
	snap := s.load()
	i, ok := snap.byID[id]
	if !ok {
		return model.Receipt{}, false
	}
	return snap.ordered[i], true
}

// List returns the receipts in insertion order. The slice is a copy.
func (s *Store) List() []model.Receipt {
	snap := s.load()
	out := make([]model.Receipt, len(snap.ordered))
	copy(out, snap.ordered)
	return out
}

func (s *Store) Len() int {
	return len(s.load().ordered)
}

func (s *Store) load() *snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap
	}
	return empty
}
