// Package inmem provides a mutex-guarded in-memory implementation of the
// storage ports. It backs unit tests and local demos with the same
// all-or-nothing transaction semantics as the postgres store: WithinTx
// snapshots state before running fn and restores it when fn fails.
package inmem

import (
	"context"
	"sync"

	"library-backend/internal/domain"
	"library-backend/internal/repository"
)

type state struct {
	books    map[int32]domain.Book
	users    map[int32]domain.User
	requests map[int32]domain.BorrowRequest
	loans    map[int32]domain.Loan

	nextBookID    int32
	nextUserID    int32
	nextRequestID int32
	nextLoanID    int32
}

func newState() *state {
	return &state{
		books:    make(map[int32]domain.Book),
		users:    make(map[int32]domain.User),
		requests: make(map[int32]domain.BorrowRequest),
		loans:    make(map[int32]domain.Loan),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, b := range s.books {
		c.books[id] = b
	}
	for id, u := range s.users {
		c.users[id] = u
	}
	for id, r := range s.requests {
		c.requests[id] = r
	}
	for id, l := range s.loans {
		c.loans[id] = l
	}
	c.nextBookID = s.nextBookID
	c.nextUserID = s.nextUserID
	c.nextRequestID = s.nextRequestID
	c.nextLoanID = s.nextLoanID
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// Ledgers returns repository views that take the store lock per call.
func (s *Store) Ledgers() repository.Ledgers {
	return repository.Ledgers{
		Books:    &lockedBooks{s: s},
		Users:    &lockedUsers{s: s},
		Requests: &lockedRequests{s: s},
		Loans:    &lockedLoans{s: s},
	}
}

// WithinTx serializes mutating transactions behind the store mutex, so a
// racing approval of the last copy sees the committed state of the
// previous one, never an intermediate.
func (s *Store) WithinTx(_ context.Context, fn func(tx repository.Ledgers) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := repository.Ledgers{
		Books:    &books{st: s.st},
		Users:    &users{st: s.st},
		Requests: &requests{st: s.st},
		Loans:    &loans{st: s.st},
	}
	if err := fn(tx); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}
