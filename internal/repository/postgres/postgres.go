package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"library-backend/internal/domain"
	"library-backend/internal/repository"

	"github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository can be
// bound either to the pool or to one transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db      *sql.DB
	ledgers repository.Ledgers
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		ledgers: newLedgers(db),
	}
}

func newLedgers(db DBTX) repository.Ledgers {
	return repository.Ledgers{
		Books:    NewBookRepository(db),
		Users:    NewUserRepository(db),
		Requests: NewRequestRepository(db),
		Loans:    NewLoanRepository(db),
	}
}

func (s *Store) Ledgers() repository.Ledgers {
	return s.ledgers
}

// WithinTx runs fn against transaction-bound ledgers. fn returning an error
// rolls everything back; commit errors surface as conflict/unavailable so
// the caller can tell a lost race from a lost database.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Ledgers) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(err)
	}
	if err := fn(newLedgers(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError translates driver-level failures into the domain taxonomy.
// Business sentinels pass through untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "40001" || pqErr.Code == "40P01": // serialization failure, deadlock
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		case pqErr.Code == "23505": // unique violation
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		case pqErr.Code.Class() == "08": // connection exceptions
			return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
	}
	return err
}
