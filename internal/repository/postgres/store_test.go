package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"library-backend/internal/domain"
	"library-backend/internal/repository"
)

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Commit on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE books SET available_copies").
			WithArgs(int32(1), int32(-1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		store := NewStore(db)
		err = store.WithinTx(ctx, func(tx repository.Ledgers) error {
			return tx.Books.AdjustAvailability(ctx, 1, -1)
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rollback on callback error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		sentinel := errors.New("engine says no")
		mock.ExpectBegin()
		mock.ExpectRollback()

		store := NewStore(db)
		err = store.WithinTx(ctx, func(tx repository.Ledgers) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Commit serialization failure maps to conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001"})

		store := NewStore(db)
		err = store.WithinTx(ctx, func(tx repository.Ledgers) error {
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))

	t.Run("Unique violation", func(t *testing.T) {
		err := mapError(&pq.Error{Code: "23505"})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("Deadlock", func(t *testing.T) {
		err := mapError(&pq.Error{Code: "40P01"})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("Connection failure", func(t *testing.T) {
		err := mapError(&pq.Error{Code: "08006"})
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})

	t.Run("Unknown errors pass through", func(t *testing.T) {
		sentinel := errors.New("boom")
		assert.Equal(t, sentinel, mapError(sentinel))
	})
}
