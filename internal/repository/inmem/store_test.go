package inmem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/domain"
	"library-backend/internal/repository"
)

func TestStore_WithinTxRollback(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	book := &domain.Book{ISBN: "978-1", Title: "Title", TotalCopies: 3, AvailableCopies: 3}
	require.NoError(t, store.Ledgers().Books.Create(ctx, book))

	sentinel := errors.New("abort")
	err := store.WithinTx(ctx, func(tx repository.Ledgers) error {
		if err := tx.Books.AdjustAvailability(ctx, book.ID, -2); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	// The failed transaction leaves no trace.
	stored, err := store.Ledgers().Books.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), stored.AvailableCopies)
}

func TestStore_AdjustAvailabilityGuards(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	book := &domain.Book{ISBN: "978-1", Title: "Title", TotalCopies: 1, AvailableCopies: 1}
	require.NoError(t, store.Ledgers().Books.Create(ctx, book))

	books := store.Ledgers().Books
	require.NoError(t, books.AdjustAvailability(ctx, book.ID, -1))
	assert.ErrorIs(t, books.AdjustAvailability(ctx, book.ID, -1), domain.ErrBookUnavailable)

	require.NoError(t, books.AdjustAvailability(ctx, book.ID, 1))
	assert.ErrorIs(t, books.AdjustAvailability(ctx, book.ID, 1), domain.ErrConflict)
}

func TestStore_DuplicatePendingRequest(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	first := &domain.BorrowRequest{MemberID: 1, BookID: 2, Status: domain.RequestStatusPending}
	require.NoError(t, store.Ledgers().Requests.Create(ctx, first))

	second := &domain.BorrowRequest{MemberID: 1, BookID: 2, Status: domain.RequestStatusPending}
	err := store.Ledgers().Requests.Create(ctx, second)
	assert.ErrorIs(t, err, domain.ErrDuplicateRequest)

	// An approved request never blocks a new submission.
	first.Status = domain.RequestStatusApproved
	require.NoError(t, store.Ledgers().Requests.Update(ctx, first))
	assert.NoError(t, store.Ledgers().Requests.Create(ctx, second))
}

func TestStore_LoanCounts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	due := time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)
	loans := store.Ledgers().Loans
	require.NoError(t, loans.Create(ctx, &domain.Loan{MemberID: 1, BookID: 2, DueDate: due, Status: domain.LoanStatusIssued}))
	require.NoError(t, loans.Create(ctx, &domain.Loan{MemberID: 1, BookID: 2, DueDate: due.AddDate(0, 0, 30), Status: domain.LoanStatusIssued}))
	require.NoError(t, loans.Create(ctx, &domain.Loan{MemberID: 1, BookID: 3, DueDate: due, Status: domain.LoanStatusReturned}))

	active, err := loans.CountActiveByMember(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(2), active)

	byBook, err := loans.CountActiveByBook(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), byBook)

	overdue, err := loans.CountOverdueByMember(ctx, 1, due.AddDate(0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, int32(1), overdue)
}
