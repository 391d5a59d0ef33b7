package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/config"
	"library-backend/internal/domain"
	"library-backend/internal/events"
	"library-backend/internal/repository/inmem"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testPolicy = config.CirculationConfig{
	FinePerDayCents:     100,
	DefaultDurationDays: 14,
	MinDurationDays:     1,
	MaxDurationDays:     90,
	RenewalDays:         7,
	MaxRenewals:         2,
}

type fixture struct {
	svc       *circulationService
	store     *inmem.Store
	member    *domain.User
	librarian *domain.User
	book      *domain.Book
}

func newFixture(t *testing.T, now time.Time, copies int32) *fixture {
	t.Helper()
	store := inmem.NewStore()
	svc := &circulationService{
		store:  store,
		policy: testPolicy,
		bus:    events.NewBus(),
		clock:  fixedClock{now: now},
	}

	ctx := context.Background()
	ledgers := store.Ledgers()

	member := &domain.User{FullName: "Mia Member", Email: "mia@example.com", Role: domain.UserRoleMember, Status: domain.UserStatusActive}
	require.NoError(t, ledgers.Users.Create(ctx, member))

	librarian := &domain.User{
		FullName: "Liam Librarian", Email: "liam@example.com",
		Role: domain.UserRoleLibrarian, Status: domain.UserStatusActive,
		CanApproveRequests: true, CanIssueReturns: true,
	}
	require.NoError(t, ledgers.Users.Create(ctx, librarian))

	book := &domain.Book{ISBN: "978-0134190440", Title: "The Go Programming Language", Author: "Donovan", TotalCopies: copies, AvailableCopies: copies}
	require.NoError(t, ledgers.Books.Create(ctx, book))

	return &fixture{svc: svc, store: store, member: member, librarian: librarian, book: book}
}

func (f *fixture) addMember(t *testing.T, email string) *domain.User {
	t.Helper()
	u := &domain.User{FullName: email, Email: email, Role: domain.UserRoleMember, Status: domain.UserStatusActive}
	require.NoError(t, f.store.Ledgers().Users.Create(context.Background(), u))
	return u
}

func TestCirculationService_SubmitRequest(t *testing.T) {
	now := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, now, 2)
		req, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusPending, req.Status)
		assert.Equal(t, now, req.RequestDate)

		// Submitting never reserves a copy.
		book, err := f.store.Ledgers().Books.GetByID(ctx, f.book.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(2), book.AvailableCopies)
	})

	t.Run("Duplicate pending request", func(t *testing.T) {
		f := newFixture(t, now, 2)
		_, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)

		_, err = f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
	})

	t.Run("Inactive member", func(t *testing.T) {
		f := newFixture(t, now, 2)
		f.member.Status = domain.UserStatusInactive
		require.NoError(t, f.store.Ledgers().Users.Update(ctx, f.member))

		_, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		assert.ErrorIs(t, err, domain.ErrMemberNotActive)
	})

	t.Run("Unknown book", func(t *testing.T) {
		f := newFixture(t, now, 2)
		_, err := f.svc.SubmitRequest(ctx, f.member.ID, 999)
		assert.ErrorIs(t, err, domain.ErrBookNotFound)
	})

	t.Run("Can request unavailable book", func(t *testing.T) {
		f := newFixture(t, now, 0)
		req, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusPending, req.Status)
	})
}

func TestCirculationService_ApproveRequest(t *testing.T) {
	now := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, now, 2)
		req, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)

		loan, err := f.svc.ApproveRequest(ctx, req.ID, f.librarian.ID, 0, "")
		require.NoError(t, err)
		assert.Equal(t, domain.LoanStatusIssued, loan.Status)
		assert.Equal(t, now.AddDate(0, 0, 14), loan.DueDate)
		assert.Equal(t, f.librarian.ID, loan.IssuedBy)
		assert.True(t, loan.AllowRenewal)

		book, err := f.store.Ledgers().Books.GetByID(ctx, f.book.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(1), book.AvailableCopies)

		stored, err := f.store.Ledgers().Requests.GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusApproved, stored.Status)
		require.NotNil(t, stored.ApprovedBy)
		assert.Equal(t, f.librarian.ID, *stored.ApprovedBy)
	})

	t.Run("Custom duration", func(t *testing.T) {
		f := newFixture(t, now, 2)
		req, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)

		loan, err := f.svc.ApproveRequest(ctx, req.ID, f.librarian.ID, 30, "")
		require.NoError(t, err)
		assert.Equal(t, now.AddDate(0, 0, 30), loan.DueDate)
	})

	t.Run("Duration out of range", func(t *testing.T) {
		f := newFixture(t, now, 2)
		req, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)

		_, err = f.svc.ApproveRequest(ctx, req.ID, f.librarian.ID, 120, "")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)

		_, err = f.svc.ApproveRequest(ctx, req.ID, f.librarian.ID, -5, "")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("No copies available", func(t *testing.T) {
		f := newFixture(t, now, 0)
		req, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)

		_, err = f.svc.ApproveRequest(ctx, req.ID, f.librarian.ID, 0, "")
		assert.ErrorIs(t, err, domain.ErrBookUnavailable)

		// The failed approval must not leave the request half-flipped.
		stored, err := f.store.Ledgers().Requests.GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusPending, stored.Status)
	})

	t.Run("Already approved", func(t *testing.T) {
		f := newFixture(t, now, 2)
		req, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)
		_, err = f.svc.ApproveRequest(ctx, req.ID, f.librarian.ID, 0, "")
		require.NoError(t, err)

		_, err = f.svc.ApproveRequest(ctx, req.ID, f.librarian.ID, 0, "")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("Member without capability", func(t *testing.T) {
		f := newFixture(t, now, 2)
		req, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)

		_, err = f.svc.ApproveRequest(ctx, req.ID, f.member.ID, 0, "")
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})

	t.Run("Member deactivated after submitting", func(t *testing.T) {
		f := newFixture(t, now, 2)
		req, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)

		f.member.Status = domain.UserStatusInactive
		require.NoError(t, f.store.Ledgers().Users.Update(ctx, f.member))

		_, err = f.svc.ApproveRequest(ctx, req.ID, f.librarian.ID, 0, "")
		assert.ErrorIs(t, err, domain.ErrMemberNotActive)

		book, err := f.store.Ledgers().Books.GetByID(ctx, f.book.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(2), book.AvailableCopies)
	})
}

func TestCirculationService_ApproveRequest_LastCopyRace(t *testing.T) {
	now := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	const contenders = 8
	const copies = 3

	f := newFixture(t, now, copies)

	requestIDs := make([]int32, 0, contenders)
	for i := 0; i < contenders; i++ {
		member := f.addMember(t, string(rune('a'+i))+"@example.com")
		req, err := f.svc.SubmitRequest(ctx, member.ID, f.book.ID)
		require.NoError(t, err)
		requestIDs = append(requestIDs, req.ID)
	}

	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for _, id := range requestIDs {
		wg.Add(1)
		go func(requestID int32) {
			defer wg.Done()
			_, err := f.svc.ApproveRequest(ctx, requestID, f.librarian.ID, 0, "")
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	issued, unavailable := 0, 0
	for err := range results {
		switch {
		case err == nil:
			issued++
		case errors.Is(err, domain.ErrBookUnavailable):
			unavailable++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, copies, issued)
	assert.Equal(t, contenders-copies, unavailable)

	book, err := f.store.Ledgers().Books.GetByID(ctx, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), book.AvailableCopies)
}

func TestCirculationService_RejectAndCancel(t *testing.T) {
	now := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("Reject", func(t *testing.T) {
		f := newFixture(t, now, 2)
		req, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)

		rejected, err := f.svc.RejectRequest(ctx, req.ID, f.librarian.ID, "damaged copy under repair")
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusRejected, rejected.Status)
		assert.Equal(t, "damaged copy under repair", rejected.Notes)

		book, err := f.store.Ledgers().Books.GetByID(ctx, f.book.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(2), book.AvailableCopies)

		// Terminal states stay terminal.
		_, err = f.svc.RejectRequest(ctx, req.ID, f.librarian.ID, "again")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		_, err = f.svc.ApproveRequest(ctx, req.ID, f.librarian.ID, 0, "")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})

	t.Run("Cancel", func(t *testing.T) {
		f := newFixture(t, now, 2)
		req, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)

		cancelled, err := f.svc.CancelRequest(ctx, req.ID, f.member.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusCancelled, cancelled.Status)

		// Cancelling frees the member to request the same title again.
		_, err = f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		assert.NoError(t, err)
	})

	t.Run("Cancel someone else's request", func(t *testing.T) {
		f := newFixture(t, now, 2)
		req, err := f.svc.SubmitRequest(ctx, f.member.ID, f.book.ID)
		require.NoError(t, err)

		other := f.addMember(t, "other@example.com")
		_, err = f.svc.CancelRequest(ctx, req.ID, other.ID)
		assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	})
}

func TestCirculationService_IssueDirectly(t *testing.T) {
	now := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	f := newFixture(t, now, 1)
	loan, err := f.svc.IssueDirectly(ctx, f.member.ID, f.book.ID, f.librarian.ID, 0, "walk-in")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusIssued, loan.Status)
	assert.NotZero(t, loan.RequestID)

	req, err := f.store.Ledgers().Requests.GetByID(ctx, loan.RequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, req.Status)

	book, err := f.store.Ledgers().Books.GetByID(ctx, f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), book.AvailableCopies)

	// The last copy is gone, so a second walk-in fails cleanly.
	other := f.addMember(t, "other@example.com")
	_, err = f.svc.IssueDirectly(ctx, other.ID, f.book.ID, f.librarian.ID, 0, "")
	assert.ErrorIs(t, err, domain.ErrBookUnavailable)
}

func TestCirculationService_ReturnLoan(t *testing.T) {
	issued := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	issue := func(t *testing.T, f *fixture) *domain.Loan {
		t.Helper()
		loan, err := f.svc.IssueDirectly(ctx, f.member.ID, f.book.ID, f.librarian.ID, 14, "")
		require.NoError(t, err)
		return loan
	}

	t.Run("On time, no fine", func(t *testing.T) {
		f := newFixture(t, issued, 1)
		loan := issue(t, f)

		f.svc.clock = fixedClock{now: issued.AddDate(0, 0, 10)}
		returned, err := f.svc.ReturnLoan(ctx, loan.ID, f.librarian.ID, "good", 0)
		require.NoError(t, err)
		assert.Equal(t, domain.LoanStatusReturned, returned.Status)
		assert.Equal(t, int32(0), returned.FineCents)
		require.NotNil(t, returned.ReturnDate)

		book, err := f.store.Ledgers().Books.GetByID(ctx, f.book.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(1), book.AvailableCopies)
	})

	t.Run("Late return accrues fine", func(t *testing.T) {
		f := newFixture(t, issued, 1)
		loan := issue(t, f)

		// Due after 14 days; returned 4 days past that at $1/day.
		f.svc.clock = fixedClock{now: issued.AddDate(0, 0, 18)}
		returned, err := f.svc.ReturnLoan(ctx, loan.ID, f.librarian.ID, "", 0)
		require.NoError(t, err)
		assert.Equal(t, int32(400), returned.FineCents)
	})

	t.Run("Damage fee added on top", func(t *testing.T) {
		f := newFixture(t, issued, 1)
		loan := issue(t, f)

		f.svc.clock = fixedClock{now: issued.AddDate(0, 0, 18)}
		returned, err := f.svc.ReturnLoan(ctx, loan.ID, f.librarian.ID, "water damage", 250)
		require.NoError(t, err)
		assert.Equal(t, int32(650), returned.FineCents)
		assert.Contains(t, returned.Notes, "water damage")
	})

	t.Run("Double return", func(t *testing.T) {
		f := newFixture(t, issued, 1)
		loan := issue(t, f)

		_, err := f.svc.ReturnLoan(ctx, loan.ID, f.librarian.ID, "", 0)
		require.NoError(t, err)

		_, err = f.svc.ReturnLoan(ctx, loan.ID, f.librarian.ID, "", 0)
		assert.ErrorIs(t, err, domain.ErrAlreadyReturned)
		assert.ErrorIs(t, err, domain.ErrInvalidState)

		// The second attempt must not bump the counter again.
		book, err := f.store.Ledgers().Books.GetByID(ctx, f.book.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(1), book.AvailableCopies)
	})

	t.Run("Return of persisted overdue loan", func(t *testing.T) {
		f := newFixture(t, issued, 1)
		loan := issue(t, f)

		// Nightly sweep has already flipped the display status.
		loan.Status = domain.LoanStatusOverdue
		require.NoError(t, f.store.Ledgers().Loans.Update(ctx, loan))

		f.svc.clock = fixedClock{now: issued.AddDate(0, 0, 16)}
		returned, err := f.svc.ReturnLoan(ctx, loan.ID, f.librarian.ID, "", 0)
		require.NoError(t, err)
		assert.Equal(t, domain.LoanStatusReturned, returned.Status)
		assert.Equal(t, int32(200), returned.FineCents)
	})

	t.Run("Negative damage fee", func(t *testing.T) {
		f := newFixture(t, issued, 1)
		loan := issue(t, f)

		_, err := f.svc.ReturnLoan(ctx, loan.ID, f.librarian.ID, "", -100)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestCirculationService_RenewLoan(t *testing.T) {
	issued := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("Default extension", func(t *testing.T) {
		f := newFixture(t, issued, 1)
		loan, err := f.svc.IssueDirectly(ctx, f.member.ID, f.book.ID, f.librarian.ID, 14, "")
		require.NoError(t, err)

		renewed, err := f.svc.RenewLoan(ctx, loan.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, loan.DueDate.AddDate(0, 0, 7), renewed.DueDate)
		assert.Equal(t, int32(1), renewed.RenewalCount)

		book, err := f.store.Ledgers().Books.GetByID(ctx, f.book.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(0), book.AvailableCopies)
	})

	t.Run("Renewal disabled on loan", func(t *testing.T) {
		f := newFixture(t, issued, 1)
		loan, err := f.svc.IssueDirectly(ctx, f.member.ID, f.book.ID, f.librarian.ID, 14, "")
		require.NoError(t, err)

		loan.AllowRenewal = false
		require.NoError(t, f.store.Ledgers().Loans.Update(ctx, loan))

		_, err = f.svc.RenewLoan(ctx, loan.ID, 0)
		assert.ErrorIs(t, err, domain.ErrRenewalNotAllowed)
	})

	t.Run("Renewal cap", func(t *testing.T) {
		f := newFixture(t, issued, 1)
		loan, err := f.svc.IssueDirectly(ctx, f.member.ID, f.book.ID, f.librarian.ID, 14, "")
		require.NoError(t, err)

		_, err = f.svc.RenewLoan(ctx, loan.ID, 0)
		require.NoError(t, err)
		_, err = f.svc.RenewLoan(ctx, loan.ID, 0)
		require.NoError(t, err)

		_, err = f.svc.RenewLoan(ctx, loan.ID, 0)
		assert.ErrorIs(t, err, domain.ErrRenewalNotAllowed)
	})

	t.Run("Returned loan cannot renew", func(t *testing.T) {
		f := newFixture(t, issued, 1)
		loan, err := f.svc.IssueDirectly(ctx, f.member.ID, f.book.ID, f.librarian.ID, 14, "")
		require.NoError(t, err)
		_, err = f.svc.ReturnLoan(ctx, loan.ID, f.librarian.ID, "", 0)
		require.NoError(t, err)

		_, err = f.svc.RenewLoan(ctx, loan.ID, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestCirculationService_ListOverdue(t *testing.T) {
	issued := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	f := newFixture(t, issued, 3)
	other := f.addMember(t, "other@example.com")

	onTime, err := f.svc.IssueDirectly(ctx, f.member.ID, f.book.ID, f.librarian.ID, 30, "")
	require.NoError(t, err)
	late, err := f.svc.IssueDirectly(ctx, other.ID, f.book.ID, f.librarian.ID, 7, "")
	require.NoError(t, err)

	asOf := issued.AddDate(0, 0, 10)
	overdue, err := f.svc.ListOverdue(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
	assert.NotEqual(t, onTime.ID, overdue[0].ID)
}
