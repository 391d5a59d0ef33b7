package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"library-backend/internal/domain"
)

func TestLoanRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewLoanRepository(db)
	ctx := context.Background()

	now := time.Date(2025, time.April, 1, 10, 0, 0, 0, time.UTC)
	loan := &domain.Loan{
		RequestID:    7,
		MemberID:     1,
		BookID:       2,
		IssuedBy:     3,
		IssueDate:    now,
		DueDate:      now.AddDate(0, 0, 14),
		Status:       domain.LoanStatusIssued,
		AllowRenewal: true,
	}

	mock.ExpectQuery("INSERT INTO loans").
		WithArgs(loan.RequestID, loan.MemberID, loan.BookID, loan.IssuedBy, loan.IssueDate, loan.DueDate, loan.Status, loan.AllowRenewal, loan.RenewalCount, loan.FineCents, loan.Notes).
		WillReturnRows(sqlmock.NewRows([]string{"borrow_id"}).AddRow(11))

	assert.NoError(t, repo.Create(ctx, loan))
	assert.Equal(t, int32(11), loan.ID)
}

func TestLoanRepository_ListOverdue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewLoanRepository(db)
	ctx := context.Background()

	asOf := time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC)
	due := time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"borrow_id", "request_id", "member_id", "book_id", "issued_by", "issue_date", "due_date", "return_date", "returned_to", "status", "allow_renewal", "renewal_count", "fine_cents", "notes", "title", "author", "isbn"}).
		AddRow(11, 7, 1, 2, 3, due.AddDate(0, 0, -14), due, nil, nil, "ISSUED", true, 0, 0, "", "Title", "Author", "978-1")

	mock.ExpectQuery("SELECT (.+) FROM loans l").
		WithArgs(asOf).
		WillReturnRows(rows)

	loans, err := repo.ListOverdue(ctx, asOf)
	assert.NoError(t, err)
	assert.Len(t, loans, 1)
	assert.Equal(t, int32(11), loans[0].ID)
	// List views carry the joined book summary.
	assert.NotNil(t, loans[0].Book)
	assert.Equal(t, "Title", loans[0].Book.Title)
}

func TestLoanRepository_CountActiveByMember(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewLoanRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM loans").
		WithArgs(int32(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountActiveByMember(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), count)
}
