package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"library-backend/internal/domain"
	"library-backend/internal/repository"
)

const loanColumns = `borrow_id, request_id, member_id, book_id, issued_by, issue_date, due_date, return_date, returned_to, status, allow_renewal, renewal_count, fine_cents, COALESCE(notes, '')`

// outstandingStatuses matches copies that are still out; the persisted
// OVERDUE display status counts as outstanding.
const outstandingStatuses = `('ISSUED', 'OVERDUE')`

type loanRepository struct {
	db DBTX
}

func NewLoanRepository(db DBTX) repository.LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, l *domain.Loan) error {
	query := `INSERT INTO loans (request_id, member_id, book_id, issued_by, issue_date, due_date, status, allow_renewal, renewal_count, fine_cents, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING borrow_id`
	err := r.db.QueryRowContext(ctx, query, l.RequestID, l.MemberID, l.BookID, l.IssuedBy, l.IssueDate, l.DueDate, l.Status, l.AllowRenewal, l.RenewalCount, l.FineCents, l.Notes).Scan(&l.ID)
	return mapError(err)
}

func (r *loanRepository) GetByID(ctx context.Context, id int32) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE borrow_id = $1`
	l := &domain.Loan{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&l.ID, &l.RequestID, &l.MemberID, &l.BookID, &l.IssuedBy, &l.IssueDate, &l.DueDate, &l.ReturnDate, &l.ReturnedTo, &l.Status, &l.AllowRenewal, &l.RenewalCount, &l.FineCents, &l.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: loan %d", domain.ErrLoanNotFound, id)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return l, nil
}

func (r *loanRepository) Update(ctx context.Context, l *domain.Loan) error {
	query := `UPDATE loans SET status=$1, due_date=$2, return_date=$3, returned_to=$4, allow_renewal=$5, renewal_count=$6, fine_cents=$7, notes=$8 WHERE borrow_id=$9`
	res, err := r.db.ExecContext(ctx, query, l.Status, l.DueDate, l.ReturnDate, l.ReturnedTo, l.AllowRenewal, l.RenewalCount, l.FineCents, l.Notes, l.ID)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res, fmt.Errorf("%w: loan %d", domain.ErrLoanNotFound, l.ID))
}

func (r *loanRepository) ListByMember(ctx context.Context, memberID int32) ([]domain.Loan, error) {
	query := `SELECT l.borrow_id, l.request_id, l.member_id, l.book_id, l.issued_by, l.issue_date, l.due_date, l.return_date, l.returned_to, l.status, l.allow_renewal, l.renewal_count, l.fine_cents, COALESCE(l.notes, ''),
	                 b.title, b.author, b.isbn
	          FROM loans l
	          JOIN books b ON l.book_id = b.book_id
	          WHERE l.member_id = $1
	          ORDER BY l.issue_date DESC`
	rows, err := r.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanLoansWithBook(rows)
}

func (r *loanRepository) ListActiveByMember(ctx context.Context, memberID int32) ([]domain.Loan, error) {
	query := `SELECT l.borrow_id, l.request_id, l.member_id, l.book_id, l.issued_by, l.issue_date, l.due_date, l.return_date, l.returned_to, l.status, l.allow_renewal, l.renewal_count, l.fine_cents, COALESCE(l.notes, ''),
	                 b.title, b.author, b.isbn
	          FROM loans l
	          JOIN books b ON l.book_id = b.book_id
	          WHERE l.member_id = $1 AND l.status IN ` + outstandingStatuses + `
	          ORDER BY l.due_date`
	rows, err := r.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanLoansWithBook(rows)
}

func (r *loanRepository) ListAll(ctx context.Context) ([]domain.Loan, error) {
	query := `SELECT l.borrow_id, l.request_id, l.member_id, l.book_id, l.issued_by, l.issue_date, l.due_date, l.return_date, l.returned_to, l.status, l.allow_renewal, l.renewal_count, l.fine_cents, COALESCE(l.notes, ''),
	                 b.title, b.author, b.isbn
	          FROM loans l
	          JOIN books b ON l.book_id = b.book_id
	          ORDER BY l.issue_date DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanLoansWithBook(rows)
}

func (r *loanRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Loan, error) {
	query := `SELECT l.borrow_id, l.request_id, l.member_id, l.book_id, l.issued_by, l.issue_date, l.due_date, l.return_date, l.returned_to, l.status, l.allow_renewal, l.renewal_count, l.fine_cents, COALESCE(l.notes, ''),
	                 b.title, b.author, b.isbn
	          FROM loans l
	          JOIN books b ON l.book_id = b.book_id
	          WHERE l.status IN ` + outstandingStatuses + ` AND l.due_date < $1
	          ORDER BY l.due_date`
	rows, err := r.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanLoansWithBook(rows)
}

func (r *loanRepository) CountActiveByMember(ctx context.Context, memberID int32) (int32, error) {
	var count int32
	query := `SELECT COUNT(*) FROM loans WHERE member_id = $1 AND status IN ` + outstandingStatuses
	err := r.db.QueryRowContext(ctx, query, memberID).Scan(&count)
	return count, mapError(err)
}

func (r *loanRepository) CountActiveByBook(ctx context.Context, bookID int32) (int32, error) {
	var count int32
	query := `SELECT COUNT(*) FROM loans WHERE book_id = $1 AND status IN ` + outstandingStatuses
	err := r.db.QueryRowContext(ctx, query, bookID).Scan(&count)
	return count, mapError(err)
}

func (r *loanRepository) CountOverdueByMember(ctx context.Context, memberID int32, asOf time.Time) (int32, error) {
	var count int32
	query := `SELECT COUNT(*) FROM loans WHERE member_id = $1 AND status IN ` + outstandingStatuses + ` AND due_date < $2`
	err := r.db.QueryRowContext(ctx, query, memberID, asOf).Scan(&count)
	return count, mapError(err)
}

func scanLoansWithBook(rows *sql.Rows) ([]domain.Loan, error) {
	var loans []domain.Loan
	for rows.Next() {
		var l domain.Loan
		book := &domain.Book{}
		if err := rows.Scan(&l.ID, &l.RequestID, &l.MemberID, &l.BookID, &l.IssuedBy, &l.IssueDate, &l.DueDate, &l.ReturnDate, &l.ReturnedTo, &l.Status, &l.AllowRenewal, &l.RenewalCount, &l.FineCents, &l.Notes,
			&book.Title, &book.Author, &book.ISBN); err != nil {
			return nil, mapError(err)
		}
		book.ID = l.BookID
		l.Book = book
		loans = append(loans, l)
	}
	return loans, mapError(rows.Err())
}
