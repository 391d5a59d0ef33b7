package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"library-backend/internal/domain"
	"library-backend/internal/repository"

	"github.com/lib/pq"
)

const requestColumns = `request_id, member_id, book_id, request_date, status, approved_by, approved_date, borrow_duration_days, COALESCE(notes, '')`

type requestRepository struct {
	db DBTX
}

func NewRequestRepository(db DBTX) repository.RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *domain.BorrowRequest) error {
	query := `INSERT INTO borrow_requests (member_id, book_id, request_date, status, approved_by, approved_date, borrow_duration_days, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING request_id`
	if req.RequestDate.IsZero() {
		req.RequestDate = time.Now()
	}
	err := r.db.QueryRowContext(ctx, query, req.MemberID, req.BookID, req.RequestDate, req.Status, req.ApprovedBy, req.ApprovedDate, req.BorrowDurationDays, req.Notes).Scan(&req.ID)
	if err != nil {
		// The partial unique index on (member_id, book_id) WHERE status =
		// 'PENDING' backs the one-pending-request-per-pair invariant.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: member %d already has a pending request for book %d", domain.ErrDuplicateRequest, req.MemberID, req.BookID)
		}
		return mapError(err)
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id int32) (*domain.BorrowRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM borrow_requests WHERE request_id = $1`
	req := &domain.BorrowRequest{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&req.ID, &req.MemberID, &req.BookID, &req.RequestDate, &req.Status, &req.ApprovedBy, &req.ApprovedDate, &req.BorrowDurationDays, &req.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: request %d", domain.ErrRequestNotFound, id)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return req, nil
}

func (r *requestRepository) Update(ctx context.Context, req *domain.BorrowRequest) error {
	query := `UPDATE borrow_requests SET status=$1, approved_by=$2, approved_date=$3, borrow_duration_days=$4, notes=$5 WHERE request_id=$6`
	res, err := r.db.ExecContext(ctx, query, req.Status, req.ApprovedBy, req.ApprovedDate, req.BorrowDurationDays, req.Notes, req.ID)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res, fmt.Errorf("%w: request %d", domain.ErrRequestNotFound, req.ID))
}

// FindPendingByMemberAndBook returns (nil, nil) when no pending request
// exists for the pair.
func (r *requestRepository) FindPendingByMemberAndBook(ctx context.Context, memberID, bookID int32) (*domain.BorrowRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM borrow_requests
	          WHERE member_id = $1 AND book_id = $2 AND status = 'PENDING'`
	req := &domain.BorrowRequest{}
	err := r.db.QueryRowContext(ctx, query, memberID, bookID).Scan(&req.ID, &req.MemberID, &req.BookID, &req.RequestDate, &req.Status, &req.ApprovedBy, &req.ApprovedDate, &req.BorrowDurationDays, &req.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return req, nil
}

func (r *requestRepository) ListByMember(ctx context.Context, memberID int32) ([]domain.BorrowRequest, error) {
	query := `SELECT br.request_id, br.member_id, br.book_id, br.request_date, br.status, br.approved_by, br.approved_date, br.borrow_duration_days, COALESCE(br.notes, ''),
	                 b.title, b.author, b.isbn
	          FROM borrow_requests br
	          JOIN books b ON br.book_id = b.book_id
	          WHERE br.member_id = $1
	          ORDER BY br.request_date DESC`
	rows, err := r.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanRequestsWithBook(rows)
}

func (r *requestRepository) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.BorrowRequest, error) {
	query := `SELECT br.request_id, br.member_id, br.book_id, br.request_date, br.status, br.approved_by, br.approved_date, br.borrow_duration_days, COALESCE(br.notes, ''),
	                 b.title, b.author, b.isbn
	          FROM borrow_requests br
	          JOIN books b ON br.book_id = b.book_id
	          WHERE br.status = $1
	          ORDER BY br.request_date`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	return scanRequestsWithBook(rows)
}

func (r *requestRepository) CountPending(ctx context.Context) (int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM borrow_requests WHERE status = 'PENDING'`).Scan(&count)
	return count, mapError(err)
}

func scanRequestsWithBook(rows *sql.Rows) ([]domain.BorrowRequest, error) {
	var requests []domain.BorrowRequest
	for rows.Next() {
		var req domain.BorrowRequest
		book := &domain.Book{}
		if err := rows.Scan(&req.ID, &req.MemberID, &req.BookID, &req.RequestDate, &req.Status, &req.ApprovedBy, &req.ApprovedDate, &req.BorrowDurationDays, &req.Notes,
			&book.Title, &book.Author, &book.ISBN); err != nil {
			return nil, mapError(err)
		}
		book.ID = req.BookID
		req.Book = book
		requests = append(requests, req)
	}
	return requests, mapError(rows.Err())
}
