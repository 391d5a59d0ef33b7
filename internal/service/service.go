package service

import (
	"context"
	"time"

	"library-backend/internal/domain"
)

// Clock abstracts "now" so due dates and fine amounts are deterministic
// under test.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// CirculationService is the lifecycle engine: the single authority for
// every borrow-request and loan state transition, and the sole writer of
// available_copies.
type CirculationService interface {
	SubmitRequest(ctx context.Context, memberID, bookID int32) (*domain.BorrowRequest, error)
	ApproveRequest(ctx context.Context, requestID, librarianID, durationDays int32, notes string) (*domain.Loan, error)
	RejectRequest(ctx context.Context, requestID, librarianID int32, reason string) (*domain.BorrowRequest, error)
	CancelRequest(ctx context.Context, requestID, memberID int32) (*domain.BorrowRequest, error)
	IssueDirectly(ctx context.Context, memberID, bookID, librarianID, durationDays int32, notes string) (*domain.Loan, error)
	ReturnLoan(ctx context.Context, borrowID, returnedTo int32, condition string, damageFeeCents int32) (*domain.Loan, error)
	RenewLoan(ctx context.Context, borrowID, extraDays int32) (*domain.Loan, error)

	GetLoan(ctx context.Context, borrowID int32) (*domain.Loan, error)
	GetRequest(ctx context.Context, requestID int32) (*domain.BorrowRequest, error)
	ListRequestsByMember(ctx context.Context, memberID int32) ([]domain.BorrowRequest, error)
	ListPendingRequests(ctx context.Context) ([]domain.BorrowRequest, error)
	ListLoansByMember(ctx context.Context, memberID int32) ([]domain.Loan, error)
	ListActiveLoansByMember(ctx context.Context, memberID int32) ([]domain.Loan, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Loan, error)
	ActiveLoanCount(ctx context.Context, memberID int32) (int32, error)
}

// CatalogService owns book records. Stock edits go through the engine's
// consistency rules; the copy counters themselves are only ever moved by
// the circulation service.
type CatalogService interface {
	AddBook(ctx context.Context, book *domain.Book) error
	UpdateBook(ctx context.Context, book *domain.Book) error
	SetStock(ctx context.Context, bookID, totalCopies int32) (*domain.Book, error)
	DeleteBook(ctx context.Context, bookID int32) error
	GetBook(ctx context.Context, bookID int32) (*domain.Book, error)
	ListBooks(ctx context.Context) ([]domain.Book, error)
	ListAvailableBooks(ctx context.Context) ([]domain.Book, error)
	SearchBooks(ctx context.Context, query string) ([]domain.Book, error)
	ListLowStock(ctx context.Context) ([]domain.Book, error)
	InventorySummary(ctx context.Context) (available, borrowed int32, err error)
}

// DirectoryService is the narrow member/staff surface the circulation
// engine and its callers consume.
type DirectoryService interface {
	GetUser(ctx context.Context, userID int32) (*domain.User, error)
	HasPermission(ctx context.Context, userID int32, capability domain.Capability) (bool, error)
	DeactivateMember(ctx context.Context, memberID, actorID int32) error
}
