package repository

import (
	"context"
	"time"

	"library-backend/internal/domain"
)

// BookRepository is the catalog store: book records and their copy counts.
type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	GetByID(ctx context.Context, id int32) (*domain.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	Update(ctx context.Context, book *domain.Book) error
	Delete(ctx context.Context, id int32) error
	List(ctx context.Context) ([]domain.Book, error)
	ListAvailable(ctx context.Context) ([]domain.Book, error)
	Search(ctx context.Context, query string) ([]domain.Book, error)

	// AdjustAvailability applies a conditional delta to available_copies.
	// It fails with domain.ErrBookUnavailable when a decrement would drop
	// the count below zero, and with domain.ErrConflict when an increment
	// would exceed total_copies. The check and the write are one atomic
	// statement; this is the primitive every issue/return path relies on.
	AdjustAvailability(ctx context.Context, bookID, delta int32) error

	// SetStock rewrites total and available copy counts together.
	SetStock(ctx context.Context, bookID, totalCopies, availableCopies int32) error

	TotalAvailableCopies(ctx context.Context) (int32, error)
	TotalBorrowedCopies(ctx context.Context) (int32, error)
}

// UserRepository is the member/staff directory. The circulation engine
// only reads from it; status changes go through the directory service.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error)
}

// RequestRepository is the request ledger.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.BorrowRequest) error
	GetByID(ctx context.Context, id int32) (*domain.BorrowRequest, error)
	Update(ctx context.Context, req *domain.BorrowRequest) error
	FindPendingByMemberAndBook(ctx context.Context, memberID, bookID int32) (*domain.BorrowRequest, error)
	ListByMember(ctx context.Context, memberID int32) ([]domain.BorrowRequest, error)
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.BorrowRequest, error)
	CountPending(ctx context.Context) (int32, error)
}

// LoanRepository is the loan ledger. Loans are never deleted.
type LoanRepository interface {
	Create(ctx context.Context, loan *domain.Loan) error
	GetByID(ctx context.Context, id int32) (*domain.Loan, error)
	Update(ctx context.Context, loan *domain.Loan) error
	ListByMember(ctx context.Context, memberID int32) ([]domain.Loan, error)
	ListActiveByMember(ctx context.Context, memberID int32) ([]domain.Loan, error)
	ListAll(ctx context.Context) ([]domain.Loan, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Loan, error)
	CountActiveByMember(ctx context.Context, memberID int32) (int32, error)
	CountActiveByBook(ctx context.Context, bookID int32) (int32, error)
	CountOverdueByMember(ctx context.Context, memberID int32, asOf time.Time) (int32, error)
}

// Ledgers bundles the four ports. Inside WithinTx every repository in the
// bundle is bound to the same transaction.
type Ledgers struct {
	Books    BookRepository
	Users    UserRepository
	Requests RequestRepository
	Loans    LoanRepository
}

// Store is what the circulation engine holds: plain ledgers for reads and
// the transaction primitive for every write path that must be atomic.
// A status write and an availability write are never two independent
// calls; they always share one WithinTx.
type Store interface {
	Ledgers() Ledgers

	// WithinTx runs fn against a transaction-scoped Ledgers view. If fn
	// returns an error the transaction rolls back and no sub-mutation
	// survives; otherwise it commits.
	WithinTx(ctx context.Context, fn func(tx Ledgers) error) error
}
