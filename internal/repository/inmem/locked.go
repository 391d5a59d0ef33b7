package inmem

import (
	"context"
	"time"

	"library-backend/internal/domain"
)

// Locked wrappers delegate to the unlocked views while holding the store
// mutex, so direct ledger reads never observe a transaction mid-flight.

type lockedBooks struct{ s *Store }

func (w *lockedBooks) Create(ctx context.Context, b *domain.Book) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&books{st: w.s.st}).Create(ctx, b)
}

func (w *lockedBooks) GetByID(ctx context.Context, id int32) (*domain.Book, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&books{st: w.s.st}).GetByID(ctx, id)
}

func (w *lockedBooks) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&books{st: w.s.st}).GetByISBN(ctx, isbn)
}

func (w *lockedBooks) Update(ctx context.Context, b *domain.Book) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&books{st: w.s.st}).Update(ctx, b)
}

func (w *lockedBooks) Delete(ctx context.Context, id int32) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&books{st: w.s.st}).Delete(ctx, id)
}

func (w *lockedBooks) List(ctx context.Context) ([]domain.Book, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&books{st: w.s.st}).List(ctx)
}

func (w *lockedBooks) ListAvailable(ctx context.Context) ([]domain.Book, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&books{st: w.s.st}).ListAvailable(ctx)
}

func (w *lockedBooks) Search(ctx context.Context, query string) ([]domain.Book, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&books{st: w.s.st}).Search(ctx, query)
}

func (w *lockedBooks) AdjustAvailability(ctx context.Context, bookID, delta int32) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&books{st: w.s.st}).AdjustAvailability(ctx, bookID, delta)
}

func (w *lockedBooks) SetStock(ctx context.Context, bookID, totalCopies, availableCopies int32) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&books{st: w.s.st}).SetStock(ctx, bookID, totalCopies, availableCopies)
}

func (w *lockedBooks) TotalAvailableCopies(ctx context.Context) (int32, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&books{st: w.s.st}).TotalAvailableCopies(ctx)
}

func (w *lockedBooks) TotalBorrowedCopies(ctx context.Context) (int32, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&books{st: w.s.st}).TotalBorrowedCopies(ctx)
}

type lockedUsers struct{ s *Store }

func (w *lockedUsers) Create(ctx context.Context, u *domain.User) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&users{st: w.s.st}).Create(ctx, u)
}

func (w *lockedUsers) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&users{st: w.s.st}).GetByID(ctx, id)
}

func (w *lockedUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&users{st: w.s.st}).GetByEmail(ctx, email)
}

func (w *lockedUsers) Update(ctx context.Context, u *domain.User) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&users{st: w.s.st}).Update(ctx, u)
}

func (w *lockedUsers) ListByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&users{st: w.s.st}).ListByRole(ctx, role)
}

type lockedRequests struct{ s *Store }

func (w *lockedRequests) Create(ctx context.Context, req *domain.BorrowRequest) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&requests{st: w.s.st}).Create(ctx, req)
}

func (w *lockedRequests) GetByID(ctx context.Context, id int32) (*domain.BorrowRequest, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&requests{st: w.s.st}).GetByID(ctx, id)
}

func (w *lockedRequests) Update(ctx context.Context, req *domain.BorrowRequest) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&requests{st: w.s.st}).Update(ctx, req)
}

func (w *lockedRequests) FindPendingByMemberAndBook(ctx context.Context, memberID, bookID int32) (*domain.BorrowRequest, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&requests{st: w.s.st}).FindPendingByMemberAndBook(ctx, memberID, bookID)
}

func (w *lockedRequests) ListByMember(ctx context.Context, memberID int32) ([]domain.BorrowRequest, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&requests{st: w.s.st}).ListByMember(ctx, memberID)
}

func (w *lockedRequests) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.BorrowRequest, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&requests{st: w.s.st}).ListByStatus(ctx, status)
}

func (w *lockedRequests) CountPending(ctx context.Context) (int32, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&requests{st: w.s.st}).CountPending(ctx)
}

type lockedLoans struct{ s *Store }

func (w *lockedLoans) Create(ctx context.Context, l *domain.Loan) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&loans{st: w.s.st}).Create(ctx, l)
}

func (w *lockedLoans) GetByID(ctx context.Context, id int32) (*domain.Loan, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&loans{st: w.s.st}).GetByID(ctx, id)
}

func (w *lockedLoans) Update(ctx context.Context, l *domain.Loan) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&loans{st: w.s.st}).Update(ctx, l)
}

func (w *lockedLoans) ListByMember(ctx context.Context, memberID int32) ([]domain.Loan, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&loans{st: w.s.st}).ListByMember(ctx, memberID)
}

func (w *lockedLoans) ListActiveByMember(ctx context.Context, memberID int32) ([]domain.Loan, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&loans{st: w.s.st}).ListActiveByMember(ctx, memberID)
}

func (w *lockedLoans) ListAll(ctx context.Context) ([]domain.Loan, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&loans{st: w.s.st}).ListAll(ctx)
}

func (w *lockedLoans) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Loan, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&loans{st: w.s.st}).ListOverdue(ctx, asOf)
}

func (w *lockedLoans) CountActiveByMember(ctx context.Context, memberID int32) (int32, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&loans{st: w.s.st}).CountActiveByMember(ctx, memberID)
}

func (w *lockedLoans) CountActiveByBook(ctx context.Context, bookID int32) (int32, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&loans{st: w.s.st}).CountActiveByBook(ctx, bookID)
}

func (w *lockedLoans) CountOverdueByMember(ctx context.Context, memberID int32, asOf time.Time) (int32, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return (&loans{st: w.s.st}).CountOverdueByMember(ctx, memberID, asOf)
}
