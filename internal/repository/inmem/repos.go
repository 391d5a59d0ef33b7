package inmem

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"library-backend/internal/domain"
)

// Unlocked repository views over a single state. WithinTx hands these to
// its callback while holding the store mutex.

type books struct{ st *state }

func (r *books) Create(_ context.Context, b *domain.Book) error {
	r.st.nextBookID++
	b.ID = r.st.nextBookID
	if b.CreatedOn.IsZero() {
		b.CreatedOn = time.Now()
	}
	r.st.books[b.ID] = *b
	return nil
}

func (r *books) GetByID(_ context.Context, id int32) (*domain.Book, error) {
	b, ok := r.st.books[id]
	if !ok {
		return nil, fmt.Errorf("%w: book %d", domain.ErrBookNotFound, id)
	}
	return &b, nil
}

func (r *books) GetByISBN(_ context.Context, isbn string) (*domain.Book, error) {
	for _, b := range r.st.books {
		if b.ISBN == isbn {
			cp := b
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: isbn %s", domain.ErrBookNotFound, isbn)
}

func (r *books) Update(_ context.Context, b *domain.Book) error {
	cur, ok := r.st.books[b.ID]
	if !ok {
		return fmt.Errorf("%w: book %d", domain.ErrBookNotFound, b.ID)
	}
	// Copy counts are owned by AdjustAvailability/SetStock.
	next := *b
	next.TotalCopies = cur.TotalCopies
	next.AvailableCopies = cur.AvailableCopies
	r.st.books[b.ID] = next
	return nil
}

func (r *books) Delete(_ context.Context, id int32) error {
	if _, ok := r.st.books[id]; !ok {
		return fmt.Errorf("%w: book %d", domain.ErrBookNotFound, id)
	}
	delete(r.st.books, id)
	return nil
}

func (r *books) List(_ context.Context) ([]domain.Book, error) {
	return r.collect(func(domain.Book) bool { return true }), nil
}

func (r *books) ListAvailable(_ context.Context) ([]domain.Book, error) {
	return r.collect(func(b domain.Book) bool { return b.AvailableCopies > 0 }), nil
}

func (r *books) Search(_ context.Context, query string) ([]domain.Book, error) {
	q := strings.ToLower(query)
	return r.collect(func(b domain.Book) bool {
		return strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(b.ISBN), q) ||
			strings.Contains(strings.ToLower(b.Category), q)
	}), nil
}

func (r *books) AdjustAvailability(_ context.Context, bookID, delta int32) error {
	b, ok := r.st.books[bookID]
	if !ok {
		return fmt.Errorf("%w: book %d", domain.ErrBookNotFound, bookID)
	}
	next := b.AvailableCopies + delta
	if next < 0 {
		return fmt.Errorf("%w: book %d", domain.ErrBookUnavailable, bookID)
	}
	if next > b.TotalCopies {
		return fmt.Errorf("%w: increment would exceed total copies for book %d", domain.ErrConflict, bookID)
	}
	b.AvailableCopies = next
	r.st.books[bookID] = b
	return nil
}

func (r *books) SetStock(_ context.Context, bookID, totalCopies, availableCopies int32) error {
	b, ok := r.st.books[bookID]
	if !ok {
		return fmt.Errorf("%w: book %d", domain.ErrBookNotFound, bookID)
	}
	b.TotalCopies = totalCopies
	b.AvailableCopies = availableCopies
	r.st.books[bookID] = b
	return nil
}

func (r *books) TotalAvailableCopies(_ context.Context) (int32, error) {
	var total int32
	for _, b := range r.st.books {
		total += b.AvailableCopies
	}
	return total, nil
}

func (r *books) TotalBorrowedCopies(_ context.Context) (int32, error) {
	var total int32
	for _, b := range r.st.books {
		total += b.TotalCopies - b.AvailableCopies
	}
	return total, nil
}

func (r *books) collect(keep func(domain.Book) bool) []domain.Book {
	var out []domain.Book
	for _, b := range r.st.books {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

type users struct{ st *state }

func (r *users) Create(_ context.Context, u *domain.User) error {
	r.st.nextUserID++
	u.ID = r.st.nextUserID
	if u.CreatedOn.IsZero() {
		u.CreatedOn = time.Now()
	}
	u.UpdatedOn = u.CreatedOn
	r.st.users[u.ID] = *u
	return nil
}

func (r *users) GetByID(_ context.Context, id int32) (*domain.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", domain.ErrUserNotFound, id)
	}
	return &u, nil
}

func (r *users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.st.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: email %s", domain.ErrUserNotFound, email)
}

func (r *users) Update(_ context.Context, u *domain.User) error {
	if _, ok := r.st.users[u.ID]; !ok {
		return fmt.Errorf("%w: user %d", domain.ErrUserNotFound, u.ID)
	}
	u.UpdatedOn = time.Now()
	r.st.users[u.ID] = *u
	return nil
}

func (r *users) ListByRole(_ context.Context, role domain.UserRole) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.st.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

type requests struct{ st *state }

func (r *requests) Create(_ context.Context, req *domain.BorrowRequest) error {
	if req.Status == domain.RequestStatusPending {
		for _, existing := range r.st.requests {
			if existing.MemberID == req.MemberID && existing.BookID == req.BookID && existing.Status == domain.RequestStatusPending {
				return fmt.Errorf("%w: member %d already has a pending request for book %d", domain.ErrDuplicateRequest, req.MemberID, req.BookID)
			}
		}
	}
	r.st.nextRequestID++
	req.ID = r.st.nextRequestID
	if req.RequestDate.IsZero() {
		req.RequestDate = time.Now()
	}
	r.st.requests[req.ID] = *req
	return nil
}

func (r *requests) GetByID(_ context.Context, id int32) (*domain.BorrowRequest, error) {
	req, ok := r.st.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: request %d", domain.ErrRequestNotFound, id)
	}
	return &req, nil
}

func (r *requests) Update(_ context.Context, req *domain.BorrowRequest) error {
	if _, ok := r.st.requests[req.ID]; !ok {
		return fmt.Errorf("%w: request %d", domain.ErrRequestNotFound, req.ID)
	}
	r.st.requests[req.ID] = *req
	return nil
}

func (r *requests) FindPendingByMemberAndBook(_ context.Context, memberID, bookID int32) (*domain.BorrowRequest, error) {
	for _, req := range r.st.requests {
		if req.MemberID == memberID && req.BookID == bookID && req.Status == domain.RequestStatusPending {
			cp := req
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *requests) ListByMember(_ context.Context, memberID int32) ([]domain.BorrowRequest, error) {
	return r.collect(func(req domain.BorrowRequest) bool { return req.MemberID == memberID }), nil
}

func (r *requests) ListByStatus(_ context.Context, status domain.RequestStatus) ([]domain.BorrowRequest, error) {
	return r.collect(func(req domain.BorrowRequest) bool { return req.Status == status }), nil
}

func (r *requests) CountPending(_ context.Context) (int32, error) {
	var count int32
	for _, req := range r.st.requests {
		if req.Status == domain.RequestStatusPending {
			count++
		}
	}
	return count, nil
}

func (r *requests) collect(keep func(domain.BorrowRequest) bool) []domain.BorrowRequest {
	var out []domain.BorrowRequest
	for _, req := range r.st.requests {
		if keep(req) {
			if b, ok := r.st.books[req.BookID]; ok {
				cp := b
				req.Book = &cp
			}
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type loans struct{ st *state }

func (r *loans) Create(_ context.Context, l *domain.Loan) error {
	r.st.nextLoanID++
	l.ID = r.st.nextLoanID
	r.st.loans[l.ID] = *l
	return nil
}

func (r *loans) GetByID(_ context.Context, id int32) (*domain.Loan, error) {
	l, ok := r.st.loans[id]
	if !ok {
		return nil, fmt.Errorf("%w: loan %d", domain.ErrLoanNotFound, id)
	}
	return &l, nil
}

func (r *loans) Update(_ context.Context, l *domain.Loan) error {
	if _, ok := r.st.loans[l.ID]; !ok {
		return fmt.Errorf("%w: loan %d", domain.ErrLoanNotFound, l.ID)
	}
	r.st.loans[l.ID] = *l
	return nil
}

func (r *loans) ListByMember(_ context.Context, memberID int32) ([]domain.Loan, error) {
	return r.collect(func(l domain.Loan) bool { return l.MemberID == memberID }), nil
}

func (r *loans) ListActiveByMember(_ context.Context, memberID int32) ([]domain.Loan, error) {
	return r.collect(func(l domain.Loan) bool { return l.MemberID == memberID && l.IsOutstanding() }), nil
}

func (r *loans) ListAll(_ context.Context) ([]domain.Loan, error) {
	return r.collect(func(domain.Loan) bool { return true }), nil
}

func (r *loans) ListOverdue(_ context.Context, asOf time.Time) ([]domain.Loan, error) {
	return r.collect(func(l domain.Loan) bool { return l.IsOverdue(asOf) }), nil
}

func (r *loans) CountActiveByMember(_ context.Context, memberID int32) (int32, error) {
	var count int32
	for _, l := range r.st.loans {
		if l.MemberID == memberID && l.IsOutstanding() {
			count++
		}
	}
	return count, nil
}

func (r *loans) CountActiveByBook(_ context.Context, bookID int32) (int32, error) {
	var count int32
	for _, l := range r.st.loans {
		if l.BookID == bookID && l.IsOutstanding() {
			count++
		}
	}
	return count, nil
}

func (r *loans) CountOverdueByMember(_ context.Context, memberID int32, asOf time.Time) (int32, error) {
	var count int32
	for _, l := range r.st.loans {
		if l.MemberID == memberID && l.IsOverdue(asOf) {
			count++
		}
	}
	return count, nil
}

func (r *loans) collect(keep func(domain.Loan) bool) []domain.Loan {
	var out []domain.Loan
	for _, l := range r.st.loans {
		if keep(l) {
			if b, ok := r.st.books[l.BookID]; ok {
				cp := b
				l.Book = &cp
			}
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
