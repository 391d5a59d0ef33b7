package service

import (
	"context"
	"fmt"
	"time"

	"library-backend/internal/config"
	"library-backend/internal/domain"
	"library-backend/internal/events"
	"library-backend/internal/logger"
	"library-backend/internal/repository"
)

type circulationService struct {
	store  repository.Store
	policy config.CirculationConfig
	bus    *events.Bus
	clock  Clock
}

func NewCirculationService(store repository.Store, policy config.CirculationConfig, bus *events.Bus) CirculationService {
	return &circulationService{
		store:  store,
		policy: policy,
		bus:    bus,
		clock:  realClock{},
	}
}

// SubmitRequest records a member's intent to borrow. No copy is reserved
// yet, so availability is not checked here; the hard gate sits at
// approval time.
func (s *circulationService) SubmitRequest(ctx context.Context, memberID, bookID int32) (*domain.BorrowRequest, error) {
	req := &domain.BorrowRequest{
		MemberID:    memberID,
		BookID:      bookID,
		RequestDate: s.clock.Now(),
		Status:      domain.RequestStatusPending,
	}

	err := s.store.WithinTx(ctx, func(tx repository.Ledgers) error {
		member, err := tx.Users.GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		if !member.IsActive() {
			return fmt.Errorf("%w: member %d is %s", domain.ErrMemberNotActive, memberID, member.Status)
		}
		if _, err := tx.Books.GetByID(ctx, bookID); err != nil {
			return err
		}
		existing, err := tx.Requests.FindPendingByMemberAndBook(ctx, memberID, bookID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: request %d", domain.ErrDuplicateRequest, existing.ID)
		}
		return tx.Requests.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	e := events.New(events.TypeRequestSubmitted)
	e.RequestID, e.BookID, e.MemberID = req.ID, bookID, memberID
	s.bus.Publish(e)
	return req, nil
}

// ApproveRequest turns a PENDING request into an ISSUED loan. The status
// flip, the loan insert and the copy decrement commit together or not at
// all; a failed availability check leaves no trace.
func (s *circulationService) ApproveRequest(ctx context.Context, requestID, librarianID, durationDays int32, notes string) (*domain.Loan, error) {
	duration, err := s.normalizeDuration(durationDays)
	if err != nil {
		return nil, err
	}

	var loan *domain.Loan
	err = s.store.WithinTx(ctx, func(tx repository.Ledgers) error {
		req, err := tx.Requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.IsPending() {
			return fmt.Errorf("%w: request %d is %s", domain.ErrInvalidState, requestID, req.Status)
		}

		if err := s.requireCapability(ctx, tx, librarianID, domain.CapabilityApproveRequests); err != nil {
			return err
		}
		member, err := tx.Users.GetByID(ctx, req.MemberID)
		if err != nil {
			return err
		}
		if !member.IsActive() {
			return fmt.Errorf("%w: member %d is %s", domain.ErrMemberNotActive, member.ID, member.Status)
		}

		// The availability gate. The conditional decrement is what keeps
		// two approvals of the last copy from both succeeding.
		if err := tx.Books.AdjustAvailability(ctx, req.BookID, -1); err != nil {
			return err
		}

		now := s.clock.Now()
		req.Status = domain.RequestStatusApproved
		req.ApprovedBy = &librarianID
		req.ApprovedDate = &now
		req.BorrowDurationDays = &duration
		if notes != "" {
			req.Notes = notes
		}
		if err := tx.Requests.Update(ctx, req); err != nil {
			return err
		}

		loan = &domain.Loan{
			RequestID:    req.ID,
			MemberID:     req.MemberID,
			BookID:       req.BookID,
			IssuedBy:     librarianID,
			IssueDate:    now,
			DueDate:      now.AddDate(0, 0, int(duration)),
			Status:       domain.LoanStatusIssued,
			AllowRenewal: true,
			Notes:        notes,
		}
		return tx.Loans.Create(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Request approved", "request_id", requestID, "loan_id", loan.ID, "book_id", loan.BookID, "member_id", loan.MemberID, "due_date", loan.DueDate)
	s.publishLoanEvent(events.TypeRequestApproved, loan, librarianID)
	s.publishLoanEvent(events.TypeLoanIssued, loan, librarianID)
	return loan, nil
}

func (s *circulationService) RejectRequest(ctx context.Context, requestID, librarianID int32, reason string) (*domain.BorrowRequest, error) {
	var req *domain.BorrowRequest
	err := s.store.WithinTx(ctx, func(tx repository.Ledgers) error {
		var err error
		req, err = tx.Requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.IsPending() {
			return fmt.Errorf("%w: request %d is %s", domain.ErrInvalidState, requestID, req.Status)
		}
		if err := s.requireCapability(ctx, tx, librarianID, domain.CapabilityApproveRequests); err != nil {
			return err
		}
		req.Status = domain.RequestStatusRejected
		req.Notes = reason
		return tx.Requests.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	e := events.New(events.TypeRequestRejected)
	e.RequestID, e.BookID, e.MemberID, e.ActorID = req.ID, req.BookID, req.MemberID, librarianID
	e.Attributes = map[string]string{"reason": reason}
	s.bus.Publish(e)
	return req, nil
}

// CancelRequest is the member-initiated withdrawal, allowed only while
// the request is still PENDING.
func (s *circulationService) CancelRequest(ctx context.Context, requestID, memberID int32) (*domain.BorrowRequest, error) {
	var req *domain.BorrowRequest
	err := s.store.WithinTx(ctx, func(tx repository.Ledgers) error {
		var err error
		req, err = tx.Requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.MemberID != memberID {
			return fmt.Errorf("%w: request %d does not belong to member %d", domain.ErrPermissionDenied, requestID, memberID)
		}
		if !req.IsPending() {
			return fmt.Errorf("%w: request %d is %s", domain.ErrInvalidState, requestID, req.Status)
		}
		req.Status = domain.RequestStatusCancelled
		return tx.Requests.Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	e := events.New(events.TypeRequestCancelled)
	e.RequestID, e.BookID, e.MemberID = req.ID, req.BookID, req.MemberID
	s.bus.Publish(e)
	return req, nil
}

// IssueDirectly handles in-person issuance: it synthesizes an already
// APPROVED request and runs the same atomic issue path as ApproveRequest.
func (s *circulationService) IssueDirectly(ctx context.Context, memberID, bookID, librarianID, durationDays int32, notes string) (*domain.Loan, error) {
	duration, err := s.normalizeDuration(durationDays)
	if err != nil {
		return nil, err
	}

	var loan *domain.Loan
	err = s.store.WithinTx(ctx, func(tx repository.Ledgers) error {
		if err := s.requireCapability(ctx, tx, librarianID, domain.CapabilityIssueReturns); err != nil {
			return err
		}
		member, err := tx.Users.GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		if !member.IsActive() {
			return fmt.Errorf("%w: member %d is %s", domain.ErrMemberNotActive, memberID, member.Status)
		}

		if err := tx.Books.AdjustAvailability(ctx, bookID, -1); err != nil {
			return err
		}

		now := s.clock.Now()
		req := &domain.BorrowRequest{
			MemberID:           memberID,
			BookID:             bookID,
			RequestDate:        now,
			Status:             domain.RequestStatusApproved,
			ApprovedBy:         &librarianID,
			ApprovedDate:       &now,
			BorrowDurationDays: &duration,
			Notes:              notes,
		}
		if err := tx.Requests.Create(ctx, req); err != nil {
			return err
		}

		loan = &domain.Loan{
			RequestID:    req.ID,
			MemberID:     memberID,
			BookID:       bookID,
			IssuedBy:     librarianID,
			IssueDate:    now,
			DueDate:      now.AddDate(0, 0, int(duration)),
			Status:       domain.LoanStatusIssued,
			AllowRenewal: true,
			Notes:        notes,
		}
		return tx.Loans.Create(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Book issued directly", "loan_id", loan.ID, "book_id", bookID, "member_id", memberID, "issued_by", librarianID)
	s.publishLoanEvent(events.TypeLoanIssued, loan, librarianID)
	return loan, nil
}

// ReturnLoan closes out a loan: RETURNED status, return stamps, the late
// fee plus any damage fee, and the copy increment, all in one commit.
func (s *circulationService) ReturnLoan(ctx context.Context, borrowID, returnedTo int32, condition string, damageFeeCents int32) (*domain.Loan, error) {
	if damageFeeCents < 0 {
		return nil, fmt.Errorf("%w: damage fee must not be negative", domain.ErrInvalidArgument)
	}

	var loan *domain.Loan
	err := s.store.WithinTx(ctx, func(tx repository.Ledgers) error {
		var err error
		loan, err = tx.Loans.GetByID(ctx, borrowID)
		if err != nil {
			return err
		}
		if loan.IsReturned() {
			return fmt.Errorf("%w: loan %d", domain.ErrAlreadyReturned, borrowID)
		}
		if !loan.IsOutstanding() {
			return fmt.Errorf("%w: loan %d is %s", domain.ErrInvalidState, borrowID, loan.Status)
		}
		if err := s.requireCapability(ctx, tx, returnedTo, domain.CapabilityIssueReturns); err != nil {
			return err
		}

		now := s.clock.Now()
		loan.Status = domain.LoanStatusReturned
		loan.ReturnDate = &now
		loan.ReturnedTo = &returnedTo
		loan.FineCents = loan.LateFeeCents(now, s.policy.FinePerDayCents) + damageFeeCents
		if condition != "" {
			loan.Notes = appendNote(loan.Notes, "returned in condition: "+condition)
		}
		if err := tx.Loans.Update(ctx, loan); err != nil {
			return err
		}

		return tx.Books.AdjustAvailability(ctx, loan.BookID, +1)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Loan returned", "loan_id", loan.ID, "book_id", loan.BookID, "member_id", loan.MemberID, "fine_cents", loan.FineCents)
	s.publishLoanEvent(events.TypeLoanReturned, loan, returnedTo)
	return loan, nil
}

// RenewLoan extends the due date. Inventory is untouched; the copy stays
// with the same member.
func (s *circulationService) RenewLoan(ctx context.Context, borrowID, extraDays int32) (*domain.Loan, error) {
	if extraDays == 0 {
		extraDays = s.policy.RenewalDays
	}
	if extraDays < 0 {
		return nil, fmt.Errorf("%w: extra days must be positive", domain.ErrInvalidArgument)
	}

	var loan *domain.Loan
	err := s.store.WithinTx(ctx, func(tx repository.Ledgers) error {
		var err error
		loan, err = tx.Loans.GetByID(ctx, borrowID)
		if err != nil {
			return err
		}
		if !loan.IsOutstanding() {
			return fmt.Errorf("%w: loan %d is %s", domain.ErrInvalidState, borrowID, loan.Status)
		}
		if !loan.AllowRenewal {
			return fmt.Errorf("%w: loan %d", domain.ErrRenewalNotAllowed, borrowID)
		}
		if s.policy.MaxRenewals > 0 && loan.RenewalCount >= s.policy.MaxRenewals {
			return fmt.Errorf("%w: loan %d reached %d renewals", domain.ErrRenewalNotAllowed, borrowID, loan.RenewalCount)
		}

		loan.DueDate = loan.DueDate.AddDate(0, 0, int(extraDays))
		loan.RenewalCount++
		return tx.Loans.Update(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Loan renewed", "loan_id", loan.ID, "due_date", loan.DueDate, "renewal_count", loan.RenewalCount)
	s.publishLoanEvent(events.TypeLoanRenewed, loan, 0)
	return loan, nil
}

func (s *circulationService) GetLoan(ctx context.Context, borrowID int32) (*domain.Loan, error) {
	return s.store.Ledgers().Loans.GetByID(ctx, borrowID)
}

func (s *circulationService) GetRequest(ctx context.Context, requestID int32) (*domain.BorrowRequest, error) {
	return s.store.Ledgers().Requests.GetByID(ctx, requestID)
}

func (s *circulationService) ListRequestsByMember(ctx context.Context, memberID int32) ([]domain.BorrowRequest, error) {
	return s.store.Ledgers().Requests.ListByMember(ctx, memberID)
}

func (s *circulationService) ListPendingRequests(ctx context.Context) ([]domain.BorrowRequest, error) {
	return s.store.Ledgers().Requests.ListByStatus(ctx, domain.RequestStatusPending)
}

func (s *circulationService) ListLoansByMember(ctx context.Context, memberID int32) ([]domain.Loan, error) {
	return s.store.Ledgers().Loans.ListByMember(ctx, memberID)
}

func (s *circulationService) ListActiveLoansByMember(ctx context.Context, memberID int32) ([]domain.Loan, error) {
	return s.store.Ledgers().Loans.ListActiveByMember(ctx, memberID)
}

// ListOverdue is a read-only projection; no stored state changes.
func (s *circulationService) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Loan, error) {
	return s.store.Ledgers().Loans.ListOverdue(ctx, asOf)
}

// ActiveLoanCount reports outstanding loans for a member; the directory
// consults it before deactivating an account.
func (s *circulationService) ActiveLoanCount(ctx context.Context, memberID int32) (int32, error) {
	return s.store.Ledgers().Loans.CountActiveByMember(ctx, memberID)
}

func (s *circulationService) normalizeDuration(days int32) (int32, error) {
	if days == 0 {
		return s.policy.DefaultDurationDays, nil
	}
	if days < s.policy.MinDurationDays || days > s.policy.MaxDurationDays {
		return 0, fmt.Errorf("%w: duration must be between %d and %d days", domain.ErrInvalidArgument, s.policy.MinDurationDays, s.policy.MaxDurationDays)
	}
	return days, nil
}

func (s *circulationService) requireCapability(ctx context.Context, tx repository.Ledgers, userID int32, capability domain.Capability) error {
	user, err := tx.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive() {
		return fmt.Errorf("%w: user %d is %s", domain.ErrPermissionDenied, userID, user.Status)
	}
	if !user.HasCapability(capability) {
		return fmt.Errorf("%w: user %d lacks %s", domain.ErrPermissionDenied, userID, capability)
	}
	return nil
}

func (s *circulationService) publishLoanEvent(t events.Type, loan *domain.Loan, actorID int32) {
	e := events.New(t)
	e.RequestID = loan.RequestID
	e.LoanID = loan.ID
	e.BookID = loan.BookID
	e.MemberID = loan.MemberID
	e.ActorID = actorID
	s.bus.Publish(e)
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
