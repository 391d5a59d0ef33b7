package domain

import "time"

type LoanStatus string

const (
	LoanStatusIssued   LoanStatus = "ISSUED"
	LoanStatusReturned LoanStatus = "RETURNED"
	// LoanStatusOverdue is a display status persisted by the nightly sweep.
	// Whether a loan is overdue is always decided by IsOverdue against the
	// due date; the stored value exists for dashboard queries only.
	LoanStatusOverdue LoanStatus = "OVERDUE"
)

// Loan is the permanent record of a single circulation event: one copy of
// one book issued to one member. Loans are never deleted.
type Loan struct {
	ID           int32      `json:"id"`
	RequestID    int32      `json:"request_id"`
	MemberID     int32      `json:"member_id"`
	BookID       int32      `json:"book_id"`
	IssuedBy     int32      `json:"issued_by"`
	IssueDate    time.Time  `json:"issue_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
	ReturnedTo   *int32     `json:"returned_to,omitempty"`
	Status       LoanStatus `json:"status"`
	AllowRenewal bool       `json:"allow_renewal"`
	RenewalCount int32      `json:"renewal_count"`
	FineCents    int32      `json:"fine_cents"`
	Notes        string     `json:"notes"`

	Member *User `json:"member,omitempty"` // populated on list views
	Book   *Book `json:"book,omitempty"`   // populated on list views
}

// IsOutstanding reports whether the copy is still out, counting the
// persisted OVERDUE display status as outstanding.
func (l *Loan) IsOutstanding() bool {
	return l.Status == LoanStatusIssued || l.Status == LoanStatusOverdue
}

func (l *Loan) IsReturned() bool {
	return l.Status == LoanStatusReturned
}

// IsOverdue reports whether the loan is past due as of the given date.
func (l *Loan) IsOverdue(asOf time.Time) bool {
	return l.IsOutstanding() && dateOf(asOf).After(dateOf(l.DueDate))
}

// DaysOverdue returns the number of whole days past the due date, zero if
// the loan is not overdue.
func (l *Loan) DaysOverdue(asOf time.Time) int32 {
	if !l.IsOverdue(asOf) {
		return 0
	}
	return daysBetween(l.DueDate, asOf)
}

// LateFeeCents computes the accrued late fee at the given per-day rate.
func (l *Loan) LateFeeCents(asOf time.Time, perDayCents int32) int32 {
	return ComputeLateFeeCents(l.DueDate, asOf, perDayCents)
}

// ComputeLateFeeCents is the fee rule: one per-day charge for each whole
// day past the due date, zero when asOf is on or before the due date.
func ComputeLateFeeCents(dueDate, asOf time.Time, perDayCents int32) int32 {
	days := daysBetween(dueDate, asOf)
	if days <= 0 {
		return 0
	}
	return days * perDayCents
}

// daysBetween counts calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int32 {
	return int32(dateOf(b).Sub(dateOf(a)).Hours() / 24)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
