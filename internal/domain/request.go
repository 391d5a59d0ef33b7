package domain

import "time"

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

// BorrowRequest is a member's (or librarian's) declared intent to borrow a
// book. No copy is reserved while the request is PENDING; inventory is
// committed only at approval time.
type BorrowRequest struct {
	ID                 int32         `json:"id"`
	MemberID           int32         `json:"member_id"`
	BookID             int32         `json:"book_id"`
	RequestDate        time.Time     `json:"request_date"`
	Status             RequestStatus `json:"status"`
	ApprovedBy         *int32        `json:"approved_by,omitempty"`
	ApprovedDate       *time.Time    `json:"approved_date,omitempty"`
	BorrowDurationDays *int32        `json:"borrow_duration_days,omitempty"`
	Notes              string        `json:"notes"`

	Member *User `json:"member,omitempty"` // populated on list views
	Book   *Book `json:"book,omitempty"`   // populated on list views
}

func (r *BorrowRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// IsTerminal reports whether the request has reached one of its final
// states. Terminal requests never change again.
func (r *BorrowRequest) IsTerminal() bool {
	return r.Status == RequestStatusApproved ||
		r.Status == RequestStatusRejected ||
		r.Status == RequestStatusCancelled
}
