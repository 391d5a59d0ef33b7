// Package events carries the outbound messages the circulation engine
// emits after a successful commit. Delivery concerns (email, dashboards)
// live with subscribers; a failed or slow subscriber never affects the
// committed operation.
package events

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeRequestSubmitted Type = "RequestSubmitted"
	TypeRequestApproved  Type = "RequestApproved"
	TypeRequestRejected  Type = "RequestRejected"
	TypeRequestCancelled Type = "RequestCancelled"
	TypeLoanIssued       Type = "LoanIssued"
	TypeLoanRenewed      Type = "LoanRenewed"
	TypeLoanReturned     Type = "LoanReturned"
)

type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	RequestID  int32             `json:"request_id,omitempty"`
	LoanID     int32             `json:"loan_id,omitempty"`
	BookID     int32             `json:"book_id,omitempty"`
	MemberID   int32             `json:"member_id,omitempty"`
	ActorID    int32             `json:"actor_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(t Type) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now(),
	}
}
