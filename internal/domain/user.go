package domain

import "time"

type UserRole string

const (
	UserRoleMember    UserRole = "MEMBER"
	UserRoleLibrarian UserRole = "LIBRARIAN"
	UserRoleAdmin     UserRole = "ADMIN"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
	UserStatusPending  UserStatus = "PENDING"
)

// Capability names the permission flags a librarian account can carry.
type Capability string

const (
	CapabilityApproveRequests  Capability = "APPROVE_REQUESTS"
	CapabilityIssueReturns     Capability = "ISSUE_RETURNS"
	CapabilityRevokeMembership Capability = "REVOKE_MEMBERSHIP"
)

type User struct {
	ID       int32      `json:"id"`
	FullName string     `json:"full_name"`
	Email    string     `json:"email"`
	Phone    string     `json:"phone"`
	Role     UserRole   `json:"role"`
	Status   UserStatus `json:"status"`

	// Permission flags, meaningful only for LIBRARIAN accounts.
	// Admins implicitly hold every capability.
	CanApproveRequests  bool `json:"can_approve_requests"`
	CanIssueReturns     bool `json:"can_issue_returns"`
	CanRevokeMembership bool `json:"can_revoke_membership"`

	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

func (u *User) HasCapability(c Capability) bool {
	if u.Role == UserRoleAdmin {
		return true
	}
	if u.Role != UserRoleLibrarian {
		return false
	}
	switch c {
	case CapabilityApproveRequests:
		return u.CanApproveRequests
	case CapabilityIssueReturns:
		return u.CanIssueReturns
	case CapabilityRevokeMembership:
		return u.CanRevokeMembership
	}
	return false
}
