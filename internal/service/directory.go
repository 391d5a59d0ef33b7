package service

import (
	"context"
	"fmt"

	"library-backend/internal/domain"
	"library-backend/internal/logger"
	"library-backend/internal/repository"
)

type directoryService struct {
	store repository.Store
}

func NewDirectoryService(store repository.Store) DirectoryService {
	return &directoryService{store: store}
}

func (s *directoryService) GetUser(ctx context.Context, userID int32) (*domain.User, error) {
	return s.store.Ledgers().Users.GetByID(ctx, userID)
}

func (s *directoryService) HasPermission(ctx context.Context, userID int32, capability domain.Capability) (bool, error) {
	user, err := s.store.Ledgers().Users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsActive() && user.HasCapability(capability), nil
}

// DeactivateMember flips a member to INACTIVE. A member with copies still
// out cannot be deactivated; the books come back first.
func (s *directoryService) DeactivateMember(ctx context.Context, memberID, actorID int32) error {
	err := s.store.WithinTx(ctx, func(tx repository.Ledgers) error {
		actor, err := tx.Users.GetByID(ctx, actorID)
		if err != nil {
			return err
		}
		if !actor.IsActive() || !actor.HasCapability(domain.CapabilityRevokeMembership) {
			return fmt.Errorf("%w: user %d may not revoke memberships", domain.ErrPermissionDenied, actorID)
		}

		member, err := tx.Users.GetByID(ctx, memberID)
		if err != nil {
			return err
		}
		if !member.IsActive() {
			return fmt.Errorf("%w: member %d is already %s", domain.ErrInvalidState, memberID, member.Status)
		}

		outstanding, err := tx.Loans.CountActiveByMember(ctx, memberID)
		if err != nil {
			return err
		}
		if outstanding > 0 {
			return fmt.Errorf("%w: member %d has %d outstanding loans", domain.ErrInvalidState, memberID, outstanding)
		}

		member.Status = domain.UserStatusInactive
		return tx.Users.Update(ctx, member)
	})
	if err != nil {
		return err
	}

	logger.Info("Member deactivated", "member_id", memberID, "actor_id", actorID)
	return nil
}
