package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/payment"
	"github.com/tasklocal/marketplace/internal/domain/user"
	"github.com/tasklocal/marketplace/internal/middleware"
)

// AuthzService enforces owner-or-admin access on payment resources.
type AuthzService struct {
	userRepo user.Repository
}

func NewAuthzService(userRepo user.Repository) *AuthzService {
	return &AuthzService{userRepo: userRepo}
}

// CallerID returns the authenticated user id from the request context.
func (s *AuthzService) CallerID(ctx context.Context) (uuid.UUID, error) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		return uuid.Nil, errors.ErrUnauthorized
	}
	return userID, nil
}

// VerifyPaymentAccess allows the payment owner and admins.
func (s *AuthzService) VerifyPaymentAccess(ctx context.Context, p *payment.Payment) error {
	callerID, err := s.CallerID(ctx)
	if err != nil {
		return err
	}
	if p.UserID == callerID {
		return nil
	}
	return s.requireAdmin(ctx, callerID)
}

// VerifyOwnership allows the resource owner and admins.
func (s *AuthzService) VerifyOwnership(ctx context.Context, ownerID uuid.UUID) error {
	callerID, err := s.CallerID(ctx)
	if err != nil {
		return err
	}
	if ownerID == callerID {
		return nil
	}
	return s.requireAdmin(ctx, callerID)
}

func (s *AuthzService) requireAdmin(ctx context.Context, callerID uuid.UUID) error {
	caller, err := s.userRepo.GetByID(ctx, callerID)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() {
		return errors.ErrForbidden
	}
	return nil
}
