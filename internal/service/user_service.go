package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainErrors "github.com/tasklocal/marketplace/internal/domain/errors"
	"github.com/tasklocal/marketplace/internal/domain/user"
)

// UserService handles registration and token issuance.
type UserService struct {
	userRepo  user.Repository
	jwtSecret []byte
	jwtExpiry time.Duration
}

func NewUserService(userRepo user.Repository, jwtSecret string, jwtExpiry time.Duration) *UserService {
	return &UserService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		jwtExpiry: jwtExpiry,
	}
}

// RegisterRequest holds the input for registering a user.
type RegisterRequest struct {
	Email string
	Name  string
	Role  user.Role
}

// Register creates a user.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*user.User, error) {
	u, err := user.NewUser(req.Email, req.Name, req.Role)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser returns a user by id.
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// EmailByUserID implements the payer email lookup for checkout.
func (s *UserService) EmailByUserID(ctx context.Context, userID uuid.UUID) (string, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

// IssueToken returns a signed JWT for the user identified by email.
func (s *UserService) IssueToken(ctx context.Context, email string) (string, error) {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  u.ID.String(),
		"role": string(u.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.jwtExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", domainErrors.NewDomainError("token_signing", "failed to sign token", err)
	}
	return signed, nil
}
