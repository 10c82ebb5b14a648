package services

import (
	"context"
	"errors"

	"github.com/keepsite/apiserver/internal/store"
	"github.com/keepsite/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned on login when the username is
// unknown or the password does not match. The two cases are not
// distinguishable by the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository defines persistence operations for admin users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates the credential-store use-cases: registration
// with password hashing and credential verification.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Register hashes the password and persists the new account. A taken
// username surfaces as store.ErrDuplicate.
func (s *UserService) Register(ctx context.Context, username, password string) (types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}
	return s.repo.Create(ctx, types.User{
		Username:     username,
		PasswordHash: string(hashed),
	})
}

// Authenticate verifies a username/password pair. Password comparison
// goes through bcrypt's own check, never a byte comparison.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}
