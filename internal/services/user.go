package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amptracker/amp-tracker/internal/model"
	"github.com/amptracker/amp-tracker/internal/store"
)

// UserService handles account operations.
type UserService struct {
	store store.Store
}

func NewUserService(s store.Store) *UserService { return &UserService{store: s} }

// CreateUser registers an account. Timezone is mandatory and must name a
// real IANA zone; downstream slot assignment refuses to guess one.
func (s *UserService) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	if u.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", model.ErrValidation)
	}
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", model.ErrValidation)
	}
	if u.TimeZone == "" {
		return nil, fmt.Errorf("%w: timeZone is required", model.ErrValidation)
	}
	if _, err := time.LoadLocation(u.TimeZone); err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", model.ErrValidation, u.TimeZone)
	}
	if u.Role == "" {
		u.Role = fallbackRole
	}
	if u.Status == "" {
		u.Status = "active"
	}
	return s.store.Users().Create(ctx, u)
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.store.Users().Get(ctx, userID)
}

func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	return s.store.Users().Delete(ctx, userID)
}
