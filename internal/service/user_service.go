package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/licitabrasil/licita-api/internal/model"
)

// UserService is the administrative account directory.
type UserService struct {
	users   UserStore
	refresh RefreshTokenStore
	log     zerolog.Logger
	now     func() time.Time
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	CPF      string
	Role     model.Role
}

type UpdateUserInput struct {
	Name     *string
	Role     *model.Role
	IsActive *bool
}

func NewUserService(users UserStore, refresh RefreshTokenStore, log zerolog.Logger) *UserService {
	return &UserService{
		users:   users,
		refresh: refresh,
		log:     log.With().Str("component", "users").Logger(),
		now:     time.Now,
	}
}

func (s *UserService) List(ctx context.Context, filter model.UserFilter) ([]model.User, int64, error) {
	return s.users.List(ctx, filter)
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	if _, ok := model.ParseRole(string(input.Role)); !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, input.Role)
	}
	user, err := prepareUser(ctx, s.users, input.Name, input.Email, input.Password, input.CPF, input.Role)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, actor model.Principal, id uuid.UUID, input UpdateUserInput) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		user.Name = name
	}
	if input.Role != nil {
		role, ok := model.ParseRole(string(*input.Role))
		if !ok {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *input.Role)
		}
		if id == actor.UserID && role != user.Role {
			return nil, fmt.Errorf("%w: cannot change your own role", ErrPermissionDenied)
		}
		user.Role = role
	}
	deactivated := false
	if input.IsActive != nil {
		if id == actor.UserID && !*input.IsActive {
			return nil, fmt.Errorf("%w: cannot deactivate yourself", ErrPermissionDenied)
		}
		deactivated = user.IsActive && !*input.IsActive
		user.IsActive = *input.IsActive
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, translate(err)
	}
	if deactivated {
		s.revokeSessions(ctx, id)
	}
	return user, nil
}

// SetActive enables or disables an account. Disabled accounts lose their
// refresh tokens immediately.
func (s *UserService) SetActive(ctx context.Context, actor model.Principal, id uuid.UUID, active bool) (*model.User, error) {
	return s.Update(ctx, actor, id, UpdateUserInput{IsActive: &active})
}

func (s *UserService) Delete(ctx context.Context, actor model.Principal, id uuid.UUID) error {
	if id == actor.UserID {
		return fmt.Errorf("%w: cannot delete yourself", ErrPermissionDenied)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return translate(err)
	}
	s.revokeSessions(ctx, id)
	return nil
}

func (s *UserService) revokeSessions(ctx context.Context, id uuid.UUID) {
	if err := s.refresh.RevokeAll(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("user_id", id.String()).Msg("revoke refresh tokens failed")
	}
}
