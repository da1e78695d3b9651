package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/licitabrasil/licita-api/internal/auth"
	"github.com/licitabrasil/licita-api/internal/model"
	"github.com/licitabrasil/licita-api/internal/taxid"
)

const minPasswordLength = 8

type AuthService struct {
	users         UserStore
	refresh       RefreshTokenStore
	tokens        AccessTokenIssuer
	notifications *NotificationService
	refreshTTL    time.Duration
	log           zerolog.Logger
	now           func() time.Time
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	CPF      string
	Role     model.Role
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type Session struct {
	User   model.User
	Tokens TokenPair
}

func NewAuthService(
	users UserStore,
	refresh RefreshTokenStore,
	tokens AccessTokenIssuer,
	notifications *NotificationService,
	refreshTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:         users,
		refresh:       refresh,
		tokens:        tokens,
		notifications: notifications,
		refreshTTL:    refreshTTL,
		log:           log.With().Str("component", "auth").Logger(),
		now:           time.Now,
	}
}

// Register creates a self-service account. Only suppliers and citizens may
// sign up on their own; other roles are provisioned by administrators.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if input.Role != model.RoleSupplier && input.Role != model.RoleCitizen {
		return nil, fmt.Errorf("%w: role must be SUPPLIER or CITIZEN", ErrInvalidInput)
	}
	if input.Role == model.RoleCitizen && strings.TrimSpace(input.CPF) == "" {
		return nil, fmt.Errorf("%w: cpf is required for citizens", ErrInvalidInput)
	}

	user, err := prepareUser(ctx, s.users, input.Name, input.Email, input.Password, input.CPF, input.Role)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, translate(err)
	}

	s.notifications.NotifyAdmins(ctx, "Novo cadastro", fmt.Sprintf("%s (%s) se cadastrou como %s", user.Name, user.Email, user.Role), datatypes.JSONMap{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", ErrUnauthorized)
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("update last login failed")
	}
	user.LastLoginAt = &now

	tokens, err := s.issue(ctx, *user)
	if err != nil {
		return nil, err
	}
	return &Session{User: *user, Tokens: *tokens}, nil
}

// Refresh consumes a refresh token and issues a new pair. Each refresh token
// is valid exactly once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrUnauthorized)
	}
	userID, err := s.refresh.Consume(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrRefreshTokenNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", ErrUnauthorized)
	}

	tokens, err := s.issue(ctx, *user)
	if err != nil {
		return nil, err
	}
	return &Session{User: *user, Tokens: *tokens}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	return s.refresh.Revoke(ctx, refreshToken)
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

// ChangePassword replaces the password and signs the user out everywhere.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return translate(err)
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		return fmt.Errorf("%w: current password does not match", ErrUnauthorized)
	}
	if len(next) < minPasswordLength {
		return fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return translate(err)
	}
	if err := s.refresh.RevokeAll(ctx, userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("revoke refresh tokens failed")
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, user model.User) (*TokenPair, error) {
	access, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.refresh.Save(ctx, refresh, user.ID, s.refreshTTL); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.TTL().Seconds()),
	}, nil
}

// prepareUser validates account fields shared by sign-up and admin creation.
func prepareUser(ctx context.Context, users UserStore, name, email, password, cpf string, role model.Role) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	var cpfValue *string
	if strings.TrimSpace(cpf) != "" {
		if !taxid.ValidCPF(cpf) {
			return nil, fmt.Errorf("%w: invalid cpf", ErrInvalidInput)
		}
		digits := taxid.Digits(cpf)
		exists, err := users.CPFExists(ctx, digits)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: cpf already registered", ErrConflict)
		}
		cpfValue = &digits
	}

	exists, err := users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &model.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		CPF:          cpfValue,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
