package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/licitabrasil/licita-api/internal/model"
)

const (
	SettingPlatformName    = "platform_name"
	SettingSupportEmail    = "support_email"
	SettingMaintenanceMode = "maintenance_mode"
	SettingProposalMinDays = "proposal_min_days"
	SettingMaxUploadMB     = "max_upload_mb"
)

var settingValidators = map[string]func(string) (string, error){
	SettingPlatformName: func(v string) (string, error) {
		v = strings.TrimSpace(v)
		if v == "" {
			return "", errors.New("must not be empty")
		}
		return v, nil
	},
	SettingSupportEmail: func(v string) (string, error) {
		v = strings.ToLower(strings.TrimSpace(v))
		if _, err := mail.ParseAddress(v); err != nil {
			return "", errors.New("must be an email address")
		}
		return v, nil
	},
	SettingMaintenanceMode: func(v string) (string, error) {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return "", errors.New("must be true or false")
		}
		return strconv.FormatBool(b), nil
	},
	SettingProposalMinDays: func(v string) (string, error) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return "", errors.New("must be a non-negative integer")
		}
		return strconv.Itoa(n), nil
	},
	SettingMaxUploadMB: func(v string) (string, error) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			return "", errors.New("must be a positive integer")
		}
		return strconv.Itoa(n), nil
	},
}

type SettingsService struct {
	store SettingStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewSettingsService(store SettingStore, log zerolog.Logger) *SettingsService {
	return &SettingsService{
		store: store,
		log:   log.With().Str("component", "settings").Logger(),
		now:   time.Now,
	}
}

func (s *SettingsService) List(ctx context.Context) ([]model.Setting, error) {
	return s.store.List(ctx)
}

func (s *SettingsService) Get(ctx context.Context, key string) (*model.Setting, error) {
	setting, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, translate(err)
	}
	return setting, nil
}

func (s *SettingsService) Update(ctx context.Context, principal model.Principal, key, value string) (*model.Setting, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	validator, ok := settingValidators[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown setting %q", ErrInvalidInput, key)
	}
	normalized, err := validator(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrInvalidInput, key, err.Error())
	}

	setting := &model.Setting{Key: key}
	if existing, err := s.store.Get(ctx, key); err == nil {
		setting = existing
	}
	updatedBy := principal.UserID
	setting.Value = normalized
	setting.UpdatedBy = &updatedBy
	setting.UpdatedAt = s.now().UTC()

	if err := s.store.Upsert(ctx, setting); err != nil {
		return nil, translate(err)
	}
	return setting, nil
}

// MaintenanceMode reports whether proposal intake is paused. Lookup failures
// are treated as "off".
func (s *SettingsService) MaintenanceMode(ctx context.Context) bool {
	value, ok := s.lookup(ctx, SettingMaintenanceMode)
	if !ok {
		return false
	}
	enabled, _ := strconv.ParseBool(value)
	return enabled
}

// Int returns the integer value of key or fallback when it is missing or malformed.
func (s *SettingsService) Int(ctx context.Context, key string, fallback int) int {
	value, ok := s.lookup(ctx, key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		s.log.Warn().Str("key", key).Str("value", value).Msg("malformed integer setting")
		return fallback
	}
	return n
}

func (s *SettingsService) lookup(ctx context.Context, key string) (string, bool) {
	if s == nil || s.store == nil {
		return "", false
	}
	setting, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(translate(err), ErrNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("setting lookup failed")
		}
		return "", false
	}
	return setting.Value, true
}
