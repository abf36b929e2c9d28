package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/events"
	"github.com/municipal-it/helpdesk/internal/repository"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

// SettingsService reads and writes the lifecycle policy.
type SettingsService struct {
	settings repository.SettingsRepository
	statuses repository.StatusRepository
	events   publisher
	logger   *zap.Logger
}

// SettingsDependencies bundles collaborators for the settings service.
type SettingsDependencies struct {
	SettingsRepo repository.SettingsRepository
	StatusRepo   repository.StatusRepository
	Dispatcher   events.Dispatcher
	Clock        Clock
	Logger       *zap.Logger
}

// SettingsInput is a batch of raw values submitted by an administrator. Empty
// status ids unset the corresponding key.
type SettingsInput struct {
	RedThresholdDays    string
	YellowThresholdDays string
	ReopenWindowDays    string
	CapturedStatusID    string
	ExpiredStatusID     string
}

// SettingsView is the settings page: current policy plus eligible statuses.
type SettingsView struct {
	Settings        domain.Settings
	CapturedOptions []domain.Status
	ExpiredOptions  []domain.Status
}

// NewSettingsService builds the service.
func NewSettingsService(deps SettingsDependencies) *SettingsService {
	logger := orNop(deps.Logger)
	return &SettingsService{
		settings: deps.SettingsRepo,
		statuses: deps.StatusRepo,
		events:   publisher{dispatcher: deps.Dispatcher, clock: orSystem(deps.Clock), logger: logger},
		logger:   logger,
	}
}

// Load returns the typed policy. A malformed stored value is replaced by its
// default and reported as a ConfigurationError alongside the usable settings.
func (s *SettingsService) Load(ctx context.Context) (domain.Settings, error) {
	raw, err := s.settings.All(ctx)
	if err != nil {
		return domain.DefaultSettings(), err
	}
	return parseSettings(raw)
}

// Get returns the policy for the settings page. Administrators only.
func (s *SettingsService) Get(ctx context.Context, caller domain.Caller) (*SettingsView, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	settings, err := s.Load(ctx)
	if err != nil && !apperrors.HasCode(err, apperrors.CodeMalformedSetting) {
		return nil, err
	}
	captured, err := s.statuses.ListByKind(ctx, capturedKinds()...)
	if err != nil {
		return nil, err
	}
	expired, err := s.statuses.ListByKind(ctx, expiredKinds()...)
	if err != nil {
		return nil, err
	}
	return &SettingsView{Settings: settings, CapturedOptions: captured, ExpiredOptions: expired}, nil
}

// Save validates the batch and persists it in one transaction.
func (s *SettingsService) Save(ctx context.Context, caller domain.Caller, input SettingsInput) (domain.Settings, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Settings{}, err
	}

	settings, err := s.validate(ctx, input)
	if err != nil {
		return domain.Settings{}, err
	}

	values := map[string]string{
		domain.SettingRedThresholdDays:    strconv.Itoa(settings.RedThresholdDays),
		domain.SettingYellowThresholdDays: strconv.Itoa(settings.YellowThresholdDays),
		domain.SettingReopenWindowDays:    strconv.Itoa(settings.ReopenWindowDays),
		domain.SettingCapturedStatusID:    deref(settings.CapturedStatusID),
		domain.SettingExpiredStatusID:     deref(settings.ExpiredStatusID),
	}
	if err := s.settings.SetAll(ctx, values); err != nil {
		return domain.Settings{}, err
	}

	s.logger.Info("settings saved",
		zap.String("user_id", caller.ID),
		zap.Int("red_days", settings.RedThresholdDays),
		zap.Int("yellow_days", settings.YellowThresholdDays),
		zap.Int("reopen_days", settings.ReopenWindowDays))
	s.events.publish(ctx, events.Event{Type: events.EventSettingsChanged, Actor: callerActor(caller)})
	return settings, nil
}

func (s *SettingsService) validate(ctx context.Context, input SettingsInput) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	invalid := map[string]any{}

	parse := func(key, value string, dst *int) {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			invalid[key] = "must be a non-negative whole number"
			return
		}
		*dst = n
	}
	parse(domain.SettingRedThresholdDays, input.RedThresholdDays, &settings.RedThresholdDays)
	parse(domain.SettingYellowThresholdDays, input.YellowThresholdDays, &settings.YellowThresholdDays)
	parse(domain.SettingReopenWindowDays, input.ReopenWindowDays, &settings.ReopenWindowDays)
	if len(invalid) > 0 {
		return settings, apperrors.NewValidationError("invalid settings", invalid)
	}
	if settings.RedThresholdDays <= settings.YellowThresholdDays {
		return settings, apperrors.NewValidationError("red threshold must be greater than yellow threshold",
			map[string]any{
				domain.SettingRedThresholdDays:    settings.RedThresholdDays,
				domain.SettingYellowThresholdDays: settings.YellowThresholdDays,
			})
	}

	var err error
	if settings.CapturedStatusID, err = s.checkStatus(ctx, domain.SettingCapturedStatusID, input.CapturedStatusID, isCapturedCandidate); err != nil {
		return settings, err
	}
	if settings.ExpiredStatusID, err = s.checkStatus(ctx, domain.SettingExpiredStatusID, input.ExpiredStatusID, isExpiredCandidate); err != nil {
		return settings, err
	}
	return settings, nil
}

func (s *SettingsService) checkStatus(ctx context.Context, key, id string, eligible func(domain.Status) bool) (*string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	status, err := s.statuses.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{key: id})
	}
	if err != nil {
		return nil, err
	}
	if !eligible(*status) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("status %q cannot be used for %s", status.Name, key),
			map[string]any{key: id})
	}
	return &status.ID, nil
}

func capturedKinds() []domain.StatusKind {
	return domain.KindsWhere(func(f domain.StatusFlags) bool { return f.InProgress })
}

func expiredKinds() []domain.StatusKind {
	return domain.KindsWhere(func(f domain.StatusFlags) bool { return f.Final && !f.AllowsReopen })
}

func isCapturedCandidate(s domain.Status) bool { return s.IsInProgress() }

func isExpiredCandidate(s domain.Status) bool { return s.IsFinal() && !s.AllowsReopen() }

// parseSettings converts stored strings into typed settings. Absent keys use
// defaults; malformed ones use defaults too and are reported.
func parseSettings(raw map[string]string) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	var malformed []string

	parseInt := func(key string, dst *int) {
		value, ok := raw[key]
		if !ok || strings.TrimSpace(value) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			malformed = append(malformed, key)
			return
		}
		*dst = n
	}
	parseInt(domain.SettingRedThresholdDays, &settings.RedThresholdDays)
	parseInt(domain.SettingYellowThresholdDays, &settings.YellowThresholdDays)
	parseInt(domain.SettingReopenWindowDays, &settings.ReopenWindowDays)

	if v := strings.TrimSpace(raw[domain.SettingCapturedStatusID]); v != "" {
		settings.CapturedStatusID = &v
	}
	if v := strings.TrimSpace(raw[domain.SettingExpiredStatusID]); v != "" {
		settings.ExpiredStatusID = &v
	}

	if len(malformed) > 0 {
		return settings, apperrors.NewConfigurationError(apperrors.CodeMalformedSetting,
			fmt.Sprintf("malformed settings: %s", strings.Join(malformed, ", ")))
	}
	return settings, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
