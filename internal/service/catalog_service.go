package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/municipal-it/helpdesk/internal/domain"
	"github.com/municipal-it/helpdesk/internal/events"
	"github.com/municipal-it/helpdesk/internal/repository"
	apperrors "github.com/municipal-it/helpdesk/pkg/util"
)

const (
	catalogStatuses     = "statuses"
	catalogProblemTypes = "problem_types"
)

// CatalogService owns the status and problem type reference data.
type CatalogService struct {
	statuses     repository.StatusRepository
	problemTypes repository.ProblemTypeRepository
	settings     repository.SettingsRepository
	events       publisher
	logger       *zap.Logger
}

// CatalogDependencies bundles collaborators for the catalog service.
type CatalogDependencies struct {
	StatusRepo      repository.StatusRepository
	ProblemTypeRepo repository.ProblemTypeRepository
	SettingsRepo    repository.SettingsRepository
	Dispatcher      events.Dispatcher
	Clock           Clock
	Logger          *zap.Logger
}

// NewCatalogService builds the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	logger := orNop(deps.Logger)
	return &CatalogService{
		statuses:     deps.StatusRepo,
		problemTypes: deps.ProblemTypeRepo,
		settings:     deps.SettingsRepo,
		events:       publisher{dispatcher: deps.Dispatcher, clock: orSystem(deps.Clock), logger: logger},
		logger:       logger,
	}
}

// InitialStatus returns the status new and reopened tickets enter. If several
// exist the first by name wins and a warning is logged.
func (s *CatalogService) InitialStatus(ctx context.Context) (domain.Status, error) {
	initial, err := s.statuses.ListByKind(ctx, domain.KindsWhere(func(f domain.StatusFlags) bool { return f.Initial })...)
	if err != nil {
		return domain.Status{}, err
	}
	if len(initial) == 0 {
		return domain.Status{}, apperrors.NewConfigurationError(apperrors.CodeNoInitialStatus, "no initial status configured")
	}
	if len(initial) > 1 {
		s.logger.Warn("several initial statuses configured", zap.Int("count", len(initial)), zap.String("using", initial[0].ID))
	}
	return initial[0], nil
}

// ListStatuses returns every status ordered by name.
func (s *CatalogService) ListStatuses(ctx context.Context) ([]domain.Status, error) {
	return s.statuses.List(ctx)
}

// ListProblemTypes returns every problem type ordered by name.
func (s *CatalogService) ListProblemTypes(ctx context.Context) ([]domain.ProblemType, error) {
	return s.problemTypes.List(ctx)
}

// AddStatus creates a status. An empty kind defaults to AWAITING.
func (s *CatalogService) AddStatus(ctx context.Context, caller domain.Caller, name string, kind domain.StatusKind) (*domain.Status, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	status := &domain.Status{Name: strings.TrimSpace(name), Kind: kind}
	if status.Kind == "" {
		status.Kind = domain.StatusKindAwaiting
	}
	if err := validateStatus(*status); err != nil {
		return nil, err
	}

	if status.IsInitial() {
		existing, err := s.statuses.ListByKind(ctx, status.Kind)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return nil, errSecondInitial(existing[0].Name)
		}
	}

	if err := s.statuses.Create(ctx, status); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewIntegrityError("status", status.Name)
		}
		return nil, err
	}
	s.catalogChanged(ctx, caller, catalogStatuses, "add")
	return status, nil
}

// UpdateStatuses renames and re-kinds statuses in one batch. After the batch
// at most one status may be initial, and statuses referenced by settings must
// stay eligible for their role. A status tickets sit in can only be renamed.
func (s *CatalogService) UpdateStatuses(ctx context.Context, caller domain.Caller, changes []domain.Status) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	current, err := s.statuses.List(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]domain.Status, len(current))
	for _, st := range current {
		byID[st.ID] = st
	}
	for i := range changes {
		changes[i].Name = strings.TrimSpace(changes[i].Name)
		if err := validateStatus(changes[i]); err != nil {
			return err
		}
		before, ok := byID[changes[i].ID]
		if !ok {
			return apperrors.NewNotFound("status", map[string]any{"id": changes[i].ID})
		}
		if before.Kind != changes[i].Kind {
			if err := s.requireUnused(ctx, before); err != nil {
				return err
			}
		}
		byID[changes[i].ID] = changes[i]
	}

	var initialNames []string
	for _, st := range byID {
		if st.IsInitial() {
			initialNames = append(initialNames, st.Name)
		}
	}
	if len(initialNames) > 1 {
		return apperrors.NewValidationError("only one status may be initial",
			map[string]any{"initial": initialNames})
	}

	raw, err := s.settings.All(ctx)
	if err != nil {
		return err
	}
	if id := raw[domain.SettingCapturedStatusID]; id != "" {
		if st, ok := byID[id]; ok && !isCapturedCandidate(st) {
			return errSettingRole(st.Name, domain.SettingCapturedStatusID)
		}
	}
	if id := raw[domain.SettingExpiredStatusID]; id != "" {
		if st, ok := byID[id]; ok && !isExpiredCandidate(st) {
			return errSettingRole(st.Name, domain.SettingExpiredStatusID)
		}
	}

	if err := s.statuses.UpdateAll(ctx, changes); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperrors.NewIntegrityError("status", duplicateName(changes, current, statusKey))
		}
		return notFound(err, "status", "")
	}
	s.catalogChanged(ctx, caller, catalogStatuses, "update")
	return nil
}

// requireUnused rejects re-kinding a status that tickets sit in: their handler
// and resolvedAt were set for the old kind.
func (s *CatalogService) requireUnused(ctx context.Context, st domain.Status) error {
	count, err := s.statuses.CountTickets(ctx, st.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewStateConflict(apperrors.CodeInUse,
			fmt.Sprintf("status %q is used by %d tickets; only its name can change", st.Name, count),
			map[string]any{"id": st.ID, "tickets": count})
	}
	return nil
}

// DeleteStatus removes a status that no ticket or setting references.
func (s *CatalogService) DeleteStatus(ctx context.Context, caller domain.Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	status, err := s.statuses.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "status", id)
	}

	raw, err := s.settings.All(ctx)
	if err != nil {
		return err
	}
	for _, key := range []string{domain.SettingCapturedStatusID, domain.SettingExpiredStatusID} {
		if raw[key] == id {
			return apperrors.NewStateConflict(apperrors.CodeInUse,
				fmt.Sprintf("status %q is referenced by setting %s", status.Name, key),
				map[string]any{"id": id, "setting": key})
		}
	}

	count, err := s.statuses.CountTickets(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewStateConflict(apperrors.CodeInUse,
			fmt.Sprintf("status %q is used by %d tickets", status.Name, count),
			map[string]any{"id": id, "tickets": count})
	}

	if err := s.statuses.Delete(ctx, id); err != nil {
		return notFound(err, "status", id)
	}
	s.catalogChanged(ctx, caller, catalogStatuses, "delete")
	return nil
}

// AddProblemType creates a problem type.
func (s *CatalogService) AddProblemType(ctx context.Context, caller domain.Caller, name string) (*domain.ProblemType, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	pt := &domain.ProblemType{Name: strings.TrimSpace(name)}
	if pt.Name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if err := s.problemTypes.Create(ctx, pt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewIntegrityError("problem type", pt.Name)
		}
		return nil, err
	}
	s.catalogChanged(ctx, caller, catalogProblemTypes, "add")
	return pt, nil
}

// RenameProblemTypes applies a batch of renames atomically.
func (s *CatalogService) RenameProblemTypes(ctx context.Context, caller domain.Caller, changes []domain.ProblemType) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}
	for i := range changes {
		changes[i].Name = strings.TrimSpace(changes[i].Name)
		if changes[i].Name == "" {
			return apperrors.NewValidationError("name is required", map[string]any{"id": changes[i].ID})
		}
	}
	if err := s.problemTypes.RenameAll(ctx, changes); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			current, _ := s.problemTypes.List(ctx)
			return apperrors.NewIntegrityError("problem type", duplicateName(changes, current, problemTypeKey))
		}
		return notFound(err, "problem type", "")
	}
	s.catalogChanged(ctx, caller, catalogProblemTypes, "update")
	return nil
}

// DeleteProblemType removes a problem type no ticket references.
func (s *CatalogService) DeleteProblemType(ctx context.Context, caller domain.Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	pt, err := s.problemTypes.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "problem type", id)
	}
	count, err := s.problemTypes.CountTickets(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewStateConflict(apperrors.CodeInUse,
			fmt.Sprintf("problem type %q is used by %d tickets", pt.Name, count),
			map[string]any{"id": id, "tickets": count})
	}
	if err := s.problemTypes.Delete(ctx, id); err != nil {
		return notFound(err, "problem type", id)
	}
	s.catalogChanged(ctx, caller, catalogProblemTypes, "delete")
	return nil
}

func (s *CatalogService) catalogChanged(ctx context.Context, caller domain.Caller, catalog, action string) {
	s.logger.Info("catalog changed", zap.String("catalog", catalog), zap.String("action", action), zap.String("user_id", caller.ID))
	s.events.publish(ctx, events.Event{
		Type:    events.EventCatalogChanged,
		Actor:   callerActor(caller),
		Payload: events.CatalogChangedPayload{Catalog: catalog, Action: action},
	})
}

func validateStatus(st domain.Status) error {
	if st.Name == "" {
		return apperrors.NewValidationError("name is required", map[string]any{"field": "name", "id": st.ID})
	}
	if !st.Kind.Valid() {
		return apperrors.NewValidationError("unknown status kind", map[string]any{"kind": st.Kind})
	}
	return nil
}

func errSecondInitial(existing string) error {
	return apperrors.NewValidationError("only one status may be initial",
		map[string]any{"initial": []string{existing}})
}

func errSettingRole(name, key string) error {
	return apperrors.NewValidationError(
		fmt.Sprintf("status %q is referenced by setting %s and must keep a compatible kind", name, key),
		map[string]any{"setting": key})
}

// duplicateName picks the name from a batch that collides with another entry
// once the batch is applied, so the integrity error can name it.
func duplicateName[T any](changes, current []T, key func(T) (string, string)) string {
	final := make(map[string]string, len(current))
	for _, c := range current {
		id, name := key(c)
		final[id] = name
	}
	for _, c := range changes {
		id, name := key(c)
		final[id] = name
	}
	counts := make(map[string]int, len(final))
	for _, name := range final {
		counts[name]++
	}
	for _, c := range changes {
		if _, name := key(c); counts[name] > 1 {
			return name
		}
	}
	if len(changes) > 0 {
		_, name := key(changes[0])
		return name
	}
	return ""
}

func statusKey(st domain.Status) (string, string) { return st.ID, st.Name }

func problemTypeKey(pt domain.ProblemType) (string, string) { return pt.ID, pt.Name }
