package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/theatro/theatro/internal/domain/common/errorz"
	"github.com/theatro/theatro/internal/domain/dto"
	"github.com/theatro/theatro/internal/domain/entity"
	"github.com/theatro/theatro/pkg/logger/types"
	"golang.org/x/sync/errgroup"
)

type ApplicationStorage interface {
	Create(ctx context.Context, application *entity.Application) (*entity.Application, error)
	Upsert(ctx context.Context, application *entity.Application) (*entity.Application, error)
	Get(ctx context.Context, id string) (*entity.Application, error)
	GetByKey(ctx context.Context, key string) (*entity.Application, error)
	Transition(ctx context.Context, id string, expectedVersion int, t entity.Transition) (*entity.Application, error)
	List(ctx context.Context, filter dto.ApplicationFilter) ([]entity.Application, error)
}

type ledgerEventStorage interface {
	Get(ctx context.Context, id string) (*entity.Event, error)
}

type ledgerRoleStorage interface {
	Get(ctx context.Context, id string) (*entity.Role, error)
}

type ledgerMemberStorage interface {
	Get(ctx context.Context, id string) (*entity.Member, error)
}

const (
	// maxTransitionAttempts bounds the re-reads when a pending application
	// keeps changing (workshop resubmissions) while being processed.
	maxTransitionAttempts = 3
	cascadeConcurrency    = 4
)

// LedgerService is the only writer of application state.
type LedgerService struct {
	logger *types.Logger

	storage       ApplicationStorage
	eventStorage  ledgerEventStorage
	roleStorage   ledgerRoleStorage
	memberStorage ledgerMemberStorage

	now   func() time.Time
	newID func() string
}

func NewLedgerService(
	logger *types.Logger,
	storage ApplicationStorage,
	eventStorage ledgerEventStorage,
	roleStorage ledgerRoleStorage,
	memberStorage ledgerMemberStorage,
) *LedgerService {
	return &LedgerService{
		logger: logger,

		storage:       storage,
		eventStorage:  eventStorage,
		roleStorage:   roleStorage,
		memberStorage: memberStorage,

		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *LedgerService) event(ctx context.Context, id string, kind entity.EventKind) (*entity.Event, error) {
	event, err := s.eventStorage.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, errorz.ErrEventNotFound, id)
	}
	if event.Kind != kind {
		return nil, fmt.Errorf("%w: %s is not a %s", errorz.ErrEventNotFound, id, kind)
	}
	return event, nil
}

func (s *LedgerService) member(ctx context.Context, id string) (*entity.Member, error) {
	member, err := s.memberStorage.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, errorz.ErrMemberNotFound, id)
	}
	return member, nil
}

// SubmitShowApplication applies memberID to every role of roleIDs on the show.
// Each role is handled independently: the result lists the created
// applications, the roles already applied to (with their current status) and
// the roles that failed.
func (s *LedgerService) SubmitShowApplication(ctx context.Context, showID, memberID string, roleIDs []string) (*dto.ShowApplicationResult, error) {
	roleIDs = uniqueNonEmpty(roleIDs)
	if len(roleIDs) == 0 {
		return nil, errorz.ErrNoRoles
	}

	show, err := s.event(ctx, showID, entity.EventKindShow)
	if err != nil {
		return nil, err
	}
	member, err := s.member(ctx, memberID)
	if err != nil {
		return nil, err
	}

	result := &dto.ShowApplicationResult{Show: show, Member: member}
	for _, roleID := range roleIDs {
		role, errRole := s.roleStorage.Get(ctx, roleID)
		if errRole != nil {
			result.Errors = append(result.Errors, dto.RoleError{RoleID: roleID, Err: notFound(errRole, errorz.ErrRoleNotFound, roleID)})
			continue
		}
		if !show.OffersRole(role.ID) {
			result.Errors = append(result.Errors, dto.RoleError{RoleID: roleID, RoleName: role.Name, Err: errorz.ErrRoleNotOffered})
			continue
		}

		id := role.ID
		application := &entity.Application{
			ID:          s.newID(),
			Kind:        entity.ApplicationKindShow,
			EventID:     show.ID,
			MemberID:    member.ID,
			RoleID:      &id,
			Status:      entity.StatusPending,
			SubmittedAt: s.now(),
			Version:     1,
		}

		created, errCreate := s.storage.Create(ctx, application)
		switch {
		case errors.Is(errCreate, errorz.ErrUniqueViolation):
			existing, errGet := s.storage.GetByKey(ctx, application.NaturalKey())
			if errGet != nil {
				result.Errors = append(result.Errors, dto.RoleError{RoleID: roleID, RoleName: role.Name, Err: errGet})
				continue
			}
			result.Skipped = append(result.Skipped, dto.SkippedApplication{
				RoleID:        roleID,
				RoleName:      role.Name,
				ApplicationID: existing.ID,
				Status:        existing.Status,
			})
		case errCreate != nil:
			result.Errors = append(result.Errors, dto.RoleError{RoleID: roleID, RoleName: role.Name, Err: errCreate})
		default:
			result.Created = append(result.Created, dto.CreatedApplication{Application: *created, RoleName: role.Name})
		}
	}

	s.logger.Infof(
		"Show application submitted (show_id=%s, member_id=%s, created=%d, skipped=%d, errors=%d)",
		show.ID, member.ID, len(result.Created), len(result.Skipped), len(result.Errors),
	)
	return result, nil
}

// SubmitWorkshopResponse records the member's availability for a workshop.
// A previous response is overwritten in place and goes back to pending.
func (s *LedgerService) SubmitWorkshopResponse(ctx context.Context, workshopID, memberID string, availability entity.Availability) (*dto.WorkshopResponseResult, error) {
	if !availability.Valid() {
		return nil, errorz.ErrInvalidAvailability
	}

	workshop, err := s.event(ctx, workshopID, entity.EventKindWorkshop)
	if err != nil {
		return nil, err
	}
	member, err := s.member(ctx, memberID)
	if err != nil {
		return nil, err
	}

	application := &entity.Application{
		ID:           s.newID(),
		Kind:         entity.ApplicationKindWorkshop,
		EventID:      workshop.ID,
		MemberID:     member.ID,
		Availability: availability,
		Status:       entity.StatusPending,
		SubmittedAt:  s.now(),
		Version:      1,
	}
	stored, err := s.storage.Upsert(ctx, application)
	if err != nil {
		return nil, err
	}

	result := &dto.WorkshopResponseResult{
		Workshop:    workshop,
		Member:      member,
		Application: *stored,
		Reopened:    stored.ID != application.ID,
	}
	s.logger.Infof(
		"Workshop response recorded (workshop_id=%s, member_id=%s, availability=%s, reopened=%t)",
		workshop.ID, member.ID, availability, result.Reopened,
	)
	return result, nil
}

func checkProcessable(application *entity.Application, decision entity.Status) error {
	if !application.IsPending() {
		return &errorz.AlreadyProcessedError{ApplicationID: application.ID, CurrentStatus: application.Status}
	}
	if decision == entity.StatusAccepted && application.IsWorkshop() && application.Availability == entity.Unavailable {
		return errorz.ErrCannotAcceptUnavailable
	}
	return nil
}

// ProcessApplication accepts or refuses a pending application on behalf of a
// manager or administrator. Accepting a
// show application refuses the member's other pending applications on the
// same show; failures of that cascade are reported in the result and never
// undo the acceptance.
func (s *LedgerService) ProcessApplication(ctx context.Context, applicationID, managerID string, decision entity.Status, notes string) (*dto.ProcessResult, error) {
	if !decision.IsDecision() {
		return nil, errorz.ErrInvalidDecision
	}
	manager, err := s.member(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if !manager.Role.CanProcess() {
		return nil, fmt.Errorf("%w: %s is a %s", errorz.ErrNotManager, manager.ID, manager.Role)
	}

	now := s.now()
	transition := entity.Transition{
		Status:      decision,
		ProcessedAt: now,
		ProcessedBy: manager.ID,
		Notes:       notes,
	}

	var processed *entity.Application
	for attempt := 1; ; attempt++ {
		application, err := s.storage.Get(ctx, applicationID)
		if err != nil {
			return nil, notFound(err, errorz.ErrApplicationNotFound, applicationID)
		}
		if err = checkProcessable(application, decision); err != nil {
			return nil, err
		}

		current, err := s.storage.Transition(ctx, application.ID, application.Version, transition)
		if err == nil {
			processed = current
			break
		}
		if !errors.Is(err, errorz.ErrStaleRecord) {
			return nil, err
		}
		if current != nil && !current.IsPending() {
			return nil, &errorz.AlreadyProcessedError{ApplicationID: current.ID, CurrentStatus: current.Status}
		}
		if attempt >= maxTransitionAttempts {
			return nil, errorz.ErrConcurrentModification
		}
		s.logger.Debugf("Application changed while processing, retrying (application_id=%s, attempt=%d)", applicationID, attempt)
	}

	result := &dto.ProcessResult{Application: *processed}
	if processed.IsShow() && decision == entity.StatusAccepted {
		result.AutoRefused, result.CascadeErrors = s.cascade(ctx, processed, manager.ID, now)
	}

	s.logger.Infof(
		"Application processed (application_id=%s, status=%s, manager_id=%s, auto_refused=%d, cascade_errors=%d)",
		processed.ID, processed.Status, manager.ID, len(result.AutoRefused), len(result.CascadeErrors),
	)
	return result, nil
}

// cascade refuses every other pending show application of the same member on
// the same show. Each refusal is an independent compare-and-swap: a sibling
// processed concurrently by someone else is left alone.
func (s *LedgerService) cascade(ctx context.Context, accepted *entity.Application, managerID string, at time.Time) ([]entity.Application, []dto.CascadeError) {
	siblings, err := s.storage.List(ctx, dto.ApplicationFilter{
		EventID:   accepted.EventID,
		MemberID:  accepted.MemberID,
		Kind:      entity.ApplicationKindShow,
		Status:    entity.StatusPending,
		ExcludeID: accepted.ID,
	})
	if err != nil {
		s.logger.Errorf("failed to list applications to auto-refuse (application_id=%s): %v", accepted.ID, err)
		return nil, []dto.CascadeError{{Err: err}}
	}

	var (
		mu       sync.Mutex
		refused  []entity.Application
		failures []dto.CascadeError
	)
	g := new(errgroup.Group)
	g.SetLimit(cascadeConcurrency)
	for _, sibling := range siblings {
		g.Go(func() error {
			updated, errTransition := s.storage.Transition(ctx, sibling.ID, sibling.Version, entity.Transition{
				Status:      entity.StatusRefused,
				ProcessedAt: at,
				ProcessedBy: managerID,
				Notes:       entity.AutoRefusalNote,
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errTransition == nil:
				refused = append(refused, *updated)
			case errors.Is(errTransition, errorz.ErrStaleRecord):
				s.logger.Debugf("Skipping auto-refusal of an application processed concurrently (application_id=%s)", sibling.ID)
			default:
				s.logger.Errorf("failed to auto-refuse application %s: %v", sibling.ID, errTransition)
				failures = append(failures, dto.CascadeError{ApplicationID: sibling.ID, Err: errTransition})
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(refused, func(i, j int) bool {
		return refused[i].SubmittedAt.After(refused[j].SubmittedAt)
	})
	return refused, failures
}

// Get returns a single application.
func (s *LedgerService) Get(ctx context.Context, id string) (*entity.Application, error) {
	application, err := s.storage.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, errorz.ErrApplicationNotFound, id)
	}
	return application, nil
}

func validateFilter(filter dto.ApplicationFilter) error {
	if filter.Status != "" && !filter.Status.Valid() {
		return errorz.ErrInvalidStatus
	}
	if filter.Availability != "" && !filter.Availability.Valid() {
		return errorz.ErrInvalidAvailability
	}
	switch filter.Kind {
	case "", entity.ApplicationKindShow, entity.ApplicationKindWorkshop:
	default:
		return errorz.ErrInvalidEventKind
	}
	return nil
}

// ListApplications returns the applications matching filter, latest
// submission first. Every iteration queries the storage again, so ranging
// twice yields two independent snapshots.
func (s *LedgerService) ListApplications(ctx context.Context, filter dto.ApplicationFilter) (iter.Seq2[entity.Application, error], error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return func(yield func(entity.Application, error) bool) {
		applications, err := s.storage.List(ctx, filter)
		if err != nil {
			yield(entity.Application{}, err)
			return
		}
		for _, application := range applications {
			if !yield(application, nil) {
				return
			}
		}
	}, nil
}

// Collect drains an application sequence, stopping at the first error.
func Collect(seq iter.Seq2[entity.Application, error]) ([]entity.Application, error) {
	var applications []entity.Application
	for application, err := range seq {
		if err != nil {
			return nil, err
		}
		applications = append(applications, application)
	}
	return applications, nil
}
