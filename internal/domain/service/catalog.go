package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/theatro/theatro/internal/domain/common/errorz"
	"github.com/theatro/theatro/internal/domain/dto"
	"github.com/theatro/theatro/internal/domain/entity"
	"github.com/theatro/theatro/internal/domain/utils/validator"
	"github.com/theatro/theatro/pkg/logger/types"
)

type EventStorage interface {
	Create(ctx context.Context, event *entity.Event) (*entity.Event, error)
	Get(ctx context.Context, id string) (*entity.Event, error)
	List(ctx context.Context, kind entity.EventKind) ([]entity.Event, error)
	GetMany(ctx context.Context, ids []string) ([]entity.Event, error)
	MarkFollowUpSent(ctx context.Context, id string) (bool, error)
}

type RoleStorage interface {
	Get(ctx context.Context, id string) (*entity.Role, error)
	FindOrCreateByName(ctx context.Context, name string) (*entity.Role, error)
	GetMany(ctx context.Context, ids []string) ([]entity.Role, error)
}

type CatalogService struct {
	logger       *types.Logger
	eventStorage EventStorage
	roleStorage  RoleStorage
}

func NewCatalogService(logger *types.Logger, eventStorage EventStorage, roleStorage RoleStorage) *CatalogService {
	return &CatalogService{
		logger:       logger,
		eventStorage: eventStorage,
		roleStorage:  roleStorage,
	}
}

// Create validates and persists a new event. Role names of a show are
// resolved exactly (case-sensitive), unknown names create new roles.
func (s *CatalogService) Create(ctx context.Context, attrs dto.CreateEvent) (*entity.Event, error) {
	if err := validator.Event(attrs); err != nil {
		return nil, err
	}

	event := &entity.Event{
		ID:        uuid.NewString(),
		Kind:      attrs.Kind,
		Name:      strings.TrimSpace(attrs.Name),
		StartTime: attrs.StartTime,
		EndTime:   attrs.EndTime,
		Location:  strings.TrimSpace(attrs.Location),
		Capacity:  attrs.Capacity,
	}
	if event.IsShow() {
		for _, name := range uniqueNonEmpty(attrs.Roles) {
			role, err := s.roleStorage.FindOrCreateByName(ctx, name)
			if err != nil {
				return nil, err
			}
			event.Roles = append(event.Roles, *role)
		}
	}

	created, err := s.eventStorage.Create(ctx, event)
	if err != nil {
		return nil, err
	}
	s.logger.Infof("Event created (event_id=%s, kind=%s, roles=%d)", created.ID, created.Kind, len(created.Roles))
	return created, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*entity.Event, error) {
	event, err := s.eventStorage.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, errorz.ErrEventNotFound, id)
	}
	return event, nil
}

// List returns the events of kind ordered by start time; an empty kind lists all.
func (s *CatalogService) List(ctx context.Context, kind string) ([]entity.Event, error) {
	var eventKind entity.EventKind
	if kind != "" {
		var ok bool
		if eventKind, ok = entity.ParseEventKind(kind); !ok {
			return nil, errorz.ErrInvalidEventKind
		}
	}
	return s.eventStorage.List(ctx, eventKind)
}

func (s *CatalogService) GetMany(ctx context.Context, ids []string) ([]entity.Event, error) {
	return s.eventStorage.GetMany(ctx, uniqueNonEmpty(ids))
}

// Roles returns the roles of ids; unknown ids are left out.
func (s *CatalogService) Roles(ctx context.Context, ids []string) ([]entity.Role, error) {
	return s.roleStorage.GetMany(ctx, uniqueNonEmpty(ids))
}

// MarkFollowUpSent sets hasFollowUp. It reports false when the flag was already set.
func (s *CatalogService) MarkFollowUpSent(ctx context.Context, id string) (bool, error) {
	return s.eventStorage.MarkFollowUpSent(ctx, id)
}
