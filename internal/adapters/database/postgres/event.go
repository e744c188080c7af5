package postgres

import (
	"context"

	"github.com/theatro/theatro/internal/domain/common/errorz"
	"github.com/theatro/theatro/internal/domain/entity"
	"gorm.io/gorm"
)

type EventStorage struct {
	db *gorm.DB
}

func NewEventStorage(db *gorm.DB) *EventStorage {
	return &EventStorage{
		db: db,
	}
}

// Create is a function that creates a new event in the database together with
// its role associations.
func (s *EventStorage) Create(ctx context.Context, event *entity.Event) (*entity.Event, error) {
	err := s.db.WithContext(ctx).Omit("Roles.*").Create(event).Error
	return event, translate("create event", err)
}

// Get is a function that gets an event from the database by id, roles included.
func (s *EventStorage) Get(ctx context.Context, id string) (*entity.Event, error) {
	if !validID(id) {
		return nil, errorz.ErrNoRecord
	}
	var event entity.Event
	err := s.db.WithContext(ctx).Preload("Roles").Where("id = ?", id).First(&event).Error
	if err != nil {
		return nil, translate("get event", err)
	}
	return &event, nil
}

// List returns events ordered by start time. An empty kind lists every event.
func (s *EventStorage) List(ctx context.Context, kind entity.EventKind) ([]entity.Event, error) {
	var events []entity.Event
	query := s.db.WithContext(ctx).Preload("Roles").Order("start_time ASC")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Find(&events).Error
	return events, translate("list events", err)
}

func (s *EventStorage) GetMany(ctx context.Context, ids []string) ([]entity.Event, error) {
	var events []entity.Event
	if ids = validIDs(ids); len(ids) == 0 {
		return events, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&events).Error
	return events, translate("get events", err)
}

// MarkFollowUpSent sets has_follow_up on the event. It reports false when the
// flag was already set.
func (s *EventStorage) MarkFollowUpSent(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, errorz.ErrNoRecord
	}
	res := s.db.WithContext(ctx).
		Model(&entity.Event{}).
		Where("id = ? AND has_follow_up = ?", id, false).
		Update("has_follow_up", true)
	if res.Error != nil {
		return false, translate("mark follow-up", res.Error)
	}
	return res.RowsAffected == 1, nil
}
