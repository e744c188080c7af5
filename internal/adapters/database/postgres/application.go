package postgres

import (
	"context"
	"time"

	"github.com/theatro/theatro/internal/domain/common/errorz"
	"github.com/theatro/theatro/internal/domain/dto"
	"github.com/theatro/theatro/internal/domain/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationStorage struct {
	db *gorm.DB
}

func NewApplicationStorage(db *gorm.DB) *ApplicationStorage {
	return &ApplicationStorage{
		db: db,
	}
}

// Create inserts a new application. An existing application with the same
// natural key is reported as errorz.ErrUniqueViolation by the unique index,
// there is no prior existence check.
func (s *ApplicationStorage) Create(ctx context.Context, application *entity.Application) (*entity.Application, error) {
	application.UniqueKey = application.NaturalKey()
	err := s.db.WithContext(ctx).Create(application).Error
	return application, translate("create application", err)
}

// Upsert inserts a workshop response, or overwrites the existing one in place:
// availability and submission time are replaced, status goes back to pending
// and the processing fields are cleared. The stored row is returned.
func (s *ApplicationStorage) Upsert(ctx context.Context, application *entity.Application) (*entity.Application, error) {
	application.UniqueKey = application.NaturalKey()

	var stored entity.Application
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "unique_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"availability": application.Availability,
				"submitted_at": application.SubmittedAt,
				"status":       entity.StatusPending,
				"processed_at": nil,
				"processed_by": nil,
				"notes":        "",
				"version":      gorm.Expr("applications.version + 1"),
				"updated_at":   time.Now(),
			}),
		}).Create(application).Error
		if err != nil {
			return err
		}
		return tx.Where("unique_key = ?", application.UniqueKey).First(&stored).Error
	})
	if err != nil {
		return nil, translate("upsert application", err)
	}
	return &stored, nil
}

// Get is a function that gets an application from the database by id.
func (s *ApplicationStorage) Get(ctx context.Context, id string) (*entity.Application, error) {
	if !validID(id) {
		return nil, errorz.ErrNoRecord
	}
	var application entity.Application
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&application).Error
	if err != nil {
		return nil, translate("get application", err)
	}
	return &application, nil
}

// GetByKey gets an application by its natural key.
func (s *ApplicationStorage) GetByKey(ctx context.Context, key string) (*entity.Application, error) {
	var application entity.Application
	err := s.db.WithContext(ctx).Where("unique_key = ?", key).First(&application).Error
	if err != nil {
		return nil, translate("get application by key", err)
	}
	return &application, nil
}

// Transition moves a pending application to its processed state. The update
// only applies while the row is still pending at expectedVersion; otherwise
// the current row is returned with errorz.ErrStaleRecord. On success the row
// written by the update itself is returned.
func (s *ApplicationStorage) Transition(ctx context.Context, id string, expectedVersion int, t entity.Transition) (*entity.Application, error) {
	if !validID(id) {
		return nil, errorz.ErrNoRecord
	}

	updates := map[string]interface{}{
		"status":       t.Status,
		"processed_at": t.ProcessedAt,
		"processed_by": t.ProcessedBy,
		"version":      gorm.Expr("version + 1"),
	}
	if t.Notes != "" {
		updates["notes"] = t.Notes
	}

	var updated entity.Application
	res := s.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ? AND status = ? AND version = ?", id, entity.StatusPending, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return nil, translate("transition application", res.Error)
	}

	if res.RowsAffected == 0 {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return current, errorz.ErrStaleRecord
	}
	return &updated, nil
}

// List returns the applications matching filter, latest submission first.
// A malformed event or member id matches nothing.
func (s *ApplicationStorage) List(ctx context.Context, filter dto.ApplicationFilter) ([]entity.Application, error) {
	if (filter.EventID != "" && !validID(filter.EventID)) || (filter.MemberID != "" && !validID(filter.MemberID)) {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&entity.Application{})
	if filter.EventID != "" {
		query = query.Where("event_id = ?", filter.EventID)
	}
	if filter.MemberID != "" {
		query = query.Where("member_id = ?", filter.MemberID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Availability != "" {
		query = query.Where("availability = ?", filter.Availability)
	}
	if filter.ExcludeID != "" {
		query = query.Where("id <> ?", filter.ExcludeID)
	}

	var applications []entity.Application
	err := query.Order("submitted_at DESC, id").Find(&applications).Error
	return applications, translate("list applications", err)
}
