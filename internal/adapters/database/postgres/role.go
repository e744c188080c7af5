package postgres

import (
	"context"
	"errors"

	"github.com/theatro/theatro/internal/domain/common/errorz"
	"github.com/theatro/theatro/internal/domain/entity"
	"gorm.io/gorm"
)

type RoleStorage struct {
	db *gorm.DB
}

func NewRoleStorage(db *gorm.DB) *RoleStorage {
	return &RoleStorage{
		db: db,
	}
}

func (s *RoleStorage) Get(ctx context.Context, id string) (*entity.Role, error) {
	if !validID(id) {
		return nil, errorz.ErrNoRecord
	}
	var role entity.Role
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&role).Error
	if err != nil {
		return nil, translate("get role", err)
	}
	return &role, nil
}

// FindOrCreateByName resolves a role by its exact name, creating it on first
// reference. When two writers race on the same name the loser re-reads the
// winner's row.
func (s *RoleStorage) FindOrCreateByName(ctx context.Context, name string) (*entity.Role, error) {
	var role entity.Role
	err := s.db.WithContext(ctx).Where(entity.Role{Name: name}).FirstOrCreate(&role).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		role = entity.Role{}
		err = s.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	}
	if err != nil {
		return nil, translate("find or create role", err)
	}
	return &role, nil
}

func (s *RoleStorage) GetMany(ctx context.Context, ids []string) ([]entity.Role, error) {
	var roles []entity.Role
	if ids = validIDs(ids); len(ids) == 0 {
		return roles, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&roles).Error
	return roles, translate("get roles", err)
}
