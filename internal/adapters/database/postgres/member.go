package postgres

import (
	"context"

	"github.com/theatro/theatro/internal/domain/common/errorz"
	"github.com/theatro/theatro/internal/domain/entity"
	"gorm.io/gorm"
)

type MemberStorage struct {
	db *gorm.DB
}

func NewMemberStorage(db *gorm.DB) *MemberStorage {
	return &MemberStorage{
		db: db,
	}
}

// Create is a function that creates a new member in the database.
// A taken mail is reported as errorz.ErrUniqueViolation.
func (s *MemberStorage) Create(ctx context.Context, member *entity.Member) (*entity.Member, error) {
	err := s.db.WithContext(ctx).Create(member).Error
	return member, translate("create member", err)
}

// Get is a function that gets a member from the database by id.
func (s *MemberStorage) Get(ctx context.Context, id string) (*entity.Member, error) {
	if !validID(id) {
		return nil, errorz.ErrNoRecord
	}
	var member entity.Member
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&member).Error
	if err != nil {
		return nil, translate("get member", err)
	}
	return &member, nil
}

func (s *MemberStorage) GetByMail(ctx context.Context, mail string) (*entity.Member, error) {
	var member entity.Member
	err := s.db.WithContext(ctx).Where("mail = ?", mail).First(&member).Error
	if err != nil {
		return nil, translate("get member by mail", err)
	}
	return &member, nil
}

// ListByChannel returns the members who enabled the given communication channel.
func (s *MemberStorage) ListByChannel(ctx context.Context, channel entity.Channel) ([]entity.Member, error) {
	var members []entity.Member
	err := s.db.WithContext(ctx).
		Where("? = ANY(communication_channels)", string(channel)).
		Order("name, firstname").
		Find(&members).Error
	return members, translate("list members by channel", err)
}

func (s *MemberStorage) GetMany(ctx context.Context, ids []string) ([]entity.Member, error) {
	var members []entity.Member
	if ids = validIDs(ids); len(ids) == 0 {
		return members, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&members).Error
	return members, translate("get members", err)
}

func (s *MemberStorage) CountByRole(ctx context.Context, role entity.MemberRole) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&entity.Member{}).Where("role = ?", role).Count(&count).Error
	return count, translate("count members", err)
}

// SetPassword stores the password hash and clears the reset token, only if
// the token still matches.
func (s *MemberStorage) SetPassword(ctx context.Context, id, token, passwordHash string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&entity.Member{}).
		Where("id = ? AND reset_token = ? AND reset_token <> ''", id, token).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"reset_token":   "",
		})
	if res.Error != nil {
		return false, translate("set password", res.Error)
	}
	return res.RowsAffected == 1, nil
}
