package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/theatro/theatro/internal/domain/common/errorz"
	"github.com/theatro/theatro/internal/domain/dto"
	"github.com/theatro/theatro/internal/domain/entity"
	"github.com/theatro/theatro/internal/domain/utils/validator"
	"github.com/theatro/theatro/pkg/generator"
	"github.com/theatro/theatro/pkg/logger/types"
)

type MemberStorage interface {
	Create(ctx context.Context, member *entity.Member) (*entity.Member, error)
	Get(ctx context.Context, id string) (*entity.Member, error)
	GetByMail(ctx context.Context, mail string) (*entity.Member, error)
	ListByChannel(ctx context.Context, channel entity.Channel) ([]entity.Member, error)
	GetMany(ctx context.Context, ids []string) ([]entity.Member, error)
	CountByRole(ctx context.Context, role entity.MemberRole) (int64, error)
	SetPassword(ctx context.Context, id, token, passwordHash string) (bool, error)
}

type tokenStorage interface {
	Set(ctx context.Context, mail string, token string, expiration time.Duration) error
	Get(ctx context.Context, mail string) (string, error)
	Clear(ctx context.Context, mail string) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
}

type memberNotifier interface {
	Notify(ctx context.Context, recipient string, kind entity.NotificationKind, data entity.NotificationData) bool
}

const resetTokenBytes = 32

type MemberService struct {
	logger   *types.Logger
	storage  MemberStorage
	tokens   tokenStorage
	hasher   passwordHasher
	notifier memberNotifier

	frontendURL string
	tokenTTL    time.Duration
}

func NewMemberService(
	logger *types.Logger,
	storage MemberStorage,
	tokens tokenStorage,
	hasher passwordHasher,
	notifier memberNotifier,
	frontendURL string,
	tokenTTL time.Duration,
) *MemberService {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &MemberService{
		logger:      logger,
		storage:     storage,
		tokens:      tokens,
		hasher:      hasher,
		notifier:    notifier,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		tokenTTL:    tokenTTL,
	}
}

func normalizeMail(mail string) string {
	return strings.ToLower(strings.TrimSpace(mail))
}

func newMember(attrs dto.RegisterMember) *entity.Member {
	channels := make(pq.StringArray, 0, len(attrs.CommunicationChannels))
	for _, channel := range attrs.CommunicationChannels {
		channels = append(channels, string(channel))
	}
	role := attrs.Role
	if role == "" {
		role = entity.RoleMember
	}
	return &entity.Member{
		ID:                    uuid.NewString(),
		Name:                  strings.TrimSpace(attrs.Name),
		Firstname:             strings.TrimSpace(attrs.Firstname),
		Mail:                  normalizeMail(attrs.Mail),
		Role:                  role,
		CommunicationChannels: channels,
	}
}

// Register creates a member without password and mails them a link to choose
// one. Administrators are only created by SeedAdministrator.
func (s *MemberService) Register(ctx context.Context, attrs dto.RegisterMember) (*dto.RegistrationResult, error) {
	member := newMember(attrs)
	if err := validator.Member(member); err != nil {
		return nil, err
	}
	if member.Role == entity.RoleAdministrator {
		return nil, fmt.Errorf("%w: administrators cannot be registered", errorz.ErrInvalidMember)
	}

	token, err := generator.Token(resetTokenBytes)
	if err != nil {
		return nil, err
	}
	member.ResetToken = token

	created, err := s.storage.Create(ctx, member)
	if errors.Is(err, errorz.ErrUniqueViolation) {
		return nil, fmt.Errorf("%w: %s", errorz.ErrMailTaken, member.Mail)
	}
	if err != nil {
		return nil, err
	}

	if err = s.tokens.Set(ctx, created.Mail, token, s.tokenTTL); err != nil {
		s.logger.Errorf("failed to store reset token (member_id=%s): %v", created.ID, err)
		return &dto.RegistrationResult{Member: created}, nil
	}

	sent := s.notifier.Notify(ctx, created.Mail, entity.NotificationWelcome, entity.NotificationData{
		MemberName: created.FullName(),
		Link:       s.passwordLink(created.Mail, token),
	})

	s.logger.Infof("Member registered (member_id=%s, role=%s, mail_sent=%t)", created.ID, created.Role, sent)
	return &dto.RegistrationResult{Member: created, MailSent: sent}, nil
}

// passwordLink is in the format <frontend>/choose-password?key=<token>&mail=<mail>
func (s *MemberService) passwordLink(mail, token string) string {
	query := url.Values{}
	query.Set("key", token)
	query.Set("mail", mail)
	return s.frontendURL + "/choose-password?" + query.Encode()
}

// ChoosePassword redeems a reset token. A password can only be chosen once,
// and only while the token has not expired.
func (s *MemberService) ChoosePassword(ctx context.Context, mail, token, password string) error {
	if !validator.Password(password) {
		return fmt.Errorf("%w: password must be 8 to 72 characters", errorz.ErrInvalidMember)
	}

	mail = normalizeMail(mail)
	member, err := s.storage.GetByMail(ctx, mail)
	if err != nil {
		return notFound(err, errorz.ErrMemberNotFound, mail)
	}
	if member.HasPassword() {
		return errorz.ErrPasswordAlreadySet
	}

	active, err := s.tokens.Get(ctx, mail)
	if err != nil {
		return errorz.Storage("get reset token", err)
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(active), []byte(token)) != 1 {
		return errorz.ErrInvalidToken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	ok, err := s.storage.SetPassword(ctx, member.ID, token, hash)
	if err != nil {
		return err
	}
	if !ok {
		return errorz.ErrInvalidToken
	}

	if err = s.tokens.Clear(ctx, mail); err != nil {
		s.logger.Warnf("failed to clear reset token (member_id=%s): %v", member.ID, err)
	}
	s.logger.Infof("Password chosen (member_id=%s)", member.ID)
	return nil
}

// SeedAdministrator creates the first administrator. It reports false and
// does nothing when an administrator already exists.
func (s *MemberService) SeedAdministrator(ctx context.Context, attrs dto.RegisterMember, password string) (bool, error) {
	count, err := s.storage.CountByRole(ctx, entity.RoleAdministrator)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	attrs.Role = entity.RoleAdministrator
	member := newMember(attrs)
	if err = validator.Member(member); err != nil {
		return false, err
	}
	if !validator.Password(password) {
		return false, fmt.Errorf("%w: password must be 8 to 72 characters", errorz.ErrInvalidMember)
	}
	if member.PasswordHash, err = s.hasher.Hash(password); err != nil {
		return false, err
	}

	if _, err = s.storage.Create(ctx, member); err != nil {
		if errors.Is(err, errorz.ErrUniqueViolation) {
			return false, fmt.Errorf("%w: %s", errorz.ErrMailTaken, member.Mail)
		}
		return false, err
	}
	s.logger.Infof("Administrator seeded (member_id=%s)", member.ID)
	return true, nil
}

func (s *MemberService) Get(ctx context.Context, id string) (*entity.Member, error) {
	member, err := s.storage.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, errorz.ErrMemberNotFound, id)
	}
	return member, nil
}

func (s *MemberService) GetByMail(ctx context.Context, mail string) (*entity.Member, error) {
	mail = normalizeMail(mail)
	member, err := s.storage.GetByMail(ctx, mail)
	if err != nil {
		return nil, notFound(err, errorz.ErrMemberNotFound, mail)
	}
	return member, nil
}

func (s *MemberService) GetMany(ctx context.Context, ids []string) ([]entity.Member, error) {
	return s.storage.GetMany(ctx, uniqueNonEmpty(ids))
}

func (s *MemberService) ListByChannel(ctx context.Context, channel entity.Channel) ([]entity.Member, error) {
	return s.storage.ListByChannel(ctx, channel)
}
