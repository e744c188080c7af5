package entity

import (
	"fmt"
	"slices"
	"time"

	"github.com/lib/pq"
)

type MemberRole string

const (
	RoleMember        MemberRole = "Member"
	RoleManager       MemberRole = "Manager"
	RoleAdministrator MemberRole = "Administrator"
)

func (r MemberRole) Valid() bool {
	switch r {
	case RoleMember, RoleManager, RoleAdministrator:
		return true
	}
	return false
}

// CanProcess reports whether the role may accept or refuse applications.
func (r MemberRole) CanProcess() bool {
	return r == RoleManager || r == RoleAdministrator
}

type Channel string

const (
	ChannelMail Channel = "MAIL"
	ChannelPush Channel = "PUSH"
	ChannelSMS  Channel = "SMS"
)

type Member struct {
	ID                    string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
	Name                  string     `gorm:"not null"`
	Firstname             string     `gorm:"not null"`
	Mail                  string     `gorm:"not null;uniqueIndex"`
	PasswordHash          string
	ResetToken            string
	Role                  MemberRole     `gorm:"not null;default:Member"`
	CommunicationChannels pq.StringArray `gorm:"type:text[]"`
}

// FullName returns the member's name the way it is printed in mails ("Jean Dupont").
func (m *Member) FullName() string {
	return fmt.Sprintf("%s %s", m.Firstname, m.Name)
}

func (m *Member) HasChannel(channel Channel) bool {
	return slices.Contains(m.CommunicationChannels, string(channel))
}

// HasPassword reports whether the member already redeemed the reset token.
func (m *Member) HasPassword() bool {
	return m.PasswordHash != ""
}
