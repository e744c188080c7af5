package dto

import "github.com/theatro/theatro/internal/domain/entity"

type RegisterMember struct {
	Name                  string
	Firstname             string
	Mail                  string
	Role                  entity.MemberRole
	CommunicationChannels []entity.Channel
}

type RegistrationResult struct {
	Member *entity.Member
	// MailSent reports whether the welcome mail with the password link went out.
	MailSent bool
}
