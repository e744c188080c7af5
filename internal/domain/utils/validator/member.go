package validator

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/theatro/theatro/internal/domain/common/errorz"
	"github.com/theatro/theatro/internal/domain/entity"
)

func PersonName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 1 && n <= 60
}

// Email checks the address format. Display names ("Jean <jean@x.fr>") are rejected.
func Email(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func Password(password string) bool {
	return utf8.RuneCountInString(password) >= 8 && len(password) <= 72
}

func Member(member *entity.Member) error {
	if !PersonName(member.Name) || !PersonName(member.Firstname) {
		return fmt.Errorf("%w: name and firstname are required", errorz.ErrInvalidMember)
	}
	if !Email(member.Mail) {
		return fmt.Errorf("%w: invalid mail %q", errorz.ErrInvalidMember, member.Mail)
	}
	if !member.Role.Valid() {
		return fmt.Errorf("%w: invalid role %q", errorz.ErrInvalidMember, member.Role)
	}
	for _, channel := range member.CommunicationChannels {
		switch entity.Channel(channel) {
		case entity.ChannelMail, entity.ChannelPush, entity.ChannelSMS:
		default:
			return fmt.Errorf("%w: invalid communication channel %q", errorz.ErrInvalidMember, channel)
		}
	}
	return nil
}
