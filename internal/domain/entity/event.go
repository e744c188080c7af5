package entity

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type EventKind string

const (
	EventKindShow     EventKind = "show"
	EventKindWorkshop EventKind = "workshop"
)

// ParseEventKind accepts "show"/"workshop" in any case, as used in follow-up requests.
func ParseEventKind(s string) (EventKind, bool) {
	kind := EventKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case EventKindShow, EventKindWorkshop:
		return kind, true
	}
	return "", false
}

// Label is the french wording used in notifications.
func (k EventKind) Label() string {
	if k == EventKindShow {
		return "spectacle"
	}
	return "atelier"
}

// Event is either a Show (with a set of offered roles) or a Workshop (capacity only).
// The variant is carried by Kind, Roles is always empty for workshops.
type Event struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Kind        EventKind `gorm:"not null;index"`
	Name        string    `gorm:"not null"`
	StartTime   time.Time `gorm:"not null;index"`
	EndTime     time.Time `gorm:"not null"`
	Location    string    `gorm:"not null"`
	Capacity    int       `gorm:"not null"`
	HasFollowUp bool      `gorm:"not null;default:false"`
	Roles       []Role    `gorm:"many2many:event_roles"`
}

func (e *Event) IsShow() bool {
	return e.Kind == EventKindShow
}

func (e *Event) IsWorkshop() bool {
	return e.Kind == EventKindWorkshop
}

// OffersRole reports whether roleID belongs to the show's role set.
func (e *Event) OffersRole(roleID string) bool {
	return slices.ContainsFunc(e.Roles, func(r Role) bool {
		return r.ID == roleID
	})
}

// RoleNames returns the names of the offered roles in storage order.
func (e *Event) RoleNames() []string {
	names := make([]string, 0, len(e.Roles))
	for _, role := range e.Roles {
		names = append(names, role.Name)
	}
	return names
}

// ApplyLink builds the frontend link members follow to apply or respond.
//
// The link is in the format <frontend>/<kind>/<eventID>/apply
func (e *Event) ApplyLink(frontendURL string) string {
	return fmt.Sprintf("%s/%s/%s/apply", strings.TrimRight(frontendURL, "/"), e.Kind, e.ID)
}
