package entity

import (
	"fmt"
	"time"
)

type ApplicationKind string

const (
	ApplicationKindShow     ApplicationKind = "show"
	ApplicationKindWorkshop ApplicationKind = "workshop"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused:
		return true
	}
	return false
}

// IsDecision reports whether s is a status a manager may set.
func (s Status) IsDecision() bool {
	return s == StatusAccepted || s == StatusRefused
}

type Availability string

const (
	Available   Availability = "available"
	Unavailable Availability = "unavailable"
)

func (a Availability) Valid() bool {
	return a == Available || a == Unavailable
}

// AutoRefusalNote is written on every application refused by the cascade.
const AutoRefusalNote = "auto-refused: member accepted for a different role on this show"

// Application is the single ledger record for both show applications (per role)
// and workshop responses (per availability). Kind tells them apart.
//
// UniqueKey holds the natural key of the record and is protected by a unique
// index, see NaturalKey.
type Application struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Kind         ApplicationKind `gorm:"not null;index"`
	EventID      string          `gorm:"not null;type:uuid;index:idx_applications_event_status"`
	MemberID     string          `gorm:"not null;type:uuid;index:idx_applications_member_status"`
	RoleID       *string         `gorm:"type:uuid"`
	Availability Availability
	Status       Status    `gorm:"not null;default:pending;index:idx_applications_event_status;index:idx_applications_member_status"`
	SubmittedAt  time.Time `gorm:"not null;index"`
	ProcessedAt  *time.Time
	ProcessedBy  *string `gorm:"type:uuid"`
	Notes        string
	Version      int    `gorm:"not null;default:1"`
	UniqueKey    string `gorm:"not null;uniqueIndex"`
}

// NaturalKey is (show, member, role) for show applications and
// (workshop, member) for workshop responses.
func (a *Application) NaturalKey() string {
	if a.Kind == ApplicationKindShow {
		return fmt.Sprintf("show:%s:%s:%s", a.EventID, a.MemberID, a.RoleIDValue())
	}
	return fmt.Sprintf("workshop:%s:%s", a.EventID, a.MemberID)
}

func (a *Application) IsShow() bool {
	return a.Kind == ApplicationKindShow
}

func (a *Application) IsWorkshop() bool {
	return a.Kind == ApplicationKindWorkshop
}

func (a *Application) IsPending() bool {
	return a.Status == StatusPending
}

func (a *Application) RoleIDValue() string {
	if a.RoleID == nil {
		return ""
	}
	return *a.RoleID
}

func (a *Application) ProcessedByValue() string {
	if a.ProcessedBy == nil {
		return ""
	}
	return *a.ProcessedBy
}

// Transition is the set of fields written when a pending application is processed.
type Transition struct {
	Status      Status
	ProcessedAt time.Time
	ProcessedBy string
	// Notes is only written when non-empty.
	Notes string
}
