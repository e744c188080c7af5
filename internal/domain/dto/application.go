package dto

import (
	"github.com/theatro/theatro/internal/domain/entity"
)

// ApplicationFilter narrows ListApplications. Zero values mean "any".
type ApplicationFilter struct {
	EventID      string
	MemberID     string
	Kind         entity.ApplicationKind
	Status       entity.Status
	Availability entity.Availability
	// ExcludeID drops a single application from the result.
	ExcludeID string
}

type CreatedApplication struct {
	Application entity.Application
	RoleName    string
}

// SkippedApplication reports a role the member had already applied to.
type SkippedApplication struct {
	RoleID        string
	RoleName      string
	ApplicationID string
	Status        entity.Status
}

type RoleError struct {
	RoleID   string
	RoleName string
	Err      error
}

// ShowApplicationResult is the per-role outcome of a multi-role application.
type ShowApplicationResult struct {
	Show          *entity.Event
	Member        *entity.Member
	Created       []CreatedApplication
	Skipped       []SkippedApplication
	Errors        []RoleError
	Notifications NotificationStats
}

// CreatedRoleNames lists the role names of the created applications, in order.
func (r *ShowApplicationResult) CreatedRoleNames() []string {
	names := make([]string, 0, len(r.Created))
	for _, c := range r.Created {
		names = append(names, c.RoleName)
	}
	return names
}

type WorkshopResponseResult struct {
	Workshop    *entity.Event
	Member      *entity.Member
	Application entity.Application
	// Reopened is true when an existing response was overwritten.
	Reopened      bool
	Notifications NotificationStats
}

type CascadeError struct {
	ApplicationID string
	Err           error
}

type ProcessResult struct {
	Application   entity.Application
	AutoRefused   []entity.Application
	CascadeErrors []CascadeError
	Notifications NotificationStats
}

func (r *ProcessResult) AutoRefusedCount() int {
	return len(r.AutoRefused)
}
