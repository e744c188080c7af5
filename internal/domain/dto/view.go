package dto

import (
	"time"

	"github.com/theatro/theatro/internal/domain/entity"
)

// ApplicationView is an application resolved against the directory and catalog.
type ApplicationView struct {
	ID           string
	Kind         entity.ApplicationKind
	EventID      string
	EventName    string
	EventStart   time.Time
	MemberID     string
	MemberName   string
	MemberMail   string
	RoleID       string
	RoleName     string
	Availability entity.Availability
	Status       entity.Status
	SubmittedAt  time.Time
	ProcessedAt  *time.Time
	ProcessedBy  string
	Notes        string
}

type ApplicationStats struct {
	Total       int
	Pending     int
	Accepted    int
	Refused     int
	Available   int
	Unavailable int
}

func NewApplicationStats(views []ApplicationView) ApplicationStats {
	var stats ApplicationStats
	for _, v := range views {
		stats.Total++
		switch v.Status {
		case entity.StatusPending:
			stats.Pending++
		case entity.StatusAccepted:
			stats.Accepted++
		case entity.StatusRefused:
			stats.Refused++
		}
		switch v.Availability {
		case entity.Available:
			stats.Available++
		case entity.Unavailable:
			stats.Unavailable++
		}
	}
	return stats
}

type RoleApplications struct {
	RoleID       string
	RoleName     string
	Applications []ApplicationView
}

// GroupByRole groups show application views by role, keeping first-seen order.
func GroupByRole(views []ApplicationView) []RoleApplications {
	var groups []RoleApplications
	index := make(map[string]int)
	for _, v := range views {
		i, ok := index[v.RoleID]
		if !ok {
			i = len(groups)
			index[v.RoleID] = i
			groups = append(groups, RoleApplications{RoleID: v.RoleID, RoleName: v.RoleName})
		}
		groups[i].Applications = append(groups[i].Applications, v)
	}
	return groups
}

type EventApplications struct {
	Event        *entity.Event
	Stats        ApplicationStats
	ByRole       []RoleApplications
	Applications []ApplicationView
}

type Participations struct {
	Member        *entity.Member
	ShowStats     ApplicationStats
	Shows         []ApplicationView
	WorkshopStats ApplicationStats
	Workshops     []ApplicationView
}
