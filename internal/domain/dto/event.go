package dto

import (
	"time"

	"github.com/theatro/theatro/internal/domain/entity"
)

// CreateEvent carries the attributes of a new show or workshop. Roles holds
// role names and is only read for shows.
type CreateEvent struct {
	Kind      entity.EventKind
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Location  string
	Capacity  int
	Roles     []string
}

type CreateEventResult struct {
	Event         *entity.Event
	Notifications NotificationStats
}

type FollowUpResult struct {
	Event *entity.Event
	// Recipients is the number of members who had not responded yet.
	Recipients    int
	Notifications NotificationStats
}
