package entity

import "time"

type NotificationKind string

const (
	NotificationWelcome                 NotificationKind = "welcome"
	NotificationEventAnnouncement       NotificationKind = "event_announcement"
	NotificationApplicationConfirmation NotificationKind = "application_confirmation"
	NotificationWorkshopResponse        NotificationKind = "workshop_response"
	NotificationApplicationStatus       NotificationKind = "application_status"
	NotificationFollowUp                NotificationKind = "follow_up"
)

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// NotificationData is the template payload shared by every notification kind.
// Templates only read the fields they need.
type NotificationData struct {
	MemberName   string
	EventName    string
	EventKind    EventKind
	EventStart   time.Time
	Location     string
	Capacity     int
	RoleName     string
	Status       Status
	Availability Availability
	Notes        string
	Link         string
	Attachments  []Attachment
}

// NotificationResult is what a sink reports for a single send. Sinks never
// return errors past this value.
type NotificationResult struct {
	Success bool
	Err     error
}
