package calendar

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/theatro/theatro/internal/domain/entity"
)

// ApplicationInvite builds the iCalendar (.ics) invite attached to an
// accepted application. The uid is derived from the application so a
// calendar client updates the same entry if the mail is received twice.
// Reminders fire one day and one hour before the start.
func ApplicationInvite(event *entity.Event, applicationID, roleName string) ([]byte, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Theatro//FR")
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")

	e := cal.AddEvent(fmt.Sprintf("%s@theatro", applicationID))

	now := time.Now()
	e.SetDtStampTime(now)
	e.SetCreatedTime(now)
	e.SetModifiedAt(now)
	e.SetStartAt(event.StartTime)
	if !event.EndTime.IsZero() {
		e.SetEndAt(event.EndTime)
	} else {
		e.SetEndAt(event.StartTime.Add(time.Hour))
	}

	summary := event.Name
	if roleName != "" {
		summary = fmt.Sprintf("%s (%s)", event.Name, roleName)
	}
	e.SetSummary(summary)
	e.SetDescription(fmt.Sprintf("%s : %s", event.Kind.Label(), event.Name))
	e.SetLocation(event.Location)
	e.SetStatus(ics.ObjectStatusConfirmed)
	e.SetTimeTransparency(ics.TransparencyOpaque)
	e.SetClass(ics.ClassificationPublic)
	e.SetSequence(0)

	dayAlarm := e.AddAlarm()
	dayAlarm.SetAction(ics.ActionDisplay)
	dayAlarm.AddProperty("TRIGGER;VALUE=DURATION", "-P1D")
	dayAlarm.SetDescription(fmt.Sprintf("Rappel : %s (demain)", event.Name))

	hourAlarm := e.AddAlarm()
	hourAlarm.SetAction(ics.ActionDisplay)
	hourAlarm.AddProperty("TRIGGER;VALUE=DURATION", "-PT1H")
	hourAlarm.SetDescription(fmt.Sprintf("Rappel : %s (dans une heure)", event.Name))

	return []byte(cal.Serialize()), nil
}
