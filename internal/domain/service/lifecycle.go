package service

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/theatro/theatro/internal/domain/common/errorz"
	"github.com/theatro/theatro/internal/domain/dto"
	"github.com/theatro/theatro/internal/domain/entity"
	"github.com/theatro/theatro/internal/domain/utils/calendar"
	"github.com/theatro/theatro/pkg/logger/types"
	qr "github.com/theatro/theatro/pkg/qrcode"
)

type ledger interface {
	SubmitShowApplication(ctx context.Context, showID, memberID string, roleIDs []string) (*dto.ShowApplicationResult, error)
	SubmitWorkshopResponse(ctx context.Context, workshopID, memberID string, availability entity.Availability) (*dto.WorkshopResponseResult, error)
	ProcessApplication(ctx context.Context, applicationID, managerID string, decision entity.Status, notes string) (*dto.ProcessResult, error)
	ListApplications(ctx context.Context, filter dto.ApplicationFilter) (iter.Seq2[entity.Application, error], error)
}

type catalog interface {
	Create(ctx context.Context, attrs dto.CreateEvent) (*entity.Event, error)
	Get(ctx context.Context, id string) (*entity.Event, error)
	GetMany(ctx context.Context, ids []string) ([]entity.Event, error)
	Roles(ctx context.Context, ids []string) ([]entity.Role, error)
	MarkFollowUpSent(ctx context.Context, id string) (bool, error)
}

type directory interface {
	Get(ctx context.Context, id string) (*entity.Member, error)
	GetMany(ctx context.Context, ids []string) ([]entity.Member, error)
	ListByChannel(ctx context.Context, channel entity.Channel) ([]entity.Member, error)
}

type notifier interface {
	Notify(ctx context.Context, recipient string, kind entity.NotificationKind, data entity.NotificationData) bool
	Dispatch(ctx context.Context, kind entity.NotificationKind, recipients []Recipient) dto.NotificationStats
}

type LifecycleOptions struct {
	FrontendURL string
	// QR is the look of the apply-link QR code attached to announcements and
	// follow-ups. Nil disables the attachment.
	QR *qr.Config
}

// LifecycleService drives event creation and follow-ups, and wraps the ledger
// operations with their member notifications.
type LifecycleService struct {
	logger *types.Logger

	ledger    ledger
	catalog   catalog
	directory directory
	notifier  notifier

	opts LifecycleOptions
}

func NewLifecycleService(
	logger *types.Logger,
	ledger ledger,
	catalog catalog,
	directory directory,
	notifier notifier,
	opts LifecycleOptions,
) *LifecycleService {
	return &LifecycleService{
		logger:    logger,
		ledger:    ledger,
		catalog:   catalog,
		directory: directory,
		notifier:  notifier,
		opts:      opts,
	}
}

func (s *LifecycleService) eventData(event *entity.Event, member *entity.Member) entity.NotificationData {
	return entity.NotificationData{
		MemberName: member.FullName(),
		EventName:  event.Name,
		EventKind:  event.Kind,
		EventStart: event.StartTime,
		Location:   event.Location,
		Capacity:   event.Capacity,
		Link:       event.ApplyLink(s.opts.FrontendURL),
	}
}

// linkAttachments renders the apply link as a QR code. A rendering failure
// only drops the attachment.
func (s *LifecycleService) linkAttachments(event *entity.Event) []entity.Attachment {
	if s.opts.QR == nil {
		return nil
	}
	cfg := *s.opts.QR
	cfg.Content = event.ApplyLink(s.opts.FrontendURL)
	png, err := cfg.Generate()
	if err != nil {
		s.logger.Warnf("failed to generate QR code (event_id=%s): %v", event.ID, err)
		return nil
	}
	return []entity.Attachment{{
		Name:        fmt.Sprintf("%s-%s.png", event.Kind, event.ID),
		ContentType: "image/png",
		Data:        png,
	}}
}

func (s *LifecycleService) broadcast(ctx context.Context, kind entity.NotificationKind, event *entity.Event, members []entity.Member) dto.NotificationStats {
	attachments := s.linkAttachments(event)
	recipients := make([]Recipient, 0, len(members))
	for i := range members {
		data := s.eventData(event, &members[i])
		data.Attachments = attachments
		recipients = append(recipients, Recipient{Mail: members[i].Mail, Data: data})
	}
	return s.notifier.Dispatch(ctx, kind, recipients)
}

// CreateEvent persists a new show or workshop and announces it to every member
// reachable by mail. Announcement failures are counted, never returned.
func (s *LifecycleService) CreateEvent(ctx context.Context, attrs dto.CreateEvent) (*dto.CreateEventResult, error) {
	event, err := s.catalog.Create(ctx, attrs)
	if err != nil {
		return nil, err
	}

	result := &dto.CreateEventResult{Event: event}
	members, err := s.directory.ListByChannel(ctx, entity.ChannelMail)
	if err != nil {
		s.logger.Errorf("failed to list members to announce event %s: %v", event.ID, err)
		return result, nil
	}
	result.Notifications = s.broadcast(ctx, entity.NotificationEventAnnouncement, event, members)
	return result, nil
}

// SendFollowUp reminds the members reachable by mail who have not responded
// to the event yet. A workshop is followed up at most once, a show any number
// of times.
func (s *LifecycleService) SendFollowUp(ctx context.Context, eventID, kind string) (*dto.FollowUpResult, error) {
	eventKind, ok := entity.ParseEventKind(kind)
	if !ok {
		return nil, errorz.ErrInvalidEventKind
	}

	event, err := s.catalog.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.Kind != eventKind {
		return nil, fmt.Errorf("%w: %s is not a %s", errorz.ErrEventNotFound, eventID, eventKind)
	}
	if event.IsWorkshop() && event.HasFollowUp {
		return nil, errorz.ErrFollowUpAlreadySent
	}

	seq, err := s.ledger.ListApplications(ctx, dto.ApplicationFilter{EventID: event.ID})
	if err != nil {
		return nil, err
	}
	responded := make(map[string]struct{})
	for application, errSeq := range seq {
		if errSeq != nil {
			return nil, errSeq
		}
		responded[application.MemberID] = struct{}{}
	}

	members, err := s.directory.ListByChannel(ctx, entity.ChannelMail)
	if err != nil {
		return nil, err
	}
	var pending []entity.Member
	for _, member := range members {
		if _, ok := responded[member.ID]; !ok {
			pending = append(pending, member)
		}
	}

	result := &dto.FollowUpResult{Event: event, Recipients: len(pending)}
	if len(pending) == 0 {
		s.logger.Infof("No follow-up to send, every member responded (event_id=%s)", event.ID)
		return result, nil
	}

	result.Notifications = s.broadcast(ctx, entity.NotificationFollowUp, event, pending)

	if _, err = s.catalog.MarkFollowUpSent(ctx, event.ID); err != nil {
		s.logger.Errorf("follow-up sent but not recorded (event_id=%s): %v", event.ID, err)
		return nil, err
	}
	event.HasFollowUp = true
	return result, nil
}

// SubmitShowApplication records the applications and confirms the created
// ones to the member.
func (s *LifecycleService) SubmitShowApplication(ctx context.Context, showID, memberID string, roleIDs []string) (*dto.ShowApplicationResult, error) {
	result, err := s.ledger.SubmitShowApplication(ctx, showID, memberID, roleIDs)
	if err != nil {
		return nil, err
	}
	if len(result.Created) == 0 {
		return result, nil
	}

	data := s.eventData(result.Show, result.Member)
	data.RoleName = strings.Join(result.CreatedRoleNames(), ", ")
	data.Status = entity.StatusPending
	result.Notifications.Record(s.notifier.Notify(ctx, result.Member.Mail, entity.NotificationApplicationConfirmation, data))
	return result, nil
}

// SubmitWorkshopResponse records the availability and acknowledges it.
func (s *LifecycleService) SubmitWorkshopResponse(ctx context.Context, workshopID, memberID string, availability entity.Availability) (*dto.WorkshopResponseResult, error) {
	result, err := s.ledger.SubmitWorkshopResponse(ctx, workshopID, memberID, availability)
	if err != nil {
		return nil, err
	}

	data := s.eventData(result.Workshop, result.Member)
	data.Availability = result.Application.Availability
	data.Status = result.Application.Status
	result.Notifications.Record(s.notifier.Notify(ctx, result.Member.Mail, entity.NotificationWorkshopResponse, data))
	return result, nil
}

// ProcessApplication applies the decision and notifies the member of the new
// status of the processed application and of every auto-refused one.
func (s *LifecycleService) ProcessApplication(ctx context.Context, applicationID, managerID string, decision entity.Status, notes string) (*dto.ProcessResult, error) {
	result, err := s.ledger.ProcessApplication(ctx, applicationID, managerID, decision, notes)
	if err != nil {
		return nil, err
	}

	application := result.Application
	event, err := s.catalog.Get(ctx, application.EventID)
	if err != nil {
		s.logger.Errorf("status notification skipped, event lookup failed (application_id=%s): %v", application.ID, err)
		return result, nil
	}
	member, err := s.directory.Get(ctx, application.MemberID)
	if err != nil {
		s.logger.Errorf("status notification skipped, member lookup failed (application_id=%s): %v", application.ID, err)
		return result, nil
	}

	roleNames := s.roleNames(ctx, append([]entity.Application{application}, result.AutoRefused...))

	recipients := make([]Recipient, 0, len(result.AutoRefused)+1)
	for _, refused := range result.AutoRefused {
		recipients = append(recipients, Recipient{Mail: member.Mail, Data: s.statusData(event, member, refused, roleNames)})
	}
	data := s.statusData(event, member, application, roleNames)
	if application.Status == entity.StatusAccepted {
		invite, errInvite := calendar.ApplicationInvite(event, application.ID, data.RoleName)
		if errInvite != nil {
			s.logger.Warnf("failed to build calendar invite (application_id=%s): %v", application.ID, errInvite)
		} else {
			data.Attachments = append(data.Attachments, entity.Attachment{
				Name:        "invitation.ics",
				ContentType: "text/calendar; method=PUBLISH",
				Data:        invite,
			})
		}
	}
	recipients = append(recipients, Recipient{Mail: member.Mail, Data: data})

	result.Notifications = s.notifier.Dispatch(ctx, entity.NotificationApplicationStatus, recipients)
	return result, nil
}

func (s *LifecycleService) statusData(event *entity.Event, member *entity.Member, application entity.Application, roleNames map[string]string) entity.NotificationData {
	data := s.eventData(event, member)
	data.RoleName = roleNames[application.RoleIDValue()]
	data.Availability = application.Availability
	data.Status = application.Status
	data.Notes = application.Notes
	return data
}

// roleNames resolves the role ids of show applications. Lookup failures leave
// names empty.
func (s *LifecycleService) roleNames(ctx context.Context, applications []entity.Application) map[string]string {
	ids := make([]string, 0, len(applications))
	for _, application := range applications {
		if application.IsShow() {
			ids = append(ids, application.RoleIDValue())
		}
	}
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names
	}
	roles, err := s.catalog.Roles(ctx, ids)
	if err != nil {
		s.logger.Warnf("failed to resolve role names: %v", err)
		return names
	}
	for _, role := range roles {
		names[role.ID] = role.Name
	}
	return names
}

// EventApplications returns the applications of an event with statistics.
// Show applications are also grouped by role.
func (s *LifecycleService) EventApplications(ctx context.Context, eventID string, filter dto.ApplicationFilter) (*dto.EventApplications, error) {
	event, err := s.catalog.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	filter.EventID = event.ID
	applications, err := s.collect(ctx, filter)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, applications)
	if err != nil {
		return nil, err
	}

	result := &dto.EventApplications{
		Event:        event,
		Stats:        dto.NewApplicationStats(views),
		Applications: views,
	}
	if event.IsShow() {
		result.ByRole = dto.GroupByRole(views)
	}
	return result, nil
}

// MemberParticipations returns every application of a member, split by kind.
func (s *LifecycleService) MemberParticipations(ctx context.Context, memberID string) (*dto.Participations, error) {
	member, err := s.directory.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}

	applications, err := s.collect(ctx, dto.ApplicationFilter{MemberID: member.ID})
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, applications)
	if err != nil {
		return nil, err
	}

	result := &dto.Participations{Member: member}
	for _, view := range views {
		if view.Kind == entity.ApplicationKindShow {
			result.Shows = append(result.Shows, view)
		} else {
			result.Workshops = append(result.Workshops, view)
		}
	}
	result.ShowStats = dto.NewApplicationStats(result.Shows)
	result.WorkshopStats = dto.NewApplicationStats(result.Workshops)
	return result, nil
}

func (s *LifecycleService) collect(ctx context.Context, filter dto.ApplicationFilter) ([]entity.Application, error) {
	seq, err := s.ledger.ListApplications(ctx, filter)
	if err != nil {
		return nil, err
	}
	return Collect(seq)
}

// views resolves event, member, role and manager names of applications.
func (s *LifecycleService) views(ctx context.Context, applications []entity.Application) ([]dto.ApplicationView, error) {
	var eventIDs, memberIDs, roleIDs []string
	for _, application := range applications {
		eventIDs = append(eventIDs, application.EventID)
		memberIDs = append(memberIDs, application.MemberID)
		if by := application.ProcessedByValue(); by != "" {
			memberIDs = append(memberIDs, by)
		}
		if application.IsShow() {
			roleIDs = append(roleIDs, application.RoleIDValue())
		}
	}

	events, err := s.catalog.GetMany(ctx, eventIDs)
	if err != nil {
		return nil, err
	}
	members, err := s.directory.GetMany(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	roles, err := s.catalog.Roles(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	eventByID := make(map[string]entity.Event, len(events))
	for _, event := range events {
		eventByID[event.ID] = event
	}
	memberByID := make(map[string]entity.Member, len(members))
	for _, member := range members {
		memberByID[member.ID] = member
	}
	roleByID := make(map[string]string, len(roles))
	for _, role := range roles {
		roleByID[role.ID] = role.Name
	}

	views := make([]dto.ApplicationView, 0, len(applications))
	for _, application := range applications {
		event := eventByID[application.EventID]
		member := memberByID[application.MemberID]
		view := dto.ApplicationView{
			ID:           application.ID,
			Kind:         application.Kind,
			EventID:      application.EventID,
			EventName:    event.Name,
			EventStart:   event.StartTime,
			MemberID:     application.MemberID,
			MemberName:   member.FullName(),
			MemberMail:   member.Mail,
			RoleID:       application.RoleIDValue(),
			RoleName:     roleByID[application.RoleIDValue()],
			Availability: application.Availability,
			Status:       application.Status,
			SubmittedAt:  application.SubmittedAt,
			ProcessedAt:  application.ProcessedAt,
			Notes:        application.Notes,
		}
		if manager, ok := memberByID[application.ProcessedByValue()]; ok {
			view.ProcessedBy = manager.FullName()
		}
		views = append(views, view)
	}
	return views, nil
}
