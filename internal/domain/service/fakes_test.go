package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/theatro/theatro/internal/domain/common/errorz"
	"github.com/theatro/theatro/internal/domain/dto"
	"github.com/theatro/theatro/internal/domain/entity"
	"github.com/theatro/theatro/pkg/logger/types"
)

var errBoom = errors.New("boom")

type fakeApplications struct {
	mu    sync.Mutex
	byID  map[string]entity.Application
	byKey map[string]string

	// beforeTransition runs before each compare-and-swap, outside the lock.
	beforeTransition func(id string)
	failTransition   map[string]error
	failList         error
}

func newFakeApplications() *fakeApplications {
	return &fakeApplications{
		byID:           make(map[string]entity.Application),
		byKey:          make(map[string]string),
		failTransition: make(map[string]error),
	}
}

func (f *fakeApplications) Create(_ context.Context, application *entity.Application) (*entity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	application.UniqueKey = application.NaturalKey()
	if _, ok := f.byKey[application.UniqueKey]; ok {
		return nil, errorz.ErrUniqueViolation
	}
	f.byID[application.ID] = *application
	f.byKey[application.UniqueKey] = application.ID
	stored := *application
	return &stored, nil
}

func (f *fakeApplications) Upsert(_ context.Context, application *entity.Application) (*entity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	application.UniqueKey = application.NaturalKey()
	if id, ok := f.byKey[application.UniqueKey]; ok {
		stored := f.byID[id]
		stored.Availability = application.Availability
		stored.SubmittedAt = application.SubmittedAt
		stored.Status = entity.StatusPending
		stored.ProcessedAt = nil
		stored.ProcessedBy = nil
		stored.Notes = ""
		stored.Version++
		f.byID[id] = stored
		return &stored, nil
	}
	f.byID[application.ID] = *application
	f.byKey[application.UniqueKey] = application.ID
	stored := *application
	return &stored, nil
}

func (f *fakeApplications) Get(_ context.Context, id string) (*entity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	application, ok := f.byID[id]
	if !ok {
		return nil, errorz.ErrNoRecord
	}
	return &application, nil
}

func (f *fakeApplications) GetByKey(_ context.Context, key string) (*entity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id, ok := f.byKey[key]
	if !ok {
		return nil, errorz.ErrNoRecord
	}
	application := f.byID[id]
	return &application, nil
}

func (f *fakeApplications) Transition(_ context.Context, id string, expectedVersion int, t entity.Transition) (*entity.Application, error) {
	if f.beforeTransition != nil {
		f.beforeTransition(id)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failTransition[id]; err != nil {
		return nil, err
	}
	application, ok := f.byID[id]
	if !ok {
		return nil, errorz.ErrNoRecord
	}
	if application.Status != entity.StatusPending || application.Version != expectedVersion {
		return &application, errorz.ErrStaleRecord
	}

	processedAt, processedBy := t.ProcessedAt, t.ProcessedBy
	application.Status = t.Status
	application.ProcessedAt = &processedAt
	application.ProcessedBy = &processedBy
	if t.Notes != "" {
		application.Notes = t.Notes
	}
	application.Version++
	f.byID[id] = application
	return &application, nil
}

func (f *fakeApplications) List(_ context.Context, filter dto.ApplicationFilter) ([]entity.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failList != nil {
		return nil, f.failList
	}
	var result []entity.Application
	for _, a := range f.byID {
		switch {
		case filter.EventID != "" && a.EventID != filter.EventID,
			filter.MemberID != "" && a.MemberID != filter.MemberID,
			filter.Kind != "" && a.Kind != filter.Kind,
			filter.Status != "" && a.Status != filter.Status,
			filter.Availability != "" && a.Availability != filter.Availability,
			filter.ExcludeID != "" && a.ID == filter.ExcludeID:
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})
	return result, nil
}

// set overwrites a stored application, as another writer would.
func (f *fakeApplications) set(application entity.Application) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[application.ID] = application
}

func (f *fakeApplications) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeEvents struct {
	mu     sync.Mutex
	events map[string]entity.Event
}

func newFakeEvents(events ...entity.Event) *fakeEvents {
	f := &fakeEvents{events: make(map[string]entity.Event)}
	for _, e := range events {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeEvents) Create(_ context.Context, event *entity.Event) (*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[event.ID] = *event
	return event, nil
}

func (f *fakeEvents) Get(_ context.Context, id string) (*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, errorz.ErrNoRecord
	}
	return &event, nil
}

func (f *fakeEvents) List(_ context.Context, kind entity.EventKind) ([]entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []entity.Event
	for _, e := range f.events {
		if kind == "" || e.Kind == kind {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartTime.Before(events[j].StartTime) })
	return events, nil
}

func (f *fakeEvents) GetMany(_ context.Context, ids []string) ([]entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var events []entity.Event
	for _, id := range ids {
		if e, ok := f.events[id]; ok {
			events = append(events, e)
		}
	}
	return events, nil
}

func (f *fakeEvents) MarkFollowUpSent(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok || event.HasFollowUp {
		return false, nil
	}
	event.HasFollowUp = true
	f.events[id] = event
	return true, nil
}

type fakeRoles struct {
	mu    sync.Mutex
	roles map[string]entity.Role
}

func newFakeRoles(roles ...entity.Role) *fakeRoles {
	f := &fakeRoles{roles: make(map[string]entity.Role)}
	for _, r := range roles {
		f.roles[r.ID] = r
	}
	return f
}

func (f *fakeRoles) Get(_ context.Context, id string) (*entity.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[id]
	if !ok {
		return nil, errorz.ErrNoRecord
	}
	return &role, nil
}

func (f *fakeRoles) FindOrCreateByName(_ context.Context, name string) (*entity.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles {
		if r.Name == name {
			return &r, nil
		}
	}
	role := entity.Role{ID: uuid.NewString(), Name: name}
	f.roles[role.ID] = role
	return &role, nil
}

func (f *fakeRoles) GetMany(_ context.Context, ids []string) ([]entity.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var roles []entity.Role
	for _, id := range ids {
		if r, ok := f.roles[id]; ok {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

type fakeMembers struct {
	mu      sync.Mutex
	members map[string]entity.Member
}

func newFakeMembers(members ...entity.Member) *fakeMembers {
	f := &fakeMembers{members: make(map[string]entity.Member)}
	for _, m := range members {
		f.members[m.ID] = m
	}
	return f
}

func (f *fakeMembers) Create(_ context.Context, member *entity.Member) (*entity.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.Mail == member.Mail {
			return nil, errorz.ErrUniqueViolation
		}
	}
	f.members[member.ID] = *member
	return member, nil
}

func (f *fakeMembers) Get(_ context.Context, id string) (*entity.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[id]
	if !ok {
		return nil, errorz.ErrNoRecord
	}
	return &member, nil
}

func (f *fakeMembers) GetByMail(_ context.Context, mail string) (*entity.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.Mail == mail {
			return &m, nil
		}
	}
	return nil, errorz.ErrNoRecord
}

func (f *fakeMembers) ListByChannel(_ context.Context, channel entity.Channel) ([]entity.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var members []entity.Member
	for _, m := range f.members {
		if m.HasChannel(channel) {
			members = append(members, m)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Mail < members[j].Mail })
	return members, nil
}

func (f *fakeMembers) GetMany(_ context.Context, ids []string) ([]entity.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var members []entity.Member
	for _, id := range ids {
		if m, ok := f.members[id]; ok {
			members = append(members, m)
		}
	}
	return members, nil
}

func (f *fakeMembers) CountByRole(_ context.Context, role entity.MemberRole) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, m := range f.members {
		if m.Role == role {
			count++
		}
	}
	return count, nil
}

func (f *fakeMembers) SetPassword(_ context.Context, id, token, passwordHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	member, ok := f.members[id]
	if !ok || member.ResetToken == "" || member.ResetToken != token {
		return false, nil
	}
	member.PasswordHash = passwordHash
	member.ResetToken = ""
	f.members[id] = member
	return true, nil
}

type sentNotification struct {
	Recipient string
	Kind      entity.NotificationKind
	Data      entity.NotificationData
}

type fakeSink struct {
	mu   sync.Mutex
	sent []sentNotification
	fail map[string]bool
	// block makes Send wait for ctx to be done.
	block bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{fail: make(map[string]bool)}
}

func (f *fakeSink) Send(ctx context.Context, recipient string, kind entity.NotificationKind, data entity.NotificationData) entity.NotificationResult {
	if f.block {
		<-ctx.Done()
		return entity.NotificationResult{Err: ctx.Err()}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[recipient] {
		return entity.NotificationResult{Err: fmt.Errorf("smtp: rejected %s", recipient)}
	}
	f.sent = append(f.sent, sentNotification{Recipient: recipient, Kind: kind, Data: data})
	return entity.NotificationResult{Success: true}
}

func (f *fakeSink) byKind(kind entity.NotificationKind) []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []sentNotification
	for _, n := range f.sent {
		if n.Kind == kind {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Recipient < result[j].Recipient })
	return result
}

type fakeStats struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeStats() *fakeStats {
	return &fakeStats{counts: make(map[string]int)}
}

func (f *fakeStats) Record(_ context.Context, kind entity.NotificationKind, success bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[fmt.Sprintf("%s:%t", kind, success)]++
	return nil
}

func (f *fakeStats) get(kind entity.NotificationKind, success bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[fmt.Sprintf("%s:%t", kind, success)]
}

type fakeTokens struct {
	mu      sync.Mutex
	tokens  map[string]string
	failSet bool
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: make(map[string]string)}
}

func (f *fakeTokens) Set(_ context.Context, mail string, token string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errBoom
	}
	f.tokens[mail] = token
	return nil
}

func (f *fakeTokens) Get(_ context.Context, mail string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[mail], nil
}

func (f *fakeTokens) Clear(_ context.Context, mail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, mail)
	return nil
}

// expire drops the token as redis does once the TTL elapsed.
func (f *fakeTokens) expire(mail string) {
	_ = f.Clear(context.Background(), mail)
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

// fixture is a troupe with one show (Actor, Tech), one workshop, a manager
// and two members reachable by mail.
type fixture struct {
	applications *fakeApplications
	events       *fakeEvents
	roles        *fakeRoles
	members      *fakeMembers
	sink         *fakeSink
	stats        *fakeStats

	ledger    *LedgerService
	catalog   *CatalogService
	notify    *NotifyService
	lifecycle *LifecycleService

	show, workshop entity.Event
	actor, tech    entity.Role
	manager        entity.Member
	alice, bob     entity.Member
}

func newFixture() *fixture {
	actor := entity.Role{ID: uuid.NewString(), Name: "Actor"}
	tech := entity.Role{ID: uuid.NewString(), Name: "Tech"}
	light := entity.Role{ID: uuid.NewString(), Name: "Light"}
	start := time.Date(2026, 12, 5, 20, 0, 0, 0, time.UTC)

	show := entity.Event{
		ID:        uuid.NewString(),
		Kind:      entity.EventKindShow,
		Name:      "Le Misanthrope",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Location:  "Salle des fêtes",
		Capacity:  12,
		Roles:     []entity.Role{actor, tech},
	}
	workshop := entity.Event{
		ID:        uuid.NewString(),
		Kind:      entity.EventKindWorkshop,
		Name:      "Improvisation",
		StartTime: start.Add(-7 * 24 * time.Hour),
		EndTime:   start.Add(-7*24*time.Hour + 3*time.Hour),
		Location:  "Studio",
		Capacity:  20,
	}

	manager := entity.Member{ID: uuid.NewString(), Name: "Martin", Firstname: "Claire", Mail: "claire@theatro.fr", Role: entity.RoleManager}
	alice := entity.Member{ID: uuid.NewString(), Name: "Durand", Firstname: "Alice", Mail: "alice@theatro.fr", Role: entity.RoleMember, CommunicationChannels: pq.StringArray{"MAIL"}}
	bob := entity.Member{ID: uuid.NewString(), Name: "Petit", Firstname: "Bob", Mail: "bob@theatro.fr", Role: entity.RoleMember, CommunicationChannels: pq.StringArray{"MAIL", "SMS"}}

	f := &fixture{
		applications: newFakeApplications(),
		events:       newFakeEvents(show, workshop),
		roles:        newFakeRoles(actor, tech, light),
		members:      newFakeMembers(manager, alice, bob),
		sink:         newFakeSink(),
		stats:        newFakeStats(),

		show: show, workshop: workshop,
		actor: actor, tech: tech,
		manager: manager, alice: alice, bob: bob,
	}

	f.ledger = NewLedgerService(types.Nop("ledger"), f.applications, f.events, f.roles, f.members)
	tick := start.Add(-30 * 24 * time.Hour)
	var clock sync.Mutex
	f.ledger.now = func() time.Time {
		clock.Lock()
		defer clock.Unlock()
		tick = tick.Add(time.Minute)
		return tick
	}

	f.catalog = NewCatalogService(types.Nop("catalog"), f.events, f.roles)
	f.notify = NewNotifyService(types.Nop("notify"), f.sink, f.stats, NotifyOptions{Timeout: time.Second, Concurrency: 4})
	members := NewMemberService(types.Nop("members"), f.members, newFakeTokens(), plainHasher{}, f.notify, "https://theatro.fr", time.Hour)
	f.lifecycle = NewLifecycleService(types.Nop("lifecycle"), f.ledger, f.catalog, members, f.notify, LifecycleOptions{FrontendURL: "https://theatro.fr"})
	return f
}

func (f *fixture) roleIDs(roles ...entity.Role) []string {
	ids := make([]string, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	return ids
}

func applicationIDs(applications []entity.Application) []string {
	ids := make([]string, 0, len(applications))
	for _, a := range applications {
		ids = append(ids, a.ID)
	}
	slices.Sort(ids)
	return ids
}
