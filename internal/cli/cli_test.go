package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theatro/theatro/internal/domain/common/errorz"
	"github.com/theatro/theatro/internal/domain/dto"
	"github.com/theatro/theatro/internal/domain/entity"
)

func noEnv(string) (string, bool) { return "", false }

func TestParse(t *testing.T) {
	t.Run("follow-up", func(t *testing.T) {
		cfg, err := Parse([]string{"-config", "prod.yaml", "follow-up", "-event", "e1", "-kind", "workshop"}, noEnv)
		require.NoError(t, err)

		assert.Equal(t, "prod.yaml", cfg.ConfigPath)
		assert.Equal(t, CommandFollowUp, cfg.Command)
		assert.Equal(t, "e1", cfg.EventID)
		assert.Equal(t, "workshop", cfg.Kind)
	})

	t.Run("create-event", func(t *testing.T) {
		cfg, err := Parse([]string{
			"create-event", "-kind", "Show", "-name", "Cyrano",
			"-start", "2027-03-14T19:30:00+01:00", "-end", "2027-03-14T22:30:00+01:00",
			"-location", "Théâtre", "-capacity", "30", "-roles", "Actor, Tech,,",
		}, noEnv)
		require.NoError(t, err)

		assert.Equal(t, entity.EventKindShow, cfg.Event.Kind)
		assert.Equal(t, []string{"Actor", "Tech"}, cfg.Event.Roles)
		assert.Equal(t, 30, cfg.Event.Capacity)
		assert.Equal(t, 3*time.Hour, cfg.Event.EndTime.Sub(cfg.Event.StartTime))
	})

	t.Run("register defaults", func(t *testing.T) {
		cfg, err := Parse([]string{"register", "-mail", "a@theatro.fr", "-name", "Durand", "-firstname", "Alice", "-channels", "mail,sms"}, noEnv)
		require.NoError(t, err)

		assert.Equal(t, entity.RoleMember, cfg.Member.Role)
		assert.Equal(t, []entity.Channel{entity.ChannelMail, entity.ChannelSMS}, cfg.Member.CommunicationChannels)
	})

	t.Run("seed-admin reads the password from the environment", func(t *testing.T) {
		lookup := func(key string) (string, bool) {
			if key == "THEATRO_ADMIN_PASSWORD" {
				return "from-env-secret", true
			}
			return "", false
		}
		cfg, err := Parse([]string{"seed-admin", "-mail", "admin@theatro.fr", "-name", "Admin", "-firstname", "Theatro"}, lookup)
		require.NoError(t, err)
		assert.Equal(t, "from-env-secret", cfg.Password)

		_, err = Parse([]string{"seed-admin", "-mail", "admin@theatro.fr"}, noEnv)
		assert.ErrorContains(t, err, "-password is required")
	})

	t.Run("export default output", func(t *testing.T) {
		cfg, err := Parse([]string{"export", "-event", "e1"}, noEnv)
		require.NoError(t, err)
		assert.Equal(t, "applications-e1.xlsx", cfg.Out)
	})

	t.Run("process decision is lower-cased", func(t *testing.T) {
		cfg, err := Parse([]string{"process", "-application", "a1", "-manager", "m1", "-decision", "ACCEPTED"}, noEnv)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusAccepted, cfg.Decision)
	})

	t.Run("apply", func(t *testing.T) {
		cfg, err := Parse([]string{"apply", "-show", "s1", "-member", "m1", "-roles", "r1,r2"}, noEnv)
		require.NoError(t, err)
		assert.Equal(t, "s1", cfg.EventID)
		assert.Equal(t, "m1", cfg.MemberID)
		assert.Equal(t, []string{"r1", "r2"}, cfg.RoleIDs)

		_, err = Parse([]string{"apply", "-show", "s1", "-member", "m1"}, noEnv)
		assert.ErrorContains(t, err, "-roles is required")
	})

	t.Run("respond", func(t *testing.T) {
		cfg, err := Parse([]string{"respond", "-workshop", "w1", "-member", "m1", "-availability", "Unavailable"}, noEnv)
		require.NoError(t, err)
		assert.Equal(t, "w1", cfg.EventID)
		assert.Equal(t, entity.Unavailable, cfg.Availability)

		_, err = Parse([]string{"respond", "-workshop", "w1", "-member", "m1"}, noEnv)
		assert.ErrorContains(t, err, "-availability is required")
	})

	t.Run("applications and participations", func(t *testing.T) {
		cfg, err := Parse([]string{"applications", "-event", "e1", "-status", "PENDING"}, noEnv)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusPending, cfg.Status)

		cfg, err = Parse([]string{"participations", "-member", "m1"}, noEnv)
		require.NoError(t, err)
		assert.Equal(t, "m1", cfg.MemberID)

		_, err = Parse([]string{"participations"}, noEnv)
		assert.ErrorContains(t, err, "-member is required")
	})

	t.Run("choose-password reads the password from the environment", func(t *testing.T) {
		lookup := func(key string) (string, bool) {
			if key == "THEATRO_PASSWORD" {
				return "s3cret-password", true
			}
			return "", false
		}
		cfg, err := Parse([]string{"choose-password", "-mail", "a@theatro.fr", "-token", "abc"}, lookup)
		require.NoError(t, err)
		assert.Equal(t, "s3cret-password", cfg.Password)
		assert.Equal(t, "abc", cfg.Token)

		_, err = Parse([]string{"choose-password", "-mail", "a@theatro.fr", "-password", "x"}, noEnv)
		assert.ErrorContains(t, err, "-token is required")
	})

	t.Run("errors", func(t *testing.T) {
		_, err := Parse(nil, noEnv)
		assert.ErrorIs(t, err, ErrUsage)

		_, err = Parse([]string{"dance"}, noEnv)
		assert.ErrorIs(t, err, ErrUsage)

		_, err = Parse([]string{"follow-up", "-event", "e1"}, noEnv)
		assert.ErrorContains(t, err, "-kind is required")

		_, err = Parse([]string{"create-event", "-start", "tomorrow"}, noEnv)
		assert.ErrorContains(t, err, "-start")
	})
}

type fakeLifecycle struct {
	followUp *dto.FollowUpResult
	filter   dto.ApplicationFilter
}

type fakeMembers struct {
	mail, token, password string
	err                   error
}

func (f *fakeMembers) Register(_ context.Context, attrs dto.RegisterMember) (*dto.RegistrationResult, error) {
	return &dto.RegistrationResult{Member: &entity.Member{ID: "m1", Mail: attrs.Mail}, MailSent: true}, nil
}

func (f *fakeMembers) ChoosePassword(_ context.Context, mail, token, password string) error {
	if f.err != nil {
		return f.err
	}
	f.mail, f.token, f.password = mail, token, password
	return nil
}

func (f *fakeMembers) SeedAdministrator(context.Context, dto.RegisterMember, string) (bool, error) {
	return true, nil
}

func (f *fakeLifecycle) CreateEvent(_ context.Context, attrs dto.CreateEvent) (*dto.CreateEventResult, error) {
	return &dto.CreateEventResult{
		Event:         &entity.Event{ID: "e1", Kind: attrs.Kind, Name: attrs.Name},
		Notifications: dto.NotificationStats{Successful: 2, Failed: 1, Total: 3},
	}, nil
}

func (f *fakeLifecycle) SendFollowUp(context.Context, string, string) (*dto.FollowUpResult, error) {
	return f.followUp, nil
}

func (f *fakeLifecycle) SubmitShowApplication(_ context.Context, showID, memberID string, roleIDs []string) (*dto.ShowApplicationResult, error) {
	return &dto.ShowApplicationResult{
		Show:   &entity.Event{ID: showID, Name: "Le Misanthrope"},
		Member: &entity.Member{ID: memberID},
		Created: []dto.CreatedApplication{
			{Application: entity.Application{ID: "a1"}, RoleName: "Actor"},
		},
		Skipped: []dto.SkippedApplication{
			{RoleID: roleIDs[1], RoleName: "Tech", Status: entity.StatusAccepted},
		},
		Errors: []dto.RoleError{
			{RoleID: "r9", Err: errorz.ErrRoleNotFound},
		},
		Notifications: dto.NotificationStats{Successful: 1, Total: 1},
	}, nil
}

func (f *fakeLifecycle) SubmitWorkshopResponse(_ context.Context, workshopID, memberID string, availability entity.Availability) (*dto.WorkshopResponseResult, error) {
	return &dto.WorkshopResponseResult{
		Workshop:    &entity.Event{ID: workshopID, Name: "Improvisation"},
		Member:      &entity.Member{ID: memberID},
		Application: entity.Application{ID: "a3", Availability: availability, Status: entity.StatusPending},
		Reopened:    true,
	}, nil
}

func (f *fakeLifecycle) EventApplications(_ context.Context, eventID string, filter dto.ApplicationFilter) (*dto.EventApplications, error) {
	f.filter = filter
	views := []dto.ApplicationView{
		{ID: "a1", EventName: "Le Misanthrope", MemberName: "Alice Durand", RoleName: "Actor", Status: entity.StatusPending},
		{ID: "a2", EventName: "Le Misanthrope", MemberName: "Bob Petit", RoleName: "Tech", Status: entity.StatusAccepted},
	}
	return &dto.EventApplications{
		Event:        &entity.Event{ID: eventID, Kind: entity.EventKindShow, Name: "Le Misanthrope"},
		Stats:        dto.NewApplicationStats(views),
		ByRole:       dto.GroupByRole(views),
		Applications: views,
	}, nil
}

func (f *fakeLifecycle) MemberParticipations(_ context.Context, memberID string) (*dto.Participations, error) {
	shows := []dto.ApplicationView{{ID: "a1", EventName: "Le Misanthrope", MemberName: "Alice Durand", RoleName: "Actor", Status: entity.StatusAccepted}}
	workshops := []dto.ApplicationView{{ID: "a3", EventName: "Improvisation", MemberName: "Alice Durand", Availability: entity.Available, Status: entity.StatusPending}}
	return &dto.Participations{
		Member:        &entity.Member{ID: memberID, Name: "Durand", Firstname: "Alice", Mail: "alice@theatro.fr"},
		ShowStats:     dto.NewApplicationStats(shows),
		Shows:         shows,
		WorkshopStats: dto.NewApplicationStats(workshops),
		Workshops:     workshops,
	}, nil
}

func (f *fakeLifecycle) ProcessApplication(_ context.Context, applicationID, _ string, decision entity.Status, _ string) (*dto.ProcessResult, error) {
	return &dto.ProcessResult{
		Application: entity.Application{ID: applicationID, Status: decision},
		AutoRefused: []entity.Application{{ID: "a2"}},
	}, nil
}

type fakeExporter struct{}

func (fakeExporter) ExportToXLSX(context.Context, string) (*bytes.Buffer, error) {
	return bytes.NewBufferString("xlsx"), nil
}

type fakeStats struct{}

func (fakeStats) Totals(context.Context) ([]dto.KindStats, error) {
	return []dto.KindStats{{Kind: "follow_up", Successful: 10, Failed: 2}}, nil
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	lifecycle := &fakeLifecycle{followUp: &dto.FollowUpResult{
		Event:         &entity.Event{Name: "Improvisation"},
		Recipients:    4,
		Notifications: dto.NotificationStats{Successful: 4, Total: 4},
	}}
	members := &fakeMembers{}
	deps := Deps{
		Lifecycle: lifecycle,
		Members:   members,
		Export:    fakeExporter{},
		Stats:     fakeStats{},
	}

	t.Run("apply reports every role", func(t *testing.T) {
		var out bytes.Buffer
		cfg := Config{Command: CommandApply, EventID: "s1", MemberID: "m1", RoleIDs: []string{"r1", "r2", "r9"}}
		require.NoError(t, Run(ctx, cfg, deps, &out))

		assert.Contains(t, out.String(), `Application to "Le Misanthrope": 1 created, 1 skipped, 1 failed`)
		assert.Contains(t, out.String(), "created  Actor (id: a1)")
		assert.Contains(t, out.String(), "skipped  Tech, already applied (status: accepted)")
		assert.Contains(t, out.String(), "failed   r9: not found: role")
		assert.Contains(t, out.String(), "1 successful, 0 failed out of 1")
	})

	t.Run("respond", func(t *testing.T) {
		var out bytes.Buffer
		cfg := Config{Command: CommandRespond, EventID: "w1", MemberID: "m1", Availability: entity.Unavailable}
		require.NoError(t, Run(ctx, cfg, deps, &out))
		assert.Contains(t, out.String(), `Response to "Improvisation" updated, back to pending (id: a3, unavailable)`)
	})

	t.Run("applications", func(t *testing.T) {
		var out bytes.Buffer
		cfg := Config{Command: CommandApplications, EventID: "s1", Status: entity.StatusPending}
		require.NoError(t, Run(ctx, cfg, deps, &out))

		assert.Equal(t, entity.StatusPending, lifecycle.filter.Status)
		assert.Contains(t, out.String(), `spectacle "Le Misanthrope"`)
		assert.Contains(t, out.String(), "2 application(s): 1 pending, 1 accepted, 0 refused")
		assert.Contains(t, out.String(), "ROLE")
		assert.Contains(t, out.String(), "Bob Petit")
	})

	t.Run("participations", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Run(ctx, Config{Command: CommandParticipations, MemberID: "m1"}, deps, &out))

		assert.Contains(t, out.String(), "Alice Durand <alice@theatro.fr>")
		assert.Contains(t, out.String(), "Improvisation")
		assert.Contains(t, out.String(), "1 available, 0 unavailable")
	})

	t.Run("choose-password", func(t *testing.T) {
		var out bytes.Buffer
		cfg := Config{Command: CommandChoosePassword, Member: dto.RegisterMember{Mail: "a@theatro.fr"}, Token: "abc", Password: "s3cret-password"}
		require.NoError(t, Run(ctx, cfg, deps, &out))
		assert.Equal(t, "abc", members.token)
		assert.Contains(t, out.String(), "Password set for a@theatro.fr")

		failing := deps
		failing.Members = &fakeMembers{err: errorz.ErrInvalidToken}
		assert.ErrorIs(t, Run(ctx, cfg, failing, nil), errorz.ErrInvalidToken)
	})

	t.Run("create-event", func(t *testing.T) {
		var out bytes.Buffer
		err := Run(ctx, Config{Command: CommandCreateEvent, Event: dto.CreateEvent{Kind: entity.EventKindShow, Name: "Cyrano"}}, deps, &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), `show "Cyrano" created (id: e1)`)
		assert.Contains(t, out.String(), "2 successful, 1 failed out of 3")
	})

	t.Run("follow-up", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Run(ctx, Config{Command: CommandFollowUp, EventID: "w1", Kind: "workshop"}, deps, &out))
		assert.Contains(t, out.String(), "4 member(s) had not responded")
	})

	t.Run("process", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Run(ctx, Config{Command: CommandProcess, ApplicationID: "a1", Decision: entity.StatusAccepted}, deps, &out))
		assert.Contains(t, out.String(), "Application a1 accepted, 1 other application(s) auto-refused")
	})

	t.Run("export", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.xlsx")
		require.NoError(t, Run(ctx, Config{Command: CommandExport, EventID: "e1", Out: path}, deps, nil))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "xlsx", string(data))
	})

	t.Run("stats", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, Run(ctx, Config{Command: CommandStats}, deps, &out))
		assert.Contains(t, out.String(), "follow_up")
		assert.Contains(t, out.String(), "10")
	})

	t.Run("migrate", func(t *testing.T) {
		migrated := false
		deps := deps
		deps.Migrate = func() error { migrated = true; return nil }
		require.NoError(t, Run(ctx, Config{Command: CommandMigrate}, deps, nil))
		assert.True(t, migrated)
	})
}
