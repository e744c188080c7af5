package postgres

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/theatro/theatro/internal/domain/entity"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// testDSNEnv names the variable holding a postgres (13+) DSN for the storage
// tests. They are skipped when it is not set.
const testDSNEnv = "THEATRO_TEST_DATABASE_DSN"

func openGorm(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return db
}

// withSearchPath points dsn at schema, for both URL and key=value DSNs.
func withSearchPath(dsn, schema string) string {
	if strings.Contains(dsn, "://") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		return dsn + separator + "search_path=" + schema
	}
	return dsn + " search_path=" + schema
}

// openTestDB migrates a fresh schema and drops it when the test ends.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv(testDSNEnv))
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}

	admin := openGorm(t, dsn)
	schema := fmt.Sprintf("theatro_test_%s", strings.ReplaceAll(uuid.NewString(), "-", ""))
	require.NoError(t, admin.Exec("CREATE SCHEMA "+schema).Error)
	t.Cleanup(func() {
		_ = admin.Exec("DROP SCHEMA " + schema + " CASCADE").Error
		if sqlDB, err := admin.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	db := openGorm(t, withSearchPath(dsn, schema))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, db.AutoMigrate(Migrations...))
	return db
}

type seed struct {
	manager, member *entity.Member
	actor, tech     *entity.Role
	show, workshop  *entity.Event

	applications *ApplicationStorage
	events       *EventStorage
	roles        *RoleStorage
	members      *MemberStorage
}

func seedTroupe(t *testing.T, db *gorm.DB) *seed {
	t.Helper()
	ctx := context.Background()
	s := &seed{
		applications: NewApplicationStorage(db),
		events:       NewEventStorage(db),
		roles:        NewRoleStorage(db),
		members:      NewMemberStorage(db),
	}

	var err error
	s.manager, err = s.members.Create(ctx, &entity.Member{
		ID: uuid.NewString(), Name: "Martin", Firstname: "Claire", Mail: "claire@theatro.fr", Role: entity.RoleManager,
	})
	require.NoError(t, err)
	s.member, err = s.members.Create(ctx, &entity.Member{
		ID: uuid.NewString(), Name: "Durand", Firstname: "Alice", Mail: "alice@theatro.fr", Role: entity.RoleMember,
		CommunicationChannels: pq.StringArray{string(entity.ChannelMail)},
	})
	require.NoError(t, err)

	s.actor, err = s.roles.FindOrCreateByName(ctx, "Actor")
	require.NoError(t, err)
	s.tech, err = s.roles.FindOrCreateByName(ctx, "Tech")
	require.NoError(t, err)

	start := time.Date(2026, 12, 5, 19, 0, 0, 0, time.UTC)
	s.show, err = s.events.Create(ctx, &entity.Event{
		ID: uuid.NewString(), Kind: entity.EventKindShow, Name: "Le Misanthrope",
		StartTime: start, EndTime: start.Add(2 * time.Hour), Location: "Salle des fêtes", Capacity: 12,
		Roles: []entity.Role{*s.actor, *s.tech},
	})
	require.NoError(t, err)
	s.workshop, err = s.events.Create(ctx, &entity.Event{
		ID: uuid.NewString(), Kind: entity.EventKindWorkshop, Name: "Improvisation",
		StartTime: start.Add(-48 * time.Hour), EndTime: start.Add(-45 * time.Hour), Location: "Studio", Capacity: 20,
	})
	require.NoError(t, err)
	return s
}

func (s *seed) showApplication(role *entity.Role) *entity.Application {
	roleID := role.ID
	return &entity.Application{
		ID:          uuid.NewString(),
		Kind:        entity.ApplicationKindShow,
		EventID:     s.show.ID,
		MemberID:    s.member.ID,
		RoleID:      &roleID,
		Status:      entity.StatusPending,
		SubmittedAt: time.Now().UTC(),
		Version:     1,
	}
}

func (s *seed) workshopResponse(availability entity.Availability) *entity.Application {
	return &entity.Application{
		ID:           uuid.NewString(),
		Kind:         entity.ApplicationKindWorkshop,
		EventID:      s.workshop.ID,
		MemberID:     s.member.ID,
		Availability: availability,
		Status:       entity.StatusPending,
		SubmittedAt:  time.Now().UTC(),
		Version:      1,
	}
}
