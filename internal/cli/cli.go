package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/theatro/theatro/internal/domain/dto"
	"github.com/theatro/theatro/internal/domain/entity"
)

const (
	CommandMigrate        = "migrate"
	CommandSeedAdmin      = "seed-admin"
	CommandRegister       = "register"
	CommandChoosePassword = "choose-password"
	CommandCreateEvent    = "create-event"
	CommandEvents         = "events"
	CommandFollowUp       = "follow-up"
	CommandApply          = "apply"
	CommandRespond        = "respond"
	CommandProcess        = "process"
	CommandApplications   = "applications"
	CommandParticipations = "participations"
	CommandExport         = "export"
	CommandStats          = "stats"
)

var ErrUsage = errors.New("usage: theatro [-config FILE] <migrate|seed-admin|register|choose-password|create-event|events|follow-up|apply|respond|process|applications|participations|export|stats> [flags]")

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// Config is a parsed command line.
type Config struct {
	ConfigPath string
	Command    string

	EventID  string
	MemberID string
	Kind     string
	Out      string

	RoleIDs      []string
	Availability entity.Availability
	Status       entity.Status
	Token        string

	ApplicationID string
	ManagerID     string
	Decision      entity.Status
	Notes         string

	Member   dto.RegisterMember
	Password string

	Event dto.CreateEvent
}

// Parse reads the global flags, the command name and the command flags.
func Parse(args []string, lookup EnvLookup) (Config, error) {
	var cfg Config

	global := flag.NewFlagSet("theatro", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	global.StringVar(&cfg.ConfigPath, "config", "", "path to config.yaml")
	if err := global.Parse(args); err != nil {
		return Config{}, err
	}
	if global.NArg() == 0 {
		return Config{}, ErrUsage
	}
	cfg.Command = global.Arg(0)

	fs := flag.NewFlagSet(cfg.Command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		channels, roles, start, end   string
		decision, role, kind          string
		availability, status, roleIDs string
	)
	switch cfg.Command {
	case CommandMigrate, CommandStats:
	case CommandSeedAdmin, CommandRegister:
		fs.StringVar(&cfg.Member.Mail, "mail", "", "member mail")
		fs.StringVar(&cfg.Member.Name, "name", "", "member last name")
		fs.StringVar(&cfg.Member.Firstname, "firstname", "", "member first name")
		fs.StringVar(&channels, "channels", string(entity.ChannelMail), "comma separated communication channels (MAIL, PUSH, SMS)")
		if cfg.Command == CommandRegister {
			fs.StringVar(&role, "role", string(entity.RoleMember), "Member or Manager")
		} else {
			fs.StringVar(&cfg.Password, "password", "", "administrator password (default: $THEATRO_ADMIN_PASSWORD)")
		}
	case CommandChoosePassword:
		fs.StringVar(&cfg.Member.Mail, "mail", "", "member mail")
		fs.StringVar(&cfg.Token, "token", "", "key received in the welcome mail")
		fs.StringVar(&cfg.Password, "password", "", "new password (default: $THEATRO_PASSWORD)")
	case CommandCreateEvent:
		fs.StringVar(&kind, "kind", "", "show or workshop")
		fs.StringVar(&cfg.Event.Name, "name", "", "event name")
		fs.StringVar(&start, "start", "", "start time (RFC 3339)")
		fs.StringVar(&end, "end", "", "end time (RFC 3339)")
		fs.StringVar(&cfg.Event.Location, "location", "", "event location")
		fs.IntVar(&cfg.Event.Capacity, "capacity", 0, "number of participants")
		fs.StringVar(&roles, "roles", "", "comma separated role names (shows only)")
	case CommandEvents:
		fs.StringVar(&cfg.Kind, "kind", "", "show or workshop (default: all)")
	case CommandFollowUp:
		fs.StringVar(&cfg.EventID, "event", "", "event id")
		fs.StringVar(&cfg.Kind, "kind", "", "show or workshop")
	case CommandApply:
		fs.StringVar(&cfg.EventID, "show", "", "show id")
		fs.StringVar(&cfg.MemberID, "member", "", "applying member id")
		fs.StringVar(&roleIDs, "roles", "", "comma separated role ids")
	case CommandRespond:
		fs.StringVar(&cfg.EventID, "workshop", "", "workshop id")
		fs.StringVar(&cfg.MemberID, "member", "", "responding member id")
		fs.StringVar(&availability, "availability", "", "available or unavailable")
	case CommandApplications:
		fs.StringVar(&cfg.EventID, "event", "", "event id")
		fs.StringVar(&status, "status", "", "pending, accepted or refused (default: all)")
		fs.StringVar(&availability, "availability", "", "available or unavailable (default: all)")
	case CommandParticipations:
		fs.StringVar(&cfg.MemberID, "member", "", "member id")
	case CommandProcess:
		fs.StringVar(&cfg.ApplicationID, "application", "", "application id")
		fs.StringVar(&cfg.ManagerID, "manager", "", "id of the processing manager")
		fs.StringVar(&decision, "decision", "", "accepted or refused")
		fs.StringVar(&cfg.Notes, "notes", "", "notes shown to the member")
	case CommandExport:
		fs.StringVar(&cfg.EventID, "event", "", "event id")
		fs.StringVar(&cfg.Out, "out", "", "output .xlsx file (default: applications-<event>.xlsx)")
	default:
		return Config{}, fmt.Errorf("unknown command %q: %w", cfg.Command, ErrUsage)
	}

	if err := fs.Parse(global.Args()[1:]); err != nil {
		return Config{}, fmt.Errorf("%s: %w", cfg.Command, err)
	}

	cfg.Member.Role = entity.MemberRole(role)
	cfg.Member.CommunicationChannels = parseChannels(channels)
	cfg.Event.Kind = entity.EventKind(strings.ToLower(kind))
	cfg.Event.Roles = splitList(roles)
	cfg.Decision = entity.Status(strings.ToLower(decision))
	cfg.RoleIDs = splitList(roleIDs)
	cfg.Availability = entity.Availability(strings.ToLower(availability))
	cfg.Status = entity.Status(strings.ToLower(status))
	if cfg.Password == "" && lookup != nil {
		switch cfg.Command {
		case CommandSeedAdmin:
			cfg.Password, _ = lookup("THEATRO_ADMIN_PASSWORD")
		case CommandChoosePassword:
			cfg.Password, _ = lookup("THEATRO_PASSWORD")
		}
	}
	if cfg.Command == CommandExport && cfg.Out == "" {
		cfg.Out = fmt.Sprintf("applications-%s.xlsx", cfg.EventID)
	}

	var err error
	if cfg.Event.StartTime, err = parseTime("start", start); err != nil {
		return Config{}, err
	}
	if cfg.Event.EndTime, err = parseTime("end", end); err != nil {
		return Config{}, err
	}

	if err = cfg.require(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) require() error {
	missing := func(name string) error {
		return fmt.Errorf("%s: -%s is required", c.Command, name)
	}
	switch c.Command {
	case CommandFollowUp:
		if c.EventID == "" {
			return missing("event")
		}
		if c.Kind == "" {
			return missing("kind")
		}
	case CommandExport:
		if c.EventID == "" {
			return missing("event")
		}
	case CommandProcess:
		if c.ApplicationID == "" {
			return missing("application")
		}
		if c.ManagerID == "" {
			return missing("manager")
		}
	case CommandSeedAdmin:
		if c.Password == "" {
			return missing("password")
		}
	case CommandChoosePassword:
		switch {
		case c.Member.Mail == "":
			return missing("mail")
		case c.Token == "":
			return missing("token")
		case c.Password == "":
			return missing("password")
		}
	case CommandApply:
		switch {
		case c.EventID == "":
			return missing("show")
		case c.MemberID == "":
			return missing("member")
		case len(c.RoleIDs) == 0:
			return missing("roles")
		}
	case CommandRespond:
		switch {
		case c.EventID == "":
			return missing("workshop")
		case c.MemberID == "":
			return missing("member")
		case c.Availability == "":
			return missing("availability")
		}
	case CommandApplications:
		if c.EventID == "" {
			return missing("event")
		}
	case CommandParticipations:
		if c.MemberID == "" {
			return missing("member")
		}
	}
	return nil
}

func parseTime(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("-%s: %w", name, err)
	}
	return t, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseChannels(value string) []entity.Channel {
	var channels []entity.Channel
	for _, item := range splitList(value) {
		channels = append(channels, entity.Channel(strings.ToUpper(item)))
	}
	return channels
}

type lifecycle interface {
	CreateEvent(ctx context.Context, attrs dto.CreateEvent) (*dto.CreateEventResult, error)
	SendFollowUp(ctx context.Context, eventID, kind string) (*dto.FollowUpResult, error)
	SubmitShowApplication(ctx context.Context, showID, memberID string, roleIDs []string) (*dto.ShowApplicationResult, error)
	SubmitWorkshopResponse(ctx context.Context, workshopID, memberID string, availability entity.Availability) (*dto.WorkshopResponseResult, error)
	ProcessApplication(ctx context.Context, applicationID, managerID string, decision entity.Status, notes string) (*dto.ProcessResult, error)
	EventApplications(ctx context.Context, eventID string, filter dto.ApplicationFilter) (*dto.EventApplications, error)
	MemberParticipations(ctx context.Context, memberID string) (*dto.Participations, error)
}

type members interface {
	Register(ctx context.Context, attrs dto.RegisterMember) (*dto.RegistrationResult, error)
	ChoosePassword(ctx context.Context, mail, token, password string) error
	SeedAdministrator(ctx context.Context, attrs dto.RegisterMember, password string) (bool, error)
}

type catalog interface {
	List(ctx context.Context, kind string) ([]entity.Event, error)
}

type exporter interface {
	ExportToXLSX(ctx context.Context, eventID string) (*bytes.Buffer, error)
}

type statsReader interface {
	Totals(ctx context.Context) ([]dto.KindStats, error)
}

// Deps are the services the commands run against.
type Deps struct {
	Migrate   func() error
	Lifecycle lifecycle
	Members   members
	Catalog   catalog
	Export    exporter
	Stats     statsReader
}

// Run executes the parsed command and prints its outcome to out.
func Run(ctx context.Context, cfg Config, deps Deps, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	switch cfg.Command {
	case CommandMigrate:
		if err := deps.Migrate(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Database migrated")

	case CommandSeedAdmin:
		created, err := deps.Members.SeedAdministrator(ctx, cfg.Member, cfg.Password)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(out, "Administrator %s created\n", cfg.Member.Mail)
		} else {
			fmt.Fprintln(out, "An administrator already exists, nothing to do")
		}

	case CommandRegister:
		result, err := deps.Members.Register(ctx, cfg.Member)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Member %s registered (id: %s, welcome mail sent: %t)\n", result.Member.Mail, result.Member.ID, result.MailSent)

	case CommandChoosePassword:
		if err := deps.Members.ChoosePassword(ctx, cfg.Member.Mail, cfg.Token, cfg.Password); err != nil {
			return err
		}
		fmt.Fprintf(out, "Password set for %s\n", cfg.Member.Mail)

	case CommandCreateEvent:
		result, err := deps.Lifecycle.CreateEvent(ctx, cfg.Event)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %q created (id: %s)\n", result.Event.Kind, result.Event.Name, result.Event.ID)
		printNotifications(out, result.Notifications)

	case CommandEvents:
		events, err := deps.Catalog.List(ctx, cfg.Kind)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tNAME\tSTART\tCAPACITY\tROLES\tFOLLOW-UP")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%t\n",
				e.ID, e.Kind, e.Name, e.StartTime.Format(time.RFC3339), e.Capacity, strings.Join(e.RoleNames(), ", "), e.HasFollowUp)
		}
		return w.Flush()

	case CommandFollowUp:
		result, err := deps.Lifecycle.SendFollowUp(ctx, cfg.EventID, cfg.Kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Follow-up for %q: %d member(s) had not responded\n", result.Event.Name, result.Recipients)
		printNotifications(out, result.Notifications)

	case CommandApply:
		result, err := deps.Lifecycle.SubmitShowApplication(ctx, cfg.EventID, cfg.MemberID, cfg.RoleIDs)
		if err != nil {
			return err
		}
		printShowApplication(out, result)

	case CommandRespond:
		result, err := deps.Lifecycle.SubmitWorkshopResponse(ctx, cfg.EventID, cfg.MemberID, cfg.Availability)
		if err != nil {
			return err
		}
		verb := "recorded"
		if result.Reopened {
			verb = "updated, back to pending"
		}
		fmt.Fprintf(out, "Response to %q %s (id: %s, %s)\n", result.Workshop.Name, verb, result.Application.ID, result.Application.Availability)
		printNotifications(out, result.Notifications)

	case CommandApplications:
		result, err := deps.Lifecycle.EventApplications(ctx, cfg.EventID, dto.ApplicationFilter{
			Status:       cfg.Status,
			Availability: cfg.Availability,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %q\n", result.Event.Kind.Label(), result.Event.Name)
		printStats(out, result.Stats, result.Event.IsWorkshop())
		return printViews(out, result.Applications, result.Event.IsShow())

	case CommandParticipations:
		result, err := deps.Lifecycle.MemberParticipations(ctx, cfg.MemberID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s <%s>\n\nShows\n", result.Member.FullName(), result.Member.Mail)
		printStats(out, result.ShowStats, false)
		if err = printViews(out, result.Shows, true); err != nil {
			return err
		}
		fmt.Fprintln(out, "\nWorkshops")
		printStats(out, result.WorkshopStats, true)
		return printViews(out, result.Workshops, false)

	case CommandProcess:
		result, err := deps.Lifecycle.ProcessApplication(ctx, cfg.ApplicationID, cfg.ManagerID, cfg.Decision, cfg.Notes)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Application %s %s, %d other application(s) auto-refused\n", result.Application.ID, result.Application.Status, result.AutoRefusedCount())
		for _, failure := range result.CascadeErrors {
			fmt.Fprintf(out, "  could not auto-refuse %s: %v\n", failure.ApplicationID, failure.Err)
		}
		printNotifications(out, result.Notifications)

	case CommandExport:
		buf, err := deps.Export.ExportToXLSX(ctx, cfg.EventID)
		if err != nil {
			return err
		}
		if err = os.WriteFile(cfg.Out, buf.Bytes(), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "Applications written to %s\n", cfg.Out)

	case CommandStats:
		totals, err := deps.Stats.Totals(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tSUCCESSFUL\tFAILED")
		for _, s := range totals {
			fmt.Fprintf(w, "%s\t%d\t%d\n", s.Kind, s.Successful, s.Failed)
		}
		return w.Flush()

	default:
		return ErrUsage
	}
	return nil
}

func printShowApplication(out io.Writer, result *dto.ShowApplicationResult) {
	fmt.Fprintf(out, "Application to %q: %d created, %d skipped, %d failed\n",
		result.Show.Name, len(result.Created), len(result.Skipped), len(result.Errors))
	for _, c := range result.Created {
		fmt.Fprintf(out, "  created  %s (id: %s)\n", c.RoleName, c.Application.ID)
	}
	for _, s := range result.Skipped {
		fmt.Fprintf(out, "  skipped  %s, already applied (status: %s)\n", s.RoleName, s.Status)
	}
	for _, e := range result.Errors {
		name := e.RoleName
		if name == "" {
			name = e.RoleID
		}
		fmt.Fprintf(out, "  failed   %s: %v\n", name, e.Err)
	}
	printNotifications(out, result.Notifications)
}

func printStats(out io.Writer, stats dto.ApplicationStats, availability bool) {
	fmt.Fprintf(out, "%d application(s): %d pending, %d accepted, %d refused", stats.Total, stats.Pending, stats.Accepted, stats.Refused)
	if availability {
		fmt.Fprintf(out, ", %d available, %d unavailable", stats.Available, stats.Unavailable)
	}
	fmt.Fprintln(out)
}

func printViews(out io.Writer, views []dto.ApplicationView, show bool) error {
	if len(views) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	third := "AVAILABILITY"
	if show {
		third = "ROLE"
	}
	fmt.Fprintf(w, "ID\tEVENT\tMEMBER\t%s\tSTATUS\tSUBMITTED\n", third)
	for _, v := range views {
		detail := string(v.Availability)
		if show {
			detail = v.RoleName
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.EventName, v.MemberName, detail, v.Status, v.SubmittedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func printNotifications(out io.Writer, stats dto.NotificationStats) {
	if stats.Total == 0 {
		return
	}
	fmt.Fprintf(out, "Notifications sent: %d successful, %d failed out of %d\n", stats.Successful, stats.Failed, stats.Total)
}
