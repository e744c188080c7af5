package app

import (
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	tele "gopkg.in/telebot.v3"
	"gorm.io/gorm"

	"github.com/theatro/theatro/internal/adapters/config"
	"github.com/theatro/theatro/internal/adapters/database/postgres"
	"github.com/theatro/theatro/internal/adapters/database/redis"
	"github.com/theatro/theatro/internal/cli"
	"github.com/theatro/theatro/internal/domain/service"
	"github.com/theatro/theatro/pkg/logger"
	"github.com/theatro/theatro/pkg/logger/types"
	qr "github.com/theatro/theatro/pkg/qrcode"
	"github.com/theatro/theatro/pkg/smtp"
)

// App wires the storages and services of a running instance.
type App struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Logger *types.Logger

	Members   *service.MemberService
	Catalog   *service.CatalogService
	Ledger    *service.LedgerService
	Notify    *service.NotifyService
	Lifecycle *service.LifecycleService
	Export    *service.ExportService
}

func named(name string) *types.Logger {
	l, err := logger.Named(name)
	if err != nil {
		panic(err)
	}
	return l
}

func New(cfg *config.Config) (*App, error) {
	appLogger, err := logger.Named("app")
	if err != nil {
		return nil, err
	}

	memberStorage := postgres.NewMemberStorage(cfg.Database)
	eventStorage := postgres.NewEventStorage(cfg.Database)
	roleStorage := postgres.NewRoleStorage(cfg.Database)
	applicationStorage := postgres.NewApplicationStorage(cfg.Database)

	mailer := smtp.NewClient(cfg.SMTPDialer, smtp.Options{
		From:   viper.GetString("service.smtp.from"),
		Domain: viper.GetString("service.smtp.domain"),
	}, named("smtp"))

	notifyService := service.NewNotifyService(named("notify"), mailer, cfg.Redis.Stats, service.NotifyOptions{
		Timeout:       viper.GetDuration("notifications.timeout"),
		Concurrency:   viper.GetInt("notifications.concurrency"),
		RatePerSecond: viper.GetFloat64("notifications.rate"),
		Burst:         viper.GetInt("notifications.burst"),
	})

	frontendURL := viper.GetString("frontend.url")
	memberService := service.NewMemberService(
		named("members"),
		memberStorage,
		cfg.Redis.Tokens,
		service.BcryptHasher{Cost: viper.GetInt("members.bcrypt-cost")},
		notifyService,
		frontendURL,
		viper.GetDuration("members.token-ttl"),
	)
	catalogService := service.NewCatalogService(named("catalog"), eventStorage, roleStorage)
	ledgerService := service.NewLedgerService(named("ledger"), applicationStorage, eventStorage, roleStorage, memberStorage)

	var qrConfig *qr.Config
	if viper.GetBool("settings.qr.enabled") {
		c := qr.Theatro
		c.LogoPath = viper.GetString("settings.qr.logo-path")
		qrConfig = &c
	}
	lifecycleService := service.NewLifecycleService(
		named("lifecycle"),
		ledgerService,
		catalogService,
		memberService,
		notifyService,
		service.LifecycleOptions{FrontendURL: frontendURL, QR: qrConfig},
	)

	return &App{
		DB:     cfg.Database,
		Redis:  cfg.Redis,
		Logger: appLogger,

		Members:   memberService,
		Catalog:   catalogService,
		Ledger:    ledgerService,
		Notify:    notifyService,
		Lifecycle: lifecycleService,
		Export:    service.NewExportService(named("export"), lifecycleService),
	}, nil
}

// EnableLogChannel forwards logs at or above settings.logging.channel-log-level
// to the Telegram channel settings.logging.channel-id.
func (a *App) EnableLogChannel() {
	if !viper.GetBool("settings.logging.log-to-channel") {
		return
	}

	b, err := tele.NewBot(tele.Settings{
		Token:   viper.GetString("bot.token"),
		Offline: true,
	})
	if err != nil {
		a.Logger.Errorf("Failed to create log channel bot: %v", err)
		return
	}

	channel := service.NewLogChannel(
		b,
		viper.GetInt64("settings.logging.channel-id"),
		zapcore.Level(viper.GetInt("settings.logging.channel-log-level")),
		named("log-channel"),
	)
	logger.SetLogHook(channel.Hook())
}

// Deps exposes the services to the command line.
func (a *App) Deps() cli.Deps {
	return cli.Deps{
		Migrate:   func() error { return config.Migrate(a.DB) },
		Lifecycle: a.Lifecycle,
		Members:   a.Members,
		Catalog:   a.Catalog,
		Export:    a.Export,
		Stats:     a.Redis.Stats,
	}
}
