package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
	postgresStorage "github.com/theatro/theatro/internal/adapters/database/postgres"
	"github.com/theatro/theatro/internal/adapters/database/redis"
	"github.com/theatro/theatro/internal/domain/utils/location"
	"github.com/theatro/theatro/pkg/logger"
	"github.com/theatro/theatro/pkg/smtp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

type Config struct {
	Database   *gorm.DB
	Redis      *redis.Client
	SMTPDialer *smtp.Dialer
}

func initConfig(path string) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if path != "" {
		viper.SetConfigFile(path)
	}

	viper.SetDefault("settings.timezone", "Europe/Paris")
	viper.SetDefault("notifications.timeout", 10*time.Second)
	viper.SetDefault("notifications.concurrency", 8)
	viper.SetDefault("notifications.rate", 5)
	viper.SetDefault("notifications.burst", 5)
	viper.SetDefault("notifications.stats-ttl", 30*24*time.Hour)
	viper.SetDefault("members.token-ttl", time.Hour)
	viper.SetDefault("service.smtp.timeout", 10*time.Second)

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}
}

// Get reads the configuration file (config.yaml in the working directory
// unless path is set), initializes the logger and opens every backend.
// Connection failures panic through the logger.
func Get(path string) *Config {
	initConfig(path)

	err := logger.Init(logger.Config{
		Debug:        viper.GetBool("settings.debug"),
		TimeLocation: location.Location(),
		LogToFile:    viper.GetBool("settings.logging.log-to-file"),
		LogsDir:      viper.GetString("settings.logging.logs-dir"),
	})
	if err != nil {
		panic(err)
	}

	var gormConfig *gorm.Config
	if viper.GetBool("settings.debug") {
		newLogger := gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold: time.Second,
				LogLevel:      gormLogger.Info,
				Colorful:      true,
			},
		)
		gormConfig = &gorm.Config{
			Logger:         newLogger,
			TranslateError: true,
		}
	} else {
		gormConfig = &gorm.Config{
			Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
			TranslateError: true,
		}
	}

	dsn := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%d sslmode=%s TimeZone=UTC",
		viper.GetString("service.database.user"),
		viper.GetString("service.database.password"),
		viper.GetString("service.database.name"),
		viper.GetString("service.database.host"),
		viper.GetInt("service.database.port"),
		viper.GetString("service.database.sslmode"),
	)

	database, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		logger.Log.Panicf("Failed to connect to the database: %v", err)
	} else {
		logger.Log.Info("Successfully connected to the database")
	}

	if viper.GetBool("settings.auto-migrate") {
		if errMigrate := Migrate(database); errMigrate != nil {
			logger.Log.Panicf("Failed to migrate database: %v", errMigrate)
		}
	}

	redisClient, err := redis.New(redis.Options{
		Host:     viper.GetString("service.redis.host"),
		Port:     viper.GetInt("service.redis.port"),
		Password: viper.GetString("service.redis.password"),
		StatsTTL: viper.GetDuration("notifications.stats-ttl"),
	})
	if err != nil {
		logger.Log.Panicf("Failed to connect to redis: %v", err)
	} else {
		logger.Log.Info("Successfully connected to redis")
	}

	dialer := smtp.NewDialer(
		viper.GetString("service.smtp.host"),
		viper.GetInt("service.smtp.port"),
		viper.GetString("service.smtp.username"),
		viper.GetString("service.smtp.password"),
		viper.GetDuration("service.smtp.timeout"),
	)
	if viper.IsSet("service.smtp.ssl") {
		dialer.SSL = viper.GetBool("service.smtp.ssl")
	}

	return &Config{
		Database:   database,
		Redis:      redisClient,
		SMTPDialer: dialer,
	}
}

// Migrate creates or updates the tables of every stored entity.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(postgresStorage.Migrations...)
}
