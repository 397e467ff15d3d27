package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Log struct {
		Level string
	}
	Auth struct {
		JWTSecret       string
		TokenTTLMinutes int
	}
	Users struct {
		DefaultHourlyRate float64
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Backup struct {
		IntervalSeconds int
		Retain          int
	}
	Events struct {
		NATSURL       string
		SubjectPrefix string
	}
}

// BackupsEnabled reports whether snapshot uploads are configured.
func (c Config) BackupsEnabled() bool {
	return strings.TrimSpace(c.Storage.Bucket) != ""
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// .env is optional; variables already set in the environment win
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TIMECLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/timeclock.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlminutes", 12*60)
	v.SetDefault("users.defaulthourlyrate", 15.0)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "timeclock-backups")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("backup.intervalseconds", 300)
	v.SetDefault("backup.retain", 48)
	v.SetDefault("events.natsurl", "")
	v.SetDefault("events.subjectprefix", "timeclock")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Users.DefaultHourlyRate < 0 {
		return Config{}, fmt.Errorf("users.defaulthourlyrate must not be negative")
	}
	if cfg.Auth.TokenTTLMinutes <= 0 {
		return Config{}, fmt.Errorf("auth.tokenttlminutes must be positive")
	}

	return cfg, nil
}
