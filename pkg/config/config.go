package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"airline/pkg/models"

	"github.com/spf13/viper"
)

const (
	StorageSQL    = "sql"
	StorageMemory = "memory"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	keyPort              = "port"
	keyStorage           = "storage"
	keyDBDriver          = "db_driver"
	keyDatabaseURL       = "database_url"
	keyRedisURL          = "redis_url"
	keyFlightsChannel    = "flights_channel"
	keyJWTSecret         = "jwt_secret"
	keyTokenTTL          = "token_ttl"
	keyHQUser            = "hq_user"
	keyHQPasswordHash    = "hq_password_hash"
	keyAgentUser         = "agent_user"
	keyAgentPasswordHash = "agent_password_hash"
	keyLogLevel          = "log_level"
	keyLogFormat         = "log_format"
	keyAllowOrigins      = "allow_origins"
)

const DefaultJWTSecret = "dev-secret-key-change-in-production"

type Config struct {
	Port           string
	Storage        string
	DBDriver       string
	DatabaseURL    string
	RedisURL       string
	FlightsChannel string
	JWTSecret      string
	TokenTTL       time.Duration
	Operators      []Operator
	LogLevel       string
	LogFormat      string
	AllowOrigins   string
}

// Operator is a login allowed to call the API under Role.
type Operator struct {
	Username     string
	PasswordHash string
	Role         string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPort, "8080")
	v.SetDefault(keyStorage, StorageSQL)
	v.SetDefault(keyDBDriver, DriverPostgres)
	v.SetDefault(keyDatabaseURL, "")
	v.SetDefault(keyRedisURL, "redis://localhost:6379")
	v.SetDefault(keyFlightsChannel, "airline:flights")
	v.SetDefault(keyJWTSecret, DefaultJWTSecret)
	v.SetDefault(keyTokenTTL, "12h")
	v.SetDefault(keyHQUser, "admin")
	v.SetDefault(keyHQPasswordHash, "")
	v.SetDefault(keyAgentUser, "agent")
	v.SetDefault(keyAgentPasswordHash, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "json")
	v.SetDefault(keyAllowOrigins, "http://localhost:3000")
}

// Load reads defaults, then the config file at path if one is given, then
// environment variables such as PORT or DATABASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	ttl, err := time.ParseDuration(v.GetString(keyTokenTTL))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", keyTokenTTL, err)
	}

	cfg := &Config{
		Port:           v.GetString(keyPort),
		Storage:        strings.ToLower(v.GetString(keyStorage)),
		DBDriver:       strings.ToLower(v.GetString(keyDBDriver)),
		DatabaseURL:    v.GetString(keyDatabaseURL),
		RedisURL:       v.GetString(keyRedisURL),
		FlightsChannel: v.GetString(keyFlightsChannel),
		JWTSecret:      v.GetString(keyJWTSecret),
		TokenTTL:       ttl,
		LogLevel:       v.GetString(keyLogLevel),
		LogFormat:      v.GetString(keyLogFormat),
		AllowOrigins:   v.GetString(keyAllowOrigins),
	}

	if hash := v.GetString(keyHQPasswordHash); hash != "" {
		cfg.Operators = append(cfg.Operators, Operator{Username: v.GetString(keyHQUser), PasswordHash: hash, Role: models.RoleHQ})
	}
	if hash := v.GetString(keyAgentPasswordHash); hash != "" {
		cfg.Operators = append(cfg.Operators, Operator{Username: v.GetString(keyAgentUser), PasswordHash: hash, Role: models.RoleAgent})
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageSQL:
		if c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite {
			return fmt.Errorf("unsupported db_driver %q", c.DBDriver)
		}
		if c.DatabaseURL == "" {
			return errors.New("database_url is required for sql storage")
		}
	default:
		return fmt.Errorf("unsupported storage %q", c.Storage)
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret must not be empty")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return "0.0.0.0:" + c.Port
}
