package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Database DatabaseConfig
	Model    ModelConfig
	Logger   LoggerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type UpstreamConfig struct {
	PurchaseSaleURL string
	VehicleURL      string
	Timeout         time.Duration
	InternalKey     string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoCreate      bool
}

type ModelConfig struct {
	Dir                  string
	Name                 string
	MinHistoryMonths     int
	DefaultHorizonMonths int
	TestFraction         float64
}

type LoggerConfig struct {
	Level  string
	Format string
}

// Enabled reports whether a database is configured. Without one the service
// runs on the filesystem registry with no feature or prediction stores.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != "" && d.Name != "" && d.User != ""
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Name)
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("PURCHASE_SALE_URL", "http://sgivu-purchase-sale")
	v.SetDefault("VEHICLE_URL", "http://sgivu-vehicle")
	v.SetDefault("UPSTREAM_TIMEOUT", "15s")
	v.SetDefault("SERVICE_INTERNAL_SECRET_KEY", "")
	v.SetDefault("DB_HOST", "")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_NAME", "")
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_AUTO_CREATE", false)
	v.SetDefault("MODEL_DIR", "models")
	v.SetDefault("MODEL_NAME", "demand_forecaster")
	v.SetDefault("MIN_HISTORY_MONTHS", 6)
	v.SetDefault("DEFAULT_HORIZON_MONTHS", 6)
	v.SetDefault("TEST_FRACTION", 0.2)
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	// Env
	v.AutomaticEnv()

	timeout, err := time.ParseDuration(v.GetString("UPSTREAM_TIMEOUT"))
	if err != nil {
		timeout = 15 * time.Second
	}
	connLifetime, err := time.ParseDuration(v.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		connLifetime = 30 * time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Upstream: UpstreamConfig{
			PurchaseSaleURL: v.GetString("PURCHASE_SALE_URL"),
			VehicleURL:      v.GetString("VEHICLE_URL"),
			Timeout:         timeout,
			InternalKey:     v.GetString("SERVICE_INTERNAL_SECRET_KEY"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Name:            v.GetString("DB_NAME"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connLifetime,
			AutoCreate:      v.GetBool("DB_AUTO_CREATE"),
		},
		Model: ModelConfig{
			Dir:                  v.GetString("MODEL_DIR"),
			Name:                 v.GetString("MODEL_NAME"),
			MinHistoryMonths:     v.GetInt("MIN_HISTORY_MONTHS"),
			DefaultHorizonMonths: v.GetInt("DEFAULT_HORIZON_MONTHS"),
			TestFraction:         v.GetFloat64("TEST_FRACTION"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
	}

	return cfg, nil
}
