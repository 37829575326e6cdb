package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort           string        `yaml:"api_port"`
	BrokerAccountID   int64         `yaml:"broker_account_id"`
	CentralBankAddr   string        `yaml:"central_bank_addr"`
	BankTimeout       time.Duration `yaml:"-"`
	DiscoveryAddr     string        `yaml:"discovery_addr"`
	ResourceName      string        `yaml:"resource_name"`
	ExecutorCommand   string        `yaml:"executor_command"`
	PoolCapacity      int           `yaml:"pool_capacity"`
	RebillInterval    time.Duration `yaml:"-"`
	ConfigFile        string        `yaml:"-"`
	JWTKey            []byte        `yaml:"-"`
	JWTExp            time.Duration `yaml:"-"`
	AdminUsername     string        `yaml:"-"`
	AdminPasswordHash string        `yaml:"-"`

	DBDriver   string `yaml:"db_driver"`
	DBHost     string `yaml:"-"`
	DBPort     string `yaml:"-"`
	DBUser     string `yaml:"-"`
	DBPassword string `yaml:"-"`
	DBName     string `yaml:"-"`
	DBSslMode  string `yaml:"-"`
	SQLitePath string `yaml:"sqlite_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"-"`

	PriceHistoryKey     string        `yaml:"price_history_key"`
	PriceHistoryLimit   int           `yaml:"price_history_limit"`
	PriceSampleInterval time.Duration `yaml:"-"`
}

// fileConfig is the YAML overlay. Durations are strings like "3s".
type fileConfig struct {
	Config              `yaml:",inline"`
	BankTimeout         string `yaml:"bank_timeout"`
	RebillInterval      string `yaml:"rebill_interval"`
	PriceSampleInterval string `yaml:"price_sample_interval"`
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = FromEnv()

	if AppConfig.ConfigFile != "" {
		if err := AppConfig.ApplyFile(AppConfig.ConfigFile); err != nil {
			log.Fatalf("Could not load config file %s: %v", AppConfig.ConfigFile, err)
		}
	}
}

func FromEnv() *Config {
	return &Config{
		APIPort:           getEnv("API_PORT", "80"),
		BrokerAccountID:   int64(getEnvAsInt("BROKER_ACCOUNT_ID", 0)),
		CentralBankAddr:   getEnv("CENTRAL_BANK_ADDR", "127.0.0.1:5000"),
		BankTimeout:       getEnvAsDuration("BANK_TIMEOUT", 10*time.Second),
		DiscoveryAddr:     getEnv("DISCOVERY_ADDR", ""),
		ResourceName:      getEnv("RESOURCE_NAME", "Spot Priced Python"),
		ExecutorCommand:   getEnv("EXECUTOR_COMMAND", "docker run --rm python"),
		PoolCapacity:      getEnvAsInt("POOL_CAPACITY", 7),
		RebillInterval:    getEnvAsDuration("REBILL_INTERVAL", 3*time.Second),
		ConfigFile:        getEnv("CONFIG_FILE", ""),
		JWTKey:            []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:            time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "spotbroker"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "spotbroker.db"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		PriceHistoryKey:     getEnv("PRICE_HISTORY_KEY", "spot_price_history"),
		PriceHistoryLimit:   getEnvAsInt("PRICE_HISTORY_LIMIT", 500),
		PriceSampleInterval: getEnvAsDuration("PRICE_SAMPLE_INTERVAL", 5*time.Second),
	}
}

// ApplyFile overlays the non-zero values of a YAML file.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	overlayString(&c.APIPort, fc.APIPort)
	overlayString(&c.CentralBankAddr, fc.CentralBankAddr)
	overlayString(&c.DiscoveryAddr, fc.DiscoveryAddr)
	overlayString(&c.ResourceName, fc.ResourceName)
	overlayString(&c.ExecutorCommand, fc.ExecutorCommand)
	overlayString(&c.DBDriver, fc.DBDriver)
	overlayString(&c.SQLitePath, fc.SQLitePath)
	overlayString(&c.RedisAddr, fc.RedisAddr)
	overlayString(&c.PriceHistoryKey, fc.PriceHistoryKey)
	if fc.BrokerAccountID != 0 {
		c.BrokerAccountID = fc.BrokerAccountID
	}
	if fc.PoolCapacity != 0 {
		c.PoolCapacity = fc.PoolCapacity
	}
	if fc.PriceHistoryLimit != 0 {
		c.PriceHistoryLimit = fc.PriceHistoryLimit
	}

	durations := []struct {
		dst *time.Duration
		raw string
		key string
	}{
		{&c.BankTimeout, fc.BankTimeout, "bank_timeout"},
		{&c.RebillInterval, fc.RebillInterval, "rebill_interval"},
		{&c.PriceSampleInterval, fc.PriceSampleInterval, "price_sample_interval"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, d.raw, err)
		}
		*d.dst = v
	}

	return c.Validate()
}

// Validate checks that all config values are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.PoolCapacity <= 0 {
		errs = append(errs, fmt.Errorf("pool capacity must be > 0, got %d", c.PoolCapacity))
	}
	if c.RebillInterval <= 0 {
		errs = append(errs, fmt.Errorf("rebill interval must be > 0, got %s", c.RebillInterval))
	}
	if c.CentralBankAddr == "" {
		errs = append(errs, errors.New("central bank address cannot be empty"))
	}
	if c.DBDriver != "pgx" && c.DBDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("db driver must be pgx or sqlite, got %q", c.DBDriver))
	}
	return errors.Join(errs...)
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return "host=" + c.DBHost +
		" port=" + c.DBPort +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=" + c.DBSslMode
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
