package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/point"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/validator"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Database  DatabaseConfig
	JWT       JWTConfig
	App       AppConfig
	Storage   StorageConfig
	Reconcile ReconcileConfig
	Points    PointsConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
}

type StorageConfig struct {
	Type          string // only "local" is supported
	BasePath      string
	MaxUploadSize int64 // bytes
}

type ReconcileConfig struct {
	Workers            int
	DuplicateWindow    time.Duration
	MaxOvertimeMinutes int
	JobInterval        time.Duration
	BatchSize          int
	ProcessingLease    time.Duration
	CloseHour          int
	CloseDays          int
}

type PointsConfig struct {
	ExpiryDays int
	Values     map[point.Type]decimal.Decimal
	GBROTypes  []point.Type
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{}
	var err error

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 25)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "hris-attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Timezone:       getEnv("APP_TIMEZONE", "Asia/Manila"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Storage configuration
	maxUpload, err := getEnvInt("STORAGE_MAX_UPLOAD_MB", 10)
	if err != nil {
		return nil, err
	}
	config.Storage = StorageConfig{
		Type:          getEnv("STORAGE_TYPE", "local"),
		BasePath:      getEnv("STORAGE_BASE_PATH", "./uploads"),
		MaxUploadSize: int64(maxUpload) << 20,
	}

	if config.Reconcile, err = loadReconcile(); err != nil {
		return nil, err
	}
	if config.Points, err = loadPoints(); err != nil {
		return nil, err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadReconcile() (ReconcileConfig, error) {
	var rc ReconcileConfig
	var err error

	if rc.Workers, err = getEnvInt("RECONCILE_WORKERS", 4); err != nil {
		return rc, err
	}
	if rc.DuplicateWindow, err = getEnvDuration("RECONCILE_DUPLICATE_WINDOW", 2*time.Minute); err != nil {
		return rc, err
	}
	if rc.MaxOvertimeMinutes, err = getEnvInt("RECONCILE_MAX_OVERTIME_MINUTES", 240); err != nil {
		return rc, err
	}
	if rc.JobInterval, err = getEnvDuration("INGEST_JOB_INTERVAL", time.Minute); err != nil {
		return rc, err
	}
	if rc.BatchSize, err = getEnvInt("INGEST_BATCH_SIZE", 5); err != nil {
		return rc, err
	}
	if rc.ProcessingLease, err = getEnvDuration("INGEST_PROCESSING_LEASE", 30*time.Minute); err != nil {
		return rc, err
	}
	if rc.CloseHour, err = getEnvInt("ATTENDANCE_CLOSE_HOUR", 1); err != nil {
		return rc, err
	}
	if rc.CloseDays, err = getEnvInt("ATTENDANCE_CLOSE_DAYS", 2); err != nil {
		return rc, err
	}
	return rc, nil
}

func loadPoints() (PointsConfig, error) {
	defaults := point.DefaultPolicy()
	pc := PointsConfig{
		Values:    defaults.Values,
		GBROTypes: defaults.GBROEligible,
	}

	var err error
	if pc.ExpiryDays, err = getEnvInt("POINT_EXPIRY_DAYS", defaults.ExpiryDays); err != nil {
		return pc, err
	}

	// POINT_VALUES overrides single entries, e.g. "tardy=0.5,no_call_no_show=1.5".
	for _, entry := range getEnvSlice("POINT_VALUES") {
		typ, raw, ok := strings.Cut(entry, "=")
		if !ok {
			return pc, fmt.Errorf("invalid POINT_VALUES entry %q", entry)
		}
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return pc, fmt.Errorf("invalid POINT_VALUES entry %q: %w", entry, err)
		}
		pc.Values[point.Type(strings.TrimSpace(typ))] = value
	}

	if gbro := getEnvSlice("POINT_GBRO_TYPES"); len(gbro) > 0 {
		pc.GBROTypes = make([]point.Type, 0, len(gbro))
		for _, t := range gbro {
			pc.GBROTypes = append(pc.GBROTypes, point.Type(strings.TrimSpace(t)))
		}
	}
	return pc, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		return fmt.Errorf("invalid JWT_ACCESS_EXPIRATION_TIME: %w", err)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	if c.Storage.Type != "local" {
		return fmt.Errorf("unsupported STORAGE_TYPE %q", c.Storage.Type)
	}
	if c.Reconcile.Workers < 1 {
		return fmt.Errorf("RECONCILE_WORKERS must be at least 1")
	}
	if c.Reconcile.MaxOvertimeMinutes < 0 {
		return fmt.Errorf("RECONCILE_MAX_OVERTIME_MINUTES must not be negative")
	}
	if c.Reconcile.ProcessingLease <= 0 {
		return fmt.Errorf("INGEST_PROCESSING_LEASE must be positive")
	}
	if c.Reconcile.CloseHour < 0 || c.Reconcile.CloseHour > 23 {
		return fmt.Errorf("ATTENDANCE_CLOSE_HOUR must be between 0 and 23")
	}
	if c.Points.ExpiryDays < 1 {
		return fmt.Errorf("POINT_EXPIRY_DAYS must be at least 1")
	}
	for t, v := range c.Points.Values {
		if !isPointType(t) {
			return fmt.Errorf("POINT_VALUES: unknown point type %q", t)
		}
		if v.IsNegative() {
			return fmt.Errorf("POINT_VALUES: %s must not be negative", t)
		}
	}
	for _, t := range c.Points.GBROTypes {
		if !isPointType(t) {
			return fmt.Errorf("POINT_GBRO_TYPES: unknown point type %q", t)
		}
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the site location punches and shift-dates are read in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// PointPolicy returns the point accrual policy built from the Points section.
func (c *Config) PointPolicy() point.Policy {
	return point.Policy{
		Values:       c.Points.Values,
		ExpiryDays:   c.Points.ExpiryDays,
		GBROEligible: c.Points.GBROTypes,
	}
}

func isPointType(t point.Type) bool {
	return validator.IsInSlice(string(t), point.TypeValues)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string = strings.Split(value, ",")
	return result
}
