package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	LogLevel string
	Database DatabaseConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	Billing  BillingConfig
	Company  CompanyConfig
	Seed     SeedConfig

	// EnvFileLoaded is false when no .env file was found
	EnvFileLoaded bool
}

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	// Path is the database file for the sqlite driver
	Path string
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds refresh cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// BillingConfig controls bill numbering and tax
type BillingConfig struct {
	NumberPrefix     string
	NumberWidth      int
	GSTRate          decimal.Decimal
	DefaultGSTNumber string
	MaxNumberRetries int
}

// CompanyConfig is printed on exported invoices
type CompanyConfig struct {
	Name      string
	Address   string
	Phone     string
	GSTNumber string
}

// SeedConfig describes the first admin account
type SeedConfig struct {
	AdminName     string
	AdminMobile   string
	AdminPassword string
	// BillPrefix is used to continue numbering after existing bills
	BillPrefix string
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// .env is optional in production
	envLoaded := godotenv.Load() == nil

	// trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	database, err := loadDatabaseConfig(appMode)
	if err != nil {
		return nil, err
	}

	billing, err := loadBillingConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		AppMode:       appMode,
		Port:          getEnv("PORT", "3000"),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel(appMode)),
		Database:      database,
		JWT:           loadJWTConfig(appMode),
		Cookie:        loadCookieConfig(appMode),
		Billing:       billing,
		Company:       loadCompanyConfig(),
		Seed:          loadSeedConfig(billing.NumberPrefix),
		EnvFileLoaded: envLoaded,
	}, nil
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

func defaultLogLevel(mode string) string {
	if mode == "prod" {
		return "info"
	}
	return "debug"
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) (DatabaseConfig, error) {
	prefix := modePrefix(mode)

	driver := strings.ToLower(getEnv(prefix+"DB_DRIVER", DriverMySQL))
	defaultPort := "3306"
	switch driver {
	case DriverMySQL:
	case DriverPostgres:
		defaultPort = "5432"
	case DriverSQLite:
		defaultPort = ""
	default:
		return DatabaseConfig{}, fmt.Errorf("invalid %sDB_DRIVER: '%s' (must be mysql, postgres or sqlite)", prefix, driver)
	}

	return DatabaseConfig{
		Driver:   driver,
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", defaultPort),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "transport_billing"),
		Path:     getEnv(prefix+"DB_PATH", "transport_billing.db"),
	}, nil
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  getEnvInt("ACCESS_TOKEN_MINUTES", 15),
		RefreshTokenDays: getEnvInt("REFRESH_TOKEN_DAYS", 7),
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	secure, _ := strconv.ParseBool(getEnv(modePrefix(mode)+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

func loadBillingConfig() (BillingConfig, error) {
	rate, err := decimal.NewFromString(getEnv("BILL_GST_RATE", "0.18"))
	if err != nil {
		return BillingConfig{}, fmt.Errorf("invalid BILL_GST_RATE: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return BillingConfig{}, fmt.Errorf("invalid BILL_GST_RATE: %s (must be in [0, 1))", rate)
	}

	width := getEnvInt("BILL_NUMBER_WIDTH", 6)
	if width < 1 {
		return BillingConfig{}, fmt.Errorf("invalid BILL_NUMBER_WIDTH: %d", width)
	}

	retries := getEnvInt("BILL_NUMBER_RETRIES", 3)
	if retries < 1 {
		retries = 1
	}

	return BillingConfig{
		NumberPrefix:     getEnv("BILL_NUMBER_PREFIX", "TB-"),
		NumberWidth:      width,
		GSTRate:          rate,
		DefaultGSTNumber: getEnv("BILL_DEFAULT_GST_NUMBER", "N/A"),
		MaxNumberRetries: retries,
	}, nil
}

func loadCompanyConfig() CompanyConfig {
	return CompanyConfig{
		Name:      getEnv("COMPANY_NAME", "Transport Billing"),
		Address:   getEnv("COMPANY_ADDRESS", ""),
		Phone:     getEnv("COMPANY_PHONE", ""),
		GSTNumber: getEnv("COMPANY_GST_NUMBER", ""),
	}
}

func loadSeedConfig(billPrefix string) SeedConfig {
	return SeedConfig{
		BillPrefix:    billPrefix,
		AdminName:     getEnv("SEED_ADMIN_NAME", "Administrator"),
		AdminMobile:   getEnv("SEED_ADMIN_MOBILE", ""),
		AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return n
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "http://localhost:3000"
	}
	return origins
}
