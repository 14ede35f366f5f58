package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultRegion = "UK (Default)"
)

type Config struct {
	Server   ServerConfig
	Scraper  ScraperConfig
	Browser  BrowserConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Export   ExportConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port            int
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	BaseURL         string
	Departments     []string
	Workers         int
	MinDelay        time.Duration
	MaxDelay        time.Duration
	Postcode        string
	Region          string
	Supplier        string
	MaxProducts     int
	MaxDepth        int
	MaxPages        int
	RefreshExisting bool
	BlockCooldown   time.Duration
	LinkFile        string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	UserAgents     []string
}

type DatabaseConfig struct {
	Driver     string
	URL        string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
	MaxConns   int32
}

// RedisConfig configures event publishing. An empty Addr disables events.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type ExportConfig struct {
	CSVPath   string
	XLSXPath  string
	BatchSize int
}

// MetricsConfig configures the standalone /metrics listener of the batch
// scraper. An empty Port disables it.
type MetricsConfig struct {
	Port string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the given .env files (".env" when none are named; missing files
// are ignored), then the environment, and validates the result.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	postcode := getEnv("SCRAPER_POSTCODE", "E1 6AN")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvInt("PORT", 8084),
			AllowedOrigins:  getEnvSlice("SERVER_ALLOWED_ORIGINS", nil),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Scraper: ScraperConfig{
			BaseURL:         getEnv("SCRAPER_BASE_URL", "https://www.screwfix.com"),
			Departments:     getEnvSlice("SCRAPER_DEPARTMENTS", nil),
			Workers:         getEnvInt("SCRAPER_WORKERS", 2),
			MinDelay:        getEnvDuration("SCRAPER_MIN_DELAY", 3*time.Second),
			MaxDelay:        getEnvDuration("SCRAPER_MAX_DELAY", 6*time.Second),
			Postcode:        postcode,
			Region:          getEnv("SCRAPER_REGION", regionFor(postcode)),
			Supplier:        getEnv("SCRAPER_SUPPLIER", "Screwfix"),
			MaxProducts:     getEnvInt("SCRAPER_MAX_PRODUCTS", 0),
			MaxDepth:        getEnvInt("SCRAPER_MAX_DEPTH", 3),
			MaxPages:        getEnvInt("SCRAPER_MAX_PAGES", 50),
			RefreshExisting: getEnvBool("SCRAPER_REFRESH_EXISTING", false),
			BlockCooldown:   getEnvDuration("SCRAPER_BLOCK_COOLDOWN", 60*time.Second),
			LinkFile:        getEnv("SCRAPER_LINK_FILE", "data/links.json"),
		},
		Browser: BrowserConfig{
			Headless:       getEnvBool("BROWSER_HEADLESS", true),
			Timeout:        getEnvDuration("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getEnvInt("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getEnvInt("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnv("BROWSER_ACCEPT_LANGUAGE", "en-GB,en;q=0.9"),
			TimezoneID:     getEnv("BROWSER_TIMEZONE", "Europe/London"),
			Locale:         getEnv("BROWSER_LOCALE", "en-GB"),
			UserAgents:     getEnvSlice("BROWSER_USER_AGENTS", defaultUserAgents()),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
			URL:        getEnv("DATABASE_URL", ""),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			Name:       getEnv("DB_NAME", "products"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "data/products.db"),
			MaxConns:   int32(getEnvInt("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Stream:   getEnv("REDIS_STREAM", "stream:catalog_products"),
		},
		Export: ExportConfig{
			CSVPath:   getEnv("EXPORT_CSV_PATH", "screwfix_products.csv"),
			XLSXPath:  getEnv("EXPORT_XLSX_PATH", "screwfix_products.xlsx"),
			BatchSize: getEnvInt("EXPORT_BATCH_SIZE", 20),
		},
		Metrics: MetricsConfig{
			Port: getEnv("METRICS_PORT", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}

	if c.Scraper.Workers < 1 {
		errs = append(errs, fmt.Errorf("at least 1 worker is required"))
	}

	if c.Scraper.MinDelay > c.Scraper.MaxDelay {
		errs = append(errs, fmt.Errorf("SCRAPER_MIN_DELAY cannot be greater than SCRAPER_MAX_DELAY"))
	}

	if c.Scraper.MaxProducts < 0 {
		errs = append(errs, fmt.Errorf("SCRAPER_MAX_PRODUCTS cannot be negative"))
	}

	if c.Scraper.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("SCRAPER_MAX_DEPTH cannot be negative"))
	}

	if !strings.HasPrefix(c.Scraper.BaseURL, "http://") && !strings.HasPrefix(c.Scraper.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("invalid base url: %q", c.Scraper.BaseURL))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Name == "") {
			errs = append(errs, fmt.Errorf("database host and name are required"))
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("sqlite path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver: %q", c.Database.Driver))
	}

	if c.Export.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("EXPORT_BATCH_SIZE must be at least 1"))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format: %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// UserAgent returns the first configured user agent.
func (b BrowserConfig) UserAgent() string {
	if len(b.UserAgents) == 0 {
		return ""
	}
	return b.UserAgents[0]
}

func regionFor(postcode string) string {
	if postcode == "" {
		return defaultRegion
	}
	return postcode
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}
