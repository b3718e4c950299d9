package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config se arma en capas: Default -> archivo YAML -> env -> flags.
type Config struct {
	AppName string `yaml:"app_name"`
	Port    string `yaml:"port"`

	BountyAPIURL string        `yaml:"bounty_api_url"`
	PollInterval time.Duration `yaml:"poll_interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	WebhookSecret       string        `yaml:"webhook_secret"`
	DeliveryTimeout     time.Duration `yaml:"delivery_timeout"`
	DeliveryConcurrency int           `yaml:"delivery_concurrency"`

	StorageDriver string `yaml:"storage_driver"`
	DataDir       string `yaml:"data_dir"`
	DBDSN         string `yaml:"db_dsn"`
	SQLitePath    string `yaml:"sqlite_path"`

	AdminAPIKey string `yaml:"admin_api_key"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Default() Config {
	return Config{
		AppName:             "bounty-webhooks",
		Port:                "8080",
		BountyAPIURL:        "http://localhost:3000",
		PollInterval:        60 * time.Second,
		FetchTimeout:        10 * time.Second,
		DeliveryTimeout:     10 * time.Second,
		DeliveryConcurrency: 1,
		StorageDriver:       "file",
		DataDir:             "data",
		LogLevel:            "info",
		LogFormat:           "text",
	}
}

// LoadFile pisa cfg con los campos presentes en el YAML de path.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv pisa cfg con las variables de entorno definidas (no vacías).
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str("APP_NAME", &cfg.AppName)
	str("PORT", &cfg.Port)
	str("BOUNTY_API_URL", &cfg.BountyAPIURL)
	str("WEBHOOK_SECRET", &cfg.WebhookSecret)
	str("STORAGE_DRIVER", &cfg.StorageDriver)
	str("DATA_DIR", &cfg.DataDir)
	str("DB_DSN", &cfg.DBDSN)
	str("SQLITE_PATH", &cfg.SQLitePath)
	str("ADMIN_API_KEY", &cfg.AdminAPIKey)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	var errs []error
	dur := func(key string, dst *time.Duration) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		d, err := ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
	dur("POLL_INTERVAL", &cfg.PollInterval)
	dur("FETCH_TIMEOUT", &cfg.FetchTimeout)
	dur("DELIVERY_TIMEOUT", &cfg.DeliveryTimeout)

	if v := strings.TrimSpace(getenv("DELIVERY_CONCURRENCY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DELIVERY_CONCURRENCY: %w", err))
		} else {
			cfg.DeliveryConcurrency = n
		}
	}

	return errors.Join(errs...)
}

// ParseDuration acepta duraciones Go ("90s", "2m") o un entero en milisegundos.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port is required"))
	} else if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("port %q is not a number", c.Port))
	}

	if u, err := url.ParseRequestURI(c.BountyAPIURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("bounty_api_url %q must be an absolute http(s) url", c.BountyAPIURL))
	}

	if c.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("poll_interval must be >= 1s, got %s", c.PollInterval))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch_timeout must be > 0"))
	}
	if c.DeliveryTimeout <= 0 {
		errs = append(errs, errors.New("delivery_timeout must be > 0"))
	}
	if c.DeliveryConcurrency < 1 || c.DeliveryConcurrency > 64 {
		errs = append(errs, fmt.Errorf("delivery_concurrency must be between 1 and 64, got %d", c.DeliveryConcurrency))
	}

	switch strings.ToLower(c.StorageDriver) {
	case "file":
		if strings.TrimSpace(c.DataDir) == "" {
			errs = append(errs, errors.New("data_dir is required for the file driver"))
		}
	case "postgres":
		if strings.TrimSpace(c.DBDSN) == "" {
			errs = append(errs, errors.New("db_dsn is required for the postgres driver"))
		}
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported storage_driver %q (use file, memory, postgres or sqlite)", c.StorageDriver))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unsupported log_format %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

func (c Config) Addr() string { return ":" + c.Port }

// Load arma la configuración completa a partir de args (sin el nombre del
// programa) y getenv. Devuelve pflag.ErrHelp si se pidió --help.
func Load(args []string, getenv func(string) string) (Config, error) {
	fs := pflag.NewFlagSet("bounty-webhooks", pflag.ContinueOnError)

	configPath := fs.String("config", getenv("CONFIG_FILE"), "YAML config file")
	port := fs.String("port", "", "HTTP port")
	bountyURL := fs.String("bounty-api-url", "", "base URL of the bounty API")
	pollInterval := fs.Duration("poll-interval", 0, "poll interval (e.g. 60s)")
	driver := fs.String("storage-driver", "", "storage driver: file, memory, postgres, sqlite")
	dataDir := fs.String("data-dir", "", "directory for the file driver")
	concurrency := fs.Int("delivery-concurrency", 0, "parallel deliveries per event")
	logLevel := fs.String("log-level", "", "debug, info, warn, error")
	logFormat := fs.String("log-format", "", "text or json")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if p := strings.TrimSpace(*configPath); p != "" {
		if err := LoadFile(p, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}

	if fs.Changed("port") {
		cfg.Port = *port
	}
	if fs.Changed("bounty-api-url") {
		cfg.BountyAPIURL = *bountyURL
	}
	if fs.Changed("poll-interval") {
		cfg.PollInterval = *pollInterval
	}
	if fs.Changed("storage-driver") {
		cfg.StorageDriver = *driver
	}
	if fs.Changed("data-dir") {
		cfg.DataDir = *dataDir
	}
	if fs.Changed("delivery-concurrency") {
		cfg.DeliveryConcurrency = *concurrency
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("log-format") {
		cfg.LogFormat = *logFormat
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
