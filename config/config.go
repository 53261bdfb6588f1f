package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig
	Checker   CheckerConfig
	Registry  RegistryConfig
	Notify    NotifyConfig
	Scheduler SchedulerConfig
	DBPath    string // local ops database (commands, run history)
	LogLevel  string
	Sources   map[string]*SourceConfig
}

type DatabaseConfig struct {
	URL     string
	Migrate bool
}

type CheckerConfig struct {
	Concurrency int
	RunBudget   time.Duration // wall-clock ceiling for one full run
}

type RegistryConfig struct {
	URL      string
	AppToken string
}

type NotifyConfig struct {
	AWSRegion       string
	AccessKeyID     string
	SecretAccessKey string
	EmailFrom       string
	SMSSenderID     string
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

// SourceConfig describes one external listing feed, loaded from
// config/sources/*.yaml.
type SourceConfig struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Handler     string            `yaml:"handler"` // api, html, browser
	RateLimitMS int               `yaml:"rate_limit_ms"`
	MaxPages    int               `yaml:"max_pages"`
	Endpoints   map[string]string `yaml:"endpoints"`
	// Areas maps canonical neighborhood names to source-specific area IDs.
	// A source only serves neighborhoods it has a mapping for.
	Areas map[string]string `yaml:"areas"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			Migrate: os.Getenv("DB_MIGRATE") != "false",
		},
		Checker: CheckerConfig{
			Concurrency: getEnvInt("CHECKER_CONCURRENCY", 4),
			RunBudget:   getEnvDuration("RUN_BUDGET", 10*time.Minute),
		},
		Registry: RegistryConfig{
			URL:      getEnv("REGISTRY_URL", "https://data.cityofnewyork.us/resource/64uk-42ks.json"),
			AppToken: os.Getenv("REGISTRY_APP_TOKEN"),
		},
		Notify: NotifyConfig{
			AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			EmailFrom:       os.Getenv("EMAIL_FROM"),
			SMSSenderID:     getEnv("SMS_SENDER_ID", "PADWATCH"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("CHECK_CRON"),
		},
		DBPath:   getEnv("DB_PATH", "padwatch.db"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Sources:  make(map[string]*SourceConfig),
	}

	if interval := os.Getenv("CHECK_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadSourceConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadSourceConfigs() error {
	configDir := "config/sources"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var source SourceConfig
		if err := yaml.Unmarshal(data, &source); err != nil {
			return err
		}
		if source.MaxPages == 0 {
			source.MaxPages = 50
		}

		c.Sources[source.ID] = &source
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
