package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBDriver string `long:"db-driver" env:"DB_DRIVER" default:"sqlite" choice:"sqlite" choice:"postgres" description:"Database driver"`
	DBDSN    string `long:"db-dsn" env:"DATABASE_URL" description:"Database DSN (defaults to ./alert-comb.db for sqlite)"`

	// Source configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration overrides"`
	OpenFDAKey        string `long:"openfda-key" env:"OPENFDA_API_KEY" description:"openFDA API key (optional, raises rate limits)"`
	RegulationsGovKey string `long:"regulations-gov-key" env:"REGULATIONS_GOV_API_KEY" description:"Regulations.gov API key"`
	BatchSize         int    `long:"batch-size" env:"BATCH_SIZE" default:"50" description:"Number of alerts written per batch"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://alerts.example.com)"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for sync tasks"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Coordination and delivery
	RedisAddr    string   `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for distributed sync locks (optional)"`
	LockTTL      int      `long:"lock-ttl" env:"LOCK_TTL" default:"1800" description:"Sync lock TTL in seconds"`
	KafkaBrokers []string `long:"kafka-broker" env:"KAFKA_BROKERS" env-delim:"," description:"Kafka broker address for alert events (repeatable, optional)"`
	KafkaTopic   string   `long:"kafka-topic" env:"KAFKA_TOPIC" default:"regulatory-alerts" description:"Kafka topic for alert events"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Alert Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses flags and environment into the configuration. Extra
// option groups (command specific flags) are parsed from the same command line.
func Load(groups ...any) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	for _, group := range groups {
		if _, err := parser.AddGroup("Command Options", "", group); err != nil {
			return nil, fmt.Errorf("failed to register options: %w", err)
		}
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBDriver:          raw.DBDriver,
		DBDSN:             raw.DBDSN,
		SourcesDir:        raw.SourcesDir,
		OpenFDAKey:        raw.OpenFDAKey,
		RegulationsGovKey: raw.RegulationsGovKey,
		BatchSize:         raw.BatchSize,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		RedisAddr:         raw.RedisAddr,
		LockTTL:           raw.LockTTL,
		KafkaBrokers:      raw.KafkaBrokers,
		KafkaTopic:        raw.KafkaTopic,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

// LockTimeout returns the sync lock TTL as a duration.
func (c *Cfg) LockTimeout() time.Duration {
	return time.Duration(c.LockTTL) * time.Second
}

func (c *Cfg) validate() error {
	if c.DBDriver == "postgres" && c.DBDSN == "" {
		return fmt.Errorf("--db-dsn (DATABASE_URL) is required for the postgres driver")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.WorkerCount)
	}
	if c.SchedulerInterval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %d", c.SchedulerInterval)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
