package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"
)

// Store backends selectable with APP_STORE.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Business tunables that operators change at
// runtime (hold lifetime, base fare) live in the settings table; the values
// here only seed it.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	Store     string // inventory backend: "mysql" or "memory"
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	Migrate   bool   // create missing tables at startup
	JWTSecret string // secret used to verify JWTs

	AMQPURL     string // RabbitMQ connection URL; empty disables publishing
	RunConsumer bool   // start the purchase log consumer in-process
	EventLogDir string // directory the consumer appends to

	SweepInterval time.Duration // how often expired holds are swept
	PurgeInterval time.Duration // how often expired holds are purged

	HoldTTLMinutes   int           // default for hold.ttl_minutes
	BaseFare         string        // default for fare.base
	SettingsCacheTTL time.Duration // Redis lifetime of cached settings
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Database variables
// are only required for the mysql store.
func Load() Config {
	cfg := Config{
		Env:       envStr("APP_ENV", "dev"),
		Port:      must("APP_PORT"),
		Store:     envStr("APP_STORE", StoreMySQL),
		Migrate:   envBool("DB_MIGRATE", true),
		JWTSecret: must("JWT_SECRET"),

		AMQPURL:     amqpURL(),
		RunConsumer: envBool("QUEUE_CONSUMER_ENABLED", false),
		EventLogDir: envStr("EVENT_LOG_DIR", "logs"),

		SweepInterval: envDur("SWEEP_INTERVAL", time.Minute),
		PurgeInterval: envDur("PURGE_INTERVAL", 5*time.Minute),

		HoldTTLMinutes:   envInt("HOLD_TTL_MINUTES", 10),
		BaseFare:         envStr("FARE_BASE", "25.00"),
		SettingsCacheTTL: envDur("SETTINGS_CACHE_TTL", 30*time.Second),
	}
	switch cfg.Store {
	case StoreMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case StoreMemory:
	default:
		log.Fatalf("invalid APP_STORE %q: want %q or %q", cfg.Store, StoreMySQL, StoreMemory)
	}
	if cfg.SweepInterval <= 0 || cfg.PurgeInterval <= 0 {
		log.Fatalf("SWEEP_INTERVAL and PURGE_INTERVAL must be positive")
	}
	return cfg
}

// SettingDefaults returns the env-provided defaults for the settings table.
func (c Config) SettingDefaults() map[string]string {
	return map[string]string{
		SettingHoldTTL:  strconv.Itoa(c.HoldTTLMinutes),
		SettingBaseFare: c.BaseFare,
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}
