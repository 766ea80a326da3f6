package config // package config loads application configuration from environment variables

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to verify bearer tokens

	RabbitURL          string // AMQP URL for notifications; empty disables publishing
	NotificationLogDir string // where the bundled consumer writes notifications.log
	RunConsumer        bool   // start the notification consumer in-process
	LockBackend        string // "local" or "redis"
	HoursFile          string // YAML opening hours; empty uses the built-in default
	ShutdownTimeout    time.Duration

	Engine EngineConfig
}

// EngineConfig carries the seating rules. Zero durations fall back to the
// engine defaults.
type EngineConfig struct {
	ReconcileInterval time.Duration
	NoShowGrace       time.Duration
	NotifyTimeout     time.Duration
	EarlyArrival      time.Duration
	MaxSeated         time.Duration
	ReminderLead      time.Duration
	SafetyStrategy    string
}

// LoadDotenv reads a .env file from the working directory when present.
// Variables already set in the environment win.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:       envStr("APP_ENV", "dev"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		RabbitURL:          os.Getenv("RABBITMQ_URL"),
		NotificationLogDir: envStr("NOTIFICATION_LOG_DIR", "logs"),
		RunConsumer:        envBool("NOTIFICATION_CONSUMER", true),
		LockBackend:        strings.ToLower(envStr("LOCK_BACKEND", "local")),
		HoursFile:          os.Getenv("HOURS_FILE"),
		ShutdownTimeout:    envDur("SHUTDOWN_TIMEOUT", 10*time.Second),

		Engine: LoadEngineConfig(),
	}
}

// LoadEngineConfig reads the seating rules.
func LoadEngineConfig() EngineConfig {
	return EngineConfig{
		ReconcileInterval: envDur("RECONCILE_INTERVAL", 60*time.Second),
		NoShowGrace:       envDur("NOSHOW_GRACE", 15*time.Minute),
		NotifyTimeout:     envDur("NOTIFY_TIMEOUT", 10*time.Minute),
		EarlyArrival:      envDur("EARLY_ARRIVAL_WINDOW", 15*time.Minute),
		MaxSeated:         envDur("MAX_SEATED", 120*time.Minute),
		ReminderLead:      envDur("REMINDER_LEAD", time.Hour),
		SafetyStrategy:    envStr("SAFETY_STRATEGY", "capacity_sum"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
