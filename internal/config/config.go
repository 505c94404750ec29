package config // package config loads application configuration from environment variables

import (
    "os"
    "strings"
    "time"

    "github.com/joho/godotenv"
    "github.com/sirupsen/logrus"
)

// Storage backends selectable through STORAGE.
const (
    StorageMySQL  = "mysql"
    StorageMemory = "memory"
)

// DefaultHoldDuration is how long a hold blocks other users when
// HOLD_DURATION is not set.
const DefaultHoldDuration = 5 * time.Minute

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env      string // application environment (e.g. "dev", "prod")
    Port     string // HTTP port to listen on
    LogLevel string // logrus level name

    Storage string // mysql or memory
    DBUser  string // database username
    DBPass  string // database password (optional)
    DBHost  string // database host address
    DBPort  string // database port number
    DBName  string // database name
    DBPool  int    // max open (and idle) connections

    HoldDuration  time.Duration // lifetime of a seat hold
    SweepSchedule string        // cron spec for the periodic sweep; empty disables it

    JWTSecret   string // optional; when set bearer tokens tag requests with a user id
    RabbitMQURL string // broker for booking.confirmed events; empty disables publishing
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is applied first when
// present.  Database variables are only required for the mysql backend;
// missing values cause the program to exit with a fatal log message.
func Load() Config {
    if err := godotenv.Load(); err != nil {
        logrus.WithError(err).Debug("no .env file loaded, using process environment")
    }
    cfg := Config{
        Env:           envStr("APP_ENV", "dev"),
        Port:          envStr("APP_PORT", "8080"),
        LogLevel:      envStr("LOG_LEVEL", "info"),
        Storage:       strings.ToLower(envStr("STORAGE", StorageMySQL)),
        DBPass:        os.Getenv("DB_PASS"),
        DBPool:        envInt("DB_MAX_OPEN_CONNS", 25),
        HoldDuration:  envDur("HOLD_DURATION", DefaultHoldDuration),
        SweepSchedule: strings.TrimSpace(os.Getenv("SWEEP_SCHEDULE")),
        JWTSecret:     os.Getenv("JWT_SECRET"),
        RabbitMQURL:   rabbitURL(),
    }
    if cfg.HoldDuration <= 0 {
        logrus.Fatalf("invalid HOLD_DURATION: %s", cfg.HoldDuration)
    }
    switch cfg.Storage {
    case StorageMySQL:
        cfg.DBUser = must("DB_USER")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    case StorageMemory:
    default:
        logrus.Fatalf("unknown STORAGE backend: %q", cfg.Storage)
    }
    return cfg
}

// rabbitURL honours both RABBITMQ_URL and AMQP_URL.  An explicit "off"
// disables the broker entirely.
func rabbitURL() string {
    url := os.Getenv("RABBITMQ_URL")
    if url == "" {
        url = os.Getenv("AMQP_URL")
    }
    if strings.EqualFold(url, "off") {
        return ""
    }
    return url
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        logrus.Fatalf("missing required env var: %s", key)
    }
    return v
}
