package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	// Telegram
	BotToken     string
	APIURL       string
	PollInterval time.Duration
	PollTimeout  time.Duration

	// Database
	DBDriver   string
	DBUser     string
	DBPassword string
	DBHost     string
	DBName     string
	DBPath     string

	// Logging, LogFile "" disables the file sink
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogLevel      string

	// Status server, disabled when empty
	StatusAddr string
}

// LoadConfig reads the given .env files (missing files are skipped) and then
// builds the configuration from the process environment.
func LoadConfig(envFiles ...string) *Config {
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("config: could not load %s: %v", f, err)
		}
	}

	return &Config{
		BotToken:     os.Getenv("BOT_ID"),
		APIURL:       envString("TELEGRAM_API_URL", "https://api.telegram.org"),
		PollInterval: time.Duration(envInt("POLL_INTERVAL", 10)) * time.Second,
		PollTimeout:  time.Duration(envInt("POLL_TIMEOUT", 0)) * time.Second,

		DBDriver:   envString("DB_DRIVER", DriverMySQL),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     os.Getenv("DB_HOST"),
		DBName:     os.Getenv("DB_NAME"),
		DBPath:     envString("DB_PATH", "notebot.db"),

		LogFile:       envStringOrEmpty("LOG_FILE", "bot_logs.log"),
		LogMaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 1),
		LogMaxBackups: envInt("LOG_MAX_BACKUPS", 5),
		LogLevel:      envString("LOG_LEVEL", "info"),

		StatusAddr: os.Getenv("STATUS_ADDR"),
	}
}

// Validate reports settings the bot cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_ID is required"))
	}
	switch c.DBDriver {
	case DriverMySQL:
		if c.DBHost == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for mysql"))
		}
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envStringOrEmpty is envString, except that a variable set to "" stays "".
func envStringOrEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("config: %s=%q is not a number, using %d", key, s, def)
		return def
	}
	return val
}
