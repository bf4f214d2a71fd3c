package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/mbolis/uss/log"
)

type Config struct {
	Addr           string
	DBUrl          string
	TokenSecret    string
	TokenTTL       time.Duration
	SessionSecret  string
	SessionTTL     time.Duration
	RedisUrl       string
	SurveyDuration int // days
	AdminUsername  string
	AdminPassword  string
	LogLevel       log.Level
	LogJSON        bool
}

// LoadDotEnv copies the variables found in files (default ".env") into the
// environment. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ParseFlags reads the command line. Every flag falls back to an USS_* environment
// variable, then to its default.
func ParseFlags(args []string) (cfg Config, err error) {
	fs := flag.NewFlagSet("uss", flag.ContinueOnError)

	var host string
	fs.StringVar(&host, "host", envString("USS_HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", envUint("USS_PORT", 80), "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", envString("USS_DB_URL", "uss.sqlite"), "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", envString("USS_TOKEN_SECRET", ""), "secret key for token encryption and decryption")
	var tokenTTL uint
	fs.UintVar(&tokenTTL, "token-ttl", envUint("USS_TOKEN_TTL", 120), "token TTL in seconds")
	fs.StringVar(&cfg.SessionSecret, "session-secret", envString("USS_SESSION_SECRET", ""), "secret key signing session cookies")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", envDuration("USS_SESSION_TTL", 14*24*time.Hour), "session lifetime")
	fs.StringVar(&cfg.RedisUrl, "redis-url", envString("USS_REDIS_URL", ""), "Redis URL for sessions (in-memory sessions when empty)")
	var surveyDuration uint
	fs.UintVar(&surveyDuration, "survey-duration", envUint("USS_SURVEY_DURATION", 14), "default survey duration in days")
	fs.StringVar(&cfg.AdminUsername, "admin-username", envString("USS_ADMIN_USERNAME", ""), "administrator account ensured at startup")
	fs.StringVar(&cfg.AdminPassword, "admin-password", envString("USS_ADMIN_PASSWORD", ""), "administrator password")
	var logLevel string
	fs.StringVar(&logLevel, "log-level", envString("USS_LOG_LEVEL", "info"), "minimum level logged (trace, debug, info, warn, error)")
	var debug bool
	fs.BoolVar(&debug, "debug", envBool("USS_DEBUG", false), "shorthand for -log-level debug")
	fs.BoolVar(&cfg.LogJSON, "log-json", envBool("USS_LOG_JSON", false), "log JSON objects instead of text")

	err = fs.Parse(args)
	if err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(tokenTTL) * time.Second
	cfg.SurveyDuration = int(surveyDuration)

	var result *multierror.Error
	cfg.LogLevel, err = log.ParseLevel(logLevel)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("-log-level: %w", err))
	}
	if debug {
		cfg.LogLevel = log.DebugLevel
	}

	err = cfg.validate(result)
	return
}

func (cfg Config) validate(result *multierror.Error) error {
	if cfg.TokenSecret == "" {
		result = multierror.Append(result, errors.New("missing parameter -token-secret"))
	}
	if cfg.SessionSecret == "" {
		result = multierror.Append(result, errors.New("missing parameter -session-secret"))
	}
	if cfg.TokenTTL <= 0 {
		result = multierror.Append(result, errors.New("-token-ttl must be positive"))
	}
	if cfg.SessionTTL <= 0 {
		result = multierror.Append(result, errors.New("-session-ttl must be positive"))
	}
	if cfg.SurveyDuration < 1 {
		result = multierror.Append(result, errors.New("-survey-duration must be at least 1 day"))
	}
	if (cfg.AdminUsername == "") != (cfg.AdminPassword == "") {
		result = multierror.Append(result, errors.New("-admin-username and -admin-password go together"))
	}

	return result.ErrorOrNil()
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envUint(key string, def uint) uint {
	if v, err := strconv.ParseUint(os.Getenv(key), 10, 0); err == nil {
		return uint(v)
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
