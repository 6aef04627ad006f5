package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is read from the environment; see LoadConfig.
type Config struct {
	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	DatabaseFile string `env:"GATEHOUSE_DATABASE_FILE" envDefault:"gatehouse.db"`

	// MasterKey seals stored Google tokens. Empty stores them in plaintext.
	MasterKey string `env:"GATEHOUSE_MASTER_KEY"`

	// StateSecret signs the OAuth state. Empty generates one per process,
	// so logins in flight across a restart fail.
	StateSecret string `env:"GATEHOUSE_STATE_SECRET"`

	FrontendURL        string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	UserTokenTTL       time.Duration `env:"USER_TOKEN_TTL" envDefault:"0s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	GoogleClientID        string   `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret    string   `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL     string   `env:"GOOGLE_REDIRECT_URL" envDefault:"http://localhost:8080/auth/callback"`
	GoogleScopes          []string `env:"GOOGLE_SCOPES" envSeparator:"," envDefault:"openid,email,profile,https://www.googleapis.com/auth/calendar"`
	GoogleAuthURL         string   `env:"GOOGLE_AUTH_URL" envDefault:"https://accounts.google.com/o/oauth2/auth"`
	GoogleTokenURL        string   `env:"GOOGLE_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`
	GoogleUserInfoURL     string   `env:"GOOGLE_USERINFO_URL" envDefault:"https://www.googleapis.com/oauth2/v2/userinfo"`
	GoogleCalendarBaseURL string   `env:"GOOGLE_CALENDAR_BASE_URL" envDefault:"https://www.googleapis.com/calendar/v3"`

	OutboundTimeout time.Duration `env:"OUTBOUND_TIMEOUT" envDefault:"10s"`

	// The PG module is provisioned on boot when its token is set.
	ModulePGToken       string `env:"MODULE_PG_TOKEN"`
	ModulePGName        string `env:"MODULE_PG_NAME" envDefault:"PG"`
	ModulePGDescription string `env:"MODULE_PG_DESCRIPTION" envDefault:"Permission sync for the PG backend"`
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// minSecretLen applies to the master key and the state secret.
const minSecretLen = 16

func (c Config) validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.MasterKey != "" && len(c.MasterKey) < minSecretLen {
		errs = append(errs, fmt.Errorf("GATEHOUSE_MASTER_KEY must be at least %d characters", minSecretLen))
	}
	if c.StateSecret != "" && len(c.StateSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("GATEHOUSE_STATE_SECRET must be at least %d characters", minSecretLen))
	}
	if c.UserTokenTTL < 0 {
		errs = append(errs, errors.New("USER_TOKEN_TTL must not be negative"))
	}
	if c.GoogleClientID != "" && c.GoogleClientSecret == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_SECRET is required when GOOGLE_CLIENT_ID is set"))
	}

	for name, raw := range map[string]string{
		"FRONTEND_URL":             c.FrontendURL,
		"GOOGLE_REDIRECT_URL":      c.GoogleRedirectURL,
		"GOOGLE_AUTH_URL":          c.GoogleAuthURL,
		"GOOGLE_TOKEN_URL":         c.GoogleTokenURL,
		"GOOGLE_USERINFO_URL":      c.GoogleUserInfoURL,
		"GOOGLE_CALENDAR_BASE_URL": c.GoogleCalendarBaseURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", name, raw))
		}
	}

	return errors.Join(errs...)
}

// GoogleConfigured reports whether login and refresh can reach Google.
func (c Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}
