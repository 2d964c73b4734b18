package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"coworkspace/internal/availability"
)

const (
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
	StoreSSM      = "ssm"
)

// Config captures environment driven configuration for the booking service.
type Config struct {
	Port string

	SlotDuration     time.Duration
	WorkdayStart     availability.TimeOfDay
	WorkdayEnd       availability.TimeOfDay
	BreakStart       availability.TimeOfDay
	BreakEnd         availability.TimeOfDay
	MinimumNotice    time.Duration
	ExcludedWeekdays []time.Weekday
	Location         *time.Location
	GracePeriod      time.Duration
	DefaultDays      int
	MaxDays          int

	DatabaseURL             string
	MeetingStore            string
	DynamoDBTable           string
	CredentialStore         string
	SSMCredentialParameter  string
	CredentialEncryptionKey string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleCalendarID   string
	CalendarTimeout    time.Duration

	AdminJWTSecret string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromNumber  string

	PurgeSchedule      string
	CORSAllowedOrigins []string
	LogLevel           string
	LogFormat          string
}

// LoadEnvFile reads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// Load parses configuration from the current process environment, applying
// defaults and reporting every missing or invalid variable at once.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	r := &reader{getenv: getenv}

	cfg := &Config{
		Port: r.str("PORT", "8080"),

		SlotDuration:     r.duration("SLOT_DURATION", 30*time.Minute, false),
		WorkdayStart:     r.timeOfDay("WORKING_HOURS_START", "10:00"),
		WorkdayEnd:       r.timeOfDay("WORKING_HOURS_END", "19:00"),
		BreakStart:       r.timeOfDay("BREAK_START", "13:30"),
		BreakEnd:         r.timeOfDay("BREAK_END", "14:00"),
		MinimumNotice:    r.duration("MINIMUM_NOTICE", time.Hour, true),
		ExcludedWeekdays: r.weekdays("EXCLUDED_WEEKDAYS", "Sunday"),
		Location:         r.location("BUSINESS_TIMEZONE", "Asia/Kolkata"),
		GracePeriod:      r.duration("GRACE_PERIOD", 24*time.Hour, true),
		DefaultDays:      r.positiveInt("AVAILABILITY_DEFAULT_DAYS", 7),
		MaxDays:          r.positiveInt("AVAILABILITY_MAX_DAYS", 30),

		DatabaseURL:             r.str("DATABASE_URL", ""),
		MeetingStore:            r.oneOf("MEETING_STORE", StorePostgres, StorePostgres, StoreDynamoDB),
		DynamoDBTable:           r.str("DYNAMODB_TABLE", ""),
		CredentialStore:         r.oneOf("CREDENTIAL_STORE", StorePostgres, StorePostgres, StoreSSM),
		SSMCredentialParameter:  r.str("SSM_CREDENTIAL_PARAMETER", ""),
		CredentialEncryptionKey: r.str("CREDENTIAL_ENCRYPTION_KEY", ""),

		GoogleClientID:     r.str("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: r.str("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  r.str("GOOGLE_REDIRECT_URL", ""),
		GoogleCalendarID:   r.str("GOOGLE_CALENDAR_ID", "primary"),
		CalendarTimeout:    r.duration("CALENDAR_TIMEOUT", 5*time.Second, false),

		AdminJWTSecret: r.required("ADMIN_JWT_SECRET"),

		SendGridAPIKey:    r.str("SENDGRID_API_KEY", ""),
		SendGridFromEmail: r.str("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  r.str("SENDGRID_FROM_NAME", ""),
		TwilioAccountSID:  r.str("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   r.str("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:  r.str("TWILIO_FROM_NUMBER", ""),

		PurgeSchedule:      r.str("PURGE_SCHEDULE", "@every 1h"),
		CORSAllowedOrigins: r.list("CORS_ALLOWED_ORIGINS"),
		LogLevel:           r.oneOf("LOG_LEVEL", "info", "debug", "info", "warn", "error"),
		LogFormat:          r.oneOf("LOG_FORMAT", "json", "json", "text"),
	}

	if cfg.MeetingStore == StorePostgres || cfg.CredentialStore == StorePostgres {
		r.requireValue("DATABASE_URL", cfg.DatabaseURL)
	}
	if cfg.MeetingStore == StoreDynamoDB {
		r.requireValue("DYNAMODB_TABLE", cfg.DynamoDBTable)
	}
	switch cfg.CredentialStore {
	case StorePostgres:
		r.requireValue("CREDENTIAL_ENCRYPTION_KEY", cfg.CredentialEncryptionKey)
	case StoreSSM:
		r.requireValue("SSM_CREDENTIAL_PARAMETER", cfg.SSMCredentialParameter)
	}
	if cfg.DefaultDays > cfg.MaxDays {
		r.invalid = append(r.invalid, "AVAILABILITY_DEFAULT_DAYS")
	}

	if len(r.missing) > 0 {
		return nil, fmt.Errorf("required environment variables not set: %s", strings.Join(r.missing, ", "))
	}
	if len(r.invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variable values: %s", strings.Join(r.invalid, ", "))
	}
	if err := cfg.Policy().Validate(); err != nil {
		return nil, fmt.Errorf("invalid booking policy: %w", err)
	}
	return cfg, nil
}

// Policy returns the booking rules described by the configuration.
func (c *Config) Policy() availability.Policy {
	excluded := make([]time.Weekday, len(c.ExcludedWeekdays))
	copy(excluded, c.ExcludedWeekdays)
	return availability.Policy{
		SlotDuration:     c.SlotDuration,
		WorkdayStart:     c.WorkdayStart,
		WorkdayEnd:       c.WorkdayEnd,
		BreakStart:       c.BreakStart,
		BreakEnd:         c.BreakEnd,
		MinimumNotice:    c.MinimumNotice,
		ExcludedWeekdays: excluded,
		Location:         c.Location,
	}
}

// GoogleConfigured reports whether the OAuth client for the calendar is set.
func (c *Config) GoogleConfigured() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

type reader struct {
	getenv  func(string) string
	missing []string
	invalid []string
}

func (r *reader) value(key string) string {
	return strings.TrimSpace(r.getenv(key))
}

func (r *reader) str(key, def string) string {
	if v := r.value(key); v != "" {
		return v
	}
	return def
}

func (r *reader) required(key string) string {
	v := r.value(key)
	r.requireValue(key, v)
	return v
}

func (r *reader) requireValue(key, v string) {
	if v == "" {
		r.missing = append(r.missing, key)
	}
}

func (r *reader) oneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(r.str(key, def))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	r.invalid = append(r.invalid, key)
	return def
}

func (r *reader) duration(key string, def time.Duration, allowZero bool) time.Duration {
	v := r.value(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		r.invalid = append(r.invalid, key)
		return def
	}
	return d
}

func (r *reader) positiveInt(key string, def int) int {
	v := r.value(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.invalid = append(r.invalid, key)
		return def
	}
	return n
}

func (r *reader) timeOfDay(key, def string) availability.TimeOfDay {
	t, err := availability.ParseTimeOfDay(r.str(key, def))
	if err != nil {
		r.invalid = append(r.invalid, key)
		t, _ = availability.ParseTimeOfDay(def)
	}
	return t
}

func (r *reader) location(key, def string) *time.Location {
	loc, err := time.LoadLocation(r.str(key, def))
	if err != nil {
		r.invalid = append(r.invalid, key)
		return time.UTC
	}
	return loc
}

func (r *reader) weekdays(key, def string) []time.Weekday {
	raw := r.str(key, def)
	if strings.EqualFold(raw, "none") {
		return nil
	}
	var out []time.Weekday
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		wd, ok := parseWeekday(part)
		if !ok {
			r.invalid = append(r.invalid, key)
			return nil
		}
		out = append(out, wd)
	}
	return out
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.value(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}
