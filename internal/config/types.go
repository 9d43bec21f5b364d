package config

type Config struct {
	Review   ReviewConfig   `json:"review"`
	Telegram TelegramConfig `json:"telegram"`
	Poll     PollConfig     `json:"poll"`
	Logging  LoggingConfig  `json:"logging"`

	// Credentials are read from the environment only; they never appear in
	// config files and are never logged.
	Credentials Credentials `json:"-"`
}

// Credentials are the three secrets the bot cannot run without.
type Credentials struct {
	PracticumToken string `env:"PRACTICUM_TOKEN"`
	TelegramToken  string `env:"TELEGRAM_TOKEN"`
	ChatID         string `env:"TELEGRAM_CHAT_ID"`
}

// ReviewConfig controls the review-status API client.
//
// Timeout is a Go duration string (e.g. "30s"). Default: "30s".
type ReviewConfig struct {
	Endpoint string `json:"endpoint,omitempty" env:"PRACTICUM_ENDPOINT"`
	Timeout  string `json:"timeout,omitempty" env:"PRACTICUM_TIMEOUT"`
}

type TelegramConfig struct {
	// APIURL overrides the Bot API base URL (self-hosted bot API server).
	APIURL   string `json:"api_url,omitempty" env:"TELEGRAM_API_URL"`
	ThreadID int    `json:"thread_id,omitempty"`
	// SendTimeout is a Go duration string. Default: "15s".
	SendTimeout string `json:"send_timeout,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
}

// PollConfig controls the poll loop.
//
// Schedule accepts a Go duration ("10m"), HH:MM ("00:10") or a cron
// expression ("*/10 * * * *", "@every 10m"). Default: "10m".
//
// RequireCurrentDate is a pointer so we can distinguish "omitted" (default
// true) from an explicit false.
type PollConfig struct {
	Schedule           string `json:"schedule,omitempty" env:"POLL_SCHEDULE"`
	RequireCurrentDate *bool  `json:"require_current_date,omitempty"`
	// InitialFromDate seeds the cursor (unix seconds). 0 means "now".
	InitialFromDate int64 `json:"initial_from_date,omitempty" env:"POLL_FROM_DATE"`
}

type LoggingConfig struct {
	Level   string      `json:"level" env:"LOG_LEVEL"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

const DefaultSchedule = "10m"

// Default returns the config used when no file is given.
func Default() *Config {
	return &Config{
		Poll:    PollConfig{Schedule: DefaultSchedule},
		Logging: LoggingConfig{Level: "info", Console: true},
	}
}

// CurrentDateRequired resolves the pointer default.
func (p PollConfig) CurrentDateRequired() bool {
	if p.RequireCurrentDate == nil {
		return true
	}
	return *p.RequireCurrentDate
}

// ScheduleOrDefault returns the schedule string, falling back to DefaultSchedule.
func (p PollConfig) ScheduleOrDefault() string {
	if p.Schedule == "" {
		return DefaultSchedule
	}
	return p.Schedule
}
