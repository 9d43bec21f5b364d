package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingCredential is fatal: the bot cannot start without all secrets.
var ErrMissingCredential = errors.New("missing required credential")

// Missing returns the env var names of absent credentials.
func (c Credentials) Missing() []string {
	var out []string
	if strings.TrimSpace(c.PracticumToken) == "" {
		out = append(out, "PRACTICUM_TOKEN")
	}
	if strings.TrimSpace(c.TelegramToken) == "" {
		out = append(out, "TELEGRAM_TOKEN")
	}
	if strings.TrimSpace(c.ChatID) == "" {
		out = append(out, "TELEGRAM_CHAT_ID")
	}
	return out
}

// ChatIDInt parses the chat identifier.
func (c Credentials) ChatIDInt() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.ChatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("TELEGRAM_CHAT_ID: not an integer chat id: %w", err)
	}
	return id, nil
}

// Validate checks credentials and every duration/number field.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if missing := cfg.Credentials.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	if _, err := cfg.Credentials.ChatIDInt(); err != nil {
		return err
	}
	if _, err := ParseDurationField("review.timeout", cfg.Review.Timeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("telegram.send_timeout", cfg.Telegram.SendTimeout); err != nil {
		return err
	}
	if cfg.Telegram.RatePerSec < 0 {
		return errors.New("telegram.rate_per_sec: must be >= 0")
	}
	if cfg.Poll.InitialFromDate < 0 {
		return errors.New("poll.initial_from_date: must be >= 0")
	}
	return nil
}
