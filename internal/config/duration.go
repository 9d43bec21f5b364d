package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a Go duration string. Empty means 0.
// path names the config key in error messages.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// ReviewTimeout resolves review.timeout (default 30s).
func (c *Config) ReviewTimeout() (time.Duration, error) {
	return ParseDurationOrDefault("review.timeout", c.Review.Timeout, 30*time.Second)
}

// SendTimeout resolves telegram.send_timeout (default 15s).
func (c *Config) SendTimeout() (time.Duration, error) {
	return ParseDurationOrDefault("telegram.send_timeout", c.Telegram.SendTimeout, 15*time.Second)
}
