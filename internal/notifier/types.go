package notifier

import "time"

// Config controls delivery to the single target chat.
type Config struct {
	ChatID   int64
	ThreadID int
	// RatePerSec caps Bot API calls; burst equals the rate.
	RatePerSec int
	// SendTimeout bounds the rate-limit wait and is checked between message
	// chunks. A single Bot API call is bounded by the transport's own HTTP
	// timeout, so a long multi-chunk message can run past it.
	SendTimeout time.Duration
	// HistorySize is the number of delivery attempts kept in memory.
	HistorySize int
}

// Kind tells verdict messages from operator error reports.
type Kind string

const (
	KindVerdict Kind = "verdict"
	KindError   Kind = "error"
)

type HistoryItem struct {
	At        time.Time
	Kind      Kind
	Text      string
	Delivered bool
	Error     string
}
