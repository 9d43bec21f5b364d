package poller

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is a node of the poll state machine:
// starting → polling → (notifying | idle) → sleeping → polling …
type State string

const (
	StateStarting  State = "starting"
	StatePolling   State = "polling"
	StateNotifying State = "notifying"
	StateIdle      State = "idle"
	StateSleeping  State = "sleeping"
	StateStopped   State = "stopped"
)

// Stage names the cycle step an error came from.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageValidate Stage = "validate"
	StageDescribe Stage = "describe"
	StageCycle    Stage = "cycle"
)

// ErrUnclassified matches failures that escaped the cycle unclassified (panics).
var ErrUnclassified = errors.New("unclassified failure")

// UnclassifiedError wraps a recovered panic.
type UnclassifiedError struct {
	Value any
	Stack string
}

func (e *UnclassifiedError) Error() string {
	return fmt.Sprintf("%v: %v", ErrUnclassified, e.Value)
}
func (e *UnclassifiedError) Is(target error) bool { return target == ErrUnclassified }

// Fetcher pulls the raw review payload for a cursor.
type Fetcher interface {
	Fetch(ctx context.Context, cursor int64) (any, error)
}

// Notifier delivers messages; both methods report confirmed delivery.
type Notifier interface {
	Notify(ctx context.Context, text string) bool
	ReportError(ctx context.Context, err error) bool
}

// Outcome describes one finished cycle.
type Outcome struct {
	ID    string
	State State // StateNotifying or StateIdle
	Stage Stage // set when Err != nil
	Err   error
	// Message is the verdict text, if one was extracted.
	Message      string
	Delivered    bool
	Reported     bool
	CursorBefore int64
	CursorAfter  int64
	Took         time.Duration
}

type Config struct {
	// RequireCurrentDate rejects answers without "current_date".
	RequireCurrentDate bool
	// InitialCursor seeds the cursor; 0 means time.Now().
	InitialCursor int64
}
