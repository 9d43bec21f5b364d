package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"reviewbot/internal/review"
	logx "reviewbot/pkg/logx"
)

type Option func(*Poller)

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// WithCycleHook is called after every cycle, from the poll goroutine.
func WithCycleHook(fn func(Outcome)) Option {
	return func(p *Poller) { p.onCycle = fn }
}

// Poller runs the fetch → validate → describe → notify cycle on a schedule.
//
// It owns the poll cursor and the last delivered verdict. Both only move
// after a confirmed delivery, so a failed send is retried on the next cycle
// with the same cursor.
type Poller struct {
	cfg   Config
	log   logx.Logger
	fetch Fetcher
	notif Notifier
	sched cron.Schedule
	now   func() time.Time

	onCycle func(Outcome)

	mu          sync.Mutex
	cursor      int64
	lastVerdict string
	state       State
}

func New(cfg Config, fetch Fetcher, notif Notifier, sched cron.Schedule, log logx.Logger, opts ...Option) *Poller {
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Poller{
		cfg:   cfg,
		log:   log,
		fetch: fetch,
		notif: notif,
		sched: sched,
		now:   time.Now,
		state: StateStarting,
	}
	for _, o := range opts {
		o(p)
	}
	p.cursor = cfg.InitialCursor
	if p.cursor <= 0 {
		p.cursor = p.now().Unix()
	}
	return p
}

func (p *Poller) Cursor() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// LastVerdict is the last delivered verdict message ("" before the first).
func (p *Poller) LastVerdict() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastVerdict
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	prev := p.state
	p.state = s
	p.mu.Unlock()
	if prev != s {
		p.log.Trace("state changed", logx.String("from", string(prev)), logx.String("to", string(s)))
	}
}

// Run polls until ctx is cancelled. It always returns nil on cancellation;
// a single failed cycle never stops it.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("poller started", logx.Int64("cursor", p.Cursor()))
	defer p.setState(StateStopped)

	for {
		p.Cycle(ctx)
		if ctx.Err() != nil {
			p.log.Info("poller stopped")
			return nil
		}
		if !p.sleep(ctx) {
			p.log.Info("poller stopped")
			return nil
		}
	}
}

// sleep waits for the next schedule tick. It returns false if ctx ended first.
func (p *Poller) sleep(ctx context.Context) bool {
	p.setState(StateSleeping)
	now := p.now()
	next := p.sched.Next(now)
	wait := next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	p.log.Debug("sleeping", logx.Duration("wait", wait), logx.Time("next", next))

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Cycle runs one poll cycle and handles its failure, if any, exactly once:
// log, best-effort operator report, cursor and verdict left untouched.
func (p *Poller) Cycle(ctx context.Context) Outcome {
	start := time.Now()
	id := uuid.NewString()
	log := p.log.With(logx.String("cycle_id", id))

	cursor := p.Cursor()
	out := Outcome{ID: id, State: StateIdle, CursorBefore: cursor, CursorAfter: cursor}

	p.step(ctx, log, &out)

	if out.Err != nil {
		p.fail(ctx, log, &out)
	}
	out.CursorAfter = p.Cursor()
	out.Took = time.Since(start)

	if p.onCycle != nil {
		p.onCycle(out)
	}
	return out
}

func (p *Poller) step(ctx context.Context, log logx.Logger, out *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out.State = StateIdle
			out.Stage = StageCycle
			out.Err = &UnclassifiedError{Value: r, Stack: logx.StackTrace(3, 24)}
		}
	}()

	p.setState(StatePolling)

	payload, err := p.fetch.Fetch(ctx, out.CursorBefore)
	if err != nil {
		out.Stage, out.Err = StageFetch, err
		return
	}

	resp, err := review.Validate(payload, review.WithRequireCurrentDate(p.cfg.RequireCurrentDate))
	if err != nil {
		out.Stage, out.Err = StageValidate, err
		return
	}

	if len(resp.Homeworks) == 0 {
		p.setState(StateIdle)
		log.Debug("status unchanged", logx.Int64("cursor", out.CursorBefore))
		return
	}

	msg, err := review.Describe(resp.Homeworks[0])
	if err != nil {
		out.Stage, out.Err = StageDescribe, err
		return
	}
	out.Message = msg

	if msg == p.LastVerdict() {
		p.setState(StateIdle)
		log.Debug("status unchanged", logx.String("homework", resp.Homeworks[0].Name()))
		return
	}

	p.setState(StateNotifying)
	out.State = StateNotifying
	if !p.notif.Notify(ctx, msg) {
		log.Warn("verdict not delivered; will retry next cycle",
			logx.String("homework", resp.Homeworks[0].Name()),
			logx.Int64("cursor", out.CursorBefore),
		)
		return
	}
	out.Delivered = true

	p.mu.Lock()
	p.lastVerdict = msg
	if resp.HasCurrentDate && resp.CurrentDate > p.cursor {
		p.cursor = resp.CurrentDate
	}
	cur := p.cursor
	p.mu.Unlock()

	log.Info("verdict delivered",
		logx.String("homework", resp.Homeworks[0].Name()),
		logx.String("status", resp.Homeworks[0].Status()),
		logx.Int64("cursor", cur),
	)
}

func (p *Poller) fail(ctx context.Context, log logx.Logger, out *Outcome) {
	// Shutdown interrupting a request is not worth reporting.
	if ctx.Err() != nil && errors.Is(out.Err, ctx.Err()) {
		log.Debug("cycle interrupted", logx.String("stage", string(out.Stage)), logx.Err(out.Err))
		return
	}

	fields := []logx.Field{
		logx.String("stage", string(out.Stage)),
		logx.Int64("cursor", out.CursorBefore),
		logx.Err(out.Err),
	}
	var ue *UnclassifiedError
	if errors.As(out.Err, &ue) {
		fields = append(fields, logx.Stack(ue.Stack))
	}
	log.Error(fmt.Sprintf("%s failed", out.Stage), fields...)

	out.Reported = p.notif.ReportError(ctx, out.Err)
}
