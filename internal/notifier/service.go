package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	kit "reviewbot/internal/transport"
	logx "reviewbot/pkg/logx"
)

// ErrorPrefix starts every operator error report.
const ErrorPrefix = "Сбой в работе программы: "

// Service delivers messages to the configured chat.
//
// Delivery failures never escape: Notify and ReportError return false and
// log the cause. It is safe for concurrent use.
type Service struct {
	log    logx.Logger
	sender kit.Sender

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	// lastReport is the last error report text that was delivered.
	lastReport string

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender kit.Sender, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{sender: sender, log: log}
	s.applyConfig(cfg)
	return s
}

func (s *Service) applyConfig(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	s.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Notify sends a verdict message. It reports whether delivery was confirmed.
func (s *Service) Notify(ctx context.Context, text string) bool {
	ok := s.deliver(ctx, KindVerdict, text)
	if ok {
		// A fresh verdict means the previous failure (if any) is over.
		s.mu.Lock()
		s.lastReport = ""
		s.mu.Unlock()
	}
	return ok
}

// ReportError sends a best-effort operator report for err.
// A report identical to the previously delivered one is suppressed.
func (s *Service) ReportError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	text := ErrorPrefix + err.Error()

	s.mu.Lock()
	dup := text == s.lastReport
	s.mu.Unlock()
	if dup {
		s.log.Debug("error report suppressed (unchanged)", logx.String("text", text))
		return false
	}

	if !s.deliver(ctx, KindError, text) {
		return false
	}
	s.mu.Lock()
	s.lastReport = text
	s.mu.Unlock()
	return true
}

func (s *Service) deliver(ctx context.Context, kind Kind, text string) (ok bool) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	to := kit.ChatTarget{ChatID: cfg.ChatID, ThreadID: cfg.ThreadID}
	log := s.log.With(logx.String("kind", string(kind)), logx.Int64("chat_id", to.ChatID))

	var err error
	defer func() {
		// A misbehaving sender must not take the caller down.
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
			ok = false
			log.Error("message send panicked", logx.Any("panic", r), logx.Stack(logx.StackTrace(3, 16)))
		}
		s.appendHistory(HistoryItem{At: time.Now(), Kind: kind, Text: text, Delivered: ok, Error: errString(err)})
	}()

	if s.sender == nil {
		err = errors.New("no sender configured")
		log.Error("message not sent", logx.Err(err))
		return false
	}

	sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()

	if err = lim.Wait(sctx); err != nil {
		log.Warn("message not sent: rate limit wait aborted", logx.Err(err))
		return false
	}

	ref, err := s.sender.SendText(sctx, to, text, &kit.SendOptions{DisablePreview: true})
	if err != nil {
		log.Error("message send failed", logx.Err(err))
		return false
	}
	log.Debug("message sent", logx.Int("message_id", ref.MessageID), logx.String("text", text))
	return true
}

// History returns recent delivery attempts, oldest first.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(it HistoryItem) {
	s.mu.Lock()
	limit := s.cfg.HistorySize
	s.mu.Unlock()

	s.hmu.Lock()
	s.history = append(s.history, it)
	if len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}
	s.hmu.Unlock()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
