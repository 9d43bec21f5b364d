package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	tele "gopkg.in/telebot.v4"

	kit "reviewbot/internal/transport"
	logx "reviewbot/pkg/logx"
)

type Config struct {
	Token string
	// APIURL overrides the Bot API base URL (self-hosted bot API, tests).
	APIURL string
	// Timeout bounds every Bot API HTTP call.
	Timeout time.Duration
}

// ErrUnauthorized means the Bot API rejected the token.
var ErrUnauthorized = errors.New("telegram token rejected")

// Adapter is a send-only Telegram transport. It never polls for updates.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot

	mu sync.RWMutex
	me *tele.User
}

// New builds the adapter without touching the network; call Verify to
// check the token.
func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: timeout},
		Offline: true,
	})
	if err != nil {
		return nil, redactToken(err, cfg.Token)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

// Verify resolves the bot identity with getMe. A 401 answer is reported as
// ErrUnauthorized; any other failure is returned as is (token masked) and
// leaves the adapter usable.
func (a *Adapter) Verify() error {
	data, err := a.bot.Raw("getMe", nil)
	if err != nil {
		var apiErr *tele.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Description)
		}
		return redactToken(err, a.cfg.Token)
	}

	var resp struct {
		Result *tele.User `json:"result"`
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("decode getMe: %w", err)
	}
	if resp.Result == nil {
		return errors.New("getMe returned no user")
	}

	a.mu.Lock()
	a.me = resp.Result
	a.mu.Unlock()
	a.log.Info("telegram bot authorized", logx.String("username", resp.Result.Username), logx.Int64("bot_id", resp.Result.ID))
	return nil
}

// Username returns the bot username once Verify succeeded, "" before.
func (a *Adapter) Username() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.me == nil {
		return ""
	}
	return a.me.Username
}

const redactedToken = "<redacted>"

// tokenError hides the bot token that telebot embeds in request URLs.
type tokenError struct {
	msg string
	err error
}

func (e *tokenError) Error() string { return e.msg }
func (e *tokenError) Unwrap() error { return e.err }

func redactToken(err error, token string) error {
	if err == nil || token == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, token) {
		return err
	}
	return &tokenError{msg: strings.ReplaceAll(msg, token, redactedToken), err: err}
}

const telegramTextLimit = 4000

// splitTelegramText splits long messages into chunks that are safe to send to Telegram.
// It prefers newline boundaries.
func splitTelegramText(s string, limit int) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}

		// Prefer splitting on a newline near the end of the window.
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		chunk := strings.TrimRight(string(rs[start:end]), "\n")
		out = append(out, chunk)

		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

// SendText delivers text to the chat, splitting it when it exceeds the
// Telegram message limit. The returned ref points at the first chunk.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}

	chat := &tele.Chat{ID: to.ChatID}

	var first kit.MessageRef
	for i, chunk := range splitTelegramText(text, telegramTextLimit) {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return first, err
			}
		}

		msg, err := a.bot.Send(chat, chunk, &tele.SendOptions{
			ParseMode:             opt.ParseMode,
			DisableWebPagePreview: opt.DisablePreview,
			ThreadID:              to.ThreadID,
		})
		if err != nil {
			return first, redactToken(err, a.cfg.Token)
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}
