package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewbot/internal/config"
	telegram "reviewbot/internal/transport/telegram/adapter"
	logx "reviewbot/pkg/logx"
)

type botAPI struct {
	mu    sync.Mutex
	chats []any
	texts []string
}

func (b *botAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"Review","username":"review_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		var params map[string]any
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &params)
		b.mu.Lock()
		b.chats = append(b.chats, params["chat_id"])
		if s, ok := params["text"].(string); ok {
			b.texts = append(b.texts, s)
		}
		b.mu.Unlock()
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`)
	default:
		http.NotFound(w, r)
	}
}

func (b *botAPI) sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.texts...)
}

type setup struct {
	bot     *botAPI
	cfgPath string
	auth    chan string
}

func newSetup(t *testing.T, reviewBody string) *setup {
	t.Helper()
	s := &setup{bot: &botAPI{}, auth: make(chan string, 16)}

	tg := httptest.NewServer(s.bot)
	t.Cleanup(tg.Close)

	rv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case s.auth <- r.Header.Get("Authorization"):
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reviewBody)
	}))
	t.Cleanup(rv.Close)

	t.Setenv("PRACTICUM_TOKEN", "p-token")
	t.Setenv("TELEGRAM_TOKEN", "123:tg")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	s.cfgPath = filepath.Join(t.TempDir(), "config.yaml")
	body := "review:\n  endpoint: " + rv.URL + "/api/\n  timeout: 2s\n" +
		"telegram:\n  api_url: " + tg.URL + "\n  send_timeout: 2s\n  rate_per_sec: 10\n" +
		"poll:\n  schedule: 1h\n  initial_from_date: 500\n" +
		"logging:\n  level: error\n  console: true\n"
	require.NoError(t, os.WriteFile(s.cfgPath, []byte(body), 0o600))
	return s
}

func TestAppDeliversVerdict(t *testing.T) {
	s := newSetup(t, `{"homeworks":[{"status":"approved","homework_name":"proj1"}],"current_date":1000}`)

	a, err := NewApp(s.cfgPath)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))

	require.Eventually(t, func() bool { return len(s.bot.sent()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "Изменился статус проверки работы \"proj1\". Работа проверена: ревьюеру всё понравилось. Ура!", s.bot.sent()[0])
	assert.Equal(t, "OAuth p-token", <-s.auth)
	require.Eventually(t, func() bool { return a.Poller().Cursor() == 1000 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Stop(ctx, StopSIGTERM))
	assert.NoError(t, a.Err())
}

func TestAppReportsRemoteErrorPayload(t *testing.T) {
	s := newSetup(t, `{"code":"not_authenticated","error":"bad token"}`)

	a, err := NewApp(s.cfgPath)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() { _ = a.Stop(context.Background(), StopSIGTERM) })

	require.Eventually(t, func() bool { return len(s.bot.sent()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, strings.HasPrefix(s.bot.sent()[0], "Сбой в работе программы: "))
	assert.Equal(t, int64(500), a.Poller().Cursor())
}

func TestNewAppMissingCredentials(t *testing.T) {
	t.Setenv("PRACTICUM_TOKEN", "")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	_, err := NewApp("")
	require.ErrorIs(t, err, config.ErrMissingCredential)
}

func TestNewAppRejectsBadSchedule(t *testing.T) {
	s := newSetup(t, `{}`)
	t.Setenv("POLL_SCHEDULE", "whenever")

	_, err := NewApp(s.cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll.schedule")
}

func TestApplyConfigHotReloadsLogging(t *testing.T) {
	logs, log, err := logx.New(logx.Config{Level: "info", Console: true, Redact: []string{"123:tg"}})
	require.NoError(t, err)
	a := &App{log: log, logs: logs}

	prev := config.Default()
	next := config.Default()
	next.Logging.Level = "debug"
	next.Poll.Schedule = "5m"

	a.applyConfig(prev, next)
	assert.Equal(t, "debug", logs.Config().Level)
	assert.Equal(t, []string{"123:tg"}, logs.Config().Redact)
}

func TestNewAppSurvivesUnreachableTelegram(t *testing.T) {
	s := newSetup(t, `{"homeworks":[],"current_date":1000}`)
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	t.Setenv("TELEGRAM_API_URL", dead.URL)

	a, err := NewApp(s.cfgPath)
	require.NoError(t, err)

	assert.False(t, a.Notifier().Notify(context.Background(), "hello"))
	h := a.Notifier().History()
	require.Len(t, h, 1)
	assert.False(t, h[0].Delivered)
	assert.NotEmpty(t, h[0].Error)
	assert.NotContains(t, h[0].Error, "123:tg")
}

func TestNewAppRejectedTelegramToken(t *testing.T) {
	s := newSetup(t, `{}`)
	deny := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
	}))
	t.Cleanup(deny.Close)
	t.Setenv("TELEGRAM_API_URL", deny.URL)

	_, err := NewApp(s.cfgPath)
	require.ErrorIs(t, err, telegram.ErrUnauthorized)
}

type recordedStates struct {
	mu     sync.Mutex
	states []string
}

func (r *recordedStates) notify(s string) (bool, error) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
	return true, nil
}

func (r *recordedStates) count(state string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.states {
		if s == state {
			n++
		}
	}
	return n
}

func TestAppPingsWatchdogBetweenCycles(t *testing.T) {
	s := newSetup(t, `{"homeworks":[],"current_date":1000}`)
	t.Setenv("WATCHDOG_USEC", "40000")
	t.Setenv("WATCHDOG_PID", "")

	a, err := NewApp(s.cfgPath)
	require.NoError(t, err)
	rec := &recordedStates{}
	a.sd.notify = rec.notify

	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() { _ = a.Stop(context.Background(), StopSIGTERM) })

	// The schedule is 1h: after the first cycle only the ticker can ping.
	require.Eventually(t, func() bool { return rec.count("WATCHDOG=1") >= 4 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, rec.count("READY=1"))
}

func TestSdNotifierRun(t *testing.T) {
	rec := &recordedStates{}
	n := &sdNotifier{log: logx.Nop(), watchdog: 20 * time.Millisecond, notify: rec.notify}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx, func() bool { return true }) }()

	require.Eventually(t, func() bool { return rec.count("WATCHDOG=1") >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestSdNotifierRunSkipsWhenNotAlive(t *testing.T) {
	rec := &recordedStates{}
	n := &sdNotifier{log: logx.Nop(), watchdog: 20 * time.Millisecond, notify: rec.notify}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, n.Run(ctx, func() bool { return false }))
	assert.Zero(t, rec.count("WATCHDOG=1"))
}

func TestSdNotifierRunWithoutWatchdog(t *testing.T) {
	n := &sdNotifier{log: logx.Nop(), notify: (&recordedStates{}).notify}
	assert.NoError(t, n.Run(context.Background(), nil))
}

func TestStopWithoutStart(t *testing.T) {
	a := &App{}
	assert.NoError(t, a.Stop(context.Background(), StopUnknown))
	select {
	case <-a.Done():
	default:
		t.Fatal("Done should be closed before Start")
	}
}

func TestSdNotifierWatchdog(t *testing.T) {
	var states []string
	n := &sdNotifier{
		log:    logx.Nop(),
		notify: func(s string) (bool, error) { states = append(states, s); return true, nil },
	}

	n.Ready()
	n.Watchdog()
	n.watchdog = time.Second
	n.Watchdog()
	n.Stopping()

	assert.Equal(t, []string{"READY=1", "WATCHDOG=1", "STOPPING=1"}, states)
}
