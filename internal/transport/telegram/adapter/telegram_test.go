package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "reviewbot/internal/transport"
	logx "reviewbot/pkg/logx"
)

type fakeBotAPI struct {
	mu           sync.Mutex
	texts        []string
	fail         bool
	unauthorized bool
}

func (f *fakeBotAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if f.unauthorized {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"ok":false,"error_code":401,"description":"Unauthorized"}`)
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"Review","username":"review_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var params map[string]any
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &params); err != nil {
				t.Errorf("decode sendMessage body: %v", err)
			}
			f.mu.Lock()
			fail := f.fail
			if !fail {
				f.texts = append(f.texts, params["text"].(string))
			}
			n := len(f.texts)
			f.mu.Unlock()
			if fail {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)
				return
			}
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":`+itoa(n)+`,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`)
		default:
			http.NotFound(w, r)
		}
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

// deadURL returns the address of a server that is already closed.
func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func newTestAdapter(t *testing.T, api *fakeBotAPI) *Adapter {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	a, err := New(Config{Token: "123:abc", APIURL: srv.URL}, logx.Nop())
	require.NoError(t, err)
	return a
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Config{Token: "  "}, logx.Nop())
	assert.Error(t, err)
}

func TestNewStaysOffline(t *testing.T) {
	a, err := New(Config{Token: "123:abc", APIURL: deadURL(t)}, logx.Nop())
	require.NoError(t, err)
	assert.Empty(t, a.Username())
}

func TestVerifyResolvesBotIdentity(t *testing.T) {
	a := newTestAdapter(t, &fakeBotAPI{})
	require.NoError(t, a.Verify())
	assert.Equal(t, "review_bot", a.Username())
}

func TestVerifyRejectedToken(t *testing.T) {
	a := newTestAdapter(t, &fakeBotAPI{unauthorized: true})

	err := a.Verify()
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, a.Username())
}

func TestVerifyUnreachableHidesToken(t *testing.T) {
	a, err := New(Config{Token: "123:abc", APIURL: deadURL(t), Timeout: time.Second}, logx.Nop())
	require.NoError(t, err)

	err = a.Verify()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
	assert.NotContains(t, err.Error(), "123:abc")
	assert.Contains(t, err.Error(), "/bot<redacted>/getMe")
}

func TestSendTextUnreachableHidesToken(t *testing.T) {
	a, err := New(Config{Token: "123:abc", APIURL: deadURL(t), Timeout: time.Second}, logx.Nop())
	require.NoError(t, err)

	_, err = a.SendText(context.Background(), kit.ChatTarget{ChatID: 42}, "hello", nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "123:abc")
	assert.Contains(t, err.Error(), "<redacted>")
}

func TestRedactToken(t *testing.T) {
	assert.NoError(t, redactToken(nil, "tok"))

	plain := errors.New("plain")
	assert.Same(t, plain, redactToken(plain, "tok"))

	inner := errors.New("GET /bottok/x")
	err := redactToken(inner, "tok")
	assert.Equal(t, "GET /bot<redacted>/x", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestSendText(t *testing.T) {
	api := &fakeBotAPI{}
	a := newTestAdapter(t, api)

	ref, err := a.SendText(context.Background(), kit.ChatTarget{ChatID: 42}, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), ref.ChatID)
	assert.Equal(t, 1, ref.MessageID)
	assert.Equal(t, []string{"hello"}, api.texts)
}

func TestSendTextBackendError(t *testing.T) {
	api := &fakeBotAPI{fail: true}
	a := newTestAdapter(t, api)

	_, err := a.SendText(context.Background(), kit.ChatTarget{ChatID: 42}, "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendTextSplitsLongMessages(t *testing.T) {
	api := &fakeBotAPI{}
	a := newTestAdapter(t, api)

	long := strings.Repeat("a", telegramTextLimit) + "\n" + strings.Repeat("b", 10)
	ref, err := a.SendText(context.Background(), kit.ChatTarget{ChatID: 42}, long, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ref.MessageID)
	require.Len(t, api.texts, 2)
	assert.Equal(t, strings.Repeat("b", 10), api.texts[1])
}

func TestSplitTelegramText(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitTelegramText("short", 10))

	parts := splitTelegramText("aaaa\nbbbb\ncccc", 6)
	assert.Equal(t, []string{"aaaa", "bbbb", "cccc"}, parts)

	parts = splitTelegramText(strings.Repeat("x", 25), 10)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, parts)
}
