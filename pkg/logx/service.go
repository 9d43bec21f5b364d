package logx

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// DefaultFilePath is used when the file sink is enabled without a path.
const DefaultFilePath = "./reviewbot.log"

const redactedMark = "<redacted>"

var stdout io.Writer = os.Stdout

type Config struct {
	Level   string
	Console bool
	File    FileConfig
	// Redact lists secrets that are masked in every written line.
	Redact []string
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// Service owns the sinks and lets Apply swap them while Loggers derived
// from it keep working.
type Service struct {
	mu   sync.Mutex
	cfg  Config
	file *os.File

	root atomic.Pointer[zerolog.Logger]
}

// New applies cfg and returns the service with its root logger. A non-nil
// error means a sink could not be opened; logging still works on the
// remaining sinks (console at least).
func New(cfg Config) (*Service, Logger, error) {
	setGlobals()
	s := &Service{}
	err := s.Apply(cfg)
	return s, Logger{svc: s}, err
}

func (s *Service) current() *zerolog.Logger { return s.root.Load() }

func (s *Service) Logger() Logger { return Logger{svc: s} }

// Config returns the config last passed to Apply.
func (s *Service) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Apply rebuilds level and sinks. Safe for concurrent use with logging.
// When the file cannot be opened the console is used instead and the
// error is returned.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	writers, file, err := openSinks(cfg)
	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level, zerolog.InfoLevel)).
		With().Timestamp().Logger()

	old := s.file
	s.root.Store(&zl)
	s.file = file
	s.cfg = cfg
	if old != nil {
		_ = old.Close()
	}
	return err
}

// Close closes the file sink, if any.
func (s *Service) Close() error {
	s.mu.Lock()
	f := s.file
	s.file = nil
	s.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Close()
}

func openSinks(cfg Config) ([]io.Writer, *os.File, error) {
	secrets := redactList(cfg.Redact)
	writers := make([]io.Writer, 0, 2)
	if cfg.Console {
		writers = append(writers, consoleWriter(redact(stdout, secrets)))
	}

	var (
		file *os.File
		err  error
	)
	if cfg.File.Enabled {
		path := strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = DefaultFilePath
		}
		file, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			err = fmt.Errorf("open log file %q: %w", path, err)
			file = nil
		} else {
			writers = append(writers, zerolog.SyncWriter(redact(file, secrets)))
		}
	}

	if len(writers) == 0 {
		writers = append(writers, consoleWriter(redact(stdout, secrets)))
	}
	return writers, file, err
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: consoleTimeFormat,
		// The caller is already short (file:line).
		FormatCaller: func(i any) string {
			s, _ := i.(string)
			return s
		},
	}
}

func redactList(in []string) [][]byte {
	out := make([][]byte, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, []byte(s))
		}
	}
	return out
}

func redact(w io.Writer, secrets [][]byte) io.Writer {
	if len(secrets) == 0 {
		return w
	}
	return &redactWriter{w: w, secrets: secrets}
}

// redactWriter masks secrets in each write. Every zerolog line arrives in
// a single Write call.
type redactWriter struct {
	w       io.Writer
	secrets [][]byte
}

func (r *redactWriter) Write(p []byte) (int, error) {
	out := p
	for _, s := range r.secrets {
		if bytes.Contains(out, s) {
			out = bytes.ReplaceAll(out, s, []byte(redactedMark))
		}
	}
	if _, err := r.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

var levelNames = map[string]zerolog.Level{
	"TRACE":    zerolog.TraceLevel,
	"DEBUG":    zerolog.DebugLevel,
	"INFO":     zerolog.InfoLevel,
	"WARN":     zerolog.WarnLevel,
	"WARNING":  zerolog.WarnLevel,
	"ERROR":    zerolog.ErrorLevel,
	"FATAL":    zerolog.FatalLevel,
	"CRITICAL": zerolog.FatalLevel,
}

// ParseLevel maps a case-insensitive level name to a zerolog level, or def.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	if lvl, ok := levelNames[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return def
}
