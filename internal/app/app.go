package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reviewbot/internal/config"
	"reviewbot/internal/notifier"
	"reviewbot/internal/poller"
	"reviewbot/internal/review"
	"reviewbot/internal/runtime/supervisor"
	telegram "reviewbot/internal/transport/telegram/adapter"
	logx "reviewbot/pkg/logx"
)

// App owns every long-lived component of the bot.
type App struct {
	cfgm *config.ConfigManager
	cfg  *config.Config

	log  logx.Logger
	logs *logx.Service
	sup  *supervisor.Supervisor
	sd   *sdNotifier

	adapter *telegram.Adapter
	notif   *notifier.Service
	client  *review.Client
	poller  *poller.Poller
}

// NewApp loads the configuration and builds all components. Any error here
// is a configuration failure and should end the process.
func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log, err := logx.New(logConfig(cfg))
	appLog := log.With(logx.String("comp", "app"))
	if err != nil {
		appLog.Warn("log sink unavailable, using console", logx.Err(err))
	}

	sched, err := poller.ParseSchedule(cfg.Poll.ScheduleOrDefault())
	if err != nil {
		return nil, fmt.Errorf("poll.schedule: %w", err)
	}
	reviewTimeout, err := cfg.ReviewTimeout()
	if err != nil {
		return nil, err
	}
	sendTimeout, err := cfg.SendTimeout()
	if err != nil {
		return nil, err
	}
	chatID, err := cfg.Credentials.ChatIDInt()
	if err != nil {
		return nil, err
	}

	ad, err := telegram.New(telegram.Config{
		Token:   cfg.Credentials.TelegramToken,
		APIURL:  cfg.Telegram.APIURL,
		Timeout: sendTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	// Only a rejected token is fatal; a network failure here must not keep
	// the bot down, sends are retried every cycle anyway.
	if err := ad.Verify(); err != nil {
		if errors.Is(err, telegram.ErrUnauthorized) {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		appLog.Warn("telegram getMe failed, continuing", logx.Err(err))
	}

	notif := notifier.New(notifier.Config{
		ChatID:      chatID,
		ThreadID:    cfg.Telegram.ThreadID,
		RatePerSec:  cfg.Telegram.RatePerSec,
		SendTimeout: sendTimeout,
	}, ad, log.With(logx.String("comp", "notifier")))

	client := review.NewClient(cfg.Review.Endpoint, cfg.Credentials.PracticumToken, review.WithTimeout(reviewTimeout))

	a := &App{
		cfgm:    cfgm,
		cfg:     cfg,
		log:     appLog,
		logs:    logs,
		sd:      newSdNotifier(log.With(logx.String("comp", "systemd"))),
		adapter: ad,
		notif:   notif,
		client:  client,
	}
	a.poller = poller.New(poller.Config{
		RequireCurrentDate: cfg.Poll.CurrentDateRequired(),
		InitialCursor:      cfg.Poll.InitialFromDate,
	}, client, notif, sched, log.With(logx.String("comp", "poller")),
		poller.WithCycleHook(a.afterCycle),
	)

	appLog.Info("configured",
		logx.String("endpoint", client.Endpoint()),
		logx.String("schedule", cfg.Poll.ScheduleOrDefault()),
		logx.Bool("require_current_date", cfg.Poll.CurrentDateRequired()),
		logx.Int64("cursor", a.poller.Cursor()),
	)
	return a, nil
}

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Redact: []string{cfg.Credentials.PracticumToken, cfg.Credentials.TelegramToken},
	}
}

func (a *App) Poller() *poller.Poller { return a.poller }

func (a *App) Notifier() *notifier.Service { return a.notif }

// Done is closed when the app context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error seen by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := poller.ParseSchedule(cfg.Poll.ScheduleOrDefault()); err != nil {
			return fmt.Errorf("poll.schedule: %w", err)
		}
		return nil
	})

	// The poll loop only returns on cancellation; a restart here means a
	// panic escaped the per-cycle recovery.
	a.sup.GoRestart("poller", a.poller.Run,
		supervisor.WithRestartBackoff(time.Second, time.Minute),
	)

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
		return nil
	})
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.sup.Go("systemd.watchdog", func(c context.Context) error {
		return a.sd.Run(c, func() bool { return a.poller.State() != poller.StateStopped })
	})

	a.sd.Ready()
	a.log.Info("app started", logx.String("bot", a.adapter.Username()))
	return nil
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep the newest.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					break drain
				}
			}
			a.applyConfig(last, next)
			last = next
		}
	}
}

// applyConfig hot-applies logging; other sections need a restart.
func (a *App) applyConfig(prev, next *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	restart := make([]string, 0, len(sections))
	for _, s := range sections {
		if s == "logging" {
			// Secrets stay those of the running components.
			lc := logConfig(next)
			lc.Redact = a.logs.Config().Redact
			if err := a.logs.Apply(lc); err != nil {
				a.log.Warn("log sink unavailable, using console", logx.Err(err))
			}
			continue
		}
		restart = append(restart, s)
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
	if len(restart) > 0 {
		a.log.Warn("restart required for changes to take effect", logx.String("sections", strings.Join(restart, ",")))
	}
}

func (a *App) afterCycle(out poller.Outcome) {
	a.sd.Watchdog()
	a.log.Trace("cycle finished",
		logx.String("cycle_id", out.ID),
		logx.String("state", string(out.State)),
		logx.Bool("delivered", out.Delivered),
		logx.Duration("took", out.Took),
	)
}

// Stop cancels every goroutine and waits for them, bounded by ctx.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sd.Stopping()

	err := a.sup.Stop(ctx)
	if err != nil {
		a.log.Warn("stop finished with error", logx.Err(err))
	} else {
		a.log.Info("stopped", logx.Int64("cursor", a.poller.Cursor()))
	}
	if cerr := a.logs.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
