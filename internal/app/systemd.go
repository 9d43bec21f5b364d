package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "reviewbot/pkg/logx"
)

// sdNotifier speaks the sd_notify protocol. Outside systemd
// (no NOTIFY_SOCKET) every call is a no-op.
type sdNotifier struct {
	log      logx.Logger
	watchdog time.Duration
	notify   func(state string) (bool, error)
}

func newSdNotifier(log logx.Logger) *sdNotifier {
	n := &sdNotifier{
		log:    log,
		notify: func(state string) (bool, error) { return daemon.SdNotify(false, state) },
	}
	if d, err := daemon.SdWatchdogEnabled(false); err != nil {
		log.Warn("systemd watchdog config invalid", logx.Err(err))
	} else if d > 0 {
		n.watchdog = d
		log.Info("systemd watchdog enabled", logx.Duration("interval", d))
	}
	return n
}

func (n *sdNotifier) Ready()    { n.send(daemon.SdNotifyReady) }
func (n *sdNotifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Watchdog pings only when WATCHDOG_USEC is set.
func (n *sdNotifier) Watchdog() {
	if n.watchdog > 0 {
		n.send(daemon.SdNotifyWatchdog)
	}
}

// Run pings the watchdog every half interval while alive reports true, so
// long poll schedules do not trip WatchdogSec. Without WATCHDOG_USEC it
// returns at once.
func (n *sdNotifier) Run(ctx context.Context, alive func() bool) error {
	if n.watchdog <= 0 {
		return nil
	}
	t := time.NewTicker(n.watchdog / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if alive == nil || alive() {
				n.send(daemon.SdNotifyWatchdog)
			} else {
				n.log.Warn("watchdog ping skipped, poller not running")
			}
		}
	}
}

func (n *sdNotifier) send(state string) {
	sent, err := n.notify(state)
	switch {
	case err != nil:
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
	case sent:
		n.log.Debug("sd_notify sent", logx.String("state", state))
	}
}
