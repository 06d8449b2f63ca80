package usecase

import (
	"sync"
	"time"

	applogger "ScanDesk/pkg/logger"
)

// DefaultRefreshInterval is the unattended re-scan period.
const DefaultRefreshInterval = 10 * time.Minute

// AutoRefresh fires a trigger on a fixed interval while armed. The trigger
// runs outside the scheduler lock, so a tick already under way may still
// complete after Disarm returns; callers re-check their own preconditions.
type AutoRefresh struct {
	interval time.Duration
	log      *applogger.Logger

	mu   sync.Mutex
	stop chan struct{}
}

func NewAutoRefresh(interval time.Duration, l *applogger.Logger) *AutoRefresh {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &AutoRefresh{interval: interval, log: l.Component("auto_refresh")}
}

// Arm cancels any existing schedule and, when enabled, starts a new one.
func (a *AutoRefresh) Arm(enabled bool, trigger func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.disarmLocked()
	if !enabled || trigger == nil {
		return
	}

	stop := make(chan struct{})
	a.stop = stop
	go a.loop(stop, trigger)
	a.log.Info("armed", applogger.Duration("interval_ms", a.interval))
}

// Disarm cancels the schedule. Safe to call repeatedly.
func (a *AutoRefresh) Disarm() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disarmLocked()
}

// Armed reports whether a schedule is active.
func (a *AutoRefresh) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stop != nil
}

func (a *AutoRefresh) Interval() time.Duration { return a.interval }

func (a *AutoRefresh) disarmLocked() {
	if a.stop == nil {
		return
	}
	close(a.stop)
	a.stop = nil
	a.log.Debug("disarmed")
}

func (a *AutoRefresh) loop(stop chan struct{}, trigger func()) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.mu.Lock()
			current := a.stop == stop
			a.mu.Unlock()
			if !current {
				return
			}
			a.log.Debug("tick")
			trigger()
		}
	}
}
