package antispam

import (
	"sync"
	"time"

	"github.com/Maximus17a/BotRexy/internal/config"
	"github.com/Maximus17a/BotRexy/internal/utils"
)

type Result struct {
	IsSpam      bool
	WindowCount int
}

// Tracker keeps one sliding window per guild member. Windows live only in memory
// and empty ones are swept at most once per interval.
type Tracker struct {
	mu        sync.Mutex
	windows   map[string]*utils.SlidingWindow
	threshold int
	interval  time.Duration
	lastSweep time.Time
}

func New(cfg config.SpamConfig) *Tracker {
	return &Tracker{
		windows:   make(map[string]*utils.SlidingWindow),
		threshold: cfg.Threshold,
		interval:  time.Duration(cfg.IntervalSeconds) * time.Second,
	}
}

// RecordAndCheck appends now to the member's window. When the count exceeds the
// threshold the window is cleared so one burst yields exactly one spam result.
func (t *Tracker) RecordAndCheck(guildID, userID string, now time.Time) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweep(now)
	key := guildID + ":" + userID
	window := t.windows[key]
	if window == nil {
		window = utils.NewSlidingWindow(t.interval)
		t.windows[key] = window
	}
	count, spam := window.AddAndResetAbove(now, t.threshold)
	return Result{IsSpam: spam, WindowCount: count}
}

// Forget drops the member's window, e.g. after a manual timeout.
func (t *Tracker) Forget(guildID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.windows, guildID+":"+userID)
}

// sweep drops windows with no hits left. Callers hold t.mu.
func (t *Tracker) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < t.interval {
		return
	}
	t.lastSweep = now
	for key, window := range t.windows {
		if window.Count(now) == 0 {
			delete(t.windows, key)
		}
	}
}
