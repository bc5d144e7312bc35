package leveling

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Maximus17a/BotRexy/internal/config"
	"github.com/Maximus17a/BotRexy/internal/storage"
	"github.com/Maximus17a/BotRexy/internal/utils"
)

type LevelUp struct {
	OldLevel int
	NewLevel int
	XP       int
}

type Engine struct {
	mu         sync.Mutex
	repo       storage.Repository
	xpPer      int
	cooldown   time.Duration
	multiplier int
	lastAward  map[string]time.Time
	lastSweep  time.Time
	keyLocks   *utils.KeyedMutex
}

func NewEngine(repo storage.Repository, cfg config.LevelingConfig) *Engine {
	return &Engine{
		repo:       repo,
		xpPer:      cfg.XPPerMessage,
		cooldown:   time.Duration(cfg.CooldownSeconds) * time.Second,
		multiplier: cfg.LevelMultiplier,
		lastAward:  make(map[string]time.Time),
		keyLocks:   utils.NewKeyedMutex(),
	}
}

// XPForLevel is the cumulative xp needed to reach level n: multiplier * n^2.
func XPForLevel(n, multiplier int) int {
	if n <= 0 {
		return 0
	}
	return multiplier * n * n
}

// LevelForXP returns the greatest n with xp >= XPForLevel(n).
func LevelForXP(xp, multiplier int) int {
	level := 0
	for xp >= XPForLevel(level+1, multiplier) {
		level++
	}
	return level
}

func (e *Engine) XPForLevel(n int) int { return XPForLevel(n, e.multiplier) }

func (e *Engine) LevelForXP(xp int) int { return LevelForXP(xp, e.multiplier) }

// AwardMessage grants xp for one message unless the member is still cooling down.
// It returns a non-nil LevelUp only when the level rose.
func (e *Engine) AwardMessage(ctx context.Context, guildID, userID string, now time.Time) (*LevelUp, error) {
	key := guildID + ":" + userID
	unlock := e.keyLocks.Lock(key)
	defer unlock()

	if !e.stampCooldown(key, now) {
		return nil, nil
	}

	before, after, err := e.repo.AwardXP(ctx, guildID, userID, e.xpPer, e.LevelForXP)
	if err != nil {
		return nil, err
	}
	if after.Level > before.Level {
		return &LevelUp{OldLevel: before.Level, NewLevel: after.Level, XP: after.XP}, nil
	}
	return nil, nil
}

// stampCooldown records now as the last award time when the cooldown has passed.
// Stamps older than the cooldown no longer matter and are swept once per cooldown.
func (e *Engine) stampCooldown(key string, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if now.Sub(e.lastSweep) >= e.cooldown {
		e.lastSweep = now
		for k, last := range e.lastAward {
			if now.Sub(last) >= e.cooldown {
				delete(e.lastAward, k)
			}
		}
	}

	if last, ok := e.lastAward[key]; ok && now.Sub(last) < e.cooldown {
		return false
	}
	e.lastAward[key] = now
	return true
}

func (e *Engine) Progress(ctx context.Context, guildID, userID string) (storage.UserProgress, error) {
	return e.repo.GetProgress(ctx, guildID, userID)
}

func (e *Engine) Leaderboard(ctx context.Context, guildID string, limit int) ([]storage.UserProgress, error) {
	if limit <= 0 {
		limit = 10
	}
	return e.repo.Leaderboard(ctx, guildID, limit)
}

func (e *Engine) Reset(ctx context.Context, guildID, userID string) error {
	unlock := e.keyLocks.Lock(guildID + ":" + userID)
	defer unlock()
	return e.repo.ResetProgress(ctx, guildID, userID)
}

// ProgressBar renders progress from the current level threshold to the next one.
func (e *Engine) ProgressBar(xp, level, width int) (bar string, current, needed int) {
	floor := e.XPForLevel(level)
	next := e.XPForLevel(level + 1)
	current = xp - floor
	needed = next - floor
	if current < 0 {
		current = 0
	}
	filled := 0
	if needed > 0 {
		filled = current * width / needed
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled), current, needed
}
