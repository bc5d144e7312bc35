package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a process-local Repository used in tests and when no database is configured.
type Memory struct {
	mu           sync.Mutex
	guilds       map[string]GuildPolicy
	automod      map[string]AutomodPolicy
	verification map[string]VerificationPolicy
	welcome      map[string]WelcomeConfig
	gameRoles    map[string]GameRoles
	progress     map[string]UserProgress
	logs         []ModerationLogEntry
}

func NewMemory() *Memory {
	return &Memory{
		guilds:       make(map[string]GuildPolicy),
		automod:      make(map[string]AutomodPolicy),
		verification: make(map[string]VerificationPolicy),
		welcome:      make(map[string]WelcomeConfig),
		gameRoles:    make(map[string]GameRoles),
		progress:     make(map[string]UserProgress),
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {}

func (m *Memory) EnsureGuildPolicy(_ context.Context, defaults GuildPolicy) (GuildPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureGuild(defaults), nil
}

func (m *Memory) ensureGuild(defaults GuildPolicy) GuildPolicy {
	if current, ok := m.guilds[defaults.GuildID]; ok {
		return current
	}
	m.guilds[defaults.GuildID] = defaults
	return defaults
}

func (m *Memory) UpdateGuildPolicy(_ context.Context, defaults GuildPolicy, update GuildPolicyUpdate) (GuildPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.ensureGuild(defaults)
	update.apply(&current)
	m.guilds[current.GuildID] = current
	return current, nil
}

func (m *Memory) EnsureAutomodPolicy(_ context.Context, defaults AutomodPolicy) (AutomodPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyAutomod(m.ensureAutomod(defaults)), nil
}

func (m *Memory) ensureAutomod(defaults AutomodPolicy) AutomodPolicy {
	if current, ok := m.automod[defaults.GuildID]; ok {
		return current
	}
	stored := copyAutomod(defaults)
	m.automod[defaults.GuildID] = stored
	return stored
}

func (m *Memory) UpdateAutomodPolicy(_ context.Context, defaults AutomodPolicy, update AutomodPolicyUpdate) (AutomodPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := copyAutomod(m.ensureAutomod(defaults))
	update.apply(&current)
	m.automod[current.GuildID] = current
	return copyAutomod(current), nil
}

func copyAutomod(p AutomodPolicy) AutomodPolicy {
	words := make([]string, len(p.BadWords))
	copy(words, p.BadWords)
	p.BadWords = words
	return p
}

func (m *Memory) EnsureVerification(_ context.Context, defaults VerificationPolicy) (VerificationPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureVerification(defaults), nil
}

func (m *Memory) ensureVerification(defaults VerificationPolicy) VerificationPolicy {
	if current, ok := m.verification[defaults.GuildID]; ok {
		return current
	}
	m.verification[defaults.GuildID] = defaults
	return defaults
}

func (m *Memory) UpdateVerification(_ context.Context, defaults VerificationPolicy, update VerificationUpdate) (VerificationPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.ensureVerification(defaults)
	update.apply(&current)
	m.verification[current.GuildID] = current
	return current, nil
}

func (m *Memory) EnsureWelcome(_ context.Context, defaults WelcomeConfig) (WelcomeConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureWelcome(defaults), nil
}

func (m *Memory) ensureWelcome(defaults WelcomeConfig) WelcomeConfig {
	if current, ok := m.welcome[defaults.GuildID]; ok {
		return current
	}
	m.welcome[defaults.GuildID] = defaults
	return defaults
}

func (m *Memory) UpdateWelcome(_ context.Context, defaults WelcomeConfig, update WelcomeUpdate) (WelcomeConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.ensureWelcome(defaults)
	update.apply(&current)
	m.welcome[current.GuildID] = current
	return current, nil
}

func (m *Memory) GetGameRoles(_ context.Context, guildID string) (GameRoles, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyGameRoles(m.gameRolesFor(guildID)), nil
}

func (m *Memory) gameRolesFor(guildID string) GameRoles {
	current, ok := m.gameRoles[guildID]
	if !ok {
		current = GameRoles{GuildID: guildID, Roles: make(map[string]string)}
		m.gameRoles[guildID] = current
	}
	return current
}

func (m *Memory) SetGameRole(_ context.Context, guildID, game, roleID string) (GameRoles, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.gameRolesFor(guildID)
	current.Roles[game] = roleID
	return copyGameRoles(current), nil
}

func (m *Memory) RemoveGameRole(_ context.Context, guildID, game string) (GameRoles, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.gameRolesFor(guildID)
	_, ok := current.Roles[game]
	delete(current.Roles, game)
	return copyGameRoles(current), ok, nil
}

func (m *Memory) SetGameRolePanel(_ context.Context, guildID, channelID, messageID string) (GameRoles, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.gameRolesFor(guildID)
	current.ChannelID = channelID
	current.MessageID = messageID
	m.gameRoles[guildID] = current
	return copyGameRoles(current), nil
}

func copyGameRoles(g GameRoles) GameRoles {
	roles := make(map[string]string, len(g.Roles))
	for game, roleID := range g.Roles {
		roles[game] = roleID
	}
	g.Roles = roles
	return g
}

func (m *Memory) GetProgress(_ context.Context, guildID, userID string) (UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.progress[guildID+":"+userID]; ok {
		return current, nil
	}
	return UserProgress{GuildID: guildID, UserID: userID}, nil
}

func (m *Memory) AwardXP(_ context.Context, guildID, userID string, delta int, levelFor func(xp int) int) (UserProgress, UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := guildID + ":" + userID
	before, ok := m.progress[key]
	if !ok {
		before = UserProgress{GuildID: guildID, UserID: userID}
	}
	after := before
	after.XP += delta
	after.MessageCount++
	after.Level = levelFor(after.XP)
	m.progress[key] = after
	return before, after, nil
}

func (m *Memory) ResetProgress(_ context.Context, guildID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := guildID + ":" + userID
	if current, ok := m.progress[key]; ok {
		current.XP = 0
		current.Level = 0
		m.progress[key] = current
	}
	return nil
}

func (m *Memory) Leaderboard(_ context.Context, guildID string, limit int) ([]UserProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []UserProgress
	for _, p := range m.progress {
		if p.GuildID == guildID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Level != result[j].Level {
			return result[i].Level > result[j].Level
		}
		if result[i].XP != result[j].XP {
			return result[i].XP > result[j].XP
		}
		return result[i].UserID < result[j].UserID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *Memory) AddModerationLog(_ context.Context, entry ModerationLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

func (m *Memory) ListModerationLogs(_ context.Context, guildID, userID string, limit int) ([]ModerationLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	logs := m.filterLogs(func(entry ModerationLogEntry) bool {
		return entry.GuildID == guildID && (userID == "" || entry.UserID == userID)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (m *Memory) ListModerationLogsSince(_ context.Context, guildID string, since time.Time) ([]ModerationLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.filterLogs(func(entry ModerationLogEntry) bool {
		return entry.GuildID == guildID && !entry.CreatedAt.Before(since)
	}), nil
}

// filterLogs returns matches newest first.
func (m *Memory) filterLogs(match func(ModerationLogEntry) bool) []ModerationLogEntry {
	var logs []ModerationLogEntry
	for i := len(m.logs) - 1; i >= 0; i-- {
		if match(m.logs[i]) {
			logs = append(logs, m.logs[i])
		}
	}
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})
	return logs
}
