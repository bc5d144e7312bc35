package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Maximus17a/BotRexy/internal/config"
	"github.com/Maximus17a/BotRexy/internal/configstore"
	"github.com/Maximus17a/BotRexy/internal/errs"
	"github.com/Maximus17a/BotRexy/internal/moderation"
	"github.com/Maximus17a/BotRexy/internal/modules/antispam"
	"github.com/Maximus17a/BotRexy/internal/modules/audit"
	"github.com/Maximus17a/BotRexy/internal/modules/leveling"
	"github.com/Maximus17a/BotRexy/internal/roles"
	"github.com/Maximus17a/BotRexy/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type sentMessage struct {
	channelID string
	msg       *discordgo.MessageSend
}

// fakeGateway records every call the pipeline makes against Discord.
type fakeGateway struct {
	mu       sync.Mutex
	guild    *discordgo.Guild
	roles    map[string][]string
	deleted  []string
	embeds   []*discordgo.MessageEmbed
	sent     []sentMessage
	timeouts []string
}

func newFakeGateway() *fakeGateway {
	guild := testGuild()
	guild.Name = "Rexys"
	guild.MemberCount = 42
	guild.Roles = append(guild.Roles, &discordgo.Role{ID: "botrole", Position: 8})
	return &fakeGateway{guild: guild, roles: map[string][]string{"bot": {"botrole"}}}
}

func (f *fakeGateway) DeleteMessage(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeGateway) SendEmbed(_ context.Context, _ string, embed *discordgo.MessageEmbed) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embeds = append(f.embeds, embed)
	return "notice", nil
}

func (f *fakeGateway) SendDirectEmbed(context.Context, string, *discordgo.MessageEmbed) error {
	return nil
}

func (f *fakeGateway) TimeoutMember(_ context.Context, _, userID string, _ *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts = append(f.timeouts, userID)
	return nil
}

func (f *fakeGateway) KickMember(context.Context, string, string, string) error { return nil }

func (f *fakeGateway) BanMember(context.Context, string, string, string) error { return nil }

func (f *fakeGateway) UnbanMember(context.Context, string, string) error { return nil }

func (f *fakeGateway) RecentMessageIDs(context.Context, string, int) ([]string, error) {
	return nil, nil
}

func (f *fakeGateway) DeleteMessages(context.Context, string, []string) error { return nil }

func (f *fakeGateway) MemberRoles(_ context.Context, _, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	roleIDs, ok := f.roles[userID]
	if !ok {
		return nil, errs.ErrTargetNotFound
	}
	return roleIDs, nil
}

func (f *fakeGateway) RoleExists(context.Context, string, string) (bool, error) { return true, nil }

func (f *fakeGateway) AddRole(context.Context, string, string, string, string) error { return nil }

func (f *fakeGateway) RemoveRole(context.Context, string, string, string, string) error { return nil }

func (f *fakeGateway) SendMessage(_ context.Context, channelID string, msg *discordgo.MessageSend) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channelID: channelID, msg: msg})
	return "sent", nil
}

func (f *fakeGateway) Guild(context.Context, string) (*discordgo.Guild, error) {
	return f.guild, nil
}

func (f *fakeGateway) BotUserID() string { return "bot" }

type automodDownRepo struct {
	*storage.Memory
}

func (automodDownRepo) EnsureAutomodPolicy(context.Context, storage.AutomodPolicy) (storage.AutomodPolicy, error) {
	return storage.AutomodPolicy{}, errors.New("connection refused")
}

type policyDownRepo struct {
	*storage.Memory
}

func (policyDownRepo) EnsureGuildPolicy(context.Context, storage.GuildPolicy) (storage.GuildPolicy, error) {
	return storage.GuildPolicy{}, errors.New("connection refused")
}

type pipelineClock struct{ now time.Time }

func (c *pipelineClock) Now() time.Time { return c.now }

func newPipelineBot(repo storage.Repository, tweak func(*config.Config)) (*Bot, *fakeGateway, *pipelineClock) {
	cfg := config.DefaultConfig()
	// Keep the automod warning alive for the whole test.
	cfg.Automod.WarningDeleteAfter = 3600
	if tweak != nil {
		tweak(&cfg)
	}
	logger := zap.NewNop()
	gw := newFakeGateway()
	modlog := audit.NewLogger(repo, logger)
	clock := &pipelineClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		platform: gw,
		config:   configstore.New(repo, cfg),
		spam:     antispam.New(cfg.Spam),
		leveling: leveling.NewEngine(repo, cfg.Leveling),
		modlog:   modlog,
		actuator: moderation.NewActuator(gw, modlog, logger, cfg),
		roles:    roles.NewRegistry(gw),
		now:      clock.Now,
	}
	return b, gw, clock
}

func guildMessage(id, userID, content string, roleIDs ...string) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		ChannelID: "chan",
		GuildID:   "g1",
		Content:   content,
		Author:    &discordgo.User{ID: userID, Username: userID},
		Member:    &discordgo.Member{Roles: roleIDs},
	}
}

func xpOf(t *testing.T, repo storage.Repository, userID string) storage.UserProgress {
	t.Helper()
	progress, err := repo.GetProgress(context.Background(), "g1", userID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	return progress
}

func TestAdminSkipsModerationButEarnsXP(t *testing.T) {
	repo := storage.NewMemory()
	b, gw, _ := newPipelineBot(repo, nil)

	b.handleMessage(context.Background(), guildMessage("m1", "u1", "únete a discord.gg/abc", "admin"))

	if len(gw.deleted) != 0 {
		t.Fatalf("admin message must not be removed, deleted %v", gw.deleted)
	}
	if progress := xpOf(t, repo, "u1"); progress.XP != 15 {
		t.Fatalf("expected admin to earn 15 xp, got %+v", progress)
	}
}

func TestRemovedMessageEarnsNoXP(t *testing.T) {
	repo := storage.NewMemory()
	b, gw, clock := newPipelineBot(repo, nil)
	ctx := context.Background()

	b.handleMessage(ctx, guildMessage("m1", "u1", "únete a discord.gg/abc", "member"))

	if len(gw.deleted) != 1 || gw.deleted[0] != "m1" {
		t.Fatalf("expected m1 removed, deleted %v", gw.deleted)
	}
	if progress := xpOf(t, repo, "u1"); progress.XP != 0 || progress.MessageCount != 0 {
		t.Fatalf("removed message earned xp: %+v", progress)
	}
	logs, err := repo.ListModerationLogs(ctx, "g1", "u1", 10)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != audit.ActionMessageDelete || logs[0].ModeratorID != "bot" {
		t.Fatalf("unexpected log entries %+v", logs)
	}

	clock.now = clock.now.Add(time.Second)
	b.handleMessage(ctx, guildMessage("m2", "u1", "hola a todos", "member"))
	if progress := xpOf(t, repo, "u1"); progress.XP != 15 {
		t.Fatalf("clean message should earn xp, got %+v", progress)
	}
}

func TestSpamIsCheckedBeforeAutomod(t *testing.T) {
	repo := storage.NewMemory()
	b, gw, clock := newPipelineBot(repo, func(cfg *config.Config) {
		cfg.Leveling.CooldownSeconds = 0
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		b.handleMessage(ctx, guildMessage("clean", "u1", "hola", "member"))
		clock.now = clock.now.Add(500 * time.Millisecond)
	}
	b.handleMessage(ctx, guildMessage("burst", "u1", "discord.gg/abc", "member"))

	if len(gw.timeouts) != 1 || gw.timeouts[0] != "u1" {
		t.Fatalf("expected one spam timeout, got %v", gw.timeouts)
	}
	if len(gw.deleted) != 0 {
		t.Fatalf("automod must not run once spam matched, deleted %v", gw.deleted)
	}
	if progress := xpOf(t, repo, "u1"); progress.XP != 75 || progress.MessageCount != 5 {
		t.Fatalf("spam message must not earn xp, got %+v", progress)
	}
	logs, _ := repo.ListModerationLogs(ctx, "g1", "u1", 10)
	if len(logs) != 1 || logs[0].Action != audit.ActionTimeout {
		t.Fatalf("expected a timeout log entry, got %+v", logs)
	}
	found := false
	for _, embed := range gw.embeds {
		if strings.Contains(embed.Title, "Spam") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a spam notice in the channel")
	}
}

func TestAutomodPolicyOutageFailsOpen(t *testing.T) {
	repo := automodDownRepo{storage.NewMemory()}
	b, gw, _ := newPipelineBot(repo, nil)

	b.handleMessage(context.Background(), guildMessage("m1", "u1", "discord.gg/abc", "member"))

	if len(gw.deleted) != 0 {
		t.Fatalf("message must pass when automod policy is unavailable, deleted %v", gw.deleted)
	}
	if progress := xpOf(t, repo, "u1"); progress.XP != 15 {
		t.Fatalf("xp must still be awarded, got %+v", progress)
	}
}

func TestGuildPolicyOutageSkipsEverything(t *testing.T) {
	repo := policyDownRepo{storage.NewMemory()}
	b, gw, _ := newPipelineBot(repo, nil)

	b.handleMessage(context.Background(), guildMessage("m1", "u1", "discord.gg/abc", "member"))

	if len(gw.deleted) != 0 || len(gw.timeouts) != 0 {
		t.Fatalf("no action expected, deleted %v timeouts %v", gw.deleted, gw.timeouts)
	}
	if progress := xpOf(t, repo, "u1"); progress.XP != 0 {
		t.Fatalf("no xp expected without a guild policy, got %+v", progress)
	}
}

func TestDisabledStepsAreSkipped(t *testing.T) {
	repo := storage.NewMemory()
	b, gw, clock := newPipelineBot(repo, nil)
	ctx := context.Background()
	off, on := false, true

	if _, err := b.config.UpdateGuildPolicy(ctx, "g1", storage.GuildPolicyUpdate{AutomodEnabled: &off}); err != nil {
		t.Fatalf("update: %v", err)
	}
	b.handleMessage(ctx, guildMessage("m1", "u1", "discord.gg/abc", "member"))
	if len(gw.deleted) != 0 {
		t.Fatalf("automod disabled but message removed: %v", gw.deleted)
	}
	if progress := xpOf(t, repo, "u1"); progress.XP != 15 {
		t.Fatalf("levels still enabled, got %+v", progress)
	}

	if _, err := b.config.UpdateGuildPolicy(ctx, "g1", storage.GuildPolicyUpdate{AutomodEnabled: &on, LevelsEnabled: &off}); err != nil {
		t.Fatalf("update: %v", err)
	}
	clock.now = clock.now.Add(time.Hour)
	b.handleMessage(ctx, guildMessage("m2", "u1", "hola", "member"))
	if progress := xpOf(t, repo, "u1"); progress.XP != 15 {
		t.Fatalf("levels disabled but xp changed: %+v", progress)
	}
}

func TestBotAndDirectMessagesAreIgnored(t *testing.T) {
	repo := storage.NewMemory()
	b, gw, _ := newPipelineBot(repo, nil)

	fromBot := guildMessage("m1", "u1", "discord.gg/abc", "member")
	fromBot.Author.Bot = true
	b.onMessageCreate(nil, &discordgo.MessageCreate{Message: fromBot})

	direct := guildMessage("m2", "u2", "discord.gg/abc")
	direct.GuildID = ""
	b.onMessageCreate(nil, &discordgo.MessageCreate{Message: direct})

	if len(gw.deleted) != 0 {
		t.Fatalf("ignored messages were moderated: %v", gw.deleted)
	}
	if xpOf(t, repo, "u1").XP != 0 {
		t.Fatalf("bot message earned xp")
	}
}

func TestMemberJoinSendsWelcomeAndVerification(t *testing.T) {
	repo := storage.NewMemory()
	b, gw, _ := newPipelineBot(repo, nil)
	ctx := context.Background()
	on := true
	welcomeChannel, verifyChannel, verifiedRole := "500", "600", "700"

	if _, err := b.config.UpdateGuildPolicy(ctx, "g1", storage.GuildPolicyUpdate{WelcomeEnabled: &on, VerificationEnabled: &on}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := b.config.UpdateWelcome(ctx, "g1", storage.WelcomeUpdate{ChannelID: &welcomeChannel}); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if _, err := b.config.UpdateVerification(ctx, "g1", storage.VerificationUpdate{ChannelID: &verifyChannel, VerifiedRoleID: &verifiedRole}); err != nil {
		t.Fatalf("verification: %v", err)
	}

	b.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: &discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: "u9", Username: "rexy"},
	}})

	if len(gw.sent) != 2 {
		t.Fatalf("expected welcome and verification messages, got %d", len(gw.sent))
	}
	welcomeMsg := gw.sent[0]
	if welcomeMsg.channelID != welcomeChannel || !strings.Contains(welcomeMsg.msg.Content, "u9") || !strings.Contains(welcomeMsg.msg.Content, "Rexys") {
		t.Fatalf("unexpected welcome %q in %s", welcomeMsg.msg.Content, welcomeMsg.channelID)
	}
	verify := gw.sent[1]
	if verify.channelID != verifyChannel || len(verify.msg.Components) != 1 {
		t.Fatalf("unexpected verification prompt %+v", verify)
	}
}

func TestWelcomeWithoutChannelIsInvalid(t *testing.T) {
	repo := storage.NewMemory()
	b, gw, _ := newPipelineBot(repo, nil)
	member := &discordgo.Member{GuildID: "g1", User: &discordgo.User{ID: "u9", Username: "rexy"}}

	err := b.sendWelcome(context.Background(), gw.guild, member, true)
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if len(gw.sent) != 0 {
		t.Fatalf("nothing should be sent without a channel")
	}
}
