package bot

import (
	"context"
	"time"

	"github.com/Maximus17a/BotRexy/internal/config"
	"github.com/Maximus17a/BotRexy/internal/configstore"
	"github.com/Maximus17a/BotRexy/internal/metrics"
	"github.com/Maximus17a/BotRexy/internal/moderation"
	"github.com/Maximus17a/BotRexy/internal/modules/antispam"
	"github.com/Maximus17a/BotRexy/internal/modules/audit"
	"github.com/Maximus17a/BotRexy/internal/modules/leveling"
	"github.com/Maximus17a/BotRexy/internal/roles"
	"github.com/Maximus17a/BotRexy/internal/welcome"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const eventTimeout = 15 * time.Second

type Deps struct {
	Config   *configstore.Store
	Spam     *antispam.Tracker
	Leveling *leveling.Engine
	ModLog   *audit.Logger
	Renderer *welcome.Renderer
	Metrics  *metrics.Metrics
}

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	session  *discordgo.Session
	platform gateway
	config   *configstore.Store
	spam     *antispam.Tracker
	leveling *leveling.Engine
	modlog   *audit.Logger
	actuator *moderation.Actuator
	roles    *roles.Registry
	renderer *welcome.Renderer
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(cfg config.Config, logger *zap.Logger, deps Deps) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	platform := &discordPlatform{session: session}
	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		session:  session,
		platform: platform,
		config:   deps.Config,
		spam:     deps.Spam,
		leveling: deps.Leveling,
		modlog:   deps.ModLog,
		actuator: moderation.NewActuator(platform, deps.ModLog, logger, cfg),
		roles:    roles.NewRegistry(platform),
		renderer: deps.Renderer,
		metrics:  deps.Metrics,
		now:      time.Now,
	}
	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}
	return b.registerCommands()
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("gateway ready", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
}

// recoverEvent keeps one failing event from taking down the gateway loop.
func (b *Bot) recoverEvent(event, guildID, userID string) {
	if r := recover(); r != nil {
		if b.metrics != nil {
			b.metrics.Panic(event)
		}
		b.logger.Error("event handler panic",
			zap.String("event", event),
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
	}
}

func (b *Bot) countEvent(event string) {
	if b.metrics != nil {
		b.metrics.Event(event)
	}
}

func (b *Bot) guild(ctx context.Context, guildID string) *discordgo.Guild {
	guild, err := b.platform.Guild(ctx, guildID)
	if err != nil {
		b.logger.Warn("guild lookup failed", zap.String("guild_id", guildID), zap.Error(err))
		return nil
	}
	return guild
}

func (b *Bot) memberForUser(guildID, userID string) *discordgo.Member {
	member, err := b.session.State.Member(guildID, userID)
	if err == nil && member != nil {
		return member
	}
	member, _ = b.session.GuildMember(guildID, userID)
	return member
}

func (b *Bot) memberHasAdmin(guild *discordgo.Guild, userID string, roleIDs []string) bool {
	if guild == nil {
		return false
	}
	if guild.OwnerID == userID {
		return true
	}
	perms := int64(0)
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range roleIDs {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	return perms&discordgo.PermissionAdministrator != 0
}

// rankOf resolves a member's authority: the position of their highest role,
// with the guild owner above everyone.
func (b *Bot) rankOf(guild *discordgo.Guild, userID string, roleIDs []string) moderation.Member {
	member := moderation.Member{UserID: userID}
	if guild == nil {
		return member
	}
	member.Owner = guild.OwnerID == userID
	positions := make(map[string]int, len(guild.Roles))
	for _, role := range guild.Roles {
		positions[role.ID] = role.Position
	}
	for _, roleID := range roleIDs {
		if pos, ok := positions[roleID]; ok && pos > member.Rank {
			member.Rank = pos
		}
	}
	return member
}

func (b *Bot) rankOfUser(ctx context.Context, guild *discordgo.Guild, userID string) (moderation.Member, bool) {
	if guild == nil {
		return moderation.Member{UserID: userID}, false
	}
	roleIDs, err := b.platform.MemberRoles(ctx, guild.ID, userID)
	if err != nil {
		return moderation.Member{UserID: userID}, false
	}
	return b.rankOf(guild, userID, roleIDs), true
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	}); err != nil {
		b.logger.Warn("interaction response failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
	}
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No hay respuesta disponible.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	}); err != nil {
		b.logger.Warn("interaction response failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
	}
}

func (b *Bot) deferResponse(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (b *Bot) followup(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string) {
	if _, err := session.FollowupMessageCreate(interaction.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		b.logger.Warn("followup failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
	}
}
