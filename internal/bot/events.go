package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Maximus17a/BotRexy/internal/errs"
	"github.com/Maximus17a/BotRexy/internal/moderation"
	"github.com/Maximus17a/BotRexy/internal/modules/automod"
	"github.com/Maximus17a/BotRexy/internal/roles"
	"github.com/Maximus17a/BotRexy/internal/storage"
	"github.com/Maximus17a/BotRexy/internal/welcome"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const spamReason = "Spam detectado"

func (b *Bot) onMessageCreate(session *discordgo.Session, event *discordgo.MessageCreate) {
	if event.Author == nil || event.Author.Bot || event.GuildID == "" {
		return
	}
	defer b.recoverEvent("message_create", event.GuildID, event.Author.ID)
	b.countEvent("message_create")

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	b.handleMessage(ctx, event.Message)
}

// handleMessage runs moderation and then xp for one guild message. Members with
// Administrator skip moderation; a removed message earns nothing.
func (b *Bot) handleMessage(ctx context.Context, msg *discordgo.Message) {
	guild := b.guild(ctx, msg.GuildID)
	var roleIDs []string
	if msg.Member != nil {
		roleIDs = msg.Member.Roles
	}
	if b.memberHasAdmin(guild, msg.Author.ID, roleIDs) {
		b.awardXP(ctx, msg)
		return
	}

	if removed := b.moderateMessage(ctx, guild, msg, roleIDs); removed {
		return
	}
	b.awardXP(ctx, msg)
}

// moderateMessage runs spam and automod checks and reports whether the
// message was removed.
func (b *Bot) moderateMessage(ctx context.Context, guild *discordgo.Guild, msg *discordgo.Message, roleIDs []string) bool {
	policy, err := b.config.GuildPolicy(ctx, msg.GuildID)
	if err != nil {
		b.logger.Warn("guild policy unavailable, skipping automod", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return false
	}
	if !policy.AutomodEnabled {
		return false
	}
	rules, err := b.config.AutomodPolicy(ctx, msg.GuildID)
	if err != nil {
		b.logger.Warn("automod policy unavailable, skipping automod", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return false
	}

	if rules.AntiSpam {
		if result := b.spam.RecordAndCheck(msg.GuildID, msg.Author.ID, b.now()); result.IsSpam {
			b.punishSpam(ctx, guild, msg, roleIDs, result.WindowCount)
			return true
		}
	}

	verdict := automod.Evaluate(msg.Content, len(msg.Mentions), rules)
	if verdict.Allowed {
		return false
	}
	if b.metrics != nil {
		b.metrics.Violation(verdict.Reason)
	}
	reason := violationLabel(verdict, rules)
	outcome, err := b.actuator.DeleteAndWarn(ctx, msg.GuildID, msg.ChannelID, msg.ID, msg.Author.ID, b.platform.BotUserID(), reason)
	b.countAction("message_delete", err)
	if err != nil {
		b.logger.Warn("automod delete failed",
			zap.String("guild_id", msg.GuildID),
			zap.String("user_id", msg.Author.ID),
			zap.String("reason", verdict.Reason),
			zap.Error(err),
		)
		return false
	}
	b.logOutcome(outcome, msg.GuildID)
	b.logger.Info("automod violation",
		zap.String("guild_id", msg.GuildID),
		zap.String("user_id", msg.Author.ID),
		zap.String("reason", verdict.Reason),
		zap.String("detail", verdict.Detail),
	)
	return true
}

func (b *Bot) punishSpam(ctx context.Context, guild *discordgo.Guild, msg *discordgo.Message, roleIDs []string, count int) {
	if b.metrics != nil {
		b.metrics.Violation("spam")
	}
	actor, _ := b.rankOfUser(ctx, guild, b.platform.BotUserID())
	target := b.rankOf(guild, msg.Author.ID, roleIDs)
	outcome, err := b.actuator.Timeout(ctx, msg.GuildID, actor, target, b.cfg.Spam.TimeoutMinutes, spamReason)
	b.countAction("timeout", err)
	if err != nil {
		b.logger.Warn("spam timeout failed", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID), zap.Error(err))
		return
	}
	b.logOutcome(outcome, msg.GuildID)

	embed := b.commandEmbed("🚫 Spam detectado",
		fmt.Sprintf("%s ha sido silenciado por %d minutos.", msg.Author.Mention(), b.cfg.Spam.TimeoutMinutes),
		b.cfg.Notifications.EmbedColors.Error, nil)
	if _, err := b.platform.SendEmbed(ctx, msg.ChannelID, embed); err != nil {
		b.logger.Debug("spam notice failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
	}
	b.logger.Info("spam timeout",
		zap.String("guild_id", msg.GuildID),
		zap.String("user_id", msg.Author.ID),
		zap.Int("window_count", count),
	)
}

func violationLabel(verdict automod.Verdict, policy storage.AutomodPolicy) string {
	switch verdict.Reason {
	case automod.ReasonMentions:
		return fmt.Sprintf("Demasiadas menciones (máximo %d)", policy.MaxMentions)
	case automod.ReasonEmojis:
		return fmt.Sprintf("Demasiados emojis (máximo %d)", policy.MaxEmojis)
	case automod.ReasonInvite:
		return "Invitaciones de Discord no permitidas"
	case automod.ReasonLink:
		return "Enlaces no permitidos"
	case automod.ReasonLanguage:
		return "Lenguaje inapropiado"
	default:
		return verdict.Reason
	}
}

func (b *Bot) awardXP(ctx context.Context, msg *discordgo.Message) {
	policy, err := b.config.GuildPolicy(ctx, msg.GuildID)
	if err != nil {
		b.logger.Warn("guild policy unavailable, skipping xp", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return
	}
	if !policy.LevelsEnabled {
		return
	}
	levelUp, err := b.leveling.AwardMessage(ctx, msg.GuildID, msg.Author.ID, b.now())
	if err != nil {
		b.logger.Warn("xp award failed", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.Author.ID), zap.Error(err))
		return
	}
	if levelUp == nil {
		return
	}
	if b.metrics != nil {
		b.metrics.LevelUp()
	}

	embed := b.commandEmbed("🎉 ¡Subida de Nivel!",
		fmt.Sprintf("¡Felicidades %s! Has alcanzado el **nivel %d**", msg.Author.Mention(), levelUp.NewLevel),
		b.cfg.Notifications.EmbedColors.Level,
		[]*discordgo.MessageEmbedField{
			{Name: "XP Total", Value: fmt.Sprintf("%d", levelUp.XP), Inline: true},
			{Name: "Siguiente nivel", Value: fmt.Sprintf("%d XP", b.leveling.XPForLevel(levelUp.NewLevel+1)), Inline: true},
		})
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: msg.Author.AvatarURL("128")}
	if _, err := b.platform.SendEmbed(ctx, msg.ChannelID, embed); err != nil {
		b.logger.Debug("level up notice failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
	}
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.User == nil || event.User.Bot {
		return
	}
	defer b.recoverEvent("member_add", event.GuildID, event.User.ID)
	b.countEvent("member_add")

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	policy, err := b.config.GuildPolicy(ctx, event.GuildID)
	if err != nil {
		b.logger.Warn("guild policy unavailable, skipping join flow", zap.String("guild_id", event.GuildID), zap.Error(err))
		return
	}
	guild := b.guild(ctx, event.GuildID)

	if policy.WelcomeEnabled {
		if err := b.sendWelcome(ctx, guild, event.Member, false); err != nil {
			b.logger.Warn("welcome failed", zap.String("guild_id", event.GuildID), zap.String("user_id", event.User.ID), zap.Error(err))
		}
	}
	if policy.VerificationEnabled {
		b.sendVerificationPrompt(ctx, event.GuildID, event.Member)
	}
}

// sendWelcome posts the welcome message, with a rendered card when enabled.
// A render failure falls back to the plain text message.
func (b *Bot) sendWelcome(ctx context.Context, guild *discordgo.Guild, member *discordgo.Member, test bool) error {
	cfg, err := b.config.Welcome(ctx, member.GuildID)
	if err != nil {
		return err
	}
	if cfg.ChannelID == "" {
		return fmt.Errorf("%w: welcome channel not set", errs.ErrInvalidArgument)
	}

	serverName, members := "", 0
	if guild != nil {
		serverName, members = guild.Name, guild.MemberCount
	}
	content := welcome.FormatMessage(cfg.Message, member.Mention(), serverName, members)
	if test {
		content = "🧪 **Prueba de bienvenida**\n" + content
	}
	send := &discordgo.MessageSend{Content: content}

	if cfg.ImageEnabled && b.renderer != nil {
		card, err := b.renderer.Render(ctx, welcome.Card{
			UserName:           member.User.Username,
			ServerName:         serverName,
			AvatarURL:          member.AvatarURL("256"),
			BackgroundColor:    cfg.BackgroundColor,
			TextColor:          cfg.TextColor,
			BackgroundImageURL: cfg.BackgroundImageURL,
		})
		switch {
		case err == nil:
			send.Files = []*discordgo.File{{Name: "welcome.png", ContentType: "image/png", Reader: bytes.NewReader(card)}}
			send.Embeds = []*discordgo.MessageEmbed{{
				Color: b.cfg.Notifications.EmbedColors.Action,
				Image: &discordgo.MessageEmbedImage{URL: "attachment://welcome.png"},
			}}
		case errors.Is(err, errs.ErrRenderFailure):
			b.logger.Warn("welcome card render failed, sending text", zap.String("guild_id", member.GuildID), zap.Error(err))
		default:
			return err
		}
	}

	if _, err := b.platform.SendMessage(ctx, cfg.ChannelID, send); err != nil {
		return fmt.Errorf("%w: send welcome: %v", errs.ErrActionFailed, err)
	}
	return nil
}

func (b *Bot) sendVerificationPrompt(ctx context.Context, guildID string, member *discordgo.Member) {
	policy, err := b.config.Verification(ctx, guildID)
	if err != nil {
		b.logger.Warn("verification policy unavailable", zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	if policy.ChannelID == "" || policy.VerifiedRoleID == "" {
		return
	}
	panel := roles.VerificationPanel(policy, b.cfg.Notifications.EmbedColors.Action)
	if _, err := b.platform.SendMessage(ctx, policy.ChannelID, &discordgo.MessageSend{
		Content:    member.Mention(),
		Embeds:     []*discordgo.MessageEmbed{panel.Embed},
		Components: panel.Components,
	}); err != nil {
		b.logger.Warn("verification prompt failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func (b *Bot) countAction(action string, err error) {
	if b.metrics != nil {
		b.metrics.Action(action, err)
	}
}

// logOutcome surfaces a failed log write without failing the action.
func (b *Bot) logOutcome(outcome moderation.Outcome, guildID string) {
	if outcome.LogErr != nil {
		b.logger.Warn("action applied but not logged",
			zap.String("guild_id", guildID),
			zap.String("action", outcome.Entry.Action),
			zap.Error(outcome.LogErr),
		)
	}
}
