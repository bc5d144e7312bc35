package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Maximus17a/BotRexy/internal/errs"
	"github.com/Maximus17a/BotRexy/internal/moderation"
	"github.com/Maximus17a/BotRexy/internal/roles"

	"github.com/bwmarrin/discordgo"
)

// gateway is everything the message and join pipelines need from Discord.
type gateway interface {
	moderation.Platform
	roles.Platform
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (string, error)
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	BotUserID() string
}

// discordPlatform adapts a gateway session to the moderation and roles platforms.
type discordPlatform struct {
	session *discordgo.Session
}

var _ gateway = (*discordPlatform)(nil)

func (p *discordPlatform) BotUserID() string {
	if p.session.State != nil && p.session.State.User != nil {
		return p.session.State.User.ID
	}
	return ""
}

// Guild prefers the state cache and falls back to REST.
func (p *discordPlatform) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if guild, err := p.session.State.Guild(guildID); err == nil && guild != nil {
		return guild, nil
	}
	return p.session.Guild(guildID, discordgo.WithContext(ctx))
}

func (p *discordPlatform) SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (string, error) {
	sent, err := p.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return sent.ID, nil
}

func (p *discordPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return p.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (p *discordPlatform) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (string, error) {
	msg, err := p.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (p *discordPlatform) SendDirectEmbed(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	channel, err := p.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = p.session.ChannelMessageSendEmbed(channel.ID, embed, discordgo.WithContext(ctx))
	return err
}

func (p *discordPlatform) TimeoutMember(ctx context.Context, guildID, userID string, until *time.Time) error {
	return p.session.GuildMemberTimeout(guildID, userID, until, discordgo.WithContext(ctx))
}

func (p *discordPlatform) KickMember(ctx context.Context, guildID, userID, reason string) error {
	return p.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (p *discordPlatform) BanMember(ctx context.Context, guildID, userID, reason string) error {
	return p.session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx))
}

func (p *discordPlatform) UnbanMember(ctx context.Context, guildID, userID string) error {
	return p.session.GuildBanDelete(guildID, userID, discordgo.WithContext(ctx))
}

func (p *discordPlatform) RecentMessageIDs(ctx context.Context, channelID string, limit int) ([]string, error) {
	messages, err := p.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	// Bulk delete rejects messages older than two weeks.
	cutoff := time.Now().Add(-14 * 24 * time.Hour)
	ids := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.Timestamp.Before(cutoff) {
			continue
		}
		ids = append(ids, msg.ID)
	}
	return ids, nil
}

func (p *discordPlatform) DeleteMessages(ctx context.Context, channelID string, messageIDs []string) error {
	return p.session.ChannelMessagesBulkDelete(channelID, messageIDs, discordgo.WithContext(ctx))
}

func (p *discordPlatform) MemberRoles(ctx context.Context, guildID, userID string) ([]string, error) {
	if member, err := p.session.State.Member(guildID, userID); err == nil && member != nil {
		return member.Roles, nil
	}
	member, err := p.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknown(err, discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser) {
			return nil, fmt.Errorf("%w: member %s", errs.ErrTargetNotFound, userID)
		}
		return nil, fmt.Errorf("%w: fetch member: %v", errs.ErrActionFailed, err)
	}
	return member.Roles, nil
}

func (p *discordPlatform) RoleExists(ctx context.Context, guildID, roleID string) (bool, error) {
	if role, err := p.session.State.Role(guildID, roleID); err == nil && role != nil {
		return true, nil
	}
	guildRoles, err := p.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("%w: fetch roles: %v", errs.ErrActionFailed, err)
	}
	for _, role := range guildRoles {
		if role.ID == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (p *discordPlatform) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return p.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (p *discordPlatform) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return p.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func isUnknown(err error, codes ...int) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound && restErr.Message == nil {
		return true
	}
	if restErr.Message == nil {
		return false
	}
	for _, code := range codes {
		if restErr.Message.Code == code {
			return true
		}
	}
	return false
}
