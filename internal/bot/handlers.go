package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Maximus17a/BotRexy/internal/configstore"
	"github.com/Maximus17a/BotRexy/internal/errs"
	"github.com/Maximus17a/BotRexy/internal/moderation"
	"github.com/Maximus17a/BotRexy/internal/modules/audit"
	"github.com/Maximus17a/BotRexy/internal/roles"
	"github.com/Maximus17a/BotRexy/internal/storage"
	"github.com/Maximus17a/BotRexy/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	legacyVerifyButton = "verify_button"
	defaultReason      = "No especificada"
	autoVerifyReason   = "Usuario verificado automáticamente"
)

type commandContext struct {
	session     *discordgo.Session
	interaction *discordgo.InteractionCreate
	data        discordgo.ApplicationCommandInteractionData
	options     map[string]*discordgo.ApplicationCommandInteractionDataOption
	guild       *discordgo.Guild
	actor       moderation.Member
}

func (c *commandContext) userID(name string) (string, bool) {
	opt, ok := c.options[name]
	if !ok {
		return "", false
	}
	return opt.UserValue(nil).ID, true
}

func (c *commandContext) str(name, fallback string) string {
	if opt, ok := c.options[name]; ok {
		if value := strings.TrimSpace(opt.StringValue()); value != "" {
			return value
		}
	}
	return fallback
}

func (c *commandContext) integer(name string, fallback int) int {
	if opt, ok := c.options[name]; ok {
		return int(opt.IntValue())
	}
	return fallback
}

// target resolves a user option to a ranked member. ok is false when the
// user is not in the guild.
func (b *Bot) target(ctx context.Context, c *commandContext, userID string) (moderation.Member, bool) {
	if c.data.Resolved != nil {
		if member, ok := c.data.Resolved.Members[userID]; ok && member != nil {
			return b.rankOf(c.guild, userID, member.Roles), true
		}
	}
	return b.rankOfUser(ctx, c.guild, userID)
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	userID := ""
	if interaction.Member != nil && interaction.Member.User != nil {
		userID = interaction.Member.User.ID
	}
	defer b.recoverEvent("interaction", interaction.GuildID, userID)

	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		b.countEvent("command")
		b.handleCommand(session, interaction)
	case discordgo.InteractionMessageComponent:
		b.countEvent("component")
		b.handleComponent(session, interaction)
	}
}

func (b *Bot) handleCommand(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		b.respond(session, interaction, "❌ Este comando solo funciona en servidores.", true)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	data := interaction.ApplicationCommandData()
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		options[opt.Name] = opt
	}
	guild := b.guild(ctx, interaction.GuildID)
	c := &commandContext{
		session:     session,
		interaction: interaction,
		data:        data,
		options:     options,
		guild:       guild,
		actor:       b.rankOf(guild, interaction.Member.User.ID, interaction.Member.Roles),
	}

	switch data.Name {
	case "automod":
		b.handleAutomodStatus(ctx, c)
	case "togglespam", "toggleinvites", "togglelinks":
		b.handleAutomodToggle(ctx, c)
	case "nivel":
		b.handleLevel(ctx, c)
	case "ranking":
		b.handleRanking(ctx, c)
	case "resetxp":
		b.handleResetXP(ctx, c)
	case "kick", "ban":
		b.handleKickBan(ctx, c)
	case "unban":
		b.handleUnban(ctx, c)
	case "timeout":
		b.handleTimeout(ctx, c)
	case "untimeout":
		b.handleUntimeout(ctx, c)
	case "warn":
		b.handleWarn(ctx, c)
	case "clear":
		b.handleClear(ctx, c)
	case "modlogs":
		b.handleModLogs(ctx, c)
	case "setupverification":
		b.handleSetupVerification(ctx, c)
	case "verify":
		b.handleManualVerify(ctx, c)
	case "toggleverification":
		b.handleToggleVerification(ctx, c)
	case "addgamerole":
		b.handleAddGameRole(ctx, c)
	case "removegamerole":
		b.handleRemoveGameRole(ctx, c)
	case "listgameroles":
		b.handleListGameRoles(ctx, c)
	case "setupgameroles":
		b.handleSetupGameRoles(ctx, c)
	case "setwelcome":
		b.handleSetWelcome(ctx, c)
	case "welcomemsg":
		b.handleWelcomeMessage(ctx, c)
	case "testwelcome":
		b.handleTestWelcome(ctx, c)
	default:
		b.respond(session, interaction, "❌ Comando desconocido.", true)
	}
}

// fail maps an error kind to the reply shown to the invoker.
func (b *Bot) fail(c *commandContext, what string, err error) {
	b.respond(c.session, c.interaction, b.failureMessage(c.interaction.GuildID, what, err), true)
}

func (b *Bot) failureMessage(guildID, what string, err error) string {
	switch {
	case errors.Is(err, errs.ErrConfigUnavailable):
		b.logger.Warn("config unavailable", zap.String("guild_id", guildID), zap.Error(err))
		return "❌ La configuración no está disponible. Inténtalo más tarde."
	case errors.Is(err, errs.ErrInsufficientRank):
		return "❌ No puedes " + what + " a este usuario."
	case errors.Is(err, errs.ErrTargetNotFound):
		return "❌ No se encontró el usuario o rol indicado."
	case errors.Is(err, errs.ErrInvalidArgument), errors.Is(err, configstore.ErrInvalidValue):
		return "❌ Valor no válido: " + err.Error()
	default:
		b.logger.Warn("command failed", zap.String("guild_id", guildID), zap.String("action", what), zap.Error(err))
		return "❌ Error al " + what + "."
	}
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "✅ Activado"
	}
	return "❌ Desactivado"
}

func toggledLabel(enabled bool) string {
	if enabled {
		return "activado"
	}
	return "desactivado"
}

func (b *Bot) handleAutomodStatus(ctx context.Context, c *commandContext) {
	policy, err := b.config.AutomodPolicy(ctx, c.interaction.GuildID)
	if err != nil {
		b.fail(c, "obtener la configuración", err)
		return
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Anti-Spam", Value: enabledLabel(policy.AntiSpam), Inline: true},
		{Name: "Anti-Invitaciones", Value: enabledLabel(policy.AntiInvites), Inline: true},
		{Name: "Anti-Enlaces", Value: enabledLabel(policy.AntiLinks), Inline: true},
		{Name: "Máximo de Menciones", Value: fmt.Sprintf("%d", policy.MaxMentions), Inline: true},
		{Name: "Máximo de Emojis", Value: fmt.Sprintf("%d", policy.MaxEmojis), Inline: true},
		{Name: "Palabras Prohibidas", Value: fmt.Sprintf("%d", len(policy.BadWords)), Inline: true},
	}
	b.respondEmbed(c.session, c.interaction, b.commandEmbed("⚙️ Configuración de Automoderación",
		"Estado actual de las funciones de automoderación", b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleAutomodToggle(ctx context.Context, c *commandContext) {
	policy, err := b.config.AutomodPolicy(ctx, c.interaction.GuildID)
	if err != nil {
		b.fail(c, "cambiar la automoderación", err)
		return
	}

	var update storage.AutomodPolicyUpdate
	var label string
	var next bool
	switch c.data.Name {
	case "togglespam":
		next, label = !policy.AntiSpam, "Anti-spam"
		update.AntiSpam = &next
	case "toggleinvites":
		next, label = !policy.AntiInvites, "Anti-invitaciones"
		update.AntiInvites = &next
	case "togglelinks":
		next, label = !policy.AntiLinks, "Anti-enlaces"
		update.AntiLinks = &next
	}
	if _, err := b.config.UpdateAutomodPolicy(ctx, c.interaction.GuildID, update); err != nil {
		b.fail(c, "cambiar la automoderación", err)
		return
	}
	b.respond(c.session, c.interaction, fmt.Sprintf("✅ %s %s.", label, toggledLabel(next)), true)
}

func (b *Bot) handleLevel(ctx context.Context, c *commandContext) {
	userID, ok := c.userID("usuario")
	if !ok {
		userID = c.interaction.Member.User.ID
	}
	progress, err := b.leveling.Progress(ctx, c.interaction.GuildID, userID)
	if err != nil {
		b.fail(c, "obtener el nivel", err)
		return
	}

	bar, current, needed := b.leveling.ProgressBar(progress.XP, progress.Level, 20)
	percent := 0
	if needed > 0 {
		percent = current * 100 / needed
	}
	name := userID
	avatar := ""
	if member := b.memberForUser(c.interaction.GuildID, userID); member != nil && member.User != nil {
		name = displayName(member)
		avatar = member.AvatarURL("128")
	}
	embed := b.commandEmbed("📊 Nivel de "+name, "", b.cfg.Notifications.EmbedColors.Action, []*discordgo.MessageEmbedField{
		{Name: "Nivel", Value: fmt.Sprintf("**%d**", progress.Level), Inline: true},
		{Name: "XP", Value: fmt.Sprintf("%d/%d", current, needed), Inline: true},
		{Name: "Mensajes", Value: fmt.Sprintf("%d", progress.MessageCount), Inline: true},
		{Name: "Progreso", Value: fmt.Sprintf("`%s` %d%%", bar, percent)},
	})
	if avatar != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: avatar}
	}
	b.respondEmbed(c.session, c.interaction, embed, false)
}

func displayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	return member.User.Username
}

func (b *Bot) handleRanking(ctx context.Context, c *commandContext) {
	board, err := b.leveling.Leaderboard(ctx, c.interaction.GuildID, 10)
	if err != nil {
		b.fail(c, "obtener el ranking", err)
		return
	}
	if len(board) == 0 {
		b.respond(c.session, c.interaction, "No hay datos de clasificación aún.", true)
		return
	}

	medals := []string{"🥇 ", "🥈 ", "🥉 "}
	fields := make([]*discordgo.MessageEmbedField, 0, len(board))
	for i, entry := range board {
		name := "Usuario " + entry.UserID
		if member, err := c.session.State.Member(c.interaction.GuildID, entry.UserID); err == nil && member.User != nil {
			name = displayName(member)
		}
		medal := ""
		if i < len(medals) {
			medal = medals[i]
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s#%d - %s", medal, i+1, name),
			Value: fmt.Sprintf("Nivel %d | %d XP", entry.Level, entry.XP),
		})
	}
	title := "🏆 Ranking"
	if c.guild != nil {
		title = "🏆 Ranking de " + c.guild.Name
	}
	b.respondEmbed(c.session, c.interaction, b.commandEmbed(title, "Top 10 usuarios por nivel", b.cfg.Notifications.EmbedColors.Level, fields), false)
}

func (b *Bot) handleResetXP(ctx context.Context, c *commandContext) {
	userID, _ := c.userID("usuario")
	if err := b.leveling.Reset(ctx, c.interaction.GuildID, userID); err != nil {
		b.fail(c, "resetear XP", err)
		return
	}
	b.respond(c.session, c.interaction, fmt.Sprintf("✅ XP de <@%s> ha sido reseteado.", userID), true)
}

func (b *Bot) handleKickBan(ctx context.Context, c *commandContext) {
	userID, _ := c.userID("usuario")
	reason := c.str("razon", defaultReason)
	target, member := b.target(ctx, c, userID)

	var (
		outcome moderation.Outcome
		err     error
		title   string
		verb    string
		color   = b.cfg.Notifications.EmbedColors.Warning
	)
	if c.data.Name == "kick" {
		verb, title = "expulsar", "👢 Usuario Expulsado"
		if !member {
			b.respond(c.session, c.interaction, "❌ El usuario no está en el servidor.", true)
			return
		}
		outcome, err = b.actuator.Kick(ctx, c.interaction.GuildID, c.actor, target, reason)
		b.countAction(audit.ActionKick, err)
	} else {
		verb, title = "banear", "🔨 Usuario Baneado"
		color = b.cfg.Notifications.EmbedColors.Error
		outcome, err = b.actuator.Ban(ctx, c.interaction.GuildID, c.actor, target, reason)
		b.countAction(audit.ActionBan, err)
	}
	if err != nil {
		b.fail(c, verb, err)
		return
	}
	b.logOutcome(outcome, c.interaction.GuildID)
	b.respondModeration(c, title, fmt.Sprintf("<@%s> ha sido %s del servidor.", userID, pastTense(verb)), color, reason)
}

func pastTense(verb string) string {
	switch verb {
	case "expulsar":
		return "expulsado"
	case "banear":
		return "baneado"
	default:
		return verb
	}
}

// respondModeration posts the public confirmation for a moderation command.
func (b *Bot) respondModeration(c *commandContext, title, description string, color int, reason string) {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Moderador", Value: c.interaction.Member.Mention(), Inline: true},
	}
	if reason != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Razón", Value: reason, Inline: true})
	}
	b.respondEmbed(c.session, c.interaction, b.commandEmbed(title, description, color, fields), false)
}

func (b *Bot) handleUnban(ctx context.Context, c *commandContext) {
	userID := c.str("usuario_id", "")
	if !utils.IsSnowflake(userID) {
		b.respond(c.session, c.interaction, "❌ ID de usuario no válido.", true)
		return
	}
	outcome, err := b.actuator.Unban(ctx, c.interaction.GuildID, c.actor.UserID, userID)
	b.countAction(audit.ActionUnban, err)
	if err != nil {
		b.fail(c, "desbanear", err)
		return
	}
	b.logOutcome(outcome, c.interaction.GuildID)
	b.respondModeration(c, "✅ Usuario Desbaneado", fmt.Sprintf("<@%s> ha sido desbaneado.", userID), b.cfg.Notifications.EmbedColors.Success, "")
}

func (b *Bot) handleTimeout(ctx context.Context, c *commandContext) {
	userID, _ := c.userID("usuario")
	minutes := c.integer("minutos", 0)
	reason := c.str("razon", defaultReason)
	if minutes < 1 || minutes > b.cfg.Moderation.MaxTimeoutMinutes {
		b.respond(c.session, c.interaction, fmt.Sprintf("❌ El tiempo debe estar entre 1 y %d minutos.", b.cfg.Moderation.MaxTimeoutMinutes), true)
		return
	}
	target, member := b.target(ctx, c, userID)
	if !member {
		b.respond(c.session, c.interaction, "❌ El usuario no está en el servidor.", true)
		return
	}
	outcome, err := b.actuator.Timeout(ctx, c.interaction.GuildID, c.actor, target, minutes, reason)
	b.countAction(audit.ActionTimeout, err)
	if err != nil {
		b.fail(c, "silenciar", err)
		return
	}
	b.spam.Forget(c.interaction.GuildID, userID)
	b.logOutcome(outcome, c.interaction.GuildID)
	b.respondModeration(c, "🔇 Usuario Silenciado", fmt.Sprintf("<@%s> ha sido silenciado por %d minutos.", userID, minutes), b.cfg.Notifications.EmbedColors.Warning, reason)
}

func (b *Bot) handleUntimeout(ctx context.Context, c *commandContext) {
	userID, _ := c.userID("usuario")
	outcome, err := b.actuator.Untimeout(ctx, c.interaction.GuildID, c.actor.UserID, userID)
	b.countAction(audit.ActionUntimeout, err)
	if err != nil {
		b.fail(c, "quitar el silencio", err)
		return
	}
	b.logOutcome(outcome, c.interaction.GuildID)
	b.respondModeration(c, "🔊 Silencio Removido", fmt.Sprintf("<@%s> ya no está silenciado.", userID), b.cfg.Notifications.EmbedColors.Success, "")
}

func (b *Bot) handleWarn(ctx context.Context, c *commandContext) {
	userID, _ := c.userID("usuario")
	reason := c.str("razon", defaultReason)
	guildName := ""
	if c.guild != nil {
		guildName = c.guild.Name
	}
	outcome, err := b.actuator.Warn(ctx, c.interaction.GuildID, guildName, c.actor.UserID, userID, reason)
	b.countAction(audit.ActionWarn, err)
	if err != nil {
		b.fail(c, "advertir", err)
		return
	}
	b.logOutcome(outcome, c.interaction.GuildID)
	b.respondModeration(c, "⚠️ Advertencia", fmt.Sprintf("<@%s> has recibido una advertencia.", userID), b.cfg.Notifications.EmbedColors.Warning, reason)
}

func (b *Bot) handleClear(ctx context.Context, c *commandContext) {
	count := c.integer("cantidad", 0)
	if count < 1 || count > b.actuator.ClearMax() {
		b.respond(c.session, c.interaction, fmt.Sprintf("❌ La cantidad debe estar entre 1 y %d.", b.actuator.ClearMax()), true)
		return
	}
	b.deferResponse(c.session, c.interaction)

	channelName := c.interaction.ChannelID
	if channel, err := c.session.State.Channel(c.interaction.ChannelID); err == nil && channel != nil {
		channelName = channel.Name
	}
	outcome, err := b.actuator.Clear(ctx, c.interaction.GuildID, c.interaction.ChannelID, channelName, c.actor.UserID, count)
	b.countAction(audit.ActionClear, err)
	if err != nil {
		b.followup(c.session, c.interaction, b.failureMessage(c.interaction.GuildID, "eliminar mensajes", err))
		return
	}
	b.logOutcome(outcome, c.interaction.GuildID)
	b.followup(c.session, c.interaction, fmt.Sprintf("✅ Se eliminaron %d mensajes.", outcome.Deleted))
}

func (b *Bot) handleModLogs(ctx context.Context, c *commandContext) {
	limit := c.integer("limite", 10)
	if limit < 1 || limit > b.cfg.Moderation.ModLogsMax {
		b.respond(c.session, c.interaction, fmt.Sprintf("❌ El límite debe estar entre 1 y %d.", b.cfg.Moderation.ModLogsMax), true)
		return
	}
	userID, _ := c.userID("usuario")
	logs, err := b.modlog.List(ctx, c.interaction.GuildID, userID, limit)
	if err != nil {
		b.fail(c, "obtener logs", err)
		return
	}
	if len(logs) == 0 {
		b.respond(c.session, c.interaction, "No hay logs de moderación.", true)
		return
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(logs))
	for _, entry := range logs {
		if len(fields) == 25 {
			break
		}
		reason := defaultReason
		if entry.Reason != nil {
			reason = *entry.Reason
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s - <@%s>", strings.ToUpper(entry.Action), entry.UserID),
			Value: fmt.Sprintf("Moderador: <@%s>\nRazón: %s\nFecha: %s", entry.ModeratorID, reason, entry.CreatedAt.Format("2006-01-02 15:04")),
		})
	}
	b.respondEmbed(c.session, c.interaction, b.commandEmbed("📋 Logs de Moderación",
		fmt.Sprintf("Últimas %d acciones", len(logs)), b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleSetupVerification(ctx context.Context, c *commandContext) {
	channelID := c.options["canal"].ChannelValue(nil).ID
	roleID := c.options["rol_verificado"].RoleValue(nil, "").ID

	if _, err := b.config.UpdateVerification(ctx, c.interaction.GuildID, storage.VerificationUpdate{
		ChannelID:      &channelID,
		VerifiedRoleID: &roleID,
	}); err != nil {
		b.fail(c, "configurar la verificación", err)
		return
	}
	enabled := true
	if _, err := b.config.UpdateGuildPolicy(ctx, c.interaction.GuildID, storage.GuildPolicyUpdate{VerificationEnabled: &enabled}); err != nil {
		b.fail(c, "configurar la verificación", err)
		return
	}
	b.respondEmbed(c.session, c.interaction, b.commandEmbed("✅ Sistema de Verificación Configurado",
		"El sistema de verificación ha sido configurado correctamente.", b.cfg.Notifications.EmbedColors.Success,
		[]*discordgo.MessageEmbedField{
			{Name: "Canal", Value: "<#" + channelID + ">", Inline: true},
			{Name: "Rol", Value: "<@&" + roleID + ">", Inline: true},
			{Name: "Próximos pasos", Value: "Cuando un nuevo miembro se una, recibirá un mensaje de verificación en el canal configurado."},
		}), true)
}

func (b *Bot) handleManualVerify(ctx context.Context, c *commandContext) {
	userID, _ := c.userID("usuario")
	policy, err := b.config.Verification(ctx, c.interaction.GuildID)
	if err != nil {
		b.fail(c, "verificar al usuario", err)
		return
	}
	if policy.VerifiedRoleID == "" {
		b.respond(c.session, c.interaction, "❌ Sistema de verificación no configurado.", true)
		return
	}
	already, err := b.roles.Verify(ctx, c.interaction.GuildID, userID, policy.VerifiedRoleID)
	if err != nil {
		b.fail(c, "verificar al usuario", err)
		return
	}
	if already {
		b.respond(c.session, c.interaction, fmt.Sprintf("✅ <@%s> ya estaba verificado.", userID), true)
		return
	}
	reason := "Verificado manualmente por " + c.interaction.Member.User.Username
	if _, err := b.modlog.Record(ctx, c.interaction.GuildID, userID, c.actor.UserID, audit.ActionVerification, &reason); err != nil {
		b.logger.Warn("verification not logged", zap.String("guild_id", c.interaction.GuildID), zap.Error(err))
	}
	b.respond(c.session, c.interaction, fmt.Sprintf("✅ <@%s> ha sido verificado manualmente.", userID), true)
}

func (b *Bot) handleToggleVerification(ctx context.Context, c *commandContext) {
	policy, err := b.config.GuildPolicy(ctx, c.interaction.GuildID)
	if err != nil {
		b.fail(c, "cambiar la verificación", err)
		return
	}
	next := !policy.VerificationEnabled
	if _, err := b.config.UpdateGuildPolicy(ctx, c.interaction.GuildID, storage.GuildPolicyUpdate{VerificationEnabled: &next}); err != nil {
		b.fail(c, "cambiar la verificación", err)
		return
	}
	b.respond(c.session, c.interaction, fmt.Sprintf("✅ Sistema de verificación %s.", toggledLabel(next)), true)
}

func (b *Bot) handleAddGameRole(ctx context.Context, c *commandContext) {
	game := c.str("juego", "")
	roleID := c.options["rol"].RoleValue(nil, "").ID
	if _, err := b.config.AddGameRole(ctx, c.interaction.GuildID, game, roleID); err != nil {
		b.fail(c, "agregar el rol de juego", err)
		return
	}
	b.GameRolesChanged(ctx, c.interaction.GuildID)
	b.respond(c.session, c.interaction, fmt.Sprintf("✅ Rol <@&%s> agregado para **%s** %s", roleID, game, roles.GameEmoji(game)), true)
}

func (b *Bot) handleRemoveGameRole(ctx context.Context, c *commandContext) {
	game := c.str("juego", "")
	if _, err := b.config.RemoveGameRole(ctx, c.interaction.GuildID, game); err != nil {
		if errors.Is(err, errs.ErrTargetNotFound) {
			b.respond(c.session, c.interaction, fmt.Sprintf("❌ No existe un rol configurado para **%s**.", game), true)
			return
		}
		b.fail(c, "remover el rol de juego", err)
		return
	}
	b.GameRolesChanged(ctx, c.interaction.GuildID)
	b.respond(c.session, c.interaction, fmt.Sprintf("✅ Rol de **%s** removido.", game), true)
}

func (b *Bot) handleListGameRoles(ctx context.Context, c *commandContext) {
	bindings, err := b.config.GameRoles(ctx, c.interaction.GuildID)
	if err != nil {
		b.fail(c, "obtener los roles de juegos", err)
		return
	}
	if len(bindings.Roles) == 0 {
		b.respond(c.session, c.interaction, "No hay roles de juegos configurados. Usa `/addgamerole`.", true)
		return
	}
	var lines []string
	for _, game := range roles.SortedGames(bindings) {
		lines = append(lines, fmt.Sprintf("%s **%s** → <@&%s>", roles.GameEmoji(game), game, bindings.Roles[game]))
	}
	fields := []*discordgo.MessageEmbedField{}
	if bindings.MessageID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Panel", Value: "<#" + bindings.ChannelID + ">"})
	}
	b.respondEmbed(c.session, c.interaction, b.commandEmbed("🎮 Roles de Juegos",
		strings.Join(lines, "\n"), b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleSetupGameRoles(ctx context.Context, c *commandContext) {
	channelID := c.options["canal"].ChannelValue(nil).ID
	bindings, err := b.config.GameRoles(ctx, c.interaction.GuildID)
	if err != nil {
		b.fail(c, "configurar el panel de roles", err)
		return
	}
	if len(bindings.Roles) == 0 {
		b.respond(c.session, c.interaction, "❌ Primero debes configurar los roles de juegos con `/addgamerole`", true)
		return
	}
	b.deferResponse(c.session, c.interaction)

	panel := roles.GameRolePanel(bindings, b.cfg.Notifications.EmbedColors.Action)
	msg, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{panel.Embed},
		Components: panel.Components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		b.followup(c.session, c.interaction, b.failureMessage(c.interaction.GuildID, "configurar el panel de roles", fmt.Errorf("%w: %v", errs.ErrActionFailed, err)))
		return
	}
	if _, err := b.config.SetGameRolePanel(ctx, c.interaction.GuildID, channelID, msg.ID); err != nil {
		b.logger.Warn("panel location not stored", zap.String("guild_id", c.interaction.GuildID), zap.Error(err))
	}

	reply := fmt.Sprintf("✅ Panel de roles de juegos creado en <#%s>", channelID)
	if panel.Omitted > 0 {
		reply += fmt.Sprintf("\n⚠️ %d roles no caben en el panel.", panel.Omitted)
	}
	if len(panel.Skipped) > 0 {
		reply += fmt.Sprintf("\n⚠️ Sin botón por rol repetido o inválido: %s", strings.Join(panel.Skipped, ", "))
	}
	b.followup(c.session, c.interaction, reply)
}

func (b *Bot) handleSetWelcome(ctx context.Context, c *commandContext) {
	channelID := c.options["canal"].ChannelValue(nil).ID
	if _, err := b.config.UpdateWelcome(ctx, c.interaction.GuildID, storage.WelcomeUpdate{ChannelID: &channelID}); err != nil {
		b.fail(c, "configurar el canal de bienvenida", err)
		return
	}
	enabled := true
	if _, err := b.config.UpdateGuildPolicy(ctx, c.interaction.GuildID, storage.GuildPolicyUpdate{WelcomeEnabled: &enabled}); err != nil {
		b.fail(c, "configurar el canal de bienvenida", err)
		return
	}
	b.respond(c.session, c.interaction, fmt.Sprintf("✅ Canal de bienvenida configurado en <#%s>", channelID), true)
}

func (b *Bot) handleWelcomeMessage(ctx context.Context, c *commandContext) {
	message := c.str("mensaje", "")
	if _, err := b.config.UpdateWelcome(ctx, c.interaction.GuildID, storage.WelcomeUpdate{Message: &message}); err != nil {
		b.fail(c, "configurar el mensaje de bienvenida", err)
		return
	}
	b.respondEmbed(c.session, c.interaction, b.commandEmbed("✅ Mensaje de bienvenida actualizado",
		"Variables disponibles:\n`{user}` - Mención del usuario\n`{server}` - Nombre del servidor\n`{members}` - Cantidad de miembros",
		b.cfg.Notifications.EmbedColors.Success,
		[]*discordgo.MessageEmbedField{{Name: "Mensaje configurado", Value: message}}), true)
}

func (b *Bot) handleTestWelcome(ctx context.Context, c *commandContext) {
	b.deferResponse(c.session, c.interaction)
	member := *c.interaction.Member
	member.GuildID = c.interaction.GuildID
	if err := b.sendWelcome(ctx, c.guild, &member, true); err != nil {
		if errors.Is(err, errs.ErrInvalidArgument) {
			b.followup(c.session, c.interaction, "❌ Primero configura el canal con `/setwelcome`.")
			return
		}
		b.followup(c.session, c.interaction, b.failureMessage(c.interaction.GuildID, "probar la bienvenida", err))
		return
	}
	b.followup(c.session, c.interaction, "✅ Mensaje de bienvenida enviado!")
}

func (b *Bot) handleComponent(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	guildID, userID := interaction.GuildID, interaction.Member.User.ID
	customID := interaction.MessageComponentData().CustomID

	kind, roleID, err := b.resolveButton(ctx, guildID, customID)
	if err != nil {
		if errors.Is(err, roles.ErrMalformedCustomID) {
			b.logger.Debug("unknown button", zap.String("guild_id", guildID), zap.String("custom_id", customID))
			b.respond(session, interaction, "❌ Botón no válido.", true)
			return
		}
		b.respond(session, interaction, b.failureMessage(guildID, "procesar el botón", err), true)
		return
	}

	switch kind {
	case roles.KindRole:
		added, err := b.roles.Toggle(ctx, guildID, userID, roleID)
		b.countButton(kind, err)
		if err != nil {
			b.respond(session, interaction, b.failureMessage(guildID, "cambiar el rol", err), true)
			return
		}
		if added {
			b.respond(session, interaction, fmt.Sprintf("✅ Se te ha asignado el rol <@&%s>", roleID), true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("✅ Se te ha removido el rol <@&%s>", roleID), true)
	case roles.KindVerify:
		already, err := b.roles.Verify(ctx, guildID, userID, roleID)
		b.countButton(kind, err)
		if err != nil {
			b.respond(session, interaction, b.failureMessage(guildID, "verificarte", err), true)
			return
		}
		if already {
			b.respond(session, interaction, "✅ Ya estás verificado.", true)
			return
		}
		reason := autoVerifyReason
		if _, err := b.modlog.Record(ctx, guildID, userID, b.platform.BotUserID(), audit.ActionVerification, &reason); err != nil {
			b.logger.Warn("verification not logged", zap.String("guild_id", guildID), zap.Error(err))
		}
		b.respond(session, interaction, "✅ ¡Has sido verificado! Ahora tienes acceso al servidor.", true)
	}
}

// resolveButton decodes a custom id. Old verification messages carry no role
// id, so their role comes from the current verification policy.
func (b *Bot) resolveButton(ctx context.Context, guildID, customID string) (roles.Kind, string, error) {
	if customID != legacyVerifyButton {
		return roles.DecodeCustomID(customID)
	}
	policy, err := b.config.Verification(ctx, guildID)
	if err != nil {
		return "", "", err
	}
	if policy.VerifiedRoleID == "" {
		return "", "", fmt.Errorf("%w: verification role not set", errs.ErrTargetNotFound)
	}
	return roles.KindVerify, policy.VerifiedRoleID, nil
}

func (b *Bot) countButton(kind roles.Kind, err error) {
	if b.metrics != nil {
		b.metrics.RoleButton(string(kind), err)
	}
}

// GameRolesChanged re-renders the published game role panel in place.
func (b *Bot) GameRolesChanged(ctx context.Context, guildID string) {
	if err := b.refreshGameRolePanel(ctx, guildID); err != nil {
		b.logger.Warn("game role panel refresh failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func (b *Bot) refreshGameRolePanel(ctx context.Context, guildID string) error {
	bindings, err := b.config.GameRoles(ctx, guildID)
	if err != nil {
		return err
	}
	if bindings.ChannelID == "" || bindings.MessageID == "" {
		return nil
	}
	panel := roles.GameRolePanel(bindings, b.cfg.Notifications.EmbedColors.Action)
	edit := discordgo.NewMessageEdit(bindings.ChannelID, bindings.MessageID).SetEmbeds([]*discordgo.MessageEmbed{panel.Embed})
	edit.Components = panel.Components
	if _, err := b.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: edit panel: %v", errs.ErrActionFailed, err)
	}
	return nil
}
