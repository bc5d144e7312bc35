package bot

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func permission(p int64) *int64 { return &p }

var (
	adminOnly     = permission(discordgo.PermissionAdministrator)
	moderatorOnly = permission(discordgo.PermissionModerateMembers)
	minOne        = 1.0
)

func userOption(description string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: description,
		Required:    required,
	}
}

func reasonOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "razon",
		Description: "Razón de la acción",
		Required:    required,
	}
}

func channelOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "canal",
		Description:  description,
		Required:     true,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
	}
}

func commandDefinitions(clearMax, maxTimeout, modLogsMax int) []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{Name: "automod", Description: "Configurar automoderación (Admin)", DefaultMemberPermissions: adminOnly},
		{Name: "togglespam", Description: "Activar/desactivar anti-spam (Admin)", DefaultMemberPermissions: adminOnly},
		{Name: "toggleinvites", Description: "Activar/desactivar anti-invitaciones (Admin)", DefaultMemberPermissions: adminOnly},
		{Name: "togglelinks", Description: "Activar/desactivar anti-enlaces (Admin)", DefaultMemberPermissions: adminOnly},
		{
			Name:        "nivel",
			Description: "Ver tu nivel y experiencia",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.EnglishUS: "Show your level and experience",
			},
			Options: []*discordgo.ApplicationCommandOption{userOption("Usuario a consultar", false)},
		},
		{
			Name:        "ranking",
			Description: "Ver la tabla de clasificación del servidor",
			DescriptionLocalizations: &map[discordgo.Locale]string{
				discordgo.EnglishUS: "Show the server leaderboard",
			},
		},
		{
			Name:                     "resetxp",
			Description:              "Resetear XP de un usuario (Admin)",
			DefaultMemberPermissions: adminOnly,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("Usuario a resetear", true)},
		},
		{
			Name:                     "kick",
			Description:              "Expulsar a un usuario del servidor",
			DefaultMemberPermissions: permission(discordgo.PermissionKickMembers),
			Options:                  []*discordgo.ApplicationCommandOption{userOption("Usuario a expulsar", true), reasonOption(false)},
		},
		{
			Name:                     "ban",
			Description:              "Banear a un usuario del servidor",
			DefaultMemberPermissions: permission(discordgo.PermissionBanMembers),
			Options:                  []*discordgo.ApplicationCommandOption{userOption("Usuario a banear", true), reasonOption(false)},
		},
		{
			Name:                     "unban",
			Description:              "Desbanear a un usuario",
			DefaultMemberPermissions: permission(discordgo.PermissionBanMembers),
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "usuario_id",
				Description: "ID del usuario a desbanear",
				Required:    true,
			}},
		},
		{
			Name:                     "timeout",
			Description:              "Silenciar a un usuario temporalmente",
			DefaultMemberPermissions: moderatorOnly,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Usuario a silenciar", true),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "minutos",
					Description: "Duración en minutos",
					Required:    true,
					MinValue:    &minOne,
					MaxValue:    float64(maxTimeout),
				},
				reasonOption(false),
			},
		},
		{
			Name:                     "untimeout",
			Description:              "Quitar silencio a un usuario",
			DefaultMemberPermissions: moderatorOnly,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("Usuario", true)},
		},
		{
			Name:                     "warn",
			Description:              "Advertir a un usuario",
			DefaultMemberPermissions: moderatorOnly,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("Usuario a advertir", true), reasonOption(true)},
		},
		{
			Name:                     "clear",
			Description:              "Eliminar mensajes en un canal",
			DefaultMemberPermissions: permission(discordgo.PermissionManageMessages),
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "cantidad",
				Description: "Número de mensajes",
				Required:    true,
				MinValue:    &minOne,
				MaxValue:    float64(clearMax),
			}},
		},
		{
			Name:                     "modlogs",
			Description:              "Ver logs de moderación",
			DefaultMemberPermissions: moderatorOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limite",
					Description: "Número de entradas",
					MinValue:    &minOne,
					MaxValue:    float64(modLogsMax),
				},
				userOption("Filtrar por usuario", false),
			},
		},
		{
			Name:                     "setupverification",
			Description:              "Configurar sistema de verificación (Admin)",
			DefaultMemberPermissions: adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				channelOption("Canal de verificación"),
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "rol_verificado",
					Description: "Rol que se otorga al verificar",
					Required:    true,
				},
			},
		},
		{
			Name:                     "verify",
			Description:              "Verificar manualmente a un usuario",
			DefaultMemberPermissions: moderatorOnly,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("Usuario a verificar", true)},
		},
		{Name: "toggleverification", Description: "Activar/desactivar verificación (Admin)", DefaultMemberPermissions: adminOnly},
		{
			Name:                     "addgamerole",
			Description:              "Agregar un rol de juego (Admin)",
			DefaultMemberPermissions: adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "juego",
					Description: "Nombre del juego",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "rol",
					Description: "Rol asociado",
					Required:    true,
				},
			},
		},
		{
			Name:                     "removegamerole",
			Description:              "Remover un rol de juego (Admin)",
			DefaultMemberPermissions: adminOnly,
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "juego",
				Description: "Nombre del juego",
				Required:    true,
			}},
		},
		{Name: "listgameroles", Description: "Ver roles de juegos configurados (Admin)", DefaultMemberPermissions: adminOnly},
		{
			Name:                     "setupgameroles",
			Description:              "Configurar panel de roles de juegos (Admin)",
			DefaultMemberPermissions: adminOnly,
			Options:                  []*discordgo.ApplicationCommandOption{channelOption("Canal del panel")},
		},
		{
			Name:                     "setwelcome",
			Description:              "Configurar canal de bienvenida (Admin)",
			DefaultMemberPermissions: adminOnly,
			Options:                  []*discordgo.ApplicationCommandOption{channelOption("Canal de bienvenida")},
		},
		{
			Name:                     "welcomemsg",
			Description:              "Configurar mensaje de bienvenida (Admin)",
			DefaultMemberPermissions: adminOnly,
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "mensaje",
				Description: "Usa {user}, {server} y {members}",
				Required:    true,
				MaxLength:   2000,
			}},
		},
		{Name: "testwelcome", Description: "Probar mensaje de bienvenida", DefaultMemberPermissions: adminOnly},
	}
}

// registerCommands syncs the global command set: existing commands are
// edited in place, new ones created and stale ones removed.
func (b *Bot) registerCommands() error {
	commands := commandDefinitions(b.cfg.Moderation.ClearMax, b.cfg.Moderation.MaxTimeoutMinutes, b.cfg.Moderation.ModLogsMax)

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		if err := b.session.ApplicationCommandDelete(appID, "", cmd.ID); err != nil {
			b.logger.Debug("stale command delete failed", zap.String("command", cmd.Name), zap.Error(err))
		}
	}
	b.logger.Info("commands synced", zap.Int("count", len(commands)))
	return nil
}
