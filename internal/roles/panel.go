package roles

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Maximus17a/BotRexy/internal/storage"
	"github.com/Maximus17a/BotRexy/internal/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	maxButtonsPerRow = 5
	maxRows          = 5
	defaultEmoji     = "🎮"
)

var gameEmojis = map[string]string{
	"Rexys":             "🎮",
	"Lolsito":           "🎯",
	"Pokemon":           "⚡",
	"Valorant":          "🔫",
	"Fortnite":          "🏗️",
	"Marvel Rivals":     "⚔️",
	"Battlefield":       "💣",
	"Palia":             "🌿",
	"League of Legends": "🏆",
}

var gameStyles = map[string]discordgo.ButtonStyle{
	"Rexys":             discordgo.SuccessButton,
	"Lolsito":           discordgo.PrimaryButton,
	"Pokemon":           discordgo.DangerButton,
	"Valorant":          discordgo.DangerButton,
	"Fortnite":          discordgo.PrimaryButton,
	"Marvel Rivals":     discordgo.DangerButton,
	"Battlefield":       discordgo.SuccessButton,
	"Palia":             discordgo.PrimaryButton,
	"League of Legends": discordgo.PrimaryButton,
}

func GameEmoji(game string) string {
	if emoji, ok := gameEmojis[game]; ok {
		return emoji
	}
	return defaultEmoji
}

func gameStyle(game string) discordgo.ButtonStyle {
	if style, ok := gameStyles[game]; ok {
		return style
	}
	return discordgo.PrimaryButton
}

type Panel struct {
	Embed      *discordgo.MessageEmbed
	Components []discordgo.MessageComponent
	// Omitted counts bindings that did not fit in the button grid.
	Omitted int
	// Skipped names games whose role is malformed or already has a button.
	Skipped []string
}

// SortedGames returns the bound game names in a stable order.
func SortedGames(bindings storage.GameRoles) []string {
	games := make([]string, 0, len(bindings.Roles))
	for game := range bindings.Roles {
		games = append(games, game)
	}
	sort.Strings(games)
	return games
}

func GameRolePanel(bindings storage.GameRoles, color int) Panel {
	games := SortedGames(bindings)

	var lines []string
	for _, game := range games {
		lines = append(lines, fmt.Sprintf("%s <@&%s> - %s", GameEmoji(game), bindings.Roles[game], game))
	}
	embed := &discordgo.MessageEmbed{
		Title:       "🎮 Selección de Roles",
		Description: "Haz clic en los botones de abajo para obtener o remover roles de juegos y actividades.",
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{{
			Name:  "¿Cómo funciona?",
			Value: "• Haz clic en un botón para agregar el rol\n• Si ya tienes el rol, haz clic nuevamente para quitarlo",
		}},
		Footer: &discordgo.MessageEmbedFooter{Text: "Botones permanentes • Funcionan 24/7"},
	}
	if len(lines) > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Roles disponibles", Value: strings.Join(lines, "\n")})
	}

	panel := Panel{Embed: embed}
	var row discordgo.ActionsRow
	buttons := 0
	seen := make(map[string]struct{}, len(games))
	for _, game := range games {
		roleID := bindings.Roles[game]
		if _, dup := seen[roleID]; dup || !utils.IsSnowflake(roleID) {
			panel.Skipped = append(panel.Skipped, game)
			continue
		}
		seen[roleID] = struct{}{}
		if buttons >= maxButtonsPerRow*maxRows {
			panel.Omitted++
			continue
		}
		buttons++
		row.Components = append(row.Components, discordgo.Button{
			Label:    game,
			Style:    gameStyle(game),
			Emoji:    discordgo.ComponentEmoji{Name: GameEmoji(game)},
			CustomID: EncodeCustomID(KindRole, roleID),
		})
		if len(row.Components) == maxButtonsPerRow {
			panel.Components = append(panel.Components, row)
			row = discordgo.ActionsRow{}
		}
	}
	if len(row.Components) > 0 {
		panel.Components = append(panel.Components, row)
	}
	return panel
}

// VerificationPanel builds the rules message with a single verify button.
func VerificationPanel(policy storage.VerificationPolicy, color int) Panel {
	embed := &discordgo.MessageEmbed{
		Title:       "🔐 Verificación Requerida",
		Description: policy.IntroMessage,
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{{
			Name:  "¿Por qué verificar?",
			Value: "La verificación nos ayuda a mantener el servidor seguro y libre de bots maliciosos.",
		}},
	}
	button := discordgo.Button{
		Label:    "✅ Verificarme",
		Style:    discordgo.SuccessButton,
		CustomID: EncodeCustomID(KindVerify, policy.VerifiedRoleID),
	}
	return Panel{
		Embed:      embed,
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{button}}},
	}
}
