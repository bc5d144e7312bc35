package bot

import (
	"testing"

	"github.com/Maximus17a/BotRexy/internal/modules/automod"
	"github.com/Maximus17a/BotRexy/internal/storage"

	"github.com/bwmarrin/discordgo"
)

func testGuild() *discordgo.Guild {
	return &discordgo.Guild{
		ID:      "g1",
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "g1", Position: 0},
			{ID: "mod", Position: 5, Permissions: discordgo.PermissionKickMembers},
			{ID: "admin", Position: 9, Permissions: discordgo.PermissionAdministrator},
			{ID: "member", Position: 1},
		},
	}
}

func TestRankOfUsesHighestRole(t *testing.T) {
	b := &Bot{}
	guild := testGuild()

	got := b.rankOf(guild, "u1", []string{"member", "mod"})
	if got.Rank != 5 || got.Owner {
		t.Fatalf("expected rank 5, got %+v", got)
	}
	owner := b.rankOf(guild, "owner", nil)
	if !owner.Owner {
		t.Fatalf("expected owner flag")
	}
	if none := b.rankOf(nil, "u1", []string{"mod"}); none.Rank != 0 {
		t.Fatalf("expected zero rank without guild, got %+v", none)
	}
}

func TestMemberHasAdmin(t *testing.T) {
	b := &Bot{}
	guild := testGuild()

	if !b.memberHasAdmin(guild, "owner", nil) {
		t.Fatalf("owner must count as admin")
	}
	if !b.memberHasAdmin(guild, "u1", []string{"admin"}) {
		t.Fatalf("administrator role must count as admin")
	}
	if b.memberHasAdmin(guild, "u1", []string{"mod", "member"}) {
		t.Fatalf("kick permission is not admin")
	}
}

func TestViolationLabel(t *testing.T) {
	policy := storage.AutomodPolicy{MaxMentions: 5, MaxEmojis: 10}
	tests := []struct {
		reason string
		want   string
	}{
		{automod.ReasonMentions, "Demasiadas menciones (máximo 5)"},
		{automod.ReasonEmojis, "Demasiados emojis (máximo 10)"},
		{automod.ReasonInvite, "Invitaciones de Discord no permitidas"},
		{automod.ReasonLink, "Enlaces no permitidos"},
		{automod.ReasonLanguage, "Lenguaje inapropiado"},
	}
	for _, tt := range tests {
		if got := violationLabel(automod.Verdict{Reason: tt.reason}, policy); got != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.reason, tt.want, got)
		}
	}
}

func TestCommandDefinitionsAreUnique(t *testing.T) {
	commands := commandDefinitions(100, 40320, 50)
	seen := make(map[string]struct{})
	for _, cmd := range commands {
		if _, ok := seen[cmd.Name]; ok {
			t.Fatalf("duplicate command %s", cmd.Name)
		}
		seen[cmd.Name] = struct{}{}
	}
	for _, name := range []string{"kick", "ban", "timeout", "clear", "nivel", "ranking", "setupgameroles", "testwelcome"} {
		if _, ok := seen[name]; !ok {
			t.Fatalf("missing command %s", name)
		}
	}
	if len(commands) != 25 {
		t.Fatalf("expected 25 commands, got %d", len(commands))
	}
}
