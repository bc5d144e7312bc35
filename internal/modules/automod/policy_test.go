package automod

import (
	"strings"
	"testing"

	"github.com/Maximus17a/BotRexy/internal/storage"
	"github.com/stretchr/testify/assert"
)

func defaultPolicy() storage.AutomodPolicy {
	return storage.AutomodPolicy{
		GuildID:     "g1",
		AntiSpam:    true,
		AntiInvites: true,
		MaxMentions: 5,
		MaxEmojis:   10,
	}
}

func TestEvaluate(t *testing.T) {
	withWords := defaultPolicy()
	withWords.BadWords = []string{"tonto"}
	withLinks := defaultPolicy()
	withLinks.AntiLinks = true

	tests := []struct {
		name     string
		content  string
		mentions int
		policy   storage.AutomodPolicy
		want     Verdict
	}{
		{
			name:     "exactly max mentions is allowed",
			content:  "hola",
			mentions: 5,
			policy:   defaultPolicy(),
			want:     Verdict{Allowed: true},
		},
		{
			name:     "one over max mentions",
			content:  "hola",
			mentions: 6,
			policy:   defaultPolicy(),
			want:     Verdict{Reason: ReasonMentions},
		},
		{
			name:     "mentions win over bad words",
			content:  "eres TONTO",
			mentions: 6,
			policy:   withWords,
			want:     Verdict{Reason: ReasonMentions},
		},
		{
			name:    "too many emojis",
			content: strings.Repeat("<:pepe:123> ", 10) + "<a:dance:456>",
			policy:  defaultPolicy(),
			want:    Verdict{Reason: ReasonEmojis},
		},
		{
			name:    "ten emojis allowed",
			content: strings.Repeat("<:pepe:123>", 10),
			policy:  defaultPolicy(),
			want:    Verdict{Allowed: true},
		},
		{
			name:    "invite blocked",
			content: "join discord.gg/abc",
			policy:  defaultPolicy(),
			want:    Verdict{Reason: ReasonInvite, Detail: "discord.gg"},
		},
		{
			name:    "invite detail is the normalized domain",
			content: "entra a https://DISCORDAPP.com/invite/xyz ya",
			policy:  defaultPolicy(),
			want:    Verdict{Reason: ReasonInvite, Detail: "discordapp.com"},
		},
		{
			name:    "links allowed by default",
			content: "mira https://example.com",
			policy:  defaultPolicy(),
			want:    Verdict{Allowed: true},
		},
		{
			name:    "link blocked when enabled",
			content: "mira https://Example.com/x",
			policy:  withLinks,
			want:    Verdict{Reason: ReasonLink, Detail: "example.com"},
		},
		{
			name:    "invite checked before link",
			content: "https://discord.gg/abc",
			policy:  withLinks,
			want:    Verdict{Reason: ReasonInvite, Detail: "discord.gg"},
		},
		{
			name:    "bad word case insensitive substring",
			content: "que TONTOS son",
			policy:  withWords,
			want:    Verdict{Reason: ReasonLanguage, Detail: "tonto"},
		},
		{
			name:    "clean message",
			content: "buenos dias",
			policy:  withWords,
			want:    Verdict{Allowed: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.content, tt.mentions, tt.policy))
		})
	}
}
