// Package automod evaluates message content against a guild's automod policy.
package automod

import (
	"regexp"
	"strings"

	"github.com/Maximus17a/BotRexy/internal/storage"
	"github.com/Maximus17a/BotRexy/internal/utils"
)

const (
	ReasonMentions = "too many mentions"
	ReasonEmojis   = "too many emojis"
	ReasonInvite   = "invite not allowed"
	ReasonLink     = "link not allowed"
	ReasonLanguage = "inappropriate language"
)

var customEmoji = regexp.MustCompile(`<a?:\w+:\d+>`)

type Verdict struct {
	Allowed bool
	Reason  string
	// Detail names what matched: a normalized domain, an emoji count or a word.
	Detail string
}

func allow() Verdict { return Verdict{Allowed: true} }

func violation(reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}

// Evaluate applies the rules in a fixed order and stops at the first match.
// Callers must skip administrators and bots before calling it.
func Evaluate(content string, mentions int, policy storage.AutomodPolicy) Verdict {
	if mentions > policy.MaxMentions {
		return violation(ReasonMentions, "")
	}

	if emojis := len(customEmoji.FindAllStringIndex(content, -1)); emojis > policy.MaxEmojis {
		return violation(ReasonEmojis, "")
	}

	if policy.AntiInvites {
		if invite, ok := utils.FindInvite(content); ok {
			return violation(ReasonInvite, utils.Domain(invite))
		}
	}

	if policy.AntiLinks {
		if links := utils.ExtractLinks(content); len(links) > 0 {
			return violation(ReasonLink, utils.Domain(links[0]))
		}
	}

	if word, ok := matchBadWord(content, policy.BadWords); ok {
		return violation(ReasonLanguage, word)
	}

	return allow()
}

func matchBadWord(content string, words []string) (string, bool) {
	if len(words) == 0 {
		return "", false
	}
	lower := strings.ToLower(content)
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if strings.Contains(lower, word) {
			return word, true
		}
	}
	return "", false
}
