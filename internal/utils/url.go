package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var (
	linkRegex   = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s<>]+`)
	inviteRegex = regexp.MustCompile(`(?i)(?:discord\.gg/|discordapp\.com/invite/|discord\.com/invite/)[^\s<>]*`)
)

// ExtractLinks returns every http(s) or www. link in content.
func ExtractLinks(content string) []string {
	return linkRegex.FindAllString(content, -1)
}

// FindInvite returns the first invite link in content.
func FindInvite(content string) (string, bool) {
	match := inviteRegex.FindString(content)
	return match, match != ""
}

// Domain returns the lowercased, punycode-encoded host of raw. Links without a
// scheme are read as https. raw comes back unchanged when it has no host.
func Domain(raw string) string {
	candidate := raw
	lower := strings.ToLower(candidate)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		candidate = "https://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return raw
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return raw
	}
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}
	return host
}
