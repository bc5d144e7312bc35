package utils

import "testing"

func TestDomain(t *testing.T) {
	cases := map[string]string{
		"https://Example.com/path?utm_source=test&x=1": "example.com",
		"WWW.B.org/page":                              "www.b.org",
		"http://user:pw@Host.io:8080/x":               "host.io",
		"discord.gg/abc":                              "discord.gg",
		"":                                            "",
	}
	for raw, want := range cases {
		if got := Domain(raw); got != want {
			t.Fatalf("Domain(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestDomainPunycode(t *testing.T) {
	if got := Domain("www.bücher.de/angebote"); got != "www.xn--bcher-kva.de" {
		t.Fatalf("unexpected domain: %s", got)
	}
}

func TestExtractLinks(t *testing.T) {
	links := ExtractLinks("see https://a.com/x and WWW.B.org, plain text c.com")
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %v", links)
	}
	if links[1] != "WWW.B.org," {
		t.Fatalf("unexpected second link %q", links[1])
	}
}

func TestFindInvite(t *testing.T) {
	cases := map[string]bool{
		"join discord.gg/abc":                 true,
		"https://DISCORDAPP.com/invite/xyz":   true,
		"https://discord.com/invite/q":        true,
		"discord is great, gg everyone":       false,
		"https://discord.com/channels/1/2/3": false,
	}
	for content, want := range cases {
		if _, got := FindInvite(content); got != want {
			t.Fatalf("FindInvite(%q) = %v, want %v", content, got, want)
		}
	}
}
