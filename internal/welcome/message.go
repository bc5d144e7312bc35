// Package welcome formats welcome messages and renders welcome cards.
package welcome

import (
	"strconv"
	"strings"
)

// FormatMessage fills the {user}, {server} and {members} placeholders.
func FormatMessage(template, userMention, serverName string, members int) string {
	return strings.NewReplacer(
		"{user}", userMention,
		"{server}", serverName,
		"{members}", strconv.Itoa(members),
	).Replace(template)
}
