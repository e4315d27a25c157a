package util

import (
	"regexp"
	"strings"
)

var (
	friendCodeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	channelIDRegex  = regexp.MustCompile(`^C[A-Z0-9]{8,}$`)
)

// NormalizeFriendCode uppercases and trims a user-entered friend code.
func NormalizeFriendCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func IsValidFriendCode(code string) bool {
	return friendCodeRegex.MatchString(code)
}

// IsValidChannelID matches Slack public/private channel ids.
func IsValidChannelID(id string) bool {
	return channelIDRegex.MatchString(id)
}
