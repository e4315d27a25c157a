package slack

import (
	"fmt"
	"strings"

	"github.com/hwfbot/relay-server-go/internal/model"
)

func section(text string) map[string]any {
	return map[string]any{
		"type": "section",
		"text": map[string]any{"type": "mrkdwn", "text": text},
	}
}

func header(text string) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{"type": "plain_text", "text": text},
	}
}

func divider() map[string]any {
	return map[string]any{"type": "divider"}
}

func contextBlock(text string) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{"type": "mrkdwn", "text": text},
		},
	}
}

func button(text, actionID string, primary bool) map[string]any {
	b := map[string]any{
		"type":      "button",
		"text":      map[string]any{"type": "plain_text", "text": text},
		"action_id": actionID,
	}
	if primary {
		b["style"] = "primary"
	}
	return b
}

func actions(elements ...map[string]any) map[string]any {
	return map[string]any{"type": "actions", "elements": elements}
}

// CheckinMessage renders a friend's check-in for posting. Notes are quoted
// line by line when the destination opted in.
func CheckinMessage(snapshot model.FriendSnapshot, includeNotes bool) (string, []map[string]any) {
	moodText := strings.Join(snapshot.Moods, ", ")
	text := fmt.Sprintf("*%s* is feeling: %s", snapshot.FriendName, moodText)

	if includeNotes && snapshot.Note != "" {
		var quoted []string
		for _, line := range strings.Split(snapshot.Note, "\n") {
			quoted = append(quoted, "> "+line)
		}
		text += "\n" + strings.Join(quoted, "\n")
	}

	return text, []map[string]any{section(text)}
}

// ChannelConfiguredMessage announces a new check-in destination in channel.
func ChannelConfiguredMessage(userName string, includeNotes bool) (string, []map[string]any) {
	text := fmt.Sprintf("%s has set up how we feel notifications in this channel!", userName)

	scope := "feelings only"
	if includeNotes {
		scope = "feelings and notes"
	}

	blocks := []map[string]any{
		section(text),
		contextBlock(fmt.Sprintf("this channel will receive %s from %s", scope, userName)),
	}
	return text, blocks
}
