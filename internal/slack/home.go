package slack

import (
	"fmt"

	"github.com/hwfbot/relay-server-go/internal/model"
)

// Interaction identifiers shared between the home view, the modals, and
// the interactivity handler.
const (
	ActionAddFriendCode = "add_friend_code"
	ActionSelectChannel = "select_channel"
	ActionToggleActive  = "toggle_active"
	ActionTestFeelings  = "test_feelings"
)

// BuildHomeView renders the App Home tab for the user's connection state.
func BuildHomeView(user *model.User, configs []model.ChannelConfig) map[string]any {
	blocks := []map[string]any{
		header("how we feel"),
		section("welcome! this bot helps you share your friends' feelings from the how we feel app directly in slack channels."),
		divider(),
	}

	switch {
	case user == nil || user.FriendCode == nil:
		blocks = append(blocks,
			section("enter your how we feel friend code to connect your account."),
			actions(button("add friend code", ActionAddFriendCode, true)),
		)

	case user.FriendStatus == model.FriendStatusPending:
		blocks = append(blocks, section(fmt.Sprintf(
			"pending: waiting for your friend to accept the request...\nfriend code `%s`", *user.FriendCode)))

	default:
		blocks = append(blocks, section(fmt.Sprintf("connected: friend code `%s`", *user.FriendCode)))
		blocks = append(blocks, connectedBlocks(configs)...)
	}

	return map[string]any{
		"type":   "home",
		"blocks": blocks,
	}
}

func connectedBlocks(configs []model.ChannelConfig) []map[string]any {
	var blocks []map[string]any

	if len(configs) == 0 {
		blocks = append(blocks,
			section("choose where to post your friends' feelings."),
			actions(button("select channel", ActionSelectChannel, true)),
		)
		return blocks
	}

	anyActive := false
	for _, cfg := range configs {
		scope := "(feelings only)"
		if cfg.IncludeNotes {
			scope = "(with notes)"
		}
		blocks = append(blocks, section(fmt.Sprintf("posting to: <#%s> %s", cfg.SlackChannelID, scope)))
		if cfg.IsActive {
			anyActive = true
		}
	}

	status := "inactive"
	toggleLabel := "start bot"
	if anyActive {
		status = "active - bot is monitoring and posting"
		toggleLabel = "pause bot"
	}
	blocks = append(blocks, section(status))

	blocks = append(blocks,
		divider(),
		section("settings & actions:"),
		actions(
			button("change channel", ActionSelectChannel, false),
			button(toggleLabel, ActionToggleActive, !anyActive),
			button("test now", ActionTestFeelings, false),
		),
	)
	return blocks
}
