package slack

// Modal callback and block identifiers.
const (
	CallbackFriendCodeModal    = "friend_code_modal"
	CallbackChannelSelectModal = "channel_select_modal"

	BlockFriendCodeInput = "friend_code_input"
	FieldFriendCode      = "friend_code"

	BlockChannelInput = "channel_input"
	FieldChannelID    = "channel_id"

	BlockNotesInput   = "notes_input"
	FieldIncludeNotes = "include_notes"
)

func plainText(text string) map[string]any {
	return map[string]any{"type": "plain_text", "text": text}
}

// FriendCodeModal builds the friend-code entry form.
func FriendCodeModal() map[string]any {
	return map[string]any{
		"type":        "modal",
		"callback_id": CallbackFriendCodeModal,
		"title":       plainText("Add Friend Code"),
		"submit":      plainText("Connect"),
		"close":       plainText("Cancel"),
		"blocks": []map[string]any{
			section("Enter your How We Feel friend code to connect your account. You can find this in the How We Feel app settings."),
			{
				"type":     "input",
				"block_id": BlockFriendCodeInput,
				"element": map[string]any{
					"type":        "plain_text_input",
					"action_id":   FieldFriendCode,
					"placeholder": plainText("e.g., ABC123"),
					"max_length":  10,
				},
				"label": plainText("Friend Code"),
			},
		},
	}
}

// ChannelSelectModal builds the destination-channel form.
func ChannelSelectModal() map[string]any {
	feelingsOnly := map[string]any{"text": plainText("Feelings only"), "value": "false"}
	feelingsAndNotes := map[string]any{"text": plainText("Feelings + Notes"), "value": "true"}

	return map[string]any{
		"type":        "modal",
		"callback_id": CallbackChannelSelectModal,
		"title":       plainText("Configure Posting"),
		"submit":      plainText("Save Settings"),
		"close":       plainText("Cancel"),
		"blocks": []map[string]any{
			section("Enter the Slack channel ID where you want to post your friends' feelings. You can find the channel ID by right-clicking on the channel and selecting \"Copy link\" - it's the last part after the last slash."),
			section("*Example:* If the channel link is `https://yourworkspace.slack.com/archives/C01234ABCDE`, then the channel ID is `C01234ABCDE`"),
			{
				"type":     "input",
				"block_id": BlockChannelInput,
				"element": map[string]any{
					"type":        "plain_text_input",
					"action_id":   FieldChannelID,
					"placeholder": plainText("e.g., C01234ABCDE"),
					"max_length":  15,
				},
				"label": plainText("Channel ID"),
			},
			{
				"type":     "input",
				"block_id": BlockNotesInput,
				"element": map[string]any{
					"type":           "radio_buttons",
					"action_id":      FieldIncludeNotes,
					"options":        []map[string]any{feelingsOnly, feelingsAndNotes},
					"initial_option": feelingsOnly,
				},
				"label": plainText("What to Post"),
			},
		},
	}
}
