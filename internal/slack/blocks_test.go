package slack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwfbot/relay-server-go/internal/model"
)

func TestCheckinMessage(t *testing.T) {
	snapshot := model.FriendSnapshot{
		FriendName: "Jamie",
		Moods:      []string{"calm", "content"},
		Note:       "slept well\nready for the week",
		HasCheckin: true,
		Accepted:   true,
		CheckinID:  "C9",
	}

	t.Run("feelings only omits note", func(t *testing.T) {
		text, blocks := CheckinMessage(snapshot, false)

		assert.Equal(t, "*Jamie* is feeling: calm, content", text)
		assert.NotContains(t, text, "slept well")
		require.Len(t, blocks, 1)
		assert.Equal(t, "section", blocks[0]["type"])
	})

	t.Run("notes are quoted per line", func(t *testing.T) {
		text, _ := CheckinMessage(snapshot, true)

		assert.Contains(t, text, "*Jamie* is feeling: calm, content")
		assert.Contains(t, text, "> slept well")
		assert.Contains(t, text, "> ready for the week")
	})

	t.Run("empty note adds nothing even when opted in", func(t *testing.T) {
		noNote := snapshot
		noNote.Note = ""

		text, _ := CheckinMessage(noNote, true)

		assert.Equal(t, "*Jamie* is feeling: calm, content", text)
	})

	t.Run("single mood renders without separator", func(t *testing.T) {
		one := snapshot
		one.Moods = []string{"tired"}

		text, _ := CheckinMessage(one, false)

		assert.Equal(t, "*Jamie* is feeling: tired", text)
	})
}

func TestChannelConfiguredMessage(t *testing.T) {
	t.Run("announces feelings only scope", func(t *testing.T) {
		text, blocks := ChannelConfiguredMessage("Sam", false)

		assert.Contains(t, text, "Sam has set up")
		require.Len(t, blocks, 2)
		ctxElements := blocks[1]["elements"].([]map[string]any)
		assert.Contains(t, ctxElements[0]["text"], "feelings only")
	})

	t.Run("announces notes scope", func(t *testing.T) {
		_, blocks := ChannelConfiguredMessage("Sam", true)

		ctxElements := blocks[1]["elements"].([]map[string]any)
		assert.Contains(t, ctxElements[0]["text"], "feelings and notes")
	})
}
