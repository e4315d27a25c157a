package model

import (
	"time"
)

type ChannelConfig struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"userId"`
	SlackChannelID string    `db:"slack_channel_id" json:"slackChannelId"`
	IncludeNotes   bool      `db:"include_notes" json:"includeNotes"`
	IsActive       bool      `db:"is_active" json:"isActive"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

type UpsertChannelConfigParams struct {
	UserID         string
	SlackChannelID string
	IncludeNotes   bool
}

// Destination is a channel configuration joined with its owning user,
// carrying everything one relay pass needs to resolve and post a check-in.
type Destination struct {
	ConfigID       string `db:"config_id"`
	UserID         string `db:"user_id"`
	SlackUserID    string `db:"slack_user_id"`
	SlackChannelID string `db:"slack_channel_id"`
	IncludeNotes   bool   `db:"include_notes"`
	HWFFriendID    string `db:"hwf_friend_id"`
}
