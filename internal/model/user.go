package model

import (
	"time"
)

type FriendStatus string

const (
	FriendStatusNone      FriendStatus = "none"
	FriendStatusPending   FriendStatus = "pending"
	FriendStatusConnected FriendStatus = "connected"
)

type User struct {
	ID           string       `db:"id" json:"id"`
	SlackUserID  string       `db:"slack_user_id" json:"slackUserId"`
	SlackTeamID  string       `db:"slack_team_id" json:"slackTeamId"`
	FriendCode   *string      `db:"friend_code" json:"friendCode,omitempty"`
	HWFFriendID  *string      `db:"hwf_friend_id" json:"hwfFriendId,omitempty"`
	FriendName   *string      `db:"friend_name" json:"friendName,omitempty"`
	GroupID      *string      `db:"group_id" json:"groupId,omitempty"`
	FriendStatus FriendStatus `db:"friend_status" json:"friendStatus"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

// Connected reports whether the user has a fully accepted friend link.
func (u *User) Connected() bool {
	return u.FriendStatus == FriendStatusConnected && u.HWFFriendID != nil
}

type ConnectFriendParams struct {
	FriendCode  string
	HWFFriendID string
	GroupID     string
}
