package model

import "encoding/json"

// Delivery rows are append-only: the unique
// (channel_config_id, friend_id, checkin_id) constraint is what makes a
// delivery happen at most once per destination.
type CreateDeliveryRecordParams struct {
	ID              string
	ChannelConfigID string
	FriendID        string
	CheckinID       string
	Snapshot        json.RawMessage
}
