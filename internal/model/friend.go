package model

// FriendInfo is the upstream user record returned by a friend-code lookup.
type FriendInfo struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	ImagePath string `json:"imagePath,omitempty"`
}

// Membership is one member's entry inside a connection group.
type Membership struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Accepted     bool   `json:"accepted"`
	CheckInCount int64  `json:"checkInCount"`
}

// CheckIn is one member's current mood entry inside a connection group.
type CheckIn struct {
	ID        string   `json:"id"`
	MoodNames []string `json:"moodNames"`
	Note      string   `json:"note"`
}

// ConnectionGroup is the upstream representation of a two-party friendship.
// The group row outlives this process; acceptance only flips a membership
// flag, it never deletes the document.
type ConnectionGroup struct {
	ID         string
	Name       string
	MemberIDs  []string
	Membership map[string]Membership
	CheckIns   map[string]CheckIn
}

// FriendSnapshot is the flattened per-friend view of a connection group,
// recomputed fresh on every fetch. Never persisted verbatim except as the
// audit blob on a delivery record.
type FriendSnapshot struct {
	GroupID    string   `json:"groupId"`
	FriendID   string   `json:"friendId"`
	FriendName string   `json:"friendName"`
	Accepted   bool     `json:"accepted"`
	Moods      []string `json:"moods"`
	Note       string   `json:"note"`
	HasCheckin bool     `json:"hasCheckin"`
	CheckinID  string   `json:"checkinId,omitempty"`
}

// Postable reports whether a snapshot is something the relay may deliver.
func (s *FriendSnapshot) Postable() bool {
	return s.Accepted && s.HasCheckin && s.CheckinID != ""
}
