package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hwfbot/relay-server-go/internal/errors"
	"github.com/hwfbot/relay-server-go/internal/model"
)

func checkinSnapshot() model.FriendSnapshot {
	return model.FriendSnapshot{
		GroupID:    "g-1",
		FriendID:   "F1",
		FriendName: "Jamie",
		Accepted:   true,
		Moods:      []string{"calm", "content"},
		Note:       "good morning",
		HasCheckin: true,
		CheckinID:  "C9",
	}
}

func activeDestination() model.Destination {
	return model.Destination{
		ConfigID:       "cfg-1",
		UserID:         "u-1",
		SlackUserID:    "U123",
		SlackChannelID: "C0123ABCD",
		IncludeNotes:   true,
		HWFFriendID:    "F1",
	}
}

func newRelayFixture() (*mockFeed, *mockChannelRepo, *mockDeliveryRepo, *mockMessenger, *RelayService) {
	feed := new(mockFeed)
	channelRepo := new(mockChannelRepo)
	deliveryRepo := new(mockDeliveryRepo)
	messenger := new(mockMessenger)
	svc := NewRelayService(feed, channelRepo, NewLedger(deliveryRepo, nil), messenger)
	return feed, channelRepo, deliveryRepo, messenger, svc
}

func TestRelayRunCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("posts new check-in once and records it", func(t *testing.T) {
		feed, channelRepo, deliveryRepo, messenger, svc := newRelayFixture()

		feed.On("FriendSnapshots", ctx).Return([]model.FriendSnapshot{checkinSnapshot()}, nil)
		channelRepo.On("ActiveDestinations", ctx).Return([]model.Destination{activeDestination()}, nil)
		deliveryRepo.On("Exists", ctx, "cfg-1", "F1", "C9").Return(false, nil)
		messenger.On("PostMessage", ctx, "C0123ABCD", mock.Anything, mock.Anything).Return("1724.001", nil)
		deliveryRepo.On("Create", ctx, mock.MatchedBy(func(p model.CreateDeliveryRecordParams) bool {
			return p.ChannelConfigID == "cfg-1" && p.FriendID == "F1" && p.CheckinID == "C9"
		})).Return(nil)

		svc.RunCycle(ctx)

		messenger.AssertNumberOfCalls(t, "PostMessage", 1)
		deliveryRepo.AssertExpectations(t)
	})

	t.Run("second cycle posts nothing for same check-in", func(t *testing.T) {
		feed, channelRepo, deliveryRepo, messenger, svc := newRelayFixture()

		feed.On("FriendSnapshots", ctx).Return([]model.FriendSnapshot{checkinSnapshot()}, nil)
		channelRepo.On("ActiveDestinations", ctx).Return([]model.Destination{activeDestination()}, nil)
		deliveryRepo.On("Exists", ctx, "cfg-1", "F1", "C9").Return(true, nil)

		svc.RunCycle(ctx)

		messenger.AssertNotCalled(t, "PostMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		deliveryRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("skips snapshot without check-in", func(t *testing.T) {
		feed, channelRepo, _, messenger, svc := newRelayFixture()

		snap := checkinSnapshot()
		snap.HasCheckin = false
		snap.CheckinID = ""

		feed.On("FriendSnapshots", ctx).Return([]model.FriendSnapshot{snap}, nil)
		channelRepo.On("ActiveDestinations", ctx).Return([]model.Destination{activeDestination()}, nil)

		svc.RunCycle(ctx)

		messenger.AssertNotCalled(t, "PostMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("skips unaccepted membership", func(t *testing.T) {
		feed, channelRepo, _, messenger, svc := newRelayFixture()

		snap := checkinSnapshot()
		snap.Accepted = false

		feed.On("FriendSnapshots", ctx).Return([]model.FriendSnapshot{snap}, nil)
		channelRepo.On("ActiveDestinations", ctx).Return([]model.Destination{activeDestination()}, nil)

		svc.RunCycle(ctx)

		messenger.AssertNotCalled(t, "PostMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("deactivates configuration when channel is gone", func(t *testing.T) {
		feed, channelRepo, deliveryRepo, messenger, svc := newRelayFixture()

		feed.On("FriendSnapshots", ctx).Return([]model.FriendSnapshot{checkinSnapshot()}, nil)
		channelRepo.On("ActiveDestinations", ctx).Return([]model.Destination{activeDestination()}, nil)
		deliveryRepo.On("Exists", ctx, "cfg-1", "F1", "C9").Return(false, nil)
		messenger.On("PostMessage", ctx, "C0123ABCD", mock.Anything, mock.Anything).
			Return("", apperrors.NotFound("channel"))
		channelRepo.On("Deactivate", ctx, "cfg-1").Return(nil)

		svc.RunCycle(ctx)

		channelRepo.AssertCalled(t, "Deactivate", ctx, "cfg-1")
		deliveryRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("transient post failure leaves no record", func(t *testing.T) {
		feed, channelRepo, deliveryRepo, messenger, svc := newRelayFixture()

		feed.On("FriendSnapshots", ctx).Return([]model.FriendSnapshot{checkinSnapshot()}, nil)
		channelRepo.On("ActiveDestinations", ctx).Return([]model.Destination{activeDestination()}, nil)
		deliveryRepo.On("Exists", ctx, "cfg-1", "F1", "C9").Return(false, nil)
		messenger.On("PostMessage", ctx, "C0123ABCD", mock.Anything, mock.Anything).
			Return("", apperrors.Transport("chat.postMessage", errors.New("502")))

		svc.RunCycle(ctx)

		channelRepo.AssertNotCalled(t, "Deactivate", mock.Anything, mock.Anything)
		deliveryRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("snapshot fetch failure skips the whole cycle", func(t *testing.T) {
		feed, channelRepo, _, messenger, svc := newRelayFixture()

		feed.On("FriendSnapshots", ctx).Return(nil, apperrors.Transport("runQuery", errors.New("503")))

		svc.RunCycle(ctx)

		channelRepo.AssertNotCalled(t, "ActiveDestinations", mock.Anything)
		messenger.AssertNotCalled(t, "PostMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("two destinations for same friend each get the post", func(t *testing.T) {
		feed, channelRepo, deliveryRepo, messenger, svc := newRelayFixture()

		second := activeDestination()
		second.ConfigID = "cfg-2"
		second.UserID = "u-2"
		second.SlackChannelID = "C0456WXYZ"

		feed.On("FriendSnapshots", ctx).Return([]model.FriendSnapshot{checkinSnapshot()}, nil)
		channelRepo.On("ActiveDestinations", ctx).Return([]model.Destination{activeDestination(), second}, nil)
		deliveryRepo.On("Exists", ctx, mock.Anything, "F1", "C9").Return(false, nil)
		messenger.On("PostMessage", ctx, mock.Anything, mock.Anything, mock.Anything).Return("1724.002", nil)
		deliveryRepo.On("Create", ctx, mock.Anything).Return(nil)

		svc.RunCycle(ctx)

		messenger.AssertNumberOfCalls(t, "PostMessage", 2)
		deliveryRepo.AssertNumberOfCalls(t, "Create", 2)
	})
}

func TestRelayRunForUser(t *testing.T) {
	ctx := context.Background()

	t.Run("only posts to the user's destinations", func(t *testing.T) {
		feed, channelRepo, deliveryRepo, messenger, svc := newRelayFixture()

		other := activeDestination()
		other.ConfigID = "cfg-2"
		other.UserID = "u-2"
		other.SlackChannelID = "C0456WXYZ"

		feed.On("FriendSnapshots", ctx).Return([]model.FriendSnapshot{checkinSnapshot()}, nil)
		channelRepo.On("ActiveDestinations", ctx).Return([]model.Destination{activeDestination(), other}, nil)
		deliveryRepo.On("Exists", ctx, "cfg-1", "F1", "C9").Return(false, nil)
		messenger.On("PostMessage", ctx, "C0123ABCD", mock.Anything, mock.Anything).Return("1724.003", nil)
		deliveryRepo.On("Create", ctx, mock.Anything).Return(nil)

		posted, err := svc.RunForUser(ctx, "u-1")

		require.NoError(t, err)
		assert.Equal(t, 1, posted)
		messenger.AssertNumberOfCalls(t, "PostMessage", 1)
	})

	t.Run("propagates snapshot fetch failure", func(t *testing.T) {
		feed, _, _, _, svc := newRelayFixture()

		feed.On("FriendSnapshots", ctx).Return(nil, apperrors.Transport("runQuery", errors.New("502")))

		_, err := svc.RunForUser(ctx, "u-1")
		require.Error(t, err)
	})
}

func TestLatestByFriend(t *testing.T) {
	t.Run("check-in bearing snapshot wins over empty one", func(t *testing.T) {
		empty := checkinSnapshot()
		empty.GroupID = "g-0"
		empty.HasCheckin = false
		empty.CheckinID = ""

		latest := latestByFriend([]model.FriendSnapshot{empty, checkinSnapshot()})

		require.Len(t, latest, 1)
		assert.Equal(t, "C9", latest["F1"].CheckinID)
	})

	t.Run("later check-in replaces earlier one", func(t *testing.T) {
		newer := checkinSnapshot()
		newer.GroupID = "g-2"
		newer.CheckinID = "C10"

		latest := latestByFriend([]model.FriendSnapshot{checkinSnapshot(), newer})

		assert.Equal(t, "C10", latest["F1"].CheckinID)
	})

	t.Run("empty snapshot never replaces a held check-in", func(t *testing.T) {
		empty := checkinSnapshot()
		empty.GroupID = "g-2"
		empty.HasCheckin = false
		empty.CheckinID = ""

		latest := latestByFriend([]model.FriendSnapshot{checkinSnapshot(), empty})

		assert.Equal(t, "C9", latest["F1"].CheckinID)
	})

	t.Run("distinct friends are kept apart", func(t *testing.T) {
		other := checkinSnapshot()
		other.FriendID = "F2"
		other.CheckinID = "C77"

		latest := latestByFriend([]model.FriendSnapshot{checkinSnapshot(), other})

		require.Len(t, latest, 2)
		assert.Equal(t, "C9", latest["F1"].CheckinID)
		assert.Equal(t, "C77", latest["F2"].CheckinID)
	})
}
