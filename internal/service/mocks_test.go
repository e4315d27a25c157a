package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hwfbot/relay-server-go/internal/model"
)

// Mock user repository
type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, slackUserID, slackTeamID string) error {
	args := m.Called(ctx, slackUserID, slackTeamID)
	return args.Error(0)
}

func (m *mockUserRepo) FindBySlackID(ctx context.Context, slackUserID string) (*model.User, error) {
	args := m.Called(ctx, slackUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) SetFriendPending(ctx context.Context, slackUserID string, params model.ConnectFriendParams) error {
	args := m.Called(ctx, slackUserID, params)
	return args.Error(0)
}

func (m *mockUserRepo) SetFriendConnected(ctx context.Context, slackUserID, friendName string) error {
	args := m.Called(ctx, slackUserID, friendName)
	return args.Error(0)
}

func (m *mockUserRepo) ResetFriend(ctx context.Context, slackUserID string) error {
	args := m.Called(ctx, slackUserID)
	return args.Error(0)
}

// Mock channel config repository
type mockChannelRepo struct {
	mock.Mock
}

func (m *mockChannelRepo) Upsert(ctx context.Context, params model.UpsertChannelConfigParams) (*model.ChannelConfig, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChannelConfig), args.Error(1)
}

func (m *mockChannelRepo) FindByUserID(ctx context.Context, userID string) ([]model.ChannelConfig, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChannelConfig), args.Error(1)
}

func (m *mockChannelRepo) SetActiveForUser(ctx context.Context, userID string, active bool) error {
	args := m.Called(ctx, userID, active)
	return args.Error(0)
}

func (m *mockChannelRepo) Deactivate(ctx context.Context, configID string) error {
	args := m.Called(ctx, configID)
	return args.Error(0)
}

func (m *mockChannelRepo) ActiveDestinations(ctx context.Context) ([]model.Destination, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Destination), args.Error(1)
}

// Mock delivery record repository
type mockDeliveryRepo struct {
	mock.Mock
}

func (m *mockDeliveryRepo) Exists(ctx context.Context, configID, friendID, checkinID string) (bool, error) {
	args := m.Called(ctx, configID, friendID, checkinID)
	return args.Bool(0), args.Error(1)
}

func (m *mockDeliveryRepo) Create(ctx context.Context, params model.CreateDeliveryRecordParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// Mock snapshot feed
type mockFeed struct {
	mock.Mock
}

func (m *mockFeed) FriendSnapshots(ctx context.Context) ([]model.FriendSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FriendSnapshot), args.Error(1)
}

// Mock Slack messenger / notifier
type mockMessenger struct {
	mock.Mock
}

func (m *mockMessenger) PostMessage(ctx context.Context, channelID, text string, blocks []map[string]any) (string, error) {
	args := m.Called(ctx, channelID, text, blocks)
	return args.String(0), args.Error(1)
}

func (m *mockMessenger) PublishHomeView(ctx context.Context, userID string, view map[string]any) error {
	args := m.Called(ctx, userID, view)
	return args.Error(0)
}

// Mock remote friend directory
type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) LookupUserByCode(ctx context.Context, code string) (*model.FriendInfo, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FriendInfo), args.Error(1)
}

func (m *mockDirectory) CreatePendingGroup(ctx context.Context, friend *model.FriendInfo) (string, error) {
	args := m.Called(ctx, friend)
	return args.String(0), args.Error(1)
}

func (m *mockDirectory) FetchGroup(ctx context.Context, groupID string) (*model.ConnectionGroup, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConnectionGroup), args.Error(1)
}
