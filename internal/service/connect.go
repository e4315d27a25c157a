package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hwfbot/relay-server-go/internal/audit"
	apperrors "github.com/hwfbot/relay-server-go/internal/errors"
	"github.com/hwfbot/relay-server-go/internal/hwf"
	"github.com/hwfbot/relay-server-go/internal/model"
	"github.com/hwfbot/relay-server-go/internal/repository"
	"github.com/hwfbot/relay-server-go/internal/slack"
	"github.com/hwfbot/relay-server-go/internal/util"
)

// FriendDirectory covers the remote operations the connect flow needs.
type FriendDirectory interface {
	LookupUserByCode(ctx context.Context, code string) (*model.FriendInfo, error)
	CreatePendingGroup(ctx context.Context, friend *model.FriendInfo) (string, error)
	FetchGroup(ctx context.Context, groupID string) (*model.ConnectionGroup, error)
}

// Notifier carries the Slack surface the connect flow talks back through:
// direct messages and home tab refreshes.
type Notifier interface {
	PostMessage(ctx context.Context, channelID, text string, blocks []map[string]any) (string, error)
	PublishHomeView(ctx context.Context, userID string, view map[string]any) error
}

// ConnectService drives the friend-code handshake: lookup, pending group
// creation, and the background wait for the friend to accept.
type ConnectService struct {
	directory   FriendDirectory
	userRepo    repository.UserRepository
	channelRepo repository.ChannelConfigRepository
	notifier    Notifier

	pollMaxWait  time.Duration
	pollInterval time.Duration
}

func NewConnectService(
	directory FriendDirectory,
	userRepo repository.UserRepository,
	channelRepo repository.ChannelConfigRepository,
	notifier Notifier,
	pollMaxWait, pollInterval time.Duration,
) *ConnectService {
	return &ConnectService{
		directory:    directory,
		userRepo:     userRepo,
		channelRepo:  channelRepo,
		notifier:     notifier,
		pollMaxWait:  pollMaxWait,
		pollInterval: pollInterval,
	}
}

// StartConnection validates the code, creates the pending group, and kicks
// off the acceptance wait in the background. The caller gets an answer as
// soon as the invite is out; acceptance is reported later via DM.
func (s *ConnectService) StartConnection(ctx context.Context, slackUserID, rawCode string) (*model.FriendInfo, error) {
	code := util.NormalizeFriendCode(rawCode)
	if !util.IsValidFriendCode(code) {
		return nil, apperrors.InvalidInput("friend code", "must be 6 letters or digits")
	}

	friend, err := s.directory.LookupUserByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if friend == nil {
		return nil, apperrors.NotFound("friend code")
	}

	groupID, err := s.directory.CreatePendingGroup(ctx, friend)
	if err != nil {
		return nil, err
	}

	err = s.userRepo.SetFriendPending(ctx, slackUserID, model.ConnectFriendParams{
		FriendCode:  code,
		HWFFriendID: friend.UID,
		GroupID:     groupID,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:        audit.EventFriendRequestSent,
		SlackUserID: slackUserID,
		Details:     map[string]interface{}{"code": util.MaskCode(code), "groupId": groupID},
	})

	s.RefreshHome(ctx, slackUserID)

	// Detached from the request context: the wait outlives the Slack
	// interaction that started it.
	go s.awaitAcceptance(context.Background(), slackUserID, groupID, friend)

	return friend, nil
}

func (s *ConnectService) awaitAcceptance(ctx context.Context, slackUserID, groupID string, friend *model.FriendInfo) {
	result, err := hwf.WaitForAcceptance(ctx, s.directory, groupID, friend.UID, s.pollMaxWait, s.pollInterval)
	if err != nil {
		audit.Log(ctx, audit.Event{
			Type:        audit.EventFriendRequestTimeout,
			SlackUserID: slackUserID,
			Details:     map[string]interface{}{"groupId": groupID},
		})
		if rerr := s.userRepo.ResetFriend(ctx, slackUserID); rerr != nil {
			log.Error().Err(rerr).Str("slackUserId", slackUserID).Msg("friend status reset failed")
		}
		s.notify(ctx, slackUserID, fmt.Sprintf(
			":hourglass: *%s* didn't accept your friend request in time. Open the Home tab to try again.",
			friend.Name))
		s.RefreshHome(ctx, slackUserID)
		return
	}

	name := result.FriendName
	if name == "" {
		name = friend.Name
	}

	if err := s.userRepo.SetFriendConnected(ctx, slackUserID, name); err != nil {
		log.Error().Err(err).Str("slackUserId", slackUserID).Msg("mark connected failed")
		return
	}

	audit.Log(ctx, audit.Event{
		Type:        audit.EventFriendConnected,
		SlackUserID: slackUserID,
		Details:     map[string]interface{}{"groupId": groupID, "friend": name},
	})

	s.notify(ctx, slackUserID, fmt.Sprintf(
		":tada: *%s* accepted your friend request! Pick a channel in the Home tab to start sharing their check-ins.",
		name))
	s.RefreshHome(ctx, slackUserID)
}

// Disconnect clears the friend link and deactivates every destination that
// depended on it.
func (s *ConnectService) Disconnect(ctx context.Context, slackUserID string) error {
	user, err := s.userRepo.FindBySlackID(ctx, slackUserID)
	if err != nil {
		return apperrors.Database(err)
	}
	if user == nil {
		return apperrors.NotFound("user")
	}

	if err := s.channelRepo.SetActiveForUser(ctx, user.ID, false); err != nil {
		return apperrors.Database(err)
	}
	if err := s.userRepo.ResetFriend(ctx, slackUserID); err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:        audit.EventFriendDisconnected,
		SlackUserID: slackUserID,
	})
	s.RefreshHome(ctx, slackUserID)
	return nil
}

// RefreshHome republishes the home tab from current state. Failures are
// logged only; a stale home view is never worth failing an operation over.
func (s *ConnectService) RefreshHome(ctx context.Context, slackUserID string) {
	user, err := s.userRepo.FindBySlackID(ctx, slackUserID)
	if err != nil || user == nil {
		log.Warn().Err(err).Str("slackUserId", slackUserID).Msg("home refresh: user load failed")
		return
	}

	var configs []model.ChannelConfig
	if user.Connected() {
		configs, err = s.channelRepo.FindByUserID(ctx, user.ID)
		if err != nil {
			log.Warn().Err(err).Str("slackUserId", slackUserID).Msg("home refresh: config load failed")
		}
	}

	if err := s.notifier.PublishHomeView(ctx, slackUserID, slack.BuildHomeView(user, configs)); err != nil {
		log.Warn().Err(err).Str("slackUserId", slackUserID).Msg("home refresh: publish failed")
	}
}

// notify DMs the user. Slack opens the IM lazily when the channel id is a
// user id.
func (s *ConnectService) notify(ctx context.Context, slackUserID, text string) {
	if _, err := s.notifier.PostMessage(ctx, slackUserID, text, nil); err != nil {
		log.Warn().Err(err).Str("slackUserId", slackUserID).Msg("notify failed")
	}
}
