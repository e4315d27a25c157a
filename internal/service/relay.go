package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/hwfbot/relay-server-go/internal/audit"
	apperrors "github.com/hwfbot/relay-server-go/internal/errors"
	"github.com/hwfbot/relay-server-go/internal/model"
	"github.com/hwfbot/relay-server-go/internal/repository"
	"github.com/hwfbot/relay-server-go/internal/slack"
)

// FriendFeed supplies the current flattened snapshots of every connection
// group the bot belongs to.
type FriendFeed interface {
	FriendSnapshots(ctx context.Context) ([]model.FriendSnapshot, error)
}

// Messenger posts check-in messages to Slack channels.
type Messenger interface {
	PostMessage(ctx context.Context, channelID, text string, blocks []map[string]any) (string, error)
}

// RelayService runs the periodic check-in relay: fetch every snapshot once,
// resolve each active destination against it, and post anything new.
type RelayService struct {
	feed        FriendFeed
	channelRepo repository.ChannelConfigRepository
	ledger      *Ledger
	messenger   Messenger
}

func NewRelayService(feed FriendFeed, channelRepo repository.ChannelConfigRepository, ledger *Ledger, messenger Messenger) *RelayService {
	return &RelayService{
		feed:        feed,
		channelRepo: channelRepo,
		ledger:      ledger,
		messenger:   messenger,
	}
}

// RunCycle executes one relay pass. Failures are logged and the cycle ends;
// the next tick starts clean. A cycle never partially retries.
func (s *RelayService) RunCycle(ctx context.Context) {
	snapshots, err := s.feed.FriendSnapshots(ctx)
	if err != nil {
		log.Error().Err(err).Msg("relay cycle: snapshot fetch failed, skipping cycle")
		return
	}
	if len(snapshots) == 0 {
		log.Debug().Msg("relay cycle: no connection groups")
		return
	}

	destinations, err := s.channelRepo.ActiveDestinations(ctx)
	if err != nil {
		log.Error().Err(err).Msg("relay cycle: destination query failed, skipping cycle")
		return
	}

	latest := latestByFriend(snapshots)

	posted := 0
	for _, dest := range destinations {
		if s.relayToDestination(ctx, dest, latest) {
			posted++
		}
	}

	log.Info().
		Int("destinations", len(destinations)).
		Int("posted", posted).
		Msg("relay cycle complete")
}

// RunForUser relays only to the destinations owned by one user. Backs the
// on-demand check from the home tab.
func (s *RelayService) RunForUser(ctx context.Context, userID string) (int, error) {
	snapshots, err := s.feed.FriendSnapshots(ctx)
	if err != nil {
		return 0, err
	}

	destinations, err := s.channelRepo.ActiveDestinations(ctx)
	if err != nil {
		return 0, apperrors.Database(err)
	}

	latest := latestByFriend(snapshots)

	posted := 0
	for _, dest := range destinations {
		if dest.UserID != userID {
			continue
		}
		if s.relayToDestination(ctx, dest, latest) {
			posted++
		}
	}
	return posted, nil
}

// latestByFriend collapses the snapshot list to one entry per friend id.
// Across duplicate groups, a snapshot carrying a check-in always replaces
// whatever is held; a snapshot without one only fills an empty slot.
func latestByFriend(snapshots []model.FriendSnapshot) map[string]model.FriendSnapshot {
	latest := make(map[string]model.FriendSnapshot, len(snapshots))
	for _, snap := range snapshots {
		if snap.HasCheckin {
			latest[snap.FriendID] = snap
			continue
		}
		if _, seen := latest[snap.FriendID]; !seen {
			latest[snap.FriendID] = snap
		}
	}
	return latest
}

func (s *RelayService) relayToDestination(ctx context.Context, dest model.Destination, latest map[string]model.FriendSnapshot) bool {
	snap, ok := latest[dest.HWFFriendID]
	if !ok || !snap.Postable() {
		return false
	}

	delivered, err := s.ledger.AlreadyDelivered(ctx, dest.ConfigID, snap.FriendID, snap.CheckinID)
	if err != nil {
		log.Error().Err(err).
			Str("configId", dest.ConfigID).
			Msg("delivery check failed, skipping destination")
		return false
	}
	if delivered {
		return false
	}

	text, blocks := slack.CheckinMessage(snap, dest.IncludeNotes)
	if _, err := s.messenger.PostMessage(ctx, dest.SlackChannelID, text, blocks); err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			log.Warn().
				Str("configId", dest.ConfigID).
				Str("channel", dest.SlackChannelID).
				Msg("channel gone, deactivating configuration")
			if derr := s.channelRepo.Deactivate(ctx, dest.ConfigID); derr != nil {
				log.Error().Err(derr).Str("configId", dest.ConfigID).Msg("deactivate failed")
			}
			audit.Log(ctx, audit.Event{
				Type:        audit.EventConfigDeactivated,
				SlackUserID: dest.SlackUserID,
				ChannelID:   dest.SlackChannelID,
				Details:     map[string]interface{}{"configId": dest.ConfigID},
			})
			return false
		}
		log.Error().Err(err).
			Str("channel", dest.SlackChannelID).
			Msg("post failed, will retry next cycle")
		return false
	}

	if err := s.ledger.RecordDelivered(ctx, dest.ConfigID, snap.FriendID, snap.CheckinID, snap); err != nil {
		// The post went out; a missing record means one possible duplicate
		// next cycle, never a lost message.
		log.Error().Err(err).
			Str("configId", dest.ConfigID).
			Str("checkinId", snap.CheckinID).
			Msg("delivery record write failed")
	}

	audit.Log(ctx, audit.Event{
		Type:        audit.EventCheckinRelayed,
		SlackUserID: dest.SlackUserID,
		ChannelID:   dest.SlackChannelID,
		Details:     map[string]interface{}{"friend": snap.FriendName, "checkinId": snap.CheckinID},
	})
	return true
}
