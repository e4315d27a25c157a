package hwf

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	apperrors "github.com/hwfbot/relay-server-go/internal/errors"
	"github.com/hwfbot/relay-server-go/internal/model"
)

const (
	DefaultPollMaxWait  = 5 * time.Minute
	DefaultPollInterval = 10 * time.Second
)

var errAwaitingAcceptance = errors.New("awaiting acceptance")

// AcceptResult is the terminal state of a successful acceptance poll.
type AcceptResult struct {
	GroupID    string
	FriendName string
}

// GroupFetcher lets the poller be driven without a live document store.
type GroupFetcher interface {
	FetchGroup(ctx context.Context, groupID string) (*model.ConnectionGroup, error)
}

// WaitForAcceptance polls a connection group at a fixed interval until the
// target member's accepted flag flips, or the wait window closes. A failed
// fetch counts as "not yet"; only the window expiring ends the wait, and
// that surfaces as a TIMEOUT_ERROR rather than a failure.
func WaitForAcceptance(
	ctx context.Context,
	fetcher GroupFetcher,
	groupID, friendID string,
	maxWait, interval time.Duration,
) (*AcceptResult, error) {
	if maxWait <= 0 {
		maxWait = DefaultPollMaxWait
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	var result *AcceptResult
	attempt := func() error {
		// The constant backoff races its timer against ctx.Done() at the
		// window boundary, so an expired window could still admit one more
		// fetch without this check.
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		group, err := fetcher.FetchGroup(ctx, groupID)
		if err != nil {
			log.Warn().Err(err).Str("groupId", groupID).Msg("acceptance poll fetch failed, retrying")
			return err
		}

		member, ok := group.Membership[friendID]
		if ok && member.Accepted {
			result = &AcceptResult{GroupID: groupID, FriendName: member.Name}
			return nil
		}
		return errAwaitingAcceptance
	}

	err := backoff.Retry(attempt, backoff.WithContext(backoff.NewConstantBackOff(interval), ctx))
	if result != nil {
		return result, nil
	}

	log.Info().Str("groupId", groupID).Str("friendId", friendID).Err(err).
		Msg("acceptance wait window expired")
	return nil, apperrors.Timeout("acceptance window expired")
}

// WaitForAcceptance runs the acceptance poll against this client's store.
func (c *Client) WaitForAcceptance(
	ctx context.Context,
	groupID, friendID string,
	maxWait, interval time.Duration,
) (*AcceptResult, error) {
	return WaitForAcceptance(ctx, c, groupID, friendID, maxWait, interval)
}
