package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hwfbot/relay-server-go/internal/config"
	apperrors "github.com/hwfbot/relay-server-go/internal/errors"
	"github.com/hwfbot/relay-server-go/internal/model"
	"github.com/hwfbot/relay-server-go/internal/redis"
	"github.com/hwfbot/relay-server-go/internal/repository"
)

// Ledger is the at-most-once delivery check: a check-in id is never relayed
// twice to the same destination. The database row is authoritative; Redis
// only shortcuts the existence check, and any cache failure degrades to the
// database path.
type Ledger struct {
	deliveryRepo repository.DeliveryRepository
	cache        *redis.Client
}

func NewLedger(deliveryRepo repository.DeliveryRepository, cache *redis.Client) *Ledger {
	return &Ledger{
		deliveryRepo: deliveryRepo,
		cache:        cache,
	}
}

func (l *Ledger) AlreadyDelivered(ctx context.Context, configID, friendID, checkinID string) (bool, error) {
	key := redis.DeliveryKey(configID, friendID, checkinID)

	if l.cache != nil {
		hit, err := l.cache.Exists(ctx, key).Result()
		if err != nil {
			log.Warn().Err(err).Msg("delivery cache check failed, falling back to database")
		} else if hit > 0 {
			return true, nil
		}
	}

	exists, err := l.deliveryRepo.Exists(ctx, configID, friendID, checkinID)
	if err != nil {
		return false, apperrors.Database(err)
	}

	if exists && l.cache != nil {
		if err := l.cache.Set(ctx, key, "1", config.DeliveryCacheTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("delivery cache backfill failed")
		}
	}

	return exists, nil
}

// RecordDelivered appends the delivery record with the posted snapshot as
// an audit blob. Records are never mutated or deleted.
func (l *Ledger) RecordDelivered(ctx context.Context, configID, friendID, checkinID string, snapshot model.FriendSnapshot) error {
	blob, err := json.Marshal(snapshot)
	if err != nil {
		return apperrors.Internal("encode delivery snapshot").WithCause(err)
	}

	err = l.deliveryRepo.Create(ctx, model.CreateDeliveryRecordParams{
		ID:              uuid.NewString(),
		ChannelConfigID: configID,
		FriendID:        friendID,
		CheckinID:       checkinID,
		Snapshot:        blob,
	})
	if err != nil {
		return apperrors.Database(err)
	}

	if l.cache != nil {
		key := redis.DeliveryKey(configID, friendID, checkinID)
		if err := l.cache.Set(ctx, key, "1", config.DeliveryCacheTTL).Err(); err != nil {
			log.Warn().Err(err).Msg("delivery cache write failed")
		}
	}

	return nil
}
