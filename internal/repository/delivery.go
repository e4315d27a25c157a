package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/hwfbot/relay-server-go/internal/model"
)

// DeliveryRepository is the persistent half of the delivery ledger. Rows
// are append-only; the unique (channel_config_id, friend_id, checkin_id)
// constraint makes Create idempotent under a relay-cycle race.
type DeliveryRepository interface {
	Exists(ctx context.Context, configID, friendID, checkinID string) (bool, error)
	Create(ctx context.Context, params model.CreateDeliveryRecordParams) error
}

type deliveryRepo struct {
	db *sqlx.DB
}

func NewDeliveryRepository(db *sqlx.DB) DeliveryRepository {
	return &deliveryRepo{db: db}
}

func (r *deliveryRepo) Exists(ctx context.Context, configID, friendID, checkinID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_records
			WHERE channel_config_id = $1 AND friend_id = $2 AND checkin_id = $3
		)
	`, configID, friendID, checkinID)
	return exists, err
}

func (r *deliveryRepo) Create(ctx context.Context, params model.CreateDeliveryRecordParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_records (id, channel_config_id, friend_id, checkin_id, snapshot)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (channel_config_id, friend_id, checkin_id) DO NOTHING
	`, params.ID, params.ChannelConfigID, params.FriendID, params.CheckinID, params.Snapshot)
	return err
}
