package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/hwfbot/relay-server-go/internal/model"
)

type ChannelConfigRepository interface {
	Upsert(ctx context.Context, params model.UpsertChannelConfigParams) (*model.ChannelConfig, error)
	FindByUserID(ctx context.Context, userID string) ([]model.ChannelConfig, error)
	SetActiveForUser(ctx context.Context, userID string, active bool) error
	Deactivate(ctx context.Context, configID string) error
	ActiveDestinations(ctx context.Context) ([]model.Destination, error)
}

type channelConfigRepo struct {
	db *sqlx.DB
}

func NewChannelConfigRepository(db *sqlx.DB) ChannelConfigRepository {
	return &channelConfigRepo{db: db}
}

func (r *channelConfigRepo) Upsert(ctx context.Context, params model.UpsertChannelConfigParams) (*model.ChannelConfig, error) {
	var cfg model.ChannelConfig
	err := r.db.GetContext(ctx, &cfg, `
		INSERT INTO channel_configurations (user_id, slack_channel_id, include_notes)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, slack_channel_id)
		DO UPDATE SET
			include_notes = $3,
			is_active = TRUE,
			updated_at = NOW()
		RETURNING *
	`, params.UserID, params.SlackChannelID, params.IncludeNotes)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *channelConfigRepo) FindByUserID(ctx context.Context, userID string) ([]model.ChannelConfig, error) {
	var configs []model.ChannelConfig
	err := r.db.SelectContext(ctx, &configs, `
		SELECT * FROM channel_configurations
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	return configs, err
}

func (r *channelConfigRepo) SetActiveForUser(ctx context.Context, userID string, active bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE channel_configurations SET
			is_active = $2,
			updated_at = NOW()
		WHERE user_id = $1
	`, userID, active)
	return err
}

func (r *channelConfigRepo) Deactivate(ctx context.Context, configID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE channel_configurations SET
			is_active = FALSE,
			updated_at = NOW()
		WHERE id = $1
	`, configID)
	return err
}

// ActiveDestinations returns every channel configuration the relay cycle
// should consider: active configs whose owner has a fully connected friend.
func (r *channelConfigRepo) ActiveDestinations(ctx context.Context) ([]model.Destination, error) {
	var destinations []model.Destination
	err := r.db.SelectContext(ctx, &destinations, `
		SELECT
			c.id AS config_id,
			u.id AS user_id,
			u.slack_user_id,
			c.slack_channel_id,
			c.include_notes,
			u.hwf_friend_id
		FROM channel_configurations c
		JOIN users u ON u.id = c.user_id
		WHERE c.is_active
		  AND u.friend_status = 'connected'
		  AND u.hwf_friend_id IS NOT NULL
		ORDER BY c.created_at
	`)
	return destinations, err
}
