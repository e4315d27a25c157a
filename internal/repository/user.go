package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/hwfbot/relay-server-go/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, slackUserID, slackTeamID string) error
	FindBySlackID(ctx context.Context, slackUserID string) (*model.User, error)
	SetFriendPending(ctx context.Context, slackUserID string, params model.ConnectFriendParams) error
	SetFriendConnected(ctx context.Context, slackUserID, friendName string) error
	ResetFriend(ctx context.Context, slackUserID string) error
}

type userRepo struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, slackUserID, slackTeamID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (slack_user_id, slack_team_id)
		VALUES ($1, $2)
		ON CONFLICT (slack_user_id) DO NOTHING
	`, slackUserID, slackTeamID)
	return err
}

func (r *userRepo) FindBySlackID(ctx context.Context, slackUserID string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `
		SELECT * FROM users WHERE slack_user_id = $1
	`, slackUserID)
	return HandleNotFound(&u, err)
}

func (r *userRepo) SetFriendPending(ctx context.Context, slackUserID string, params model.ConnectFriendParams) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			friend_code = $2,
			hwf_friend_id = $3,
			group_id = $4,
			friend_status = 'pending',
			updated_at = NOW()
		WHERE slack_user_id = $1
	`, slackUserID, params.FriendCode, params.HWFFriendID, params.GroupID)
	return err
}

func (r *userRepo) SetFriendConnected(ctx context.Context, slackUserID, friendName string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			friend_name = $2,
			friend_status = 'connected',
			updated_at = NOW()
		WHERE slack_user_id = $1
	`, slackUserID, friendName)
	return err
}

func (r *userRepo) ResetFriend(ctx context.Context, slackUserID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			friend_code = NULL,
			hwf_friend_id = NULL,
			group_id = NULL,
			friend_name = NULL,
			friend_status = 'none',
			updated_at = NOW()
		WHERE slack_user_id = $1
	`, slackUserID)
	return err
}
