// Package slack is a thin Slack Web API client covering the handful of
// methods the bot uses. Slack-level "ok": false replies are mapped into the
// application error taxonomy so callers can special-case dead channels.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hwfbot/relay-server-go/internal/config"
	apperrors "github.com/hwfbot/relay-server-go/internal/errors"
)

const defaultBaseURL = "https://slack.com/api"

// Slack error strings that mean the destination is gone for our purposes.
var goneChannelErrors = map[string]bool{
	"channel_not_found": true,
	"not_in_channel":    true,
	"is_archived":       true,
	"account_inactive":  true,
}

type Client struct {
	token   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: config.SlackAPITimeout},
		limiter: rate.NewLimiter(rate.Limit(config.SlackPostsPerSecond), config.SlackPostBurst),
	}
}

type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserProfile struct {
	RealName    string `json:"real_name"`
	DisplayName string `json:"display_name"`
	Name        string `json:"name"`
}

// BestName picks the friendliest available display name.
func (p *UserProfile) BestName() string {
	if p.RealName != "" {
		return p.RealName
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// PostMessage posts to a channel and returns the message timestamp. Posts
// are rate limited client-side to stay under Slack's per-channel ceiling.
func (c *Client) PostMessage(ctx context.Context, channelID, text string, blocks []map[string]any) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", apperrors.Transport("chat.postMessage", err)
	}

	payload := map[string]any{
		"channel": channelID,
		"text":    text,
	}
	if len(blocks) > 0 {
		payload["blocks"] = blocks
	}

	var out struct {
		TS string `json:"ts"`
	}
	if err := c.call(ctx, "chat.postMessage", payload, &out); err != nil {
		return "", err
	}
	return out.TS, nil
}

// PublishHomeView publishes the user's App Home tab.
func (c *Client) PublishHomeView(ctx context.Context, userID string, view map[string]any) error {
	payload := map[string]any{
		"user_id": userID,
		"view":    view,
	}
	return c.call(ctx, "views.publish", payload, nil)
}

// OpenView opens a modal against an interaction trigger.
func (c *Client) OpenView(ctx context.Context, triggerID string, view map[string]any) error {
	payload := map[string]any{
		"trigger_id": triggerID,
		"view":       view,
	}
	return c.call(ctx, "views.open", payload, nil)
}

func (c *Client) ConversationInfo(ctx context.Context, channelID string) (*Channel, error) {
	var out struct {
		Channel Channel `json:"channel"`
	}
	payload := map[string]any{"channel": channelID}
	if err := c.call(ctx, "conversations.info", payload, &out); err != nil {
		return nil, err
	}
	return &out.Channel, nil
}

func (c *Client) ConversationMembers(ctx context.Context, channelID string) ([]string, error) {
	var out struct {
		Members []string `json:"members"`
	}
	payload := map[string]any{"channel": channelID}
	if err := c.call(ctx, "conversations.members", payload, &out); err != nil {
		return nil, err
	}
	return out.Members, nil
}

// BotUserID resolves the bot's own user id via auth.test.
func (c *Client) BotUserID(ctx context.Context) (string, error) {
	var out struct {
		UserID string `json:"user_id"`
	}
	if err := c.call(ctx, "auth.test", map[string]any{}, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

func (c *Client) UserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	var out struct {
		User struct {
			RealName string      `json:"real_name"`
			Name     string      `json:"name"`
			Profile  UserProfile `json:"profile"`
		} `json:"user"`
	}
	payload := map[string]any{"user": userID}
	if err := c.call(ctx, "users.info", payload, &out); err != nil {
		return nil, err
	}

	profile := out.User.Profile
	if profile.RealName == "" {
		profile.RealName = out.User.RealName
	}
	if profile.Name == "" {
		profile.Name = out.User.Name
	}
	return &profile, nil
}

type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Transport(method, err)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Transport(method, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", method).Msg("slack api request failed")
		return apperrors.Transport(method, err)
	}
	defer resp.Body.Close()

	raw := new(bytes.Buffer)
	if _, err := raw.ReadFrom(resp.Body); err != nil {
		return apperrors.Transport(method, err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw.Bytes(), &envelope); err != nil {
		return apperrors.Transport(method, err)
	}

	if !envelope.OK {
		if goneChannelErrors[envelope.Error] {
			return apperrors.NotFound("channel").WithDetails(envelope.Error)
		}
		log.Warn().Str("method", method).Str("slackError", envelope.Error).Msg("slack api returned error")
		return apperrors.Transport(method, fmt.Errorf("slack: %s", envelope.Error))
	}

	if out != nil {
		if err := json.Unmarshal(raw.Bytes(), out); err != nil {
			return apperrors.Transport(method, err)
		}
	}
	return nil
}
