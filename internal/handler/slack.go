package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hwfbot/relay-server-go/internal/audit"
	"github.com/hwfbot/relay-server-go/internal/config"
	apperrors "github.com/hwfbot/relay-server-go/internal/errors"
	"github.com/hwfbot/relay-server-go/internal/middleware"
	"github.com/hwfbot/relay-server-go/internal/model"
	"github.com/hwfbot/relay-server-go/internal/redis"
	"github.com/hwfbot/relay-server-go/internal/repository"
	"github.com/hwfbot/relay-server-go/internal/slack"
	"github.com/hwfbot/relay-server-go/internal/util"
)

// SlackGateway is the slice of the Slack client the handlers use.
type SlackGateway interface {
	OpenView(ctx context.Context, triggerID string, view map[string]any) error
	PostMessage(ctx context.Context, channelID, text string, blocks []map[string]any) (string, error)
	PublishHomeView(ctx context.Context, userID string, view map[string]any) error
	ConversationInfo(ctx context.Context, channelID string) (*slack.Channel, error)
	ConversationMembers(ctx context.Context, channelID string) ([]string, error)
	BotUserID(ctx context.Context) (string, error)
	UserProfile(ctx context.Context, userID string) (*slack.UserProfile, error)
}

// Connector starts the friend-code handshake and repaints the home tab.
type Connector interface {
	StartConnection(ctx context.Context, slackUserID, rawCode string) (*model.FriendInfo, error)
	RefreshHome(ctx context.Context, slackUserID string)
}

// Relayer runs an on-demand relay pass for one user.
type Relayer interface {
	RunForUser(ctx context.Context, userID string) (int, error)
}

type SlackHandler struct {
	userRepo    repository.UserRepository
	channelRepo repository.ChannelConfigRepository
	connector   Connector
	relayer     Relayer
	gateway     SlackGateway
	rdb         *redis.Client
}

func NewSlackHandler(
	userRepo repository.UserRepository,
	channelRepo repository.ChannelConfigRepository,
	connector Connector,
	relayer Relayer,
	gateway SlackGateway,
	rdb *redis.Client,
) *SlackHandler {
	return &SlackHandler{
		userRepo:    userRepo,
		channelRepo: channelRepo,
		connector:   connector,
		relayer:     relayer,
		gateway:     gateway,
		rdb:         rdb,
	}
}

// Events handles the Slack Events API: the URL handshake and home tab opens.
func (h *SlackHandler) Events(w http.ResponseWriter, r *http.Request) {
	body := middleware.GetRawBody(r.Context())

	var callback EventCallback
	if err := json.Unmarshal(body, &callback); err != nil {
		log.Warn().Err(err).Msg("invalid slack event payload")
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	switch callback.Type {
	case "url_verification":
		writeJSON(w, http.StatusOK, map[string]string{"challenge": callback.Challenge})

	case "event_callback":
		if h.seenEvent(r.Context(), callback.EventID) {
			w.WriteHeader(http.StatusOK)
			return
		}
		h.handleEvent(r.Context(), &callback)
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

// seenEvent marks the event id and reports whether a retry already got here.
// Without Redis every delivery looks new, which Slack's own retry semantics
// tolerate for home renders.
func (h *SlackHandler) seenEvent(ctx context.Context, eventID string) bool {
	if h.rdb == nil || eventID == "" {
		return false
	}
	fresh, err := h.rdb.SetNX(ctx, redis.EventKey(eventID), "1", config.EventDedupTTL).Result()
	if err != nil {
		log.Warn().Err(err).Str("eventId", eventID).Msg("event dedup check failed")
		return false
	}
	return !fresh
}

func (h *SlackHandler) handleEvent(ctx context.Context, callback *EventCallback) {
	event := callback.Event
	if event == nil {
		return
	}

	switch event.Type {
	case "app_home_opened":
		if event.Tab != "" && event.Tab != "home" {
			return
		}
		if err := h.userRepo.Create(ctx, event.User, callback.TeamID); err != nil {
			log.Error().Err(err).Str("slackUserId", event.User).Msg("user upsert failed")
		}
		h.connector.RefreshHome(ctx, event.User)

	default:
		log.Debug().Str("eventType", event.Type).Msg("ignoring slack event")
	}
}

// Interactive handles block actions and modal submissions.
func (h *SlackHandler) Interactive(w http.ResponseWriter, r *http.Request) {
	raw := r.FormValue("payload")
	if raw == "" {
		writeError(w, apperrors.ValidationError("Missing payload"))
		return
	}

	var payload InteractionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		log.Warn().Err(err).Msg("invalid slack interaction payload")
		writeError(w, apperrors.ValidationError("Invalid payload"))
		return
	}

	switch payload.Type {
	case "block_actions":
		h.handleBlockActions(r.Context(), &payload)
		w.WriteHeader(http.StatusOK)

	case "view_submission":
		h.handleViewSubmission(r.Context(), w, &payload)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *SlackHandler) handleBlockActions(ctx context.Context, payload *InteractionPayload) {
	if len(payload.Actions) == 0 {
		return
	}
	userID := payload.User.ID

	switch payload.Actions[0].ActionID {
	case slack.ActionAddFriendCode:
		if err := h.gateway.OpenView(ctx, payload.TriggerID, slack.FriendCodeModal()); err != nil {
			log.Error().Err(err).Msg("open friend code modal failed")
		}

	case slack.ActionSelectChannel:
		if err := h.gateway.OpenView(ctx, payload.TriggerID, slack.ChannelSelectModal()); err != nil {
			log.Error().Err(err).Msg("open channel modal failed")
		}

	case slack.ActionToggleActive:
		h.toggleActive(ctx, userID)

	case slack.ActionTestFeelings:
		h.testFeelings(userID)

	default:
		log.Debug().Str("actionId", payload.Actions[0].ActionID).Msg("ignoring block action")
	}
}

func (h *SlackHandler) toggleActive(ctx context.Context, slackUserID string) {
	user, err := h.userRepo.FindBySlackID(ctx, slackUserID)
	if err != nil || user == nil {
		log.Error().Err(err).Str("slackUserId", slackUserID).Msg("toggle: user load failed")
		return
	}

	configs, err := h.channelRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		log.Error().Err(err).Str("slackUserId", slackUserID).Msg("toggle: config load failed")
		return
	}

	anyActive := false
	for _, cfg := range configs {
		if cfg.IsActive {
			anyActive = true
			break
		}
	}

	if err := h.channelRepo.SetActiveForUser(ctx, user.ID, !anyActive); err != nil {
		log.Error().Err(err).Str("slackUserId", slackUserID).Msg("toggle: update failed")
		return
	}

	log.Info().Str("slackUserId", slackUserID).Bool("active", !anyActive).Msg("relay toggled")
	h.connector.RefreshHome(ctx, slackUserID)
}

// testFeelings runs one on-demand pass in the background; the interaction
// has to be acknowledged before Slack's three second deadline.
func (h *SlackHandler) testFeelings(slackUserID string) {
	go func() {
		ctx := context.Background()

		user, err := h.userRepo.FindBySlackID(ctx, slackUserID)
		if err != nil || user == nil {
			log.Error().Err(err).Str("slackUserId", slackUserID).Msg("test run: user load failed")
			return
		}

		posted, err := h.relayer.RunForUser(ctx, user.ID)
		if err != nil {
			log.Error().Err(err).Str("slackUserId", slackUserID).Msg("test run failed")
			h.notify(ctx, slackUserID, ":warning: Couldn't check feelings right now. Try again in a bit.")
			return
		}

		if posted == 0 {
			h.notify(ctx, slackUserID, "No new check-ins to post right now.")
			return
		}
		log.Info().Str("slackUserId", slackUserID).Int("posted", posted).Msg("test run posted check-ins")
	}()
}

func (h *SlackHandler) notify(ctx context.Context, slackUserID, text string) {
	if _, err := h.gateway.PostMessage(ctx, slackUserID, text, nil); err != nil {
		log.Warn().Err(err).Str("slackUserId", slackUserID).Msg("notify failed")
	}
}

func (h *SlackHandler) handleViewSubmission(ctx context.Context, w http.ResponseWriter, payload *InteractionPayload) {
	if payload.View == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch payload.View.CallbackID {
	case slack.CallbackFriendCodeModal:
		h.submitFriendCode(ctx, w, payload)

	case slack.CallbackChannelSelectModal:
		h.submitChannelSelect(ctx, w, payload)

	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *SlackHandler) submitFriendCode(ctx context.Context, w http.ResponseWriter, payload *InteractionPayload) {
	code := payload.View.State.InputValue(slack.BlockFriendCodeInput, slack.FieldFriendCode)

	_, err := h.connector.StartConnection(ctx, payload.User.ID, code)
	if err != nil {
		var message string
		switch {
		case apperrors.HasCode(err, apperrors.ErrCodeInvalidInput):
			message = "Friend codes are 6 letters or digits, like ABC123."
		case apperrors.HasCode(err, apperrors.ErrCodeNotFound):
			message = "No How We Feel user matches that code. Double-check it in the app."
		default:
			log.Error().Err(err).Str("slackUserId", payload.User.ID).Msg("connection start failed")
			message = "Something went wrong reaching How We Feel. Try again shortly."
		}
		writeJSON(w, http.StatusOK, NewErrorsResponse(map[string]string{
			slack.BlockFriendCodeInput: message,
		}))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *SlackHandler) submitChannelSelect(ctx context.Context, w http.ResponseWriter, payload *InteractionPayload) {
	channelID := payload.View.State.InputValue(slack.BlockChannelInput, slack.FieldChannelID)
	includeNotes := payload.View.State.SelectedValue(slack.BlockNotesInput, slack.FieldIncludeNotes) == "true"

	if !util.IsValidChannelID(channelID) {
		writeJSON(w, http.StatusOK, NewErrorsResponse(map[string]string{
			slack.BlockChannelInput: "That doesn't look like a channel ID. It starts with C, like C01234ABCDE.",
		}))
		return
	}

	if _, err := h.gateway.ConversationInfo(ctx, channelID); err != nil {
		writeJSON(w, http.StatusOK, NewErrorsResponse(map[string]string{
			slack.BlockChannelInput: "Can't see that channel. Invite the bot with /invite first.",
		}))
		return
	}

	if !h.botInChannel(ctx, channelID) {
		writeJSON(w, http.StatusOK, NewErrorsResponse(map[string]string{
			slack.BlockChannelInput: "The bot isn't in that channel yet. Invite it with /invite first.",
		}))
		return
	}

	user, err := h.userRepo.FindBySlackID(ctx, payload.User.ID)
	if err != nil || user == nil {
		log.Error().Err(err).Str("slackUserId", payload.User.ID).Msg("channel setup: user load failed")
		writeJSON(w, http.StatusOK, NewErrorsResponse(map[string]string{
			slack.BlockChannelInput: "Something went wrong saving the channel. Try again shortly.",
		}))
		return
	}

	if _, err := h.channelRepo.Upsert(ctx, model.UpsertChannelConfigParams{
		UserID:         user.ID,
		SlackChannelID: channelID,
		IncludeNotes:   includeNotes,
	}); err != nil {
		log.Error().Err(err).Str("slackUserId", payload.User.ID).Msg("channel setup: upsert failed")
		writeJSON(w, http.StatusOK, NewErrorsResponse(map[string]string{
			slack.BlockChannelInput: "Something went wrong saving the channel. Try again shortly.",
		}))
		return
	}

	audit.Log(ctx, audit.Event{
		Type:        audit.EventChannelConfigured,
		SlackUserID: payload.User.ID,
		ChannelID:   channelID,
		Details:     map[string]interface{}{"includeNotes": includeNotes},
	})

	h.announceChannel(ctx, payload.User.ID, channelID, includeNotes)
	h.connector.RefreshHome(ctx, payload.User.ID)
	w.WriteHeader(http.StatusOK)
}

// botInChannel checks the member list for the bot's own user id. For public
// channels conversations.info succeeds even when the bot isn't a member, so
// info alone cannot prove postMessage will work.
func (h *SlackHandler) botInChannel(ctx context.Context, channelID string) bool {
	botID, err := h.gateway.BotUserID(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("bot identity lookup failed, skipping membership check")
		return true
	}

	members, err := h.gateway.ConversationMembers(ctx, channelID)
	if err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msg("membership lookup failed")
		return false
	}

	for _, member := range members {
		if member == botID {
			return true
		}
	}
	return false
}

func (h *SlackHandler) announceChannel(ctx context.Context, slackUserID, channelID string, includeNotes bool) {
	name := slackUserID
	if profile, err := h.gateway.UserProfile(ctx, slackUserID); err == nil {
		name = profile.BestName()
	}

	text, blocks := slack.ChannelConfiguredMessage(name, includeNotes)
	if _, err := h.gateway.PostMessage(ctx, channelID, text, blocks); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msg("setup announcement failed")
	}
}
