package hwf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hwfbot/relay-server-go/internal/config"
	apperrors "github.com/hwfbot/relay-server-go/internal/errors"
	"github.com/hwfbot/relay-server-go/internal/model"
)

const (
	groupsCollection = "groups"
	botMemberName    = "hwfbot"
	fallbackName     = "N/A"
)

// Client performs document operations against the upstream store on behalf
// of the bot's account. Every method acquires a credential first; a failed
// exchange surfaces as an AUTH_ERROR and the caller degrades.
type Client struct {
	session *Session
	client  *http.Client

	// Endpoint bases, overridable in tests.
	documentsURL string
	lookupURL    string
}

func NewClient(projectID string, session *Session) *Client {
	return &Client{
		session: session,
		client:  &http.Client{Timeout: config.DocumentCallTimeout},
		documentsURL: fmt.Sprintf(
			"https://firestore.googleapis.com/v1/projects/%s/databases/(default)/documents", projectID),
		lookupURL: fmt.Sprintf(
			"https://us-central1-%s.cloudfunctions.net/getUserCode", projectID),
	}
}

// LookupUserByCode resolves a friend code through the server-side lookup
// function. Returns (nil, nil) when the code does not map to a user.
func (c *Client) LookupUserByCode(ctx context.Context, code string) (*model.FriendInfo, error) {
	cred, err := c.session.Credential(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"data": map[string]any{"code": code}}

	var out struct {
		Result struct {
			User *model.FriendInfo `json:"user"`
		} `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.lookupURL, cred.IDToken, payload, &out); err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return out.Result.User, nil
}

// CreatePendingGroup creates the connection-group document for a new friend
// request: the bot's membership starts accepted, the invitee's does not.
// Returns the server-generated group id.
func (c *Client) CreatePendingGroup(ctx context.Context, friend *model.FriendInfo) (string, error) {
	cred, err := c.session.Credential(ctx)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	group := map[string]any{
		"name":       "",
		"memberIds":  []any{cred.UserID, friend.UID},
		"checkIns":   map[string]any{},
		"createdAt":  now,
		"modifiedAt": now,
		"membership": map[string]any{
			cred.UserID: map[string]any{
				"id":           cred.UserID,
				"name":         botMemberName,
				"imagePath":    "",
				"accepted":     true,
				"checkInCount": int64(0),
				"createdAt":    now,
				"modifiedAt":   now,
			},
			friend.UID: map[string]any{
				"id":           friend.UID,
				"name":         friend.Name,
				"imagePath":    friend.ImagePath,
				"accepted":     false,
				"checkInCount": int64(0),
				"createdAt":    now,
				"modifiedAt":   now,
			},
		},
	}

	payload := map[string]any{"fields": EncodeDocument(group)}

	var out struct {
		Name string `json:"name"`
	}
	url := fmt.Sprintf("%s/%s", c.documentsURL, groupsCollection)
	if err := c.doJSON(ctx, http.MethodPost, url, cred.IDToken, payload, &out); err != nil {
		return "", err
	}
	if out.Name == "" {
		return "", apperrors.Transport("group create", fmt.Errorf("response carried no resource name"))
	}

	return path.Base(out.Name), nil
}

type queryEnvelope struct {
	Document *wireDocument `json:"document"`
}

type wireDocument struct {
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields"`
}

// FriendSnapshots runs the membership query for the bot's account and
// flattens every group into one snapshot per other member.
func (c *Client) FriendSnapshots(ctx context.Context) ([]model.FriendSnapshot, error) {
	cred, err := c.session.Credential(ctx)
	if err != nil {
		return nil, err
	}

	query := map[string]any{
		"structuredQuery": map[string]any{
			"from": []any{map[string]any{"collectionId": groupsCollection}},
			"where": map[string]any{
				"fieldFilter": map[string]any{
					"field": map[string]any{"fieldPath": "memberIds"},
					"op":    "ARRAY_CONTAINS",
					"value": map[string]any{"stringValue": cred.UserID},
				},
			},
		},
	}

	var envelopes []queryEnvelope
	url := fmt.Sprintf("%s:runQuery", c.documentsURL)
	if err := c.doJSON(ctx, http.MethodPost, url, cred.IDToken, query, &envelopes); err != nil {
		return nil, err
	}

	var snapshots []model.FriendSnapshot
	for _, envelope := range envelopes {
		if envelope.Document == nil {
			continue
		}
		group := decodeGroup(envelope.Document)
		snapshots = append(snapshots, flattenGroup(group, cred.UserID)...)
	}

	return snapshots, nil
}

// FetchGroup retrieves one connection group by id.
func (c *Client) FetchGroup(ctx context.Context, groupID string) (*model.ConnectionGroup, error) {
	cred, err := c.session.Credential(ctx)
	if err != nil {
		return nil, err
	}

	var doc wireDocument
	url := fmt.Sprintf("%s/%s/%s", c.documentsURL, groupsCollection, groupID)
	if err := c.doJSON(ctx, http.MethodGet, url, cred.IDToken, nil, &doc); err != nil {
		return nil, err
	}

	return decodeGroup(&doc), nil
}

func (c *Client) doJSON(ctx context.Context, method, url, token string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperrors.Transport("encode request", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return apperrors.Transport("create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("upstream request failed")
		return apperrors.Transport("upstream request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NotFound("upstream resource")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().Int("status", resp.StatusCode).Str("url", url).Msg("upstream request rejected")
		return apperrors.Transport("upstream request",
			fmt.Errorf("status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Transport("decode response", err)
	}
	return nil
}

// decodeGroup resolves a wire document into a ConnectionGroup. Missing or
// oddly typed fields come back as zero values; the upstream schema has
// drifted before and a partial group is still usable.
func decodeGroup(doc *wireDocument) *model.ConnectionGroup {
	data := DecodeDocument(doc.Fields)

	group := &model.ConnectionGroup{
		ID:         path.Base(doc.Name),
		Name:       stringOrEmpty(data["name"]),
		Membership: map[string]model.Membership{},
		CheckIns:   map[string]model.CheckIn{},
	}

	if members, ok := data["memberIds"].([]any); ok {
		for _, m := range members {
			if id, ok := m.(string); ok {
				group.MemberIDs = append(group.MemberIDs, id)
			}
		}
	}

	if membership, ok := data["membership"].(map[string]any); ok {
		for memberID, raw := range membership {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			group.Membership[memberID] = model.Membership{
				ID:           stringOrEmpty(entry["id"]),
				Name:         stringOrEmpty(entry["name"]),
				Accepted:     boolOrFalse(entry["accepted"]),
				CheckInCount: intOrZero(entry["checkInCount"]),
			}
		}
	}

	if checkIns, ok := data["checkIns"].(map[string]any); ok {
		for memberID, raw := range checkIns {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			checkIn := model.CheckIn{
				ID:   stringOrEmpty(entry["id"]),
				Note: stringOrEmpty(entry["note"]),
			}
			if moods, ok := entry["moodNames"].([]any); ok {
				for _, mood := range moods {
					if name, ok := mood.(string); ok {
						checkIn.MoodNames = append(checkIn.MoodNames, name)
					}
				}
			}
			group.CheckIns[memberID] = checkIn
		}
	}

	return group
}

// flattenGroup produces one snapshot per member other than selfID.
func flattenGroup(group *model.ConnectionGroup, selfID string) []model.FriendSnapshot {
	var snapshots []model.FriendSnapshot
	for memberID, member := range group.Membership {
		if memberID == selfID {
			continue
		}

		snapshot := model.FriendSnapshot{
			GroupID:    group.ID,
			FriendID:   memberID,
			FriendName: member.Name,
			Accepted:   member.Accepted,
			Moods:      []string{},
		}
		if snapshot.FriendName == "" {
			snapshot.FriendName = fallbackName
		}

		if checkIn, ok := group.CheckIns[memberID]; ok {
			snapshot.HasCheckin = true
			snapshot.CheckinID = checkIn.ID
			snapshot.Note = checkIn.Note
			if len(checkIn.MoodNames) > 0 {
				snapshot.Moods = checkIn.MoodNames
			}
		}

		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}

func stringOrEmpty(v any) string {
	s, _ := v.(string)
	return s
}

func boolOrFalse(v any) bool {
	b, _ := v.(bool)
	return b
}

func intOrZero(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
