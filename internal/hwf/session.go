package hwf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hwfbot/relay-server-go/internal/config"
	apperrors "github.com/hwfbot/relay-server-go/internal/errors"
)

const defaultTokenURL = "https://securetoken.googleapis.com/v1/token"

// Credential is the bearer identity for all upstream calls. Owned by the
// Session; treated as stale five minutes before its nominal expiry so an
// in-flight request never outlives its token.
type Credential struct {
	IDToken string
	UserID  string
	Expiry  time.Time
}

// Session owns the single cached credential and refreshes it via the
// identity provider's refresh-token exchange when stale or absent. The
// mutex only saves redundant exchanges; a lost race would cost an extra
// network call, never a wrong credential.
type Session struct {
	apiKey       string
	refreshToken string
	tokenURL     string
	client       *http.Client
	now          func() time.Time

	mu     sync.Mutex
	cached *Credential
}

func NewSession(apiKey, refreshToken string) *Session {
	return &Session{
		apiKey:       apiKey,
		refreshToken: refreshToken,
		tokenURL:     defaultTokenURL,
		client:       &http.Client{Timeout: config.TokenExchangeTimeout},
		now:          time.Now,
	}
}

// Credential returns the cached credential while it is still fresh,
// otherwise performs a refresh-token exchange and caches the result.
func (s *Session) Credential(ctx context.Context) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Before(s.cached.Expiry.Add(-config.CredentialExpirySkew)) {
		return s.cached, nil
	}

	cred, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}

	s.cached = cred
	return cred, nil
}

type tokenResponse struct {
	IDToken string `json:"id_token"`
	UserID  string `json:"user_id"`
}

func (s *Session) refresh(ctx context.Context) (*Credential, error) {
	payload, err := json.Marshal(map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": s.refreshToken,
	})
	if err != nil {
		return nil, apperrors.Auth("encode token request", err)
	}

	url := fmt.Sprintf("%s?key=%s", s.tokenURL, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Auth("create token request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("token exchange request failed")
		return nil, apperrors.Auth("token exchange", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().Int("status", resp.StatusCode).Msg("token exchange rejected")
		return nil, apperrors.Auth(fmt.Sprintf("token exchange returned status %d", resp.StatusCode), nil)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, apperrors.Auth("decode token response", err)
	}

	// The provider does not advertise a lifetime worth trusting; assume a
	// conservative fixed hour.
	cred := &Credential{
		IDToken: token.IDToken,
		UserID:  token.UserID,
		Expiry:  s.now().Add(config.CredentialLifetime),
	}

	log.Debug().Str("userId", cred.UserID).Time("expiry", cred.Expiry).Msg("credential refreshed")
	return cred, nil
}
