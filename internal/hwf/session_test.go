package hwf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, handler http.HandlerFunc) (*Session, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	session := NewSession("test-key", "test-refresh")
	session.tokenURL = server.URL
	session.client = server.Client()
	return session, server
}

func tokenHandler(calls *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["grant_type"] != "refresh_token" || body["refresh_token"] != "test-refresh" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]string{
			"id_token": "fresh-token",
			"user_id":  "bot-uid",
		})
	}
}

func TestSessionCredential(t *testing.T) {
	t.Run("exchanges refresh token on first call", func(t *testing.T) {
		var calls atomic.Int64
		session, _ := newTestSession(t, tokenHandler(&calls))

		cred, err := session.Credential(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "fresh-token", cred.IDToken)
		assert.Equal(t, "bot-uid", cred.UserID)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("caches the credential for subsequent calls", func(t *testing.T) {
		var calls atomic.Int64
		session, _ := newTestSession(t, tokenHandler(&calls))

		first, err := session.Credential(context.Background())
		require.NoError(t, err)
		second, err := session.Credential(context.Background())
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("serves cached credential six minutes before expiry", func(t *testing.T) {
		var calls atomic.Int64
		session, _ := newTestSession(t, tokenHandler(&calls))

		expiry := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
		session.cached = &Credential{IDToken: "cached", UserID: "bot-uid", Expiry: expiry}
		session.now = func() time.Time { return expiry.Add(-6 * time.Minute) }

		cred, err := session.Credential(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "cached", cred.IDToken)
		assert.Equal(t, int64(0), calls.Load())
	})

	t.Run("refreshes four minutes before expiry", func(t *testing.T) {
		var calls atomic.Int64
		session, _ := newTestSession(t, tokenHandler(&calls))

		expiry := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
		session.cached = &Credential{IDToken: "cached", UserID: "bot-uid", Expiry: expiry}
		session.now = func() time.Time { return expiry.Add(-4 * time.Minute) }

		cred, err := session.Credential(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "fresh-token", cred.IDToken)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("new expiry is one hour from refresh", func(t *testing.T) {
		var calls atomic.Int64
		session, _ := newTestSession(t, tokenHandler(&calls))

		now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
		session.now = func() time.Time { return now }

		cred, err := session.Credential(context.Background())
		require.NoError(t, err)
		assert.Equal(t, now.Add(time.Hour), cred.Expiry)
	})

	t.Run("returns auth error on non-success status", func(t *testing.T) {
		session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		cred, err := session.Credential(context.Background())
		assert.Nil(t, cred)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AUTH_ERROR")
	})

	t.Run("does not cache a failed exchange", func(t *testing.T) {
		var fail atomic.Bool
		fail.Store(true)
		var calls atomic.Int64
		ok := tokenHandler(&calls)
		session, _ := newTestSession(t, func(w http.ResponseWriter, r *http.Request) {
			if fail.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			ok(w, r)
		})

		_, err := session.Credential(context.Background())
		require.Error(t, err)

		fail.Store(false)
		cred, err := session.Credential(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "fresh-token", cred.IDToken)
	})
}
