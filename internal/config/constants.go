package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Upstream HTTP client timeouts
const (
	TokenExchangeTimeout = 10 * time.Second
	DocumentCallTimeout  = 15 * time.Second
)

// Credentials are treated as stale this long before their nominal expiry
// so an in-flight request never carries a token that expires mid-call.
const (
	CredentialLifetime    = time.Hour
	CredentialExpirySkew  = 5 * time.Minute
)

// Slack Web API
const (
	SlackAPITimeout     = 10 * time.Second
	SlackPostsPerSecond = 1
	SlackPostBurst      = 3
)

// Delivery cache entries only shortcut the database check; the ledger row
// is the source of truth, so a short TTL is fine.
const DeliveryCacheTTL = 24 * time.Hour

// Slack retries events for up to an hour; keep dedup keys a little longer.
const EventDedupTTL = 2 * time.Hour
