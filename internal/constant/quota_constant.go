package constant

import "time"

// Tier ceilings. The free download window rolls per user; everything else
// resets on the daily sweep.
const (
	FreeAICeiling          = 10
	FreeDownloadCeiling    = 10
	PremiumAICeiling       = 100
	PremiumDownloadCeiling = 50

	FreeDownloadResetWindow = 30 * 24 * time.Hour
	PremiumDuration         = 30 * 24 * time.Hour

	DebitMarkerTTL = 48 * time.Hour
)

// Completion limits, taken over from the original service tuning.
const (
	MaxInputChars   = 1000
	MaxHistoryTurns = 4
	AttemptTimeout  = 10 * time.Second
	MaxAttempts     = 3
	BackoffBase     = 1 * time.Second
)

// Response cache.
const (
	CacheTTL        = 1 * time.Hour
	CacheKeyMaxLen  = 256
	CacheKeyPrefix  = "ai_cache:"
	SessionKeyTTL   = 24 * time.Hour
	SessionKeySpace = "session:"
)

// Search flow.
const (
	SearchPageSize = 5
	QueryMinLen    = 2
	QueryMaxLen    = 100
)
