package quota

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"studybot/internal/constant"
	"studybot/internal/entity"
	"studybot/internal/pkg/logger"
	"studybot/internal/repository/contract"
	"studybot/internal/repository/specification"
)

// Resource names a debitable quota bucket.
type Resource string

const (
	ResourceAI       Resource = "ai"
	ResourceDownload Resource = "download"
)

var (
	ErrUnknownResource = errors.New("quota: unknown resource")
	ErrUserNotFound    = errors.New("quota: user not found")
)

func (r Resource) field() (contract.CounterField, error) {
	switch r {
	case ResourceAI:
		return contract.CounterAI, nil
	case ResourceDownload:
		return contract.CounterDownloads, nil
	default:
		return "", ErrUnknownResource
	}
}

// markerStore is the slice of the redis client the dedupe markers need.
type markerStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Ledger mediates every balance mutation. Debits go through the
// repository's guarded UPDATE so concurrent requests can never spend the
// same unit twice, and an optional redis marker deduplicates redelivered
// events by id.
type Ledger struct {
	users   contract.UserRepository
	markers markerStore
	log     logger.ILogger
}

func NewLedger(users contract.UserRepository, rdb *redis.Client, log logger.ILogger) *Ledger {
	l := &Ledger{users: users, log: log}
	if rdb != nil {
		l.markers = rdb
	}
	return l
}

// TryDebit spends one unit of res for the user. eventID, when non-empty,
// makes the debit idempotent across redeliveries of the same event: a
// repeated id reports success without touching the balance again. The
// dedupe marker is best-effort; if redis is unreachable the debit still
// goes through.
func (l *Ledger) TryDebit(ctx context.Context, userID int64, res Resource, eventID string) (bool, error) {
	field, err := res.field()
	if err != nil {
		return false, err
	}

	claimed := false
	if eventID != "" && l.markers != nil {
		fresh, err := l.markers.SetNX(ctx, "debit:"+eventID, 1, constant.DebitMarkerTTL).Result()
		if err != nil {
			l.log.Warn("quota", "debit dedupe unavailable, proceeding", map[string]interface{}{
				"error": err.Error(),
			})
		} else if !fresh {
			return true, nil
		} else {
			claimed = true
		}
	}

	ok, err := l.users.TryDecrement(ctx, userID, field)
	if claimed && (err != nil || !ok) {
		// The marker was claimed but nothing was spent; release it so a
		// later retry of the same event is not silently swallowed.
		if delErr := l.markers.Del(ctx, "debit:"+eventID).Err(); delErr != nil {
			l.log.Warn("quota", "failed to release debit marker", map[string]interface{}{
				"event_id": eventID,
				"error":    delErr.Error(),
			})
		}
	}
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Balance reports the remaining units of res without spending any.
func (l *Ledger) Balance(ctx context.Context, userID int64, res Resource) (int, error) {
	if _, err := res.field(); err != nil {
		return 0, err
	}
	u, err := l.users.FindOne(ctx, specification.ByUserID{ID: userID})
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, ErrUserNotFound
	}
	if res == ResourceAI {
		return u.AIRemaining, nil
	}
	return u.DownloadsRemaining, nil
}

// GrantPremium upgrades the user for constant.PremiumDuration from now and
// refills both counters to the premium ceilings.
func (l *Ledger) GrantPremium(ctx context.Context, userID int64) (time.Time, error) {
	expiresAt := time.Now().UTC().Add(constant.PremiumDuration)
	err := l.users.GrantPremium(ctx, userID, expiresAt,
		constant.PremiumAICeiling, constant.PremiumDownloadCeiling)
	return expiresAt, err
}

// ExtendPremium pushes the user's expiry out by the given number of days.
func (l *Ledger) ExtendPremium(ctx context.Context, userID int64, days int) error {
	return l.users.ExtendPremium(ctx, userID, days)
}

// RevertToFree downgrades the user immediately: free ceilings and a fresh
// rolling download window.
func (l *Ledger) RevertToFree(ctx context.Context, userID int64) error {
	nextReset := time.Now().UTC().Add(constant.FreeDownloadResetWindow)
	return l.users.RevertToFree(ctx, userID,
		constant.FreeAICeiling, constant.FreeDownloadCeiling, nextReset)
}

// MaybeReset applies any per-user resets that are due before a balance is
// consulted: an expired premium plan reverts to free, and a free user whose
// rolling download window has lapsed gets the window refilled. It returns
// the user's row after any adjustment.
func (l *Ledger) MaybeReset(ctx context.Context, userID int64) (*entity.User, error) {
	u, err := l.users.FindOne(ctx, specification.ByUserID{ID: userID})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	now := time.Now().UTC()

	if u.IsPremium && u.PremiumExpiresAt != nil && u.PremiumExpiresAt.Before(now) {
		if err := l.RevertToFree(ctx, userID); err != nil {
			return nil, err
		}
		return l.users.FindOne(ctx, specification.ByUserID{ID: userID})
	}

	if !u.IsPremium && u.DownloadsResetAt != nil && u.DownloadsResetAt.Before(now) {
		nextReset := now.Add(constant.FreeDownloadResetWindow)
		if err := l.users.ResetDownloadWindow(ctx, userID, constant.FreeDownloadCeiling, nextReset); err != nil {
			return nil, err
		}
		return l.users.FindOne(ctx, specification.ByUserID{ID: userID})
	}

	return u, nil
}
