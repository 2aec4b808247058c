package contract

import (
	"context"
	"time"

	"studybot/internal/entity"
	"studybot/internal/repository/specification"
)

// CounterField names a quota column that supports guarded decrements.
type CounterField string

const (
	CounterAI        CounterField = "ai_remaining"
	CounterDownloads CounterField = "downloads_remaining"
)

type UserRepository interface {
	// Ensure creates the user on first contact (insert-or-ignore) and
	// returns the stored row either way.
	Ensure(ctx context.Context, id int64, username *string) (*entity.User, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	FindIDs(ctx context.Context, specs ...specification.Specification) ([]int64, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	SetClass(ctx context.Context, id int64, class string) error
	TouchLastActive(ctx context.Context, id int64) error

	// TryDecrement performs the check-and-decrement as one guarded UPDATE
	// and reports whether a row was affected. It must never drive the
	// counter below zero.
	TryDecrement(ctx context.Context, id int64, field CounterField) (bool, error)

	GrantPremium(ctx context.Context, id int64, expiresAt time.Time, aiCeiling, downloadCeiling int) error
	RevertToFree(ctx context.Context, id int64, aiCeiling, downloadCeiling int, nextReset time.Time) error
	ExtendPremium(ctx context.Context, id int64, days int) error
	ResetDownloadWindow(ctx context.Context, id int64, ceiling int, nextReset time.Time) error
	// ResetDailyCeilings restores the ai counter for every user and the
	// download counter for premium users, per tier.
	ResetDailyCeilings(ctx context.Context, freeAI, premiumAI, premiumDownload int) error
}
