package entity

import "time"

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

type User struct {
	Id                 int64
	Username           *string
	SelectedClass      string
	IsPremium          bool
	PremiumExpiresAt   *time.Time
	AIRemaining        int
	DownloadsRemaining int
	DownloadsResetAt   *time.Time
	FirstSeen          time.Time
	LastActive         time.Time
}

func (u *User) Tier() Tier {
	if u.IsPremium {
		return TierPremium
	}
	return TierFree
}
