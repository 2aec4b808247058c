package specification

import (
	"time"

	"gorm.io/gorm"
)

type ByUserID struct {
	ID int64
}

func (s ByUserID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

type PremiumOnly struct{}

func (s PremiumOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_premium = TRUE")
}

// PremiumExpiredBefore matches premium users whose plan ran out.
type PremiumExpiredBefore struct {
	At time.Time
}

func (s PremiumExpiredBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_premium = TRUE AND premium_expires_at IS NOT NULL AND premium_expires_at < ?", s.At)
}

// DownloadWindowExpiredBefore matches free users whose rolling download
// window has elapsed.
type DownloadWindowExpiredBefore struct {
	At time.Time
}

func (s DownloadWindowExpiredBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_premium = FALSE AND downloads_reset_at IS NOT NULL AND downloads_reset_at < ?", s.At)
}

type ActiveSince struct {
	At time.Time
}

func (s ActiveSince) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("last_active >= ?", s.At)
}
