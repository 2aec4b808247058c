package model

import "time"

// User mirrors the users table. The id is the opaque sender id assigned by
// the chat platform, never generated here.
type User struct {
	Id                 int64   `gorm:"primaryKey;autoIncrement:false"`
	Username           *string `gorm:"type:varchar(100)"`
	SelectedClass      string  `gorm:"type:varchar(20);not null;default:'none'"`
	IsPremium          bool    `gorm:"not null;default:false"`
	PremiumExpiresAt   *time.Time
	AIRemaining        int `gorm:"column:ai_remaining;not null;default:10"`
	DownloadsRemaining int `gorm:"not null;default:10"`
	DownloadsResetAt   *time.Time
	FirstSeen          time.Time `gorm:"autoCreateTime"`
	LastActive         time.Time `gorm:"autoCreateTime"`
}

func (User) TableName() string {
	return "users"
}
