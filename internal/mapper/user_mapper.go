package mapper

import (
	"studybot/internal/entity"
	"studybot/internal/model"
)

type UserMapper struct{}

func NewUserMapper() *UserMapper {
	return &UserMapper{}
}

func (m *UserMapper) ToModel(e *entity.User) *model.User {
	return &model.User{
		Id:                 e.Id,
		Username:           e.Username,
		SelectedClass:      e.SelectedClass,
		IsPremium:          e.IsPremium,
		PremiumExpiresAt:   e.PremiumExpiresAt,
		AIRemaining:        e.AIRemaining,
		DownloadsRemaining: e.DownloadsRemaining,
		DownloadsResetAt:   e.DownloadsResetAt,
		FirstSeen:          e.FirstSeen,
		LastActive:         e.LastActive,
	}
}

func (m *UserMapper) ToEntity(u *model.User) *entity.User {
	return &entity.User{
		Id:                 u.Id,
		Username:           u.Username,
		SelectedClass:      u.SelectedClass,
		IsPremium:          u.IsPremium,
		PremiumExpiresAt:   u.PremiumExpiresAt,
		AIRemaining:        u.AIRemaining,
		DownloadsRemaining: u.DownloadsRemaining,
		DownloadsResetAt:   u.DownloadsResetAt,
		FirstSeen:          u.FirstSeen,
		LastActive:         u.LastActive,
	}
}

func (m *UserMapper) ToEntities(models []*model.User) []*entity.User {
	entities := make([]*entity.User, len(models))
	for i, u := range models {
		entities[i] = m.ToEntity(u)
	}
	return entities
}
