package implementation

import (
	"context"
	"errors"

	"studybot/internal/constant"
	"studybot/internal/model"
	"studybot/internal/pkg/logger"
	"studybot/internal/repository/contract"

	"gorm.io/gorm"
)

type PromptRepositoryImpl struct {
	db  *gorm.DB
	log logger.ILogger
}

func NewPromptRepository(db *gorm.DB, log logger.ILogger) contract.PromptRepository {
	return &PromptRepositoryImpl{db: db, log: log}
}

func (r *PromptRepositoryImpl) SystemPromptFor(ctx context.Context, classTag string) string {
	if p, ok := r.lookup(ctx, classTag); ok {
		return p
	}
	if p, ok := r.lookup(ctx, "default"); ok {
		return p
	}
	return constant.DefaultSystemPrompt
}

func (r *PromptRepositoryImpl) lookup(ctx context.Context, tag string) (string, bool) {
	var row model.PromptProfile
	err := r.db.WithContext(ctx).Where("class_tag = ?", tag).First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn("prompt", "prompt profile lookup failed", map[string]interface{}{
				"class_tag": tag,
				"error":     err.Error(),
			})
		}
		return "", false
	}
	return row.SystemPrompt, true
}
