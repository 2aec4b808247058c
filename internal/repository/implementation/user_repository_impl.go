package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studybot/internal/entity"
	"studybot/internal/mapper"
	"studybot/internal/model"
	"studybot/internal/repository/contract"
	"studybot/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewUserRepository(db *gorm.DB) contract.UserRepository {
	return &UserRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *UserRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *UserRepositoryImpl) Ensure(ctx context.Context, id int64, username *string) (*entity.User, error) {
	row := &model.User{
		Id:       id,
		Username: username,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.FindOne(ctx, specification.ByUserID{ID: id})
}

func (r *UserRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	var row model.User
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.mapper.ToEntity(&row), nil
}

func (r *UserRepositoryImpl) FindIDs(ctx context.Context, specs ...specification.Specification) ([]int64, error) {
	var ids []int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.User{}), specs...)
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *UserRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.User{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UserRepositoryImpl) SetClass(ctx context.Context, id int64, class string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"selected_class": class,
			"last_active":    time.Now().UTC(),
		}).Error
}

func (r *UserRepositoryImpl) TouchLastActive(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("last_active", time.Now().UTC()).Error
}

// TryDecrement is the one place that must be race-safe: the WHERE guard and
// the decrement run as a single UPDATE, so two concurrent calls can never
// both win the last unit.
func (r *UserRepositoryImpl) TryDecrement(ctx context.Context, id int64, field contract.CounterField) (bool, error) {
	col := string(field)
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where(fmt.Sprintf("id = ? AND %s > 0", col), id).
		Updates(map[string]interface{}{
			col:           gorm.Expr(col + " - 1"),
			"last_active": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *UserRepositoryImpl) GrantPremium(ctx context.Context, id int64, expiresAt time.Time, aiCeiling, downloadCeiling int) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_premium":          true,
			"premium_expires_at":  expiresAt,
			"ai_remaining":        aiCeiling,
			"downloads_remaining": downloadCeiling,
			"downloads_reset_at":  nil,
		}).Error
}

func (r *UserRepositoryImpl) RevertToFree(ctx context.Context, id int64, aiCeiling, downloadCeiling int, nextReset time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_premium":          false,
			"premium_expires_at":  nil,
			"ai_remaining":        aiCeiling,
			"downloads_remaining": downloadCeiling,
			"downloads_reset_at":  nextReset,
		}).Error
}

func (r *UserRepositoryImpl) ExtendPremium(ctx context.Context, id int64, days int) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND is_premium = TRUE", id).
		Update("premium_expires_at", gorm.Expr("premium_expires_at + ?::interval", fmt.Sprintf("%d days", days))).Error
}

func (r *UserRepositoryImpl) ResetDownloadWindow(ctx context.Context, id int64, ceiling int, nextReset time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND is_premium = FALSE", id).
		Updates(map[string]interface{}{
			"downloads_remaining": ceiling,
			"downloads_reset_at":  nextReset,
		}).Error
}

func (r *UserRepositoryImpl) ResetDailyCeilings(ctx context.Context, freeAI, premiumAI, premiumDownload int) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("1 = 1").
		Update("ai_remaining", gorm.Expr("CASE WHEN is_premium THEN ? ELSE ? END", premiumAI, freeAI)).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("is_premium = TRUE").
		Update("downloads_remaining", premiumDownload).Error
}
