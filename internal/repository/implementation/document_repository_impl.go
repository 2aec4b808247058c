package implementation

import (
	"context"
	"errors"

	"studybot/internal/entity"
	"studybot/internal/mapper"
	"studybot/internal/model"
	"studybot/internal/repository/contract"
	"studybot/internal/repository/specification"

	"gorm.io/gorm"
)

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Search delegates matching to Postgres full-text over title+keywords, with
// an ILIKE fallback so partial words still hit. Free documents sort first so
// free-tier users see something usable on page one.
func (r *DocumentRepositoryImpl) Search(ctx context.Context, classTag, query string, page, pageSize int) ([]*entity.Document, int, error) {
	base := r.db.WithContext(ctx).Model(&model.Document{}).
		Where("class_tag = ?", classTag).
		Where(
			"to_tsvector('simple', title || ' ' || COALESCE(search_keywords, '')) @@ plainto_tsquery('simple', ?)"+
				" OR title ILIKE ? OR search_keywords ILIKE ?",
			query, "%"+query+"%", "%"+query+"%",
		)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, nil
	}

	var rows []*model.Document
	err := base.Session(&gorm.Session{}).
		Order("is_free DESC, title ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return r.mapper.ToEntities(rows), totalPages, nil
}

func (r *DocumentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	var row model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return r.mapper.ToEntity(&row), nil
}

func (r *DocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	var rows []*model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	return r.mapper.ToEntities(rows), nil
}

func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Document{}).Error
}
