package contract

import (
	"context"

	"studybot/internal/entity"
	"studybot/internal/repository/specification"
)

type DocumentRepository interface {
	// Search runs the full-text query scoped to one class and returns the
	// requested page plus the total number of pages.
	Search(ctx context.Context, classTag, query string, page, pageSize int) ([]*entity.Document, int, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Delete(ctx context.Context, id int64) error
}
