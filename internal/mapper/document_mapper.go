package mapper

import (
	"studybot/internal/entity"
	"studybot/internal/model"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	return &entity.Document{
		Id:             d.Id,
		Title:          d.Title,
		Link:           d.Link,
		IsFree:         d.IsFree,
		ClassTag:       d.ClassTag,
		SearchKeywords: d.SearchKeywords,
	}
}

func (m *DocumentMapper) ToEntities(models []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(models))
	for i, d := range models {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
