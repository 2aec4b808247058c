package specification

import "gorm.io/gorm"

type ByDocumentID struct {
	ID int64
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

type TitleContains struct {
	Term string
}

func (s TitleContains) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("title ILIKE ?", "%"+s.Term+"%")
}
