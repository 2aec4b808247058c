package model

// Document is one downloadable item in the catalog. SearchKeywords feeds the
// GIN full-text index; the link itself is an external storage URL.
type Document struct {
	Id             int64  `gorm:"primaryKey;autoIncrement"`
	Title          string `gorm:"type:varchar(255);not null"`
	Link           string `gorm:"type:text;not null"`
	IsFree         bool   `gorm:"not null;default:false"`
	ClassTag       string `gorm:"type:varchar(20);not null;index"`
	SearchKeywords string `gorm:"type:text"`
}

func (Document) TableName() string {
	return "documents"
}
