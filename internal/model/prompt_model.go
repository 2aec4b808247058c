package model

// PromptProfile holds the AI system instructions for one class tag. The
// "default" tag is the fallback profile.
type PromptProfile struct {
	Id           int64  `gorm:"primaryKey;autoIncrement"`
	ClassTag     string `gorm:"type:varchar(20);not null;uniqueIndex"`
	SystemPrompt string `gorm:"type:text;not null"`
}

func (PromptProfile) TableName() string {
	return "prompt_profiles"
}
