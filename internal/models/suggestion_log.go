package models

import (
	"time"

	"gorm.io/datatypes"
)

// SuggestionLog records one exchange with the form-suggestion service.
type SuggestionLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // Requesting user ID.

	Request     datatypes.JSON `gorm:"type:jsonb;not null"` // Raw request payload.
	Suggestions string         `gorm:"type:text"`           // Returned suggestion text.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
