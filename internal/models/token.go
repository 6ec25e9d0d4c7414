package models

import "time"

// PasswordResetToken is a single-use token redeemable for a password change.
type PasswordResetToken struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Token  string `gorm:"type:text;not null;uniqueIndex"` // Random unguessable token.
	UserID uint64 `gorm:"not null;index"`                 // Owning user ID.

	ExpiresAt time.Time `gorm:"not null"` // Expiry instant, compared at use time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TwoFactorToken is an emailed one-time code awaiting redemption.
// At most one live token exists per email; issuing a new one replaces it.
type TwoFactorToken struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email string `gorm:"type:text;not null;uniqueIndex"` // Owning email address.
	Code  string `gorm:"type:text;not null"`             // Numeric one-time code.

	ExpiresAt time.Time `gorm:"not null"` // Expiry instant, compared at use time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// TwoFactorConfirmation marks that a user has just passed the second factor.
// Session issuance consumes it exactly once per login.
type TwoFactorConfirmation struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex"` // Owning user ID.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
