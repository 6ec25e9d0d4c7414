package models

import "time"

// User represents an end-user account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Email    string `gorm:"type:text;not null;uniqueIndex"` // Unique email address.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	EmailVerifiedAt *time.Time `gorm:"type:timestamp"` // Set at signup; no verification step.

	FailedLoginAttempts int        `gorm:"not null;default:0"` // Consecutive failed password checks.
	LockedUntil         *time.Time `gorm:"type:timestamp"`     // Non-nil while the account is locked.

	TwoFactorEnabled bool   `gorm:"not null;default:false"` // Whether a second factor is required.
	TwoFactorSecret  string `gorm:"type:text"`              // TOTP secret, pending or confirmed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// LockedAt reports whether the account is locked at the given instant.
func (u *User) LockedAt(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
