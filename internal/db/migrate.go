package db

import (
	"fmt"

	"github.com/authflow-app/authflow/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.PasswordResetToken{},
		&models.TwoFactorToken{},
		&models.TwoFactorConfirmation{},
		&models.SuggestionLog{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_expiry
		ON password_reset_tokens (expires_at)
	`).Error; errIdx != nil {
		return fmt.Errorf("db: create reset token expiry index: %w", errIdx)
	}
	if errIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_two_factor_tokens_expiry
		ON two_factor_tokens (expires_at)
	`).Error; errIdx != nil {
		return fmt.Errorf("db: create two factor token expiry index: %w", errIdx)
	}
	return nil
}
