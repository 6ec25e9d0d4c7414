package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/authflow-app/authflow/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Tokens persists short-lived auth tokens: password-reset tokens,
// two-factor one-time codes, and two-factor confirmations.
type Tokens struct {
	db *gorm.DB
}

// NewTokens constructs a Tokens store.
func NewTokens(db *gorm.DB) *Tokens {
	return &Tokens{db: db}
}

// CreatePasswordReset inserts a reset token for the user.
func (s *Tokens) CreatePasswordReset(ctx context.Context, userID uint64, token string, expiresAt time.Time) error {
	record := models.PasswordResetToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("store: create reset token: %w", err)
	}
	return nil
}

// FindPasswordReset returns the reset token record, or nil when absent.
func (s *Tokens) FindPasswordReset(ctx context.Context, token string) *models.PasswordResetToken {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	var record models.PasswordResetToken
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&record).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithError(err).Error("reset token lookup failed")
		}
		return nil
	}
	return &record
}

// ConsumePasswordReset deletes the reset token and reports whether this
// caller won the delete. Concurrent redemptions see at most one true.
func (s *Tokens) ConsumePasswordReset(ctx context.Context, id uint64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.PasswordResetToken{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("store: consume reset token: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ReplaceTwoFactorToken deletes any live code for the email and inserts a
// new one. Delete-then-create, not update, so a stale expiry never survives.
func (s *Tokens) ReplaceTwoFactorToken(ctx context.Context, email, code string, expiresAt time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errDel := tx.Where("email = ?", email).Delete(&models.TwoFactorToken{}).Error; errDel != nil {
			return errDel
		}
		record := models.TwoFactorToken{
			Email:     email,
			Code:      code,
			ExpiresAt: expiresAt.UTC(),
		}
		return tx.Create(&record).Error
	})
	if errTx != nil {
		return fmt.Errorf("store: replace two factor token: %w", errTx)
	}
	return nil
}

// FindTwoFactorToken returns the live code for the email, or nil when absent.
func (s *Tokens) FindTwoFactorToken(ctx context.Context, email string) *models.TwoFactorToken {
	email = strings.ToLower(strings.TrimSpace(email))
	var record models.TwoFactorToken
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&record).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithError(err).Error("two factor token lookup failed")
		}
		return nil
	}
	return &record
}

// ConsumeTwoFactorToken deletes the code and reports whether this caller
// won the delete.
func (s *Tokens) ConsumeTwoFactorToken(ctx context.Context, id uint64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.TwoFactorToken{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("store: consume two factor token: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CreateConfirmation records that the user passed the second factor.
// Repeating the insert for the same user keeps the single existing marker.
func (s *Tokens) CreateConfirmation(ctx context.Context, userID uint64) error {
	var existing models.TwoFactorConfirmation
	errFind := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing).Error
	if errFind == nil {
		return nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("store: find confirmation: %w", errFind)
	}
	record := models.TwoFactorConfirmation{UserID: userID}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("store: create confirmation: %w", err)
	}
	return nil
}

// ConsumeConfirmation deletes the user's confirmation marker and reports
// whether one existed. Deleting by user id makes consumption exactly-once.
func (s *Tokens) ConsumeConfirmation(ctx context.Context, userID uint64) (bool, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.TwoFactorConfirmation{})
	if res.Error != nil {
		return false, fmt.Errorf("store: consume confirmation: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteExpired removes expired reset and two-factor tokens. Best effort;
// redemption re-checks expiry against the clock regardless.
func (s *Tokens) DeleteExpired(ctx context.Context, now time.Time) error {
	if err := s.db.WithContext(ctx).
		Where("expires_at < ?", now.UTC()).
		Delete(&models.PasswordResetToken{}).Error; err != nil {
		return fmt.Errorf("store: delete expired reset tokens: %w", err)
	}
	if err := s.db.WithContext(ctx).
		Where("expires_at < ?", now.UTC()).
		Delete(&models.TwoFactorToken{}).Error; err != nil {
		return fmt.Errorf("store: delete expired two factor tokens: %w", err)
	}
	return nil
}
