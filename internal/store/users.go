package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dbutil "github.com/authflow-app/authflow/internal/db"
	"github.com/authflow-app/authflow/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrDuplicate indicates a unique email or username violation.
var ErrDuplicate = errors.New("store: duplicate email or username")

// Users persists user accounts.
type Users struct {
	db *gorm.DB
}

// NewUsers constructs a Users store.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// FindByEmail returns the user with the given email, or nil when absent.
// Backend faults are logged and reported as absence so login and reset
// flows stay branch-free on I/O errors.
func (s *Users) FindByEmail(ctx context.Context, email string) *models.User {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	var user models.User
	err := s.db.WithContext(ctx).
		Where(dbutil.CaseInsensitiveEqExpr(s.db, "email"), dbutil.NormalizeEqValue(s.db, email)).
		First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithError(err).Error("user lookup by email failed")
		}
		return nil
	}
	return &user
}

// FindByID returns the user with the given ID, or nil when absent.
func (s *Users) FindByID(ctx context.Context, id uint64) *models.User {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.WithError(err).Error("user lookup by id failed")
		}
		return nil
	}
	return &user
}

// Create inserts a new user record. Unique violations map to ErrDuplicate.
func (s *Users) Create(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

// Update applies partial field updates to a user row.
// GORM issues a single UPDATE per call, so counter writes for the same user
// serialize on the backend's row lock rather than racing in process.
func (s *Users) Update(ctx context.Context, id uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return fmt.Errorf("store: update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("store: update user: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// isUniqueViolation reports whether the error is a unique constraint failure.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
