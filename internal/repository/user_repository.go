package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/example/bodyfit/internal/bodyinfo"
)

// ErrUserNotFound is returned when no user row matches the identifier.
var ErrUserNotFound = errors.New("user not found")

// User is the slice of the user record this service reads and writes.
type User struct {
	ID        string `gorm:"primaryKey;size:64"`
	BodyShape string `gorm:"column:body_shape;size:32"`
	Undertone string `gorm:"column:undertone;size:16"`
	UpdatedAt time.Time
}

// TableName overrides the default table name.
func (User) TableName() string {
	return "users"
}

// BodyInfoPatch is a partial update; nil fields are left untouched.
type BodyInfoPatch struct {
	BodyShape *bodyinfo.BodyShape
	Undertone *bodyinfo.Undertone
}

// Empty reports whether the patch would change nothing.
func (p BodyInfoPatch) Empty() bool {
	return p.BodyShape == nil && p.Undertone == nil
}

// Columns returns the column updates of the patch after validating every value.
func (p BodyInfoPatch) Columns() (map[string]any, error) {
	columns := map[string]any{}
	if p.BodyShape != nil {
		if !p.BodyShape.Valid() {
			return nil, fmt.Errorf("invalid body shape %q", *p.BodyShape)
		}
		columns["body_shape"] = string(*p.BodyShape)
	}
	if p.Undertone != nil {
		if !p.Undertone.Valid() {
			return nil, fmt.Errorf("invalid undertone %q", *p.Undertone)
		}
		columns["undertone"] = string(*p.Undertone)
	}
	return columns, nil
}

// UserRepository updates body information on existing users.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// AutoMigrate creates the users columns this service relies on. Production
// user tables are owned elsewhere; this is for local setups.
func (r *UserRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&User{})
}

// UpdateBodyInfo applies patch to the user and returns the updated row.
func (r *UserRepository) UpdateBodyInfo(ctx context.Context, userID string, patch BodyInfoPatch) (*User, error) {
	columns, err := patch.Columns()
	if err != nil {
		return nil, err
	}

	var user User
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(columns) > 0 {
			res := tx.Model(&User{}).Where("id = ?", userID).Updates(columns)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrUserNotFound
			}
		}
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
