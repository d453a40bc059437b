package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the aggregate root for the user domain.
//
// PasswordHash is nil for accounts provisioned by a third-party login that
// have not set a local password yet. Password only carries plaintext input
// between the transport and the service, it is never persisted.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName    string    `gorm:"size:50;not null"`
	LastName     string    `gorm:"size:50"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"`
	Username     string    `gorm:"size:255;not null;uniqueIndex"`
	PhoneNumber  *string   `gorm:"size:32;uniqueIndex"`
	PasswordHash *string
	ExternalID   *string `gorm:"size:255"`
	IsDeleted    bool    `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Password string `gorm:"-"`
}

func (u User) Key() uuid.UUID { return u.ID }

func (u User) IsSoftDeleted() bool { return u.IsDeleted }

func (u *User) MarkDeleted() { u.IsDeleted = true }

// BeforeCreate assigns an identity when the caller did not.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// HasPassword reports whether a local password was ever set.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil
}
