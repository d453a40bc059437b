package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatType is the closed set of conversation kinds.
type ChatType string

const (
	ChatTypePrivate ChatType = "private"
	ChatTypeGroup   ChatType = "group"
	ChatTypeChannel ChatType = "channel"
)

func (t ChatType) Valid() bool {
	switch t {
	case ChatTypePrivate, ChatTypeGroup, ChatTypeChannel:
		return true
	}
	return false
}

type Chat struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type      ChatType  `gorm:"size:16;not null"`
	CreatedAt time.Time
}

func (c Chat) Key() uuid.UUID { return c.ID }

func (c *Chat) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Message belongs to a chat and is authored by a user. Sender and Chat are
// only populated when eager-loaded.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Content   string    `gorm:"type:text;not null"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Sender    *User     `gorm:"foreignKey:SenderID"`
	ChatID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Chat      *Chat     `gorm:"foreignKey:ChatID"`
	IsDeleted bool      `gorm:"not null"`
	CreatedAt time.Time
}

func (m Message) Key() uuid.UUID { return m.ID }

func (m Message) IsSoftDeleted() bool { return m.IsDeleted }

func (m *Message) MarkDeleted() { m.IsDeleted = true }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// UserActivity is keyed by the user it tracks.
type UserActivity struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastSeenTime time.Time `gorm:"not null"`
}

func (a UserActivity) Key() uuid.UUID { return a.UserID }
