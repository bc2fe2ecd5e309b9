// Package messages stores chat messages and likes and tells the real-time
// layer when they change so clients can refetch.
package messages

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a persisted chat message.
type Message struct {
	ID         string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Text       string         `gorm:"type:text;not null" json:"text"`
	UserID     string         `gorm:"type:varchar(255);index;not null" json:"userId"`
	LikesCount int            `gorm:"not null;default:0" json:"likesCount"`
	LikedBy    []Like         `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"likedBy"`
	CreatedAt  time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID when none is set.
func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Like records that a user liked a message. A user likes a message at most
// once.
type Like struct {
	MessageID string    `gorm:"type:varchar(36);primaryKey" json:"messageId"`
	UserID    string    `gorm:"type:varchar(255);primaryKey" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
