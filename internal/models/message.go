package models

import "time"

// Message is a direct message between two users.
type Message struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SenderID    uint      `gorm:"not null;index:idx_messages_pair,priority:1" json:"senderId"`
	RecipientID uint      `gorm:"not null;index:idx_messages_pair,priority:2;index:idx_messages_recipient_read,priority:1" json:"recipientId"`
	Content     string    `gorm:"size:1000;not null" json:"content"`
	Read        bool      `gorm:"not null;default:false;index:idx_messages_recipient_read,priority:2" json:"read"`
	CreatedAt   time.Time `gorm:"index:idx_messages_pair,priority:3" json:"createdAt"`
}
