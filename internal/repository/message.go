package repository

import (
	"context"

	"campusqa/internal/models"

	"gorm.io/gorm"
)

// ConversationSummary is one row of a user's inbox.
type ConversationSummary struct {
	PartnerID     uint  `gorm:"column:partner_id"`
	LastMessageID uint  `gorm:"column:last_message_id"`
	UnreadCount   int64 `gorm:"column:unread_count"`
}

// MessageRepository defines persistence operations for direct messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	Between(ctx context.Context, a, b uint, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, senderID, recipientID uint) (int64, error)
	UnreadCount(ctx context.Context, recipientID uint) (int64, error)
	Conversations(ctx context.Context, userID uint) ([]ConversationSummary, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Between returns the most recent limit messages of a pair in ascending order.
func (r *messageRepository) Between(ctx context.Context, a, b uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, senderID, recipientID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND read = ?", senderID, recipientID, false).
		UpdateColumn("read", true)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// Conversations groups a user's messages by partner, latest conversation first.
func (r *messageRepository) Conversations(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	var rows []ConversationSummary
	err := r.db.WithContext(ctx).Raw(`
SELECT
	CASE WHEN sender_id = ? THEN recipient_id ELSE sender_id END AS partner_id,
	MAX(id) AS last_message_id,
	SUM(CASE WHEN recipient_id = ? AND read = ? THEN 1 ELSE 0 END) AS unread_count
FROM messages
WHERE sender_id = ? OR recipient_id = ?
GROUP BY CASE WHEN sender_id = ? THEN recipient_id ELSE sender_id END
ORDER BY last_message_id DESC
`, userID, userID, false, userID, userID, userID).Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *messageRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]models.Message, error) {
	out := make(map[uint]models.Message, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var msgs []models.Message
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, m := range msgs {
		out[m.ID] = m
	}
	return out, nil
}
