package service

import (
	"context"
	"strings"

	"campusqa/internal/models"
	"campusqa/internal/repository"
	"campusqa/internal/validation"
)

// SendMessageInput is the send-message request body.
type SendMessageInput struct {
	RecipientID uint   `json:"recipientId" validate:"required"`
	Content     string `json:"content" validate:"required,min=1,max=1000"`
}

// Conversation is one inbox row.
type Conversation struct {
	Partner     models.User
	UnreadCount int64
	LastMessage *models.Message
}

// Thread is the full exchange with one partner.
type Thread struct {
	Partner  *models.User
	Messages []models.Message
}

// MessageService is poll-based direct messaging.
type MessageService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
}

func NewMessageService(messages repository.MessageRepository, users repository.UserRepository) *MessageService {
	return &MessageService{messages: messages, users: users}
}

// Conversations lists the caller's partners, most recent exchange first.
func (s *MessageService) Conversations(ctx context.Context, userID uint) ([]Conversation, error) {
	rows, err := s.messages.Conversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	partnerIDs := make([]uint, 0, len(rows))
	lastIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		partnerIDs = append(partnerIDs, row.PartnerID)
		lastIDs = append(lastIDs, row.LastMessageID)
	}
	partners, err := s.users.GetByIDs(ctx, partnerIDs)
	if err != nil {
		return nil, err
	}
	last, err := s.messages.GetByIDs(ctx, lastIDs)
	if err != nil {
		return nil, err
	}

	out := make([]Conversation, 0, len(rows))
	for _, row := range rows {
		partner, ok := partners[row.PartnerID]
		if !ok {
			continue
		}
		conv := Conversation{Partner: partner, UnreadCount: row.UnreadCount}
		if msg, ok := last[row.LastMessageID]; ok {
			conv.LastMessage = &msg
		}
		out = append(out, conv)
	}
	return out, nil
}

// Thread returns the messages with partnerID in ascending order and marks
// the inbound ones read.
func (s *MessageService) Thread(ctx context.Context, userID, partnerID uint) (*Thread, error) {
	partner, err := s.users.GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.Between(ctx, userID, partnerID, 0)
	if err != nil {
		return nil, err
	}
	if _, err := s.messages.MarkRead(ctx, partnerID, userID); err != nil {
		return nil, err
	}
	return &Thread{Partner: partner, Messages: msgs}, nil
}

func (s *MessageService) Send(ctx context.Context, senderID uint, in SendMessageInput) (*models.Message, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.RecipientID == senderID {
		return nil, models.NewBadRequestError(models.CodeSelfMessage, "Cannot message yourself")
	}
	if _, err := s.users.GetByID(ctx, in.RecipientID); err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewNotFoundErrorWithCode(models.CodeUserNotFound, "Recipient not found")
		}
		return nil, err
	}

	msg := &models.Message{SenderID: senderID, RecipientID: in.RecipientID, Content: in.Content}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *MessageService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.messages.UnreadCount(ctx, userID)
}
