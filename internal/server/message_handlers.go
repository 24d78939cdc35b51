package server

import (
	"campusqa/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetConversations handles GET /api/messages/conversations
func (s *Server) GetConversations(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	convs, err := s.messageService.Conversations(c.UserContext(), userID)
	if err != nil {
		return err
	}

	out := make([]conversationView, 0, len(convs))
	for i := range convs {
		out = append(out, conversationView{
			partnerView: newPartnerView(&convs[i].Partner),
			UnreadCount: convs[i].UnreadCount,
			LastMessage: convs[i].LastMessage,
		})
	}
	return c.JSON(fiber.Map{"conversations": out})
}

// GetThread handles GET /api/messages/with/:userId and marks the partner's
// messages read.
func (s *Server) GetThread(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	partnerID, err := parseID(c, "userId")
	if err != nil {
		return err
	}

	thread, err := s.messageService.Thread(c.UserContext(), userID, partnerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"user":     newPartnerView(thread.Partner),
		"messages": thread.Messages,
	})
}

// SendMessage handles POST /api/messages/send
func (s *Server) SendMessage(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req service.SendMessageInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	msg, err := s.messageService.Send(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}

// GetUnreadCount handles GET /api/messages/unread-count
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	n, err := s.messageService.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"unreadCount": n})
}
