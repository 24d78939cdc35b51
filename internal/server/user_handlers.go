package server

import (
	"campusqa/internal/service"

	"github.com/gofiber/fiber/v2"
)

// JoinCommunity handles POST /api/membership/join
func (s *Server) JoinCommunity(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	user, err := s.userService.JoinCommunity(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"joinedCommunity": user.JoinedCommunity})
}

// UpdateMyProfile handles PATCH /api/profile/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req service.ProfileInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": newUserProfile(user)})
}

// GetMyReputation handles GET /api/profile/me/reputation?limit=
func (s *Server) GetMyReputation(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	events, err := s.reputationService.History(c.UserContext(), userID, queryLimit(c, 50, 200))
	if err != nil {
		return err
	}

	out := make([]reputationEventView, 0, len(events))
	for _, e := range events {
		out = append(out, reputationEventView{
			Kind:              e.Kind,
			ReputationDelta:   e.ReputationDelta,
			ContributionDelta: e.ContributionDelta,
			AcceptedDelta:     e.AcceptedDelta,
			QuestionID:        e.QuestionID,
			AnswerID:          e.AnswerID,
			CreatedAt:         e.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"events": out})
}

// GetPopularTags handles GET /api/tags?limit=
func (s *Server) GetPopularTags(c *fiber.Ctx) error {
	tags, err := s.tagRepo.Popular(c.UserContext(), queryLimit(c, 20, 100))
	if err != nil {
		return err
	}

	out := make([]tagView, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagView{Name: t.Name, UsageCount: t.UsageCount})
	}
	return c.JSON(fiber.Map{"tags": out})
}

// GetFeatureFlags returns the feature switches evaluated for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"features": s.featureFlags.Snapshot(userID)})
}
