package server

import (
	"campusqa/internal/repository"
	"campusqa/internal/service"
	"campusqa/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetContributors handles GET /api/contributors?sortBy=&year=&skills=a,b
func (s *Server) GetContributors(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	users, err := s.rankingService.Contributors(c.UserContext(), userID, repository.ContributorFilter{
		SortBy: service.ParseSortBy(c.Query("sortBy")),
		Year:   c.QueryInt("year", 0),
		Skills: validation.SplitCSV(c.Query("skills")),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"users": users})
}

// GetLeaderboard handles GET /api/leaderboard?limit=
func (s *Server) GetLeaderboard(c *fiber.Ctx) error {
	entries, err := s.rankingService.Leaderboard(c.UserContext(), queryLimit(c, 50, 100))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"entries": entries})
}
