package server

import (
	"strings"

	"campusqa/internal/repository"
	"campusqa/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListQuestions handles GET /api/questions?q=&category=&unanswered=true
func (s *Server) ListQuestions(c *fiber.Ctx) error {
	questions, err := s.questionService.List(c.UserContext(), repository.QuestionFilter{
		Query:      c.Query("q"),
		Category:   strings.TrimSpace(c.Query("category")),
		Unanswered: c.QueryBool("unanswered", false),
	})
	if err != nil {
		return err
	}

	items := make([]questionListItem, 0, len(questions))
	for i := range questions {
		items = append(items, newQuestionListItem(&questions[i]))
	}
	return c.JSON(fiber.Map{"questions": items})
}

// GetQuestion handles GET /api/questions/:id
func (s *Server) GetQuestion(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	detail, err := s.questionService.Get(c.UserContext(), id, userID)
	if err != nil {
		return err
	}

	question, answers := newQuestionDetail(detail)
	return c.JSON(fiber.Map{
		"question": question,
		"answers":  answers,
	})
}

// AskQuestion handles POST /api/questions
func (s *Server) AskQuestion(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req service.AskInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	q, err := s.questionService.Ask(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": q.ID})
}

// PostAnswer handles POST /api/questions/:id/answers
func (s *Server) PostAnswer(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	questionID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req service.AnswerInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	a, err := s.questionService.Answer(c.UserContext(), userID, questionID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": a.ID})
}

// AcceptAnswer handles POST /api/questions/:id/answers/:answerId/accept
func (s *Server) AcceptAnswer(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	questionID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	answerID, err := parseID(c, "answerId")
	if err != nil {
		return err
	}

	if err := s.questionService.Accept(c.UserContext(), userID, questionID, answerID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// LikeAnswer handles POST /api/questions/:id/answers/:answerId/like. It toggles.
func (s *Server) LikeAnswer(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	questionID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	answerID, err := parseID(c, "answerId")
	if err != nil {
		return err
	}

	res, err := s.questionService.Like(c.UserContext(), userID, questionID, answerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"ok":         true,
		"liked":      res.Liked,
		"likesCount": res.LikesCount,
	})
}
