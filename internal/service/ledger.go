// Package service holds the auth lifecycle, the reputation ledger and the
// question/answer aggregate, plus the read models built around them.
package service

import (
	"context"
	"log/slog"

	"campusqa/internal/cache"
	"campusqa/internal/models"
	"campusqa/internal/observability"
	"campusqa/internal/repository"

	"gorm.io/gorm"
)

// Point schedule. Fixed at compile time.
const (
	PointsAsk      = 2
	PointsAnswer   = 5
	PointsAccepted = 15
	PointsLike     = 2
)

func uintPtr(v uint) *uint {
	return &v
}

func askedEvent(authorID, questionID uint) models.ReputationEvent {
	return models.ReputationEvent{
		UserID:          authorID,
		ActorID:         authorID,
		Kind:            models.EventQuestionAsked,
		ReputationDelta: PointsAsk,
		QuestionID:      uintPtr(questionID),
	}
}

func answeredEvent(authorID, questionID, answerID uint) models.ReputationEvent {
	return models.ReputationEvent{
		UserID:            authorID,
		ActorID:           authorID,
		Kind:              models.EventAnswerPosted,
		ReputationDelta:   PointsAnswer,
		ContributionDelta: 1,
		QuestionID:        uintPtr(questionID),
		AnswerID:          uintPtr(answerID),
	}
}

func acceptedEvent(authorID, actorID, questionID, answerID uint) models.ReputationEvent {
	return models.ReputationEvent{
		UserID:          authorID,
		ActorID:         actorID,
		Kind:            models.EventAnswerAccepted,
		ReputationDelta: PointsAccepted,
		AcceptedDelta:   1,
		QuestionID:      uintPtr(questionID),
		AnswerID:        uintPtr(answerID),
	}
}

func unacceptedEvent(authorID, actorID, questionID, answerID uint) models.ReputationEvent {
	return models.ReputationEvent{
		UserID:          authorID,
		ActorID:         actorID,
		Kind:            models.EventAnswerUnaccepted,
		ReputationDelta: -PointsAccepted,
		AcceptedDelta:   -1,
		QuestionID:      uintPtr(questionID),
		AnswerID:        uintPtr(answerID),
	}
}

func likeEvent(authorID, actorID, questionID, answerID uint, liked bool) models.ReputationEvent {
	ev := models.ReputationEvent{
		UserID:          authorID,
		ActorID:         actorID,
		Kind:            models.EventAnswerLiked,
		ReputationDelta: PointsLike,
		QuestionID:      uintPtr(questionID),
		AnswerID:        uintPtr(answerID),
	}
	if !liked {
		ev.Kind = models.EventAnswerUnliked
		ev.ReputationDelta = -PointsLike
	}
	return ev
}

// txRepos are repositories bound to one transaction.
type txRepos struct {
	users      repository.UserRepository
	questions  repository.QuestionRepository
	answers    repository.AnswerRepository
	tags       repository.TagRepository
	reputation repository.ReputationRepository
}

func reposFor(tx *gorm.DB) txRepos {
	return txRepos{
		users:      repository.NewUserRepository(tx),
		questions:  repository.NewQuestionRepository(tx),
		answers:    repository.NewAnswerRepository(tx),
		tags:       repository.NewTagRepository(tx),
		reputation: repository.NewReputationRepository(tx),
	}
}

// requireJoined loads the acting user and enforces the community membership gate.
func requireJoined(ctx context.Context, users repository.UserRepository, userID uint, message string) error {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.JoinedCommunity {
		return models.NewForbiddenError(models.CodeNotJoined, message)
	}
	return nil
}

// ledgerCommitted runs after a ledger transaction commits.
func ledgerCommitted(ctx context.Context, events []models.ReputationEvent) {
	if len(events) == 0 {
		return
	}
	for _, ev := range events {
		observability.ReputationEvents.WithLabelValues(string(ev.Kind)).Inc()
		slog.DebugContext(ctx, "reputation event applied",
			slog.String("kind", string(ev.Kind)),
			slog.Uint64("user_id", uint64(ev.UserID)),
			slog.Int("delta", ev.ReputationDelta),
		)
	}
	cache.InvalidateRankings(ctx)
}
