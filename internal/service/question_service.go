package service

import (
	"context"
	"log/slog"
	"strings"

	"campusqa/internal/models"
	"campusqa/internal/observability"
	"campusqa/internal/repository"
	"campusqa/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// maxLikeAttempts bounds the re-read loop when a concurrent toggle wins the insert.
const maxLikeAttempts = 3

// AskInput is the ask-question request body.
type AskInput struct {
	Title       string   `json:"title" validate:"required,min=10,max=160"`
	Description string   `json:"description" validate:"required,min=30,max=20000"`
	Category    string   `json:"category" validate:"required,category"`
	Tags        []string `json:"tags" validate:"max=8,dive,min=2,max=24"`
}

// AnswerInput is the post-answer request body.
type AnswerInput struct {
	Body string `json:"body" validate:"required,min=10,max=20000"`
}

// LikeResult is the state of a like after a toggle.
type LikeResult struct {
	Liked      bool
	LikesCount int
}

// QuestionDetail is a question with its answers in display order.
// LikedByViewer holds the answer ids the requesting user likes.
type QuestionDetail struct {
	Question      *models.Question
	Answers       []models.Answer
	LikedByViewer map[uint]bool
}

// QuestionService runs the question/answer aggregate. Every write that moves
// reputation runs in one transaction together with its ledger events.
type QuestionService struct {
	db        *gorm.DB
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	// repos binds the repositories to a transaction.
	repos func(tx *gorm.DB) txRepos
}

func NewQuestionService(db *gorm.DB) *QuestionService {
	return &QuestionService{
		db:        db,
		questions: repository.NewQuestionRepository(db),
		answers:   repository.NewAnswerRepository(db),
		repos:     reposFor,
	}
}

func (s *QuestionService) List(ctx context.Context, filter repository.QuestionFilter) ([]models.Question, error) {
	return s.questions.List(ctx, filter)
}

func (s *QuestionService) Get(ctx context.Context, id, viewerID uint) (*QuestionDetail, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	answers, err := s.answers.ListByQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(answers))
	for i := range answers {
		ids = append(ids, answers[i].ID)
	}
	liked, err := s.answers.LikedBy(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	return &QuestionDetail{Question: q, Answers: answers, LikedByViewer: liked}, nil
}

// Ask creates a question, bumps its tag counters and credits the author.
func (s *QuestionService) Ask(ctx context.Context, authorID uint, in AskInput) (q *models.Question, err error) {
	ctx, span := observability.StartSpan(ctx, "question", "ask", attribute.Int64("user.id", int64(authorID)))
	defer func() { span.End(err) }()

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Tags = validation.TrimAll(append([]string(nil), in.Tags...))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	tags := validation.NormalizeTags(in.Tags)

	defer observability.TrackQuery("ask", "questions")()

	var events []models.ReputationEvent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)
		if err := requireJoined(ctx, repos.users, authorID, "Join the community before posting"); err != nil {
			return err
		}

		q = &models.Question{
			Title:       in.Title,
			Description: in.Description,
			Category:    in.Category,
			Tags:        tags,
			AuthorID:    authorID,
		}
		if err := repos.questions.Create(ctx, q); err != nil {
			return err
		}
		if err := repos.tags.IncrementUsage(ctx, tags); err != nil {
			return err
		}

		events = []models.ReputationEvent{askedEvent(authorID, q.ID)}
		return repos.reputation.Record(ctx, events...)
	})
	if err != nil {
		return nil, err
	}

	ledgerCommitted(ctx, events)
	return q, nil
}

// Answer posts an answer and credits its author with points and a contribution.
func (s *QuestionService) Answer(ctx context.Context, authorID, questionID uint, in AnswerInput) (a *models.Answer, err error) {
	ctx, span := observability.StartSpan(ctx, "question", "answer",
		attribute.Int64("user.id", int64(authorID)),
		attribute.Int64("question.id", int64(questionID)),
	)
	defer func() { span.End(err) }()

	in.Body = strings.TrimSpace(in.Body)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	defer observability.TrackQuery("answer", "answers")()

	var events []models.ReputationEvent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)
		if _, err := repos.questions.GetByIDForUpdate(ctx, questionID); err != nil {
			return err
		}
		if err := requireJoined(ctx, repos.users, authorID, "Join the community before answering"); err != nil {
			return err
		}

		a = &models.Answer{QuestionID: questionID, AuthorID: authorID, Body: in.Body}
		if err := repos.answers.Create(ctx, a); err != nil {
			return err
		}
		if err := repos.questions.IncrementAnswers(ctx, questionID); err != nil {
			return err
		}

		events = []models.ReputationEvent{answeredEvent(authorID, questionID, a.ID)}
		return repos.reputation.Record(ctx, events...)
	})
	if err != nil {
		return nil, err
	}

	ledgerCommitted(ctx, events)
	return a, nil
}

// Accept marks answerID as the question's accepted answer. Re-accepting the
// current answer is a no-op. A previously accepted answer is un-accepted and
// its author's reward reversed in the same transaction, and the question's
// pointer is moved last with a compare-and-set.
func (s *QuestionService) Accept(ctx context.Context, userID, questionID, answerID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "question", "accept",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("question.id", int64(questionID)),
		attribute.Int64("answer.id", int64(answerID)),
	)
	defer func() { span.End(err) }()
	defer observability.TrackQuery("accept", "questions")()

	var events []models.ReputationEvent
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos(tx)

		q, err := repos.questions.GetByIDForUpdate(ctx, questionID)
		if err != nil {
			return err
		}
		if q.AuthorID != userID {
			return models.NewForbiddenError(models.CodeNotQuestionOwner, "Only the question owner can accept an answer")
		}

		target, err := repos.answers.GetByIDForUpdate(ctx, answerID)
		if err != nil {
			return err
		}
		if target.QuestionID != q.ID {
			return models.NewNotFoundErrorWithCode(models.CodeAnswerNotFound, "Answer not found")
		}

		if q.AcceptedAnswerID != nil && *q.AcceptedAnswerID == target.ID {
			return nil
		}

		if prev := q.AcceptedAnswerID; prev != nil {
			old, err := repos.answers.GetByIDForUpdate(ctx, *prev)
			switch {
			case models.IsNotFound(err):
				slog.WarnContext(ctx, "previously accepted answer is missing, skipping reversal",
					slog.Uint64("question_id", uint64(q.ID)),
					slog.Uint64("answer_id", uint64(*prev)),
				)
			case err != nil:
				return err
			default:
				if err := repos.answers.SetAccepted(ctx, old.ID, false); err != nil {
					return err
				}
				events = append(events, unacceptedEvent(old.AuthorID, userID, q.ID, old.ID))
			}
		}

		if err := repos.answers.SetAccepted(ctx, target.ID, true); err != nil {
			return err
		}
		events = append(events, acceptedEvent(target.AuthorID, userID, q.ID, target.ID))
		if err := repos.reputation.Record(ctx, events...); err != nil {
			return err
		}

		moved, err := repos.questions.MoveAcceptedAnswer(ctx, q.ID, q.AcceptedAnswerID, target.ID)
		if err != nil {
			return err
		}
		if !moved {
			observability.LedgerConflicts.WithLabelValues("accept").Inc()
			return models.NewConflictError(models.CodeConflictRetry, "The accepted answer changed, please retry")
		}
		return nil
	})
	if err != nil {
		return err
	}

	ledgerCommitted(ctx, events)
	return nil
}

// Like toggles userID's like on answerID. The (answer, user) unique index is
// the source of truth: a delete that removes a row means unlike, an insert
// that creates one means like, and neither means a concurrent toggle won, so
// the state is re-read.
func (s *QuestionService) Like(ctx context.Context, userID, questionID, answerID uint) (res LikeResult, err error) {
	ctx, span := observability.StartSpan(ctx, "question", "like",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("answer.id", int64(answerID)),
	)
	defer func() { span.End(err) }()
	defer observability.TrackQuery("like", "answer_likes")()

	for attempt := 1; attempt <= maxLikeAttempts; attempt++ {
		var (
			events []models.ReputationEvent
			raced  bool
		)
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repos := s.repos(tx)

			a, err := repos.answers.GetByIDForUpdate(ctx, answerID)
			if err != nil {
				return err
			}
			if a.QuestionID != questionID {
				return models.NewNotFoundErrorWithCode(models.CodeAnswerNotFound, "Answer not found")
			}
			if err := requireJoined(ctx, repos.users, userID, "Join the community before liking answers"); err != nil {
				return err
			}

			delta := -1
			removed, err := repos.answers.RemoveLike(ctx, a.ID, userID)
			if err != nil {
				return err
			}
			if !removed {
				added, err := repos.answers.AddLike(ctx, a.ID, userID)
				if err != nil {
					return err
				}
				if !added {
					raced = true
					return nil
				}
				delta = 1
			}

			count, err := repos.answers.AdjustLikes(ctx, a.ID, delta)
			if err != nil {
				return err
			}
			events = []models.ReputationEvent{likeEvent(a.AuthorID, userID, questionID, a.ID, delta > 0)}
			if err := repos.reputation.Record(ctx, events...); err != nil {
				return err
			}

			res = LikeResult{Liked: delta > 0, LikesCount: count}
			return nil
		})
		if err != nil {
			return LikeResult{}, err
		}
		if !raced {
			ledgerCommitted(ctx, events)
			return res, nil
		}

		observability.LedgerConflicts.WithLabelValues("like").Inc()
		slog.DebugContext(ctx, "like toggle lost a race, retrying",
			slog.Uint64("answer_id", uint64(answerID)),
			slog.Int("attempt", attempt),
		)
	}

	return LikeResult{}, models.NewConflictError(models.CodeConflictRetry, "Too many concurrent changes, please retry")
}
