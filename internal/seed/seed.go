package seed

import (
	"context"
	"fmt"
	"log/slog"

	"campusqa/internal/models"
	"campusqa/internal/repository"
	"campusqa/internal/service"

	"gorm.io/gorm"
)

// Options configures a generated population.
type Options struct {
	Students    int
	Questions   int
	MaxAnswers  int
	Messages    int
	AcceptRatio float64
	LikeRatio   float64
	Password    string
	FastHash    bool
	RandSeed    int64
	ShouldClean bool
}

func (o Options) withDefaults() Options {
	if o.Students <= 0 {
		o.Students = 30
	}
	if o.MaxAnswers <= 0 {
		o.MaxAnswers = 4
	}
	if o.AcceptRatio <= 0 {
		o.AcceptRatio = 0.5
	}
	if o.LikeRatio <= 0 {
		o.LikeRatio = 0.2
	}
	if o.Password == "" {
		o.Password = DefaultPassword
	}
	return o
}

// Summary counts what a seeding run created.
type Summary struct {
	Students  int
	Questions int
	Answers   int
	Accepted  int
	Likes     int
	Messages  int
}

// Seeder drives the question, answer, like and message operations through
// the service layer so every reputation change lands in the ledger.
type Seeder struct {
	db        *gorm.DB
	opts      Options
	factory   *Factory
	questions *service.QuestionService
	messages  *service.MessageService
}

// NewSeeder creates a seeder over db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	opts = opts.withDefaults()
	return &Seeder{
		db:        db,
		opts:      opts,
		factory:   NewFactory(db, opts),
		questions: service.NewQuestionService(db),
		messages:  service.NewMessageService(repository.NewMessageRepository(db), repository.NewUserRepository(db)),
	}
}

// ClearAll deletes every row of application data, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []any{
		&models.AnswerLike{},
		&models.ReputationEvent{},
		&models.Message{},
		&models.Answer{},
		&models.Question{},
		&models.Tag{},
		&models.User{},
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("clear %T: %w", m, err)
			}
		}
		slog.InfoContext(ctx, "cleared application data")
		return nil
	})
}

// Populate creates opts.Students students and opts.Questions questions with
// random answers, accepts, likes and messages between them.
func (s *Seeder) Populate(ctx context.Context) (Summary, error) {
	var sum Summary

	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return sum, err
		}
	}

	students := make([]*models.User, 0, s.opts.Students)
	for i := 0; i < s.opts.Students; i++ {
		u, err := s.factory.CreateStudent()
		if err != nil {
			return sum, fmt.Errorf("create student: %w", err)
		}
		students = append(students, u)
	}
	sum.Students = len(students)
	if len(students) < 2 {
		return sum, nil
	}

	for i := 0; i < s.opts.Questions; i++ {
		asker := students[s.factory.faker.Number(0, len(students)-1)]
		q, err := s.questions.Ask(ctx, asker.ID, s.factory.BuildQuestion())
		if err != nil {
			return sum, fmt.Errorf("ask question: %w", err)
		}
		sum.Questions++

		answers, err := s.answerQuestion(ctx, q.ID, asker, students, &sum)
		if err != nil {
			return sum, err
		}
		if len(answers) > 0 && s.factory.chance(s.opts.AcceptRatio) {
			chosen := answers[s.factory.faker.Number(0, len(answers)-1)]
			if err := s.questions.Accept(ctx, asker.ID, q.ID, chosen.ID); err != nil {
				return sum, fmt.Errorf("accept answer: %w", err)
			}
			sum.Accepted++
		}
	}

	for i := 0; i < s.opts.Messages; i++ {
		from := students[s.factory.faker.Number(0, len(students)-1)]
		to := students[s.factory.faker.Number(0, len(students)-1)]
		if from.ID == to.ID {
			continue
		}
		if _, err := s.messages.Send(ctx, from.ID, service.SendMessageInput{RecipientID: to.ID, Content: s.factory.BuildMessage()}); err != nil {
			return sum, fmt.Errorf("send message: %w", err)
		}
		sum.Messages++
	}

	slog.InfoContext(ctx, "seeding finished",
		slog.Int("students", sum.Students),
		slog.Int("questions", sum.Questions),
		slog.Int("answers", sum.Answers),
		slog.Int("accepted", sum.Accepted),
		slog.Int("likes", sum.Likes),
		slog.Int("messages", sum.Messages),
	)
	return sum, nil
}

func (s *Seeder) answerQuestion(ctx context.Context, questionID uint, asker *models.User, students []*models.User, sum *Summary) ([]*models.Answer, error) {
	n := s.factory.faker.Number(0, s.opts.MaxAnswers)
	answers := make([]*models.Answer, 0, n)
	for j := 0; j < n; j++ {
		author := students[s.factory.faker.Number(0, len(students)-1)]
		if author.ID == asker.ID {
			continue
		}
		a, err := s.questions.Answer(ctx, author.ID, questionID, s.factory.BuildAnswer())
		if err != nil {
			return nil, fmt.Errorf("post answer: %w", err)
		}
		answers = append(answers, a)
		sum.Answers++

		for _, liker := range students {
			if liker.ID == author.ID || !s.factory.chance(s.opts.LikeRatio) {
				continue
			}
			if _, err := s.questions.Like(ctx, liker.ID, questionID, a.ID); err != nil {
				return nil, fmt.Errorf("like answer: %w", err)
			}
			sum.Likes++
		}
	}
	return answers, nil
}
