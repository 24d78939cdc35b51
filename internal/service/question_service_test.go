package service

import (
	"context"
	"net/http"
	"testing"

	"campusqa/internal/models"
	"campusqa/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestQuestionService_Ask(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates question, tags and ledger event", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewQuestionService(db)
		author := createMember(t, db)

		q, err := svc.Ask(ctx, author.ID, validAsk())
		require.NoError(t, err)
		assert.Equal(t, "How should I prepare for DBMS viva?", q.Title)
		assert.Equal(t, []string{"dbms", "viva"}, q.Tags)

		fresh := reload(t, db, author)
		assert.Equal(t, PointsAsk, fresh.ReputationScore)
		assert.Equal(t, 0, fresh.ContributionCount, "asking is not a contribution")
		assert.Equal(t, PointsAsk, ledgerSum(t, db, author.ID))

		var tags []models.Tag
		require.NoError(t, db.Order("name").Find(&tags).Error)
		require.Len(t, tags, 2)
		assert.Equal(t, 1, tags[0].UsageCount)

		_, err = svc.Ask(ctx, author.ID, validAsk())
		require.NoError(t, err)
		require.NoError(t, db.Where("name = ?", "dbms").First(&tags[0]).Error)
		assert.Equal(t, 2, tags[0].UsageCount)
	})

	t.Run("Not joined is forbidden and writes nothing", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewQuestionService(db)
		outsider := createMember(t, db, notJoined)

		_, err := svc.Ask(ctx, outsider.ID, validAsk())
		assertAppError(t, err, http.StatusForbidden, models.CodeNotJoined)

		var count int64
		db.Model(&models.Question{}).Count(&count)
		assert.Zero(t, count)
		db.Model(&models.Tag{}).Count(&count)
		assert.Zero(t, count)
		assert.Equal(t, 0, reload(t, db, outsider).ReputationScore)
	})

	t.Run("Validation", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewQuestionService(db)
		author := createMember(t, db)

		tests := []struct {
			name   string
			mutate func(in *AskInput)
			path   string
		}{
			{"Short title", func(in *AskInput) { in.Title = "  short   " }, "title"},
			{"Short description", func(in *AskInput) { in.Description = "too short" }, "description"},
			{"Unknown category", func(in *AskInput) { in.Category = "Sports" }, "category"},
			{"Too many tags", func(in *AskInput) { in.Tags = []string{"a1", "b2", "c3", "d4", "e5", "f6", "g7", "h8", "i9"} }, "tags"},
			{"Tag too short after trim", func(in *AskInput) { in.Tags = []string{"  x  "} }, "tags[0]"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				in := validAsk()
				tt.mutate(&in)
				_, err := svc.Ask(ctx, author.ID, in)
				assertAppError(t, err, http.StatusBadRequest, models.CodeValidation)

				var appErr *models.AppError
				require.ErrorAs(t, err, &appErr)
				issues := appErr.Details.([]models.FieldIssue)
				assert.Equal(t, tt.path, issues[0].Path)
			})
		}
	})
}

func TestQuestionService_Answer(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewQuestionService(db)
	asker := createMember(t, db)
	helper := createMember(t, db)
	lurker := createMember(t, db, notJoined)

	q, err := svc.Ask(ctx, asker.ID, validAsk())
	require.NoError(t, err)

	a, err := svc.Answer(ctx, helper.ID, q.ID, validAnswer())
	require.NoError(t, err)
	assert.Equal(t, q.ID, a.QuestionID)

	fresh := reload(t, db, helper)
	assert.Equal(t, PointsAnswer, fresh.ReputationScore)
	assert.Equal(t, 1, fresh.ContributionCount)

	detail, err := svc.Get(ctx, q.ID, asker.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.LikedByViewer)
	assert.Equal(t, 1, detail.Question.AnswersCount)
	require.Len(t, detail.Answers, 1)
	assert.Equal(t, helper.ID, detail.Answers[0].Author.ID)

	_, err = svc.Answer(ctx, helper.ID, 9999, validAnswer())
	assertAppError(t, err, http.StatusNotFound, models.CodeQuestionNotFound)

	_, err = svc.Answer(ctx, lurker.ID, q.ID, validAnswer())
	assertAppError(t, err, http.StatusForbidden, models.CodeNotJoined)

	_, err = svc.Answer(ctx, helper.ID, q.ID, AnswerInput{Body: "   tiny    "})
	assertAppError(t, err, http.StatusBadRequest, models.CodeValidation)

	assert.Equal(t, PointsAnswer, reload(t, db, helper).ReputationScore)
}

// assertSingleAccepted checks that the accepted pointer and the isAccepted
// flags agree: zero flags and a nil pointer, or one flag matching the pointer.
func assertSingleAccepted(t *testing.T, db *gorm.DB, questionID uint) {
	t.Helper()
	var q models.Question
	require.NoError(t, db.First(&q, questionID).Error)

	var accepted []models.Answer
	require.NoError(t, db.Where("question_id = ? AND is_accepted = ?", questionID, true).Find(&accepted).Error)

	if q.AcceptedAnswerID == nil {
		assert.Empty(t, accepted)
		return
	}
	require.Len(t, accepted, 1)
	assert.Equal(t, *q.AcceptedAnswerID, accepted[0].ID)
}

func TestQuestionService_AcceptScenario(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewQuestionService(db)
	userA := createMember(t, db)
	userB := createMember(t, db)
	userC := createMember(t, db)

	q, err := svc.Ask(ctx, userA.ID, validAsk())
	require.NoError(t, err)
	assert.Equal(t, 2, reload(t, db, userA).ReputationScore)

	answerB, err := svc.Answer(ctx, userB.ID, q.ID, validAnswer())
	require.NoError(t, err)
	b := reload(t, db, userB)
	assert.Equal(t, 5, b.ReputationScore)
	assert.Equal(t, 1, b.ContributionCount)

	answerC, err := svc.Answer(ctx, userC.ID, q.ID, validAnswer())
	require.NoError(t, err)
	assertSingleAccepted(t, db, q.ID)

	require.NoError(t, svc.Accept(ctx, userA.ID, q.ID, answerB.ID))
	b = reload(t, db, userB)
	assert.Equal(t, 20, b.ReputationScore)
	assert.Equal(t, 1, b.AcceptedAnswersCount)
	assertSingleAccepted(t, db, q.ID)

	// Re-accepting is a no-op.
	require.NoError(t, svc.Accept(ctx, userA.ID, q.ID, answerB.ID))
	assert.Equal(t, 20, reload(t, db, userB).ReputationScore)

	require.NoError(t, svc.Accept(ctx, userA.ID, q.ID, answerC.ID))
	b = reload(t, db, userB)
	assert.Equal(t, 5, b.ReputationScore)
	assert.Equal(t, 0, b.AcceptedAnswersCount)
	c := reload(t, db, userC)
	assert.Equal(t, 5+15, c.ReputationScore)
	assert.Equal(t, 1, c.AcceptedAnswersCount)
	assertSingleAccepted(t, db, q.ID)

	var fresh models.Question
	require.NoError(t, db.First(&fresh, q.ID).Error)
	require.NotNil(t, fresh.AcceptedAnswerID)
	assert.Equal(t, answerC.ID, *fresh.AcceptedAnswerID)

	for _, u := range []*models.User{userA, userB, userC} {
		assert.Equal(t, reload(t, db, u).ReputationScore, ledgerSum(t, db, u.ID), "projection must equal ledger")
	}
}

func TestQuestionService_AcceptRejections(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewQuestionService(db)
	owner := createMember(t, db)
	helper := createMember(t, db)

	q, err := svc.Ask(ctx, owner.ID, validAsk())
	require.NoError(t, err)
	other, err := svc.Ask(ctx, owner.ID, validAsk())
	require.NoError(t, err)
	a, err := svc.Answer(ctx, helper.ID, q.ID, validAnswer())
	require.NoError(t, err)

	tests := []struct {
		name       string
		userID     uint
		questionID uint
		answerID   uint
		status     int
		code       string
	}{
		{"Unknown question", owner.ID, 9999, a.ID, http.StatusNotFound, models.CodeQuestionNotFound},
		{"Answer author cannot self-accept", helper.ID, q.ID, a.ID, http.StatusForbidden, models.CodeNotQuestionOwner},
		{"Unknown answer", owner.ID, q.ID, 9999, http.StatusNotFound, models.CodeAnswerNotFound},
		{"Answer of another question", owner.ID, other.ID, a.ID, http.StatusNotFound, models.CodeAnswerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Accept(ctx, tt.userID, tt.questionID, tt.answerID)
			assertAppError(t, err, tt.status, tt.code)
		})
	}

	assert.Equal(t, PointsAnswer, reload(t, db, helper).ReputationScore)
	assertSingleAccepted(t, db, q.ID)
}

func TestQuestionService_AcceptToleratesMissingPrevious(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewQuestionService(db)
	owner := createMember(t, db)
	first := createMember(t, db)
	second := createMember(t, db)

	q, err := svc.Ask(ctx, owner.ID, validAsk())
	require.NoError(t, err)
	a1, err := svc.Answer(ctx, first.ID, q.ID, validAnswer())
	require.NoError(t, err)
	a2, err := svc.Answer(ctx, second.ID, q.ID, validAnswer())
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, owner.ID, q.ID, a1.ID))

	require.NoError(t, db.Delete(&models.Answer{}, a1.ID).Error)

	require.NoError(t, svc.Accept(ctx, owner.ID, q.ID, a2.ID))
	assert.Equal(t, PointsAnswer+PointsAccepted, reload(t, db, first).ReputationScore, "no reversal without the old answer")
	assert.Equal(t, PointsAnswer+PointsAccepted, reload(t, db, second).ReputationScore)
	assertSingleAccepted(t, db, q.ID)
}

func TestQuestionService_LikeToggle(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewQuestionService(db)
	asker := createMember(t, db)
	author := createMember(t, db)
	fan := createMember(t, db)
	lurker := createMember(t, db, notJoined)

	q, err := svc.Ask(ctx, asker.ID, validAsk())
	require.NoError(t, err)
	a, err := svc.Answer(ctx, author.ID, q.ID, validAnswer())
	require.NoError(t, err)
	base := reload(t, db, author).ReputationScore

	for i := 1; i <= 5; i++ {
		res, err := svc.Like(ctx, fan.ID, q.ID, a.ID)
		require.NoError(t, err)

		odd := i%2 == 1
		assert.Equal(t, odd, res.Liked, "toggle %d", i)

		var stored models.Answer
		require.NoError(t, db.First(&stored, a.ID).Error)
		var likes int64
		db.Model(&models.AnswerLike{}).Where("answer_id = ?", a.ID).Count(&likes)

		if odd {
			assert.Equal(t, 1, res.LikesCount)
			assert.Equal(t, 1, stored.LikesCount)
			assert.Equal(t, int64(1), likes)
			assert.Equal(t, base+PointsLike, reload(t, db, author).ReputationScore)
		} else {
			assert.Equal(t, 0, res.LikesCount)
			assert.Equal(t, 0, stored.LikesCount)
			assert.Equal(t, int64(0), likes)
			assert.Equal(t, base, reload(t, db, author).ReputationScore)
		}
	}

	_, err = svc.Like(ctx, lurker.ID, q.ID, a.ID)
	assertAppError(t, err, http.StatusForbidden, models.CodeNotJoined)

	_, err = svc.Like(ctx, fan.ID, q.ID+1, a.ID)
	assertAppError(t, err, http.StatusNotFound, models.CodeAnswerNotFound)

	_, err = svc.Like(ctx, fan.ID, q.ID, 9999)
	assertAppError(t, err, http.StatusNotFound, models.CodeAnswerNotFound)

	assert.Equal(t, reload(t, db, author).ReputationScore, ledgerSum(t, db, author.ID))
}

func TestQuestionService_List(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewQuestionService(db)
	author := createMember(t, db)

	_, err := svc.Ask(ctx, author.ID, validAsk())
	require.NoError(t, err)
	placement := validAsk()
	placement.Title = "Which companies visit for placements?"
	placement.Category = models.CategoryPlacements
	_, err = svc.Ask(ctx, author.ID, placement)
	require.NoError(t, err)

	all, err := svc.List(ctx, repository.QuestionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Which companies visit for placements?", all[0].Title)
	require.NotNil(t, all[0].Author)

	labs, err := svc.List(ctx, repository.QuestionFilter{Category: models.CategoryLabs})
	require.NoError(t, err)
	require.Len(t, labs, 1)
}
