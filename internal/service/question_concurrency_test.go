package service

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"campusqa/internal/models"
	"campusqa/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// racingAnswers reports every AddLike as lost to a concurrent toggle until
// losses runs out, then inserts for real.
type racingAnswers struct {
	repository.AnswerRepository
	losses *atomic.Int32
	calls  *atomic.Int32
}

func (r racingAnswers) AddLike(ctx context.Context, answerID, userID uint) (bool, error) {
	r.calls.Add(1)
	if r.losses.Add(-1) >= 0 {
		return false, nil
	}
	return r.AnswerRepository.AddLike(ctx, answerID, userID)
}

// movedQuestions loses every compare-and-set on the accepted pointer.
type movedQuestions struct {
	repository.QuestionRepository
}

func (movedQuestions) MoveAcceptedAnswer(context.Context, uint, *uint, uint) (bool, error) {
	return false, nil
}

func likeEventCount(t *testing.T, db *gorm.DB, answerID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ReputationEvent{}).
		Where("answer_id = ? AND kind IN ?", answerID, []models.ReputationEventKind{models.EventAnswerLiked, models.EventAnswerUnliked}).
		Count(&n).Error)
	return n
}

func TestQuestionService_ConcurrentLikeToggles(t *testing.T) {
	ctx := context.Background()
	db := setupFileDB(t)
	svc := NewQuestionService(db)
	asker := createMember(t, db)
	author := createMember(t, db)

	q, err := svc.Ask(ctx, asker.ID, validAsk())
	require.NoError(t, err)
	a, err := svc.Answer(ctx, author.ID, q.ID, validAnswer())
	require.NoError(t, err)

	// Each fan toggles a fixed number of times, all fans at once. Per fan the
	// toggles serialize, so the final state is the parity of the count.
	toggles := []int{4, 3, 5, 1, 2}
	fans := make([]*models.User, len(toggles))
	for i := range fans {
		fans[i] = createMember(t, db)
	}

	var (
		wg      sync.WaitGroup
		liked   atomic.Int32
		unliked atomic.Int32
		errs    = make(chan error, 32)
	)
	for i, n := range toggles {
		for range n {
			wg.Add(1)
			go func(fanID uint) {
				defer wg.Done()
				res, err := svc.Like(ctx, fanID, q.ID, a.ID)
				if err != nil {
					errs <- err
					return
				}
				if res.Liked {
					liked.Add(1)
				} else {
					unliked.Add(1)
				}
			}(fans[i].ID)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	wantLikes := 0
	for _, n := range toggles {
		wantLikes += n % 2
	}

	var rows int64
	require.NoError(t, db.Model(&models.AnswerLike{}).Where("answer_id = ?", a.ID).Count(&rows).Error)
	var stored models.Answer
	require.NoError(t, db.First(&stored, a.ID).Error)

	assert.Equal(t, int64(wantLikes), rows)
	assert.Equal(t, wantLikes, stored.LikesCount)
	assert.Equal(t, int32(wantLikes), liked.Load()-unliked.Load())
	assert.Equal(t, int64(15), likeEventCount(t, db, a.ID), "one ledger event per toggle")

	got := reload(t, db, author).ReputationScore
	assert.Equal(t, PointsAnswer+wantLikes*PointsLike, got)
	assert.Equal(t, got, ledgerSum(t, db, author.ID))
}

func TestQuestionService_LikeRetriesLostInsert(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		losses    int32
		wantCalls int32
		wantErr   bool
	}{
		{"Recovers on the next attempt", 1, 2, false},
		{"Recovers on the last attempt", maxLikeAttempts - 1, maxLikeAttempts, false},
		{"Gives up after every attempt loses", maxLikeAttempts, maxLikeAttempts, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			svc := NewQuestionService(db)
			asker := createMember(t, db)
			author := createMember(t, db)
			fan := createMember(t, db)

			q, err := svc.Ask(ctx, asker.ID, validAsk())
			require.NoError(t, err)
			a, err := svc.Answer(ctx, author.ID, q.ID, validAnswer())
			require.NoError(t, err)

			var losses, calls atomic.Int32
			losses.Store(tt.losses)
			svc.repos = func(tx *gorm.DB) txRepos {
				r := reposFor(tx)
				r.answers = racingAnswers{AnswerRepository: r.answers, losses: &losses, calls: &calls}
				return r
			}

			res, err := svc.Like(ctx, fan.ID, q.ID, a.ID)
			assert.Equal(t, tt.wantCalls, calls.Load())

			var rows int64
			require.NoError(t, db.Model(&models.AnswerLike{}).Where("answer_id = ?", a.ID).Count(&rows).Error)
			var stored models.Answer
			require.NoError(t, db.First(&stored, a.ID).Error)

			if tt.wantErr {
				assertAppError(t, err, http.StatusConflict, models.CodeConflictRetry)
				assert.Zero(t, rows)
				assert.Zero(t, stored.LikesCount)
				assert.Zero(t, likeEventCount(t, db, a.ID))
				assert.Equal(t, PointsAnswer, reload(t, db, author).ReputationScore)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, LikeResult{Liked: true, LikesCount: 1}, res)
			assert.Equal(t, int64(1), rows)
			assert.Equal(t, int64(1), likeEventCount(t, db, a.ID), "lost attempts record nothing")
			assert.Equal(t, PointsAnswer+PointsLike, reload(t, db, author).ReputationScore)
		})
	}
}

func TestQuestionService_AcceptLosesCompareAndSet(t *testing.T) {
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

	countEvents := func() int64 {
		var n int64
		require.NoError(t, db.Model(&models.ReputationEvent{}).Count(&n).Error)
		return n
	}

	svc.repos = func(tx *gorm.DB) txRepos {
		r := reposFor(tx)
		r.questions = movedQuestions{QuestionRepository: r.questions}
		return r
	}

	t.Run("First accept rolls back", func(t *testing.T) {
		before := countEvents()
		err := svc.Accept(ctx, owner.ID, q.ID, a1.ID)
		assertAppError(t, err, http.StatusConflict, models.CodeConflictRetry)

		assert.Equal(t, before, countEvents())
		var stored models.Answer
		require.NoError(t, db.First(&stored, a1.ID).Error)
		assert.False(t, stored.IsAccepted)
		assert.Equal(t, PointsAnswer, reload(t, db, first).ReputationScore)
		assert.Zero(t, reload(t, db, first).AcceptedAnswersCount)
		assertSingleAccepted(t, db, q.ID)
	})

	t.Run("Moving an existing accept rolls back the reversal too", func(t *testing.T) {
		svc.repos = reposFor
		require.NoError(t, svc.Accept(ctx, owner.ID, q.ID, a1.ID))
		svc.repos = func(tx *gorm.DB) txRepos {
			r := reposFor(tx)
			r.questions = movedQuestions{QuestionRepository: r.questions}
			return r
		}

		before := countEvents()
		err := svc.Accept(ctx, owner.ID, q.ID, a2.ID)
		assertAppError(t, err, http.StatusConflict, models.CodeConflictRetry)

		assert.Equal(t, before, countEvents())
		var stored models.Answer
		require.NoError(t, db.First(&stored, a1.ID).Error)
		assert.True(t, stored.IsAccepted)
		require.NoError(t, db.First(&stored, a2.ID).Error)
		assert.False(t, stored.IsAccepted)
		assert.Equal(t, PointsAnswer+PointsAccepted, reload(t, db, first).ReputationScore)
		assert.Equal(t, PointsAnswer, reload(t, db, second).ReputationScore)
		assertSingleAccepted(t, db, q.ID)
	})
}
