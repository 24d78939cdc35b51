package repository

import (
	"context"
	"testing"
	"time"

	"campusqa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerRepository_Likes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnswerRepository(db)
	ctx := context.Background()
	author := createUser(t, db)
	liker := createUser(t, db)
	q := createQuestion(t, db, author.ID)
	a := createAnswer(t, db, q.ID, author.ID)

	added, err := repo.AddLike(ctx, a.ID, liker.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddLike(ctx, a.ID, liker.ID)
	require.NoError(t, err)
	assert.False(t, added, "unique index absorbs the duplicate")

	other := createAnswer(t, db, q.ID, author.ID)
	liked, err := repo.LikedBy(ctx, liker.ID, []uint{a.ID, other.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{a.ID: true}, liked)

	liked, err = repo.LikedBy(ctx, author.ID, []uint{a.ID, other.ID})
	require.NoError(t, err)
	assert.Empty(t, liked)

	liked, err = repo.LikedBy(ctx, liker.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, liked)

	removed, err := repo.RemoveLike(ctx, a.ID, liker.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveLike(ctx, a.ID, liker.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestAnswerRepository_Counters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnswerRepository(db)
	ctx := context.Background()
	author := createUser(t, db)
	q := createQuestion(t, db, author.ID)
	a := createAnswer(t, db, q.ID, author.ID)

	count, err := repo.AdjustLikes(ctx, a.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = repo.AdjustLikes(ctx, a.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = repo.AdjustLikes(ctx, 9999, 1)
	assert.Equal(t, models.CodeAnswerNotFound, appErrCode(t, err))

	require.NoError(t, repo.SetAccepted(ctx, a.ID, true))
	got, err := repo.GetByIDForUpdate(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAccepted)

	_, err = repo.GetByID(ctx, 9999)
	assert.Equal(t, models.CodeAnswerNotFound, appErrCode(t, err))
}

func TestAnswerRepository_ListByQuestion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAnswerRepository(db)
	ctx := context.Background()
	author := createUser(t, db)
	q := createQuestion(t, db, author.ID)

	base := time.Now().Add(-time.Hour)
	first := &models.Answer{QuestionID: q.ID, AuthorID: author.ID, Body: "first answer body", CreatedAt: base}
	second := &models.Answer{QuestionID: q.ID, AuthorID: author.ID, Body: "second answer body", CreatedAt: base.Add(time.Minute)}
	accepted := &models.Answer{QuestionID: q.ID, AuthorID: author.ID, Body: "accepted answer body", IsAccepted: true, CreatedAt: base.Add(2 * time.Minute)}
	for _, a := range []*models.Answer{first, second, accepted} {
		require.NoError(t, repo.Create(ctx, a))
	}

	got, err := repo.ListByQuestion(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []uint{accepted.ID, first.ID, second.ID}, []uint{got[0].ID, got[1].ID, got[2].ID})
	require.NotNil(t, got[0].Author)
	assert.Equal(t, author.Name, got[0].Author.Name)
}
