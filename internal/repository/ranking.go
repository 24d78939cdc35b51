package repository

import (
	"context"
	"encoding/json"
	"strings"

	"campusqa/internal/models"

	"gorm.io/gorm"
)

// Contributor sort keys.
const (
	SortByReputation    = "reputation"
	SortByAccepted      = "accepted"
	SortByContributions = "contributions"
)

// ContributorFilter selects and orders the contributors directory.
type ContributorFilter struct {
	SortBy string
	Year   int
	Skills []string
	Limit  int
}

// LeaderboardRow is one author with the likes their answers received.
type LeaderboardRow struct {
	UserID            uint   `gorm:"column:user_id"`
	Name              string `gorm:"column:name"`
	Department        string `gorm:"column:department"`
	Year              int    `gorm:"column:year"`
	ContributionCount int    `gorm:"column:contribution_count"`
	LikesReceived     int    `gorm:"column:likes_received"`
}

// RankingRepository serves the contributors directory and the leaderboard.
type RankingRepository interface {
	Contributors(ctx context.Context, filter ContributorFilter) ([]models.User, error)
	AnswerCountsOnQuestions(ctx context.Context, questionIDs []uint) (map[uint]int, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
}

type rankingRepository struct {
	db *gorm.DB
}

func NewRankingRepository(db *gorm.DB) RankingRepository {
	return &rankingRepository{db: db}
}

func contributorOrder(sortBy string) string {
	switch sortBy {
	case SortByAccepted:
		return "accepted_answers_count DESC, reputation_score DESC, id ASC"
	case SortByContributions:
		return "contribution_count DESC, reputation_score DESC, id ASC"
	default:
		return "reputation_score DESC, accepted_answers_count DESC, id ASC"
	}
}

func (r *rankingRepository) Contributors(ctx context.Context, filter ContributorFilter) ([]models.User, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Model(&models.User{})
	if filter.Year >= 1 && filter.Year <= 4 {
		query = query.Where("year = ?", filter.Year)
	}
	if len(filter.Skills) > 0 {
		// skills is a JSON array in a text column; match any quoted entry.
		clauses := make([]string, 0, len(filter.Skills))
		args := make([]any, 0, len(filter.Skills))
		for _, skill := range filter.Skills {
			clauses = append(clauses, `skills LIKE ? ESCAPE '\'`)
			quoted, _ := json.Marshal(skill)
			args = append(args, "%"+likeEscaper.Replace(string(quoted))+"%")
		}
		query = query.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}

	var users []models.User
	if err := query.Order(contributorOrder(filter.SortBy)).Limit(limit).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// AnswerCountsOnQuestions counts answers per author across questionIDs.
func (r *rankingRepository) AnswerCountsOnQuestions(ctx context.Context, questionIDs []uint) (map[uint]int, error) {
	out := make(map[uint]int)
	if len(questionIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		AuthorID uint `gorm:"column:author_id"`
		Total    int  `gorm:"column:total"`
	}
	err := r.db.WithContext(ctx).Model(&models.Answer{}).
		Select("author_id, COUNT(*) AS total").
		Where("question_id IN ?", questionIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.AuthorID] = row.Total
	}
	return out, nil
}

// Leaderboard ranks users by likes received on their answers, then contributions.
func (r *rankingRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	likes := r.db.Model(&models.Answer{}).
		Select("author_id, SUM(likes_count) AS total").
		Group("author_id")

	var rows []LeaderboardRow
	err := r.db.WithContext(ctx).Table("users").
		Select("users.id AS user_id, users.name, users.department, users.year, users.contribution_count, "+
			"COALESCE(l.total, 0) AS likes_received").
		Joins("LEFT JOIN (?) AS l ON l.author_id = users.id", likes).
		Order("likes_received DESC").
		Order("users.contribution_count DESC").
		Order("users.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
