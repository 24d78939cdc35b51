package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"campusqa/internal/cache"
	"campusqa/internal/featureflags"
	"campusqa/internal/models"
	"campusqa/internal/repository"
)

const onlineWindow = 10 * time.Minute

// Contributor is one entry of the contributors directory. The last three
// fields depend on the caller and the clock, so they are never cached.
type Contributor struct {
	ID                       uint     `json:"id"`
	Name                     string   `json:"name"`
	Department               string   `json:"department"`
	Year                     int      `json:"year"`
	Skills                   []string `json:"skills"`
	Experience               string   `json:"experience"`
	ReputationScore          int      `json:"reputationScore"`
	ContributionCount        int      `json:"contributionCount"`
	AcceptedAnswersCount     int      `json:"acceptedAnswersCount"`
	AnsweredMyQuestionsCount int      `json:"answeredMyQuestionsCount"`
	IsOnline                 bool     `json:"isOnline"`
	LastSeen                 string   `json:"lastSeen"`
}

// LeaderboardEntry is one ranked row of the likes leaderboard.
type LeaderboardEntry struct {
	Rank              int    `json:"rank"`
	ID                uint   `json:"id"`
	Name              string `json:"name"`
	Department        string `json:"department"`
	Year              int    `json:"year"`
	ContributionCount int    `json:"contributionCount"`
	LikesReceived     int    `json:"likesReceived"`
}

// RankingService serves the contributors directory and the leaderboard.
type RankingService struct {
	rankings  repository.RankingRepository
	questions repository.QuestionRepository
	flags     *featureflags.Manager
	now       func() time.Time
}

func NewRankingService(rankings repository.RankingRepository, questions repository.QuestionRepository, flags *featureflags.Manager) *RankingService {
	return &RankingService{
		rankings:  rankings,
		questions: questions,
		flags:     flags,
		now:       time.Now,
	}
}

// Contributors lists up to 50 users ordered by filter.SortBy and annotates
// each with how many answers they gave to the caller's questions.
func (s *RankingService) Contributors(ctx context.Context, callerID uint, filter repository.ContributorFilter) ([]Contributor, error) {
	switch filter.SortBy {
	case repository.SortByReputation, repository.SortByAccepted, repository.SortByContributions:
	default:
		filter.SortBy = repository.SortByReputation
	}
	if filter.Year < 1 || filter.Year > 4 {
		filter.Year = 0
	}
	if filter.Limit <= 0 || filter.Limit > 50 {
		filter.Limit = 50
	}

	var users []models.User
	fetch := func() error {
		var err error
		users, err = s.rankings.Contributors(ctx, filter)
		return err
	}
	if s.flags.Enabled(featureflags.ContributorsCache, callerID) {
		key := cache.ContributorsKey(filter.SortBy, filter.Year, filter.Skills, filter.Limit)
		if err := cache.Aside(ctx, key, &users, cache.ContributorsTTL, fetch); err != nil {
			return nil, err
		}
	} else if err := fetch(); err != nil {
		return nil, err
	}

	myQuestions, err := s.questions.IDsByAuthor(ctx, callerID)
	if err != nil {
		return nil, err
	}
	answered, err := s.rankings.AnswerCountsOnQuestions(ctx, myQuestions)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]Contributor, 0, len(users))
	for _, u := range users {
		skills := u.Skills
		if skills == nil {
			skills = []string{}
		}
		out = append(out, Contributor{
			ID:                       u.ID,
			Name:                     u.Name,
			Department:               u.Department,
			Year:                     u.Year,
			Skills:                   skills,
			Experience:               u.Experience,
			ReputationScore:          u.ReputationScore,
			ContributionCount:        u.ContributionCount,
			AcceptedAnswersCount:     u.AcceptedAnswersCount,
			AnsweredMyQuestionsCount: answered[u.ID],
			IsOnline:                 u.LastActiveAt != nil && now.Sub(*u.LastActiveAt) < onlineWindow,
			LastSeen:                 FormatLastSeen(u.LastActiveAt, now),
		})
	}
	return out, nil
}

// Leaderboard ranks users by likes received, then contributions.
func (s *RankingService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var entries []LeaderboardEntry
	err := cache.Aside(ctx, cache.LeaderboardKey(limit), &entries, cache.LeaderboardTTL, func() error {
		rows, err := s.rankings.Leaderboard(ctx, limit)
		if err != nil {
			return err
		}
		entries = make([]LeaderboardEntry, 0, len(rows))
		for i, row := range rows {
			entries = append(entries, LeaderboardEntry{
				Rank:              i + 1,
				ID:                row.UserID,
				Name:              row.Name,
				Department:        row.Department,
				Year:              row.Year,
				ContributionCount: row.ContributionCount,
				LikesReceived:     row.LikesReceived,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// FormatLastSeen renders lastActiveAt relative to now for the directory.
func FormatLastSeen(lastActiveAt *time.Time, now time.Time) string {
	if lastActiveAt == nil || lastActiveAt.IsZero() {
		return "Not seen recently"
	}
	d := now.Sub(*lastActiveAt)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}

// ParseSortBy maps a query value to a sort key, falling back to reputation.
func ParseSortBy(raw string) string {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case repository.SortByAccepted, repository.SortByContributions:
		return v
	default:
		return repository.SortByReputation
	}
}
