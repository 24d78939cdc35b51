package repository

import (
	"context"
	"maps"
	"slices"

	"campusqa/internal/models"

	"gorm.io/gorm"
)

// ProjectionTotals are the three ledger-derived counters of one user.
type ProjectionTotals struct {
	UserID        uint `gorm:"column:user_id"`
	Reputation    int  `gorm:"column:reputation"`
	Contributions int  `gorm:"column:contributions"`
	Accepted      int  `gorm:"column:accepted"`
}

// ReputationRepository is the append-only reputation ledger plus the
// projection columns it maintains on users.
type ReputationRepository interface {
	Record(ctx context.Context, events ...models.ReputationEvent) error
	History(ctx context.Context, userID uint, limit int) ([]models.ReputationEvent, error)
	LedgerTotals(ctx context.Context) (map[uint]ProjectionTotals, error)
	Projections(ctx context.Context) ([]ProjectionTotals, error)
	Overwrite(ctx context.Context, totals ProjectionTotals) error
}

type reputationRepository struct {
	db *gorm.DB
}

// NewReputationRepository returns a ledger bound to db. Record must run
// inside the transaction that performs the domain write.
func NewReputationRepository(db *gorm.DB) ReputationRepository {
	return &reputationRepository{db: db}
}

// Record appends the events in order, then applies their summed deltas to
// each beneficiary in ascending user id order. Every writer locks users rows
// in the same order, so two transactions touching the same pair of users
// cannot deadlock.
func (r *reputationRepository) Record(ctx context.Context, events ...models.ReputationEvent) error {
	db := r.db.WithContext(ctx)
	deltas := make(map[uint]ProjectionTotals, len(events))
	for i := range events {
		ev := events[i]
		if err := db.Create(&ev).Error; err != nil {
			return models.NewInternalError(err)
		}

		d := deltas[ev.UserID]
		d.UserID = ev.UserID
		d.Reputation += ev.ReputationDelta
		d.Contributions += ev.ContributionDelta
		d.Accepted += ev.AcceptedDelta
		deltas[ev.UserID] = d
	}

	for _, userID := range slices.Sorted(maps.Keys(deltas)) {
		d := deltas[userID]
		res := db.Model(&models.User{}).Where("id = ?", userID).UpdateColumns(map[string]any{
			"reputation_score":       gorm.Expr("reputation_score + ?", d.Reputation),
			"contribution_count":     gorm.Expr("contribution_count + ?", d.Contributions),
			"accepted_answers_count": gorm.Expr("accepted_answers_count + ?", d.Accepted),
		})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return userNotFound()
		}
	}
	return nil
}

// History returns a user's most recent ledger events, newest first.
func (r *reputationRepository) History(ctx context.Context, userID uint, limit int) ([]models.ReputationEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var events []models.ReputationEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return events, nil
}

// LedgerTotals sums the ledger per beneficiary.
func (r *reputationRepository) LedgerTotals(ctx context.Context) (map[uint]ProjectionTotals, error) {
	var rows []ProjectionTotals
	err := r.db.WithContext(ctx).Model(&models.ReputationEvent{}).
		Select("user_id, " +
			"COALESCE(SUM(reputation_delta), 0) AS reputation, " +
			"COALESCE(SUM(contribution_delta), 0) AS contributions, " +
			"COALESCE(SUM(accepted_delta), 0) AS accepted").
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	out := make(map[uint]ProjectionTotals, len(rows))
	for _, row := range rows {
		out[row.UserID] = row
	}
	return out, nil
}

// Projections reads the current counters of every user. On postgres the rows
// stay locked until the surrounding transaction ends, so a concurrent Record
// waits on its users UPDATE and its event is not yet visible to LedgerTotals.
func (r *reputationRepository) Projections(ctx context.Context) ([]ProjectionTotals, error) {
	var rows []ProjectionTotals
	err := forNoKeyUpdate(r.db.WithContext(ctx)).Model(&models.User{}).
		Select("id AS user_id, " +
			"reputation_score AS reputation, " +
			"contribution_count AS contributions, " +
			"accepted_answers_count AS accepted").
		Order("id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *reputationRepository) Overwrite(ctx context.Context, totals ProjectionTotals) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", totals.UserID).UpdateColumns(map[string]any{
		"reputation_score":       totals.Reputation,
		"contribution_count":     totals.Contributions,
		"accepted_answers_count": totals.Accepted,
	})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return userNotFound()
	}
	return nil
}
