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

// ReputationService exposes the ledger: per-user history and the
// reconciliation that rebuilds user projections from it.
type ReputationService struct {
	db     *gorm.DB
	ledger repository.ReputationRepository
}

func NewReputationService(db *gorm.DB) *ReputationService {
	return &ReputationService{db: db, ledger: repository.NewReputationRepository(db)}
}

func (s *ReputationService) History(ctx context.Context, userID uint, limit int) ([]models.ReputationEvent, error) {
	return s.ledger.History(ctx, userID, limit)
}

// Reconcile recomputes every user's reputation, contribution and accepted
// counters from the ledger and overwrites the ones that drifted. It returns
// the number of users corrected. The users rows are locked before the ledger
// is summed: an event committed earlier is counted in both, and one still in
// flight lands its increment after the overwrite.
func (s *ReputationService) Reconcile(ctx context.Context) (fixed int, err error) {
	ctx, span := observability.StartSpan(ctx, "reputation", "reconcile")
	defer func() { span.End(err) }()
	defer observability.TrackQuery("reconcile", "users")()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := repository.NewReputationRepository(tx)

		current, err := ledger.Projections(ctx)
		if err != nil {
			return err
		}
		totals, err := ledger.LedgerTotals(ctx)
		if err != nil {
			return err
		}

		for _, have := range current {
			want := totals[have.UserID]
			want.UserID = have.UserID
			if want == have {
				continue
			}
			slog.WarnContext(ctx, "reputation projection drifted",
				slog.Uint64("user_id", uint64(have.UserID)),
				slog.Int("reputation", have.Reputation),
				slog.Int("ledger_reputation", want.Reputation),
			)
			if err := ledger.Overwrite(ctx, want); err != nil {
				return err
			}
			fixed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if fixed > 0 {
		observability.ReconciledUsers.Add(float64(fixed))
		cache.InvalidateRankings(ctx)
	}
	return fixed, nil
}
