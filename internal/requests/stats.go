package requests

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/garnizeh/intake/pkg/models"
	"github.com/garnizeh/intake/pkg/repository"
)

// Aggregator computes the dashboard overview. Counts are read fresh on every
// call.
type Aggregator struct {
	repo repository.StatsRepo
}

func NewAggregator(repo repository.StatsRepo) *Aggregator {
	return &Aggregator{repo: repo}
}

// Overview folds the (serviceType, status) groups into totals. Cancelled
// requests count toward total and byServiceType only. byServiceType is
// ordered by count, largest first, then by name.
func (a *Aggregator) Overview(ctx context.Context) (*models.Overview, error) {
	groups, err := a.repo.CountGrouped(ctx)
	if err != nil {
		return nil, fmt.Errorf("count grouped requests: %w", err)
	}

	ov := &models.Overview{ByServiceType: []models.ServiceTypeCount{}}
	byType := map[models.ServiceType]int64{}
	for _, g := range groups {
		ov.Total += g.Count
		switch g.Status {
		case models.StatusPending:
			ov.Pending += g.Count
		case models.StatusInProgress:
			ov.InProgress += g.Count
		case models.StatusCompleted:
			ov.Completed += g.Count
		}
		byType[g.ServiceType] += g.Count
	}

	for st, n := range byType {
		ov.ByServiceType = append(ov.ByServiceType, models.ServiceTypeCount{ServiceType: st, Count: n})
	}
	slices.SortFunc(ov.ByServiceType, func(x, y models.ServiceTypeCount) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return cmp.Compare(x.ServiceType, y.ServiceType)
	})

	return ov, nil
}
