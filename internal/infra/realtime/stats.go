package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	"parishd/internal/domain"
)

// Aggregator rebuilds the dashboard rollup from the full active-member
// snapshot on every relevant change. There are no incremental counters:
// the full recompute-and-replace keeps the rollup drift-free under
// concurrent edits and missed feed events.
type Aggregator struct {
	logger     *zap.Logger
	reader     domain.StatsReader
	dispatcher *Dispatcher
	branches   []string
	now        func() time.Time
}

func NewAggregator(reader domain.StatsReader, dispatcher *Dispatcher, branches []string, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(branches) == 0 {
		branches = domain.DefaultBranches()
	}
	return &Aggregator{
		logger:     logger.Named("stats"),
		reader:     reader,
		dispatcher: dispatcher,
		branches:   branches,
		now:        time.Now,
	}
}

// Compute re-reads the active-member set and rebuilds the rollup without
// broadcasting, for the synchronous stats endpoint.
func (a *Aggregator) Compute(ctx context.Context) (domain.DashboardStats, error) {
	rows, err := a.reader.ActiveMembers(ctx)
	if err != nil {
		return domain.DashboardStats{}, domain.E(domain.CodeUnavailable, "stats.compute", "", err)
	}
	return tallyStats(rows, a.branches, a.now()), nil
}

// Recompute rebuilds the rollup and unconditionally broadcasts it to admins
// as DASHBOARD_STATS_UPDATE. A query failure is logged and nothing is sent:
// no stale rollup is ever fabricated.
func (a *Aggregator) Recompute(ctx context.Context) (domain.DashboardStats, error) {
	stats, err := a.Compute(ctx)
	if err != nil {
		a.logger.Error("stats recompute failed", zap.Error(err))
		return domain.DashboardStats{}, err
	}

	a.dispatcher.BroadcastToAdmins(domain.NewNotification(domain.NotifyDashboardStats, stats))
	return stats, nil
}

func tallyStats(rows []domain.MemberTally, branches []string, now time.Time) domain.DashboardStats {
	stats := domain.DashboardStats{
		TotalMembers: len(rows),
		BranchStats:  make(map[string]int, len(branches)),
	}
	for _, branch := range branches {
		stats.BranchStats[branch] = 0
	}

	recentCutoff := now.Add(-domain.RecentRegistrationWindow)
	for _, row := range rows {
		switch row.ApprovalStatus {
		case domain.StatusPending:
			stats.PendingMembers++
		case domain.StatusApproved:
			stats.ApprovedMembers++
		case domain.StatusRejected:
			stats.RejectedMembers++
		}
		if row.Branch != "" {
			stats.BranchStats[row.Branch]++
		}
		if row.CreatedAt.After(recentCutoff) {
			stats.RecentRegistrations++
		}
	}
	return stats
}
