package match

import (
	"context"

	"reunite.city/matcher/internal/db"
)

// Store is the persistence surface the engine consumes. *db.Pool is the
// production implementation; tests substitute fakes.
type Store interface {
	GetReportByUUID(ctx context.Context, reportUUID string) (*db.Report, error)
	UpsertReport(ctx context.Context, upsert db.ReportUpsert) (*db.Report, error)
	FindCandidateReports(ctx context.Context, filter db.CandidateFilter) ([]*db.Report, error)

	UpsertMatch(ctx context.Context, sourceUUID, candidateUUID string, scores db.MatchScores) (*db.Match, error)
	GetMatchByUUID(ctx context.Context, matchUUID string) (*db.Match, error)
	TransitionMatch(ctx context.Context, matchUUID, expectedStatus, nextStatus string, reviewedBy, reviewReason *string, markViewed bool) (*db.Match, error)
	ListMatches(ctx context.Context, filter db.MatchListFilter) (int64, []*db.Match, error)
	ListMatchesForReport(ctx context.Context, reportUUID string) ([]*db.Match, error)
	QueryMatchStats(ctx context.Context) (*db.MatchStats, error)
}

var _ Store = (*db.Pool)(nil)
