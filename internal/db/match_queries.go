package db

import (
	"context"
	"fmt"
	"time"
)

const matchColumns = `
	m.match_id,
	m.match_uuid::text,
	m.source_report_uuid::text,
	m.candidate_report_uuid::text,
	m.score_total,
	m.score_geo,
	m.score_temporal,
	m.score_text,
	m.score_visual,
	m.status,
	m.reviewed_by,
	m.review_reason,
	m.viewed_by_user,
	m.created_at,
	m.updated_at,
	m.reviewed_at`

type matchScanner interface {
	Scan(dest ...any) error
}

func scanMatch(s matchScanner) (*Match, error) {
	var m Match
	if err := s.Scan(
		&m.MatchID,
		&m.MatchUUID,
		&m.SourceReportUUID,
		&m.CandidateReportUUID,
		&m.ScoreTotal,
		&m.ScoreGeo,
		&m.ScoreTemporal,
		&m.ScoreText,
		&m.ScoreVisual,
		&m.Status,
		&m.ReviewedBy,
		&m.ReviewReason,
		&m.ViewedByUser,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.ReviewedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// MatchScores carries the score fields written by an upsert.
type MatchScores struct {
	Total    float64
	Geo      *float64
	Temporal *float64
	Text     *float64
	Visual   *float64
}

// UpsertMatch inserts a match row for a canonical pair or, when the pair
// already exists in a rescoreable state, refreshes its score fields. Rows in
// a terminal status are never modified; the frozen row is returned as-is.
// The unique pair index makes concurrent generation runs for the same pair
// collapse onto one row regardless of which side triggered first.
func (p *Pool) UpsertMatch(ctx context.Context, sourceUUID, candidateUUID string, scores MatchScores) (*Match, error) {
	const q = `
INSERT INTO matching.matches (
	source_report_uuid,
	candidate_report_uuid,
	score_total,
	score_geo,
	score_temporal,
	score_text,
	score_visual
)
VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7)
ON CONFLICT (source_report_uuid, candidate_report_uuid)
DO UPDATE SET
	score_total = EXCLUDED.score_total,
	score_geo = EXCLUDED.score_geo,
	score_temporal = EXCLUDED.score_temporal,
	score_text = EXCLUDED.score_text,
	score_visual = EXCLUDED.score_visual,
	updated_at = now()
WHERE matching.matches.status IN ('candidate', 'pending_review')
RETURNING ` + matchColumnsUnqualified

	match, err := scanMatch(p.QueryRow(ctx, q,
		sourceUUID,
		candidateUUID,
		scores.Total,
		scores.Geo,
		scores.Temporal,
		scores.Text,
		scores.Visual,
	))
	if err == nil {
		return match, nil
	}
	if !IsNoRows(err) {
		return nil, fmt.Errorf("upsert match: %w", err)
	}

	// The conflict target matched but the row is terminal, so the guarded
	// update touched nothing and RETURNING produced no row.
	existing, err := p.GetMatchByPair(ctx, sourceUUID, candidateUUID)
	if err != nil {
		return nil, fmt.Errorf("fetch frozen match after upsert: %w", err)
	}
	return existing, nil
}

const matchColumnsUnqualified = `
	match_id,
	match_uuid::text,
	source_report_uuid::text,
	candidate_report_uuid::text,
	score_total,
	score_geo,
	score_temporal,
	score_text,
	score_visual,
	status,
	reviewed_by,
	review_reason,
	viewed_by_user,
	created_at,
	updated_at,
	reviewed_at`

func (p *Pool) GetMatchByUUID(ctx context.Context, matchUUID string) (*Match, error) {
	q := `SELECT ` + matchColumns + ` FROM matching.matches m WHERE m.match_uuid = $1::uuid`
	return scanMatch(p.QueryRow(ctx, q, matchUUID))
}

func (p *Pool) GetMatchByPair(ctx context.Context, sourceUUID, candidateUUID string) (*Match, error) {
	q := `SELECT ` + matchColumns + `
FROM matching.matches m
WHERE m.source_report_uuid = $1::uuid
  AND m.candidate_report_uuid = $2::uuid`
	return scanMatch(p.QueryRow(ctx, q, sourceUUID, candidateUUID))
}

// TransitionMatch performs the compare-and-swap status update for one match.
// The write applies only when the row still carries expectedStatus; a missed
// swap returns ErrNoRows and the caller decides between not-found, conflict
// and idempotent outcomes.
func (p *Pool) TransitionMatch(ctx context.Context, matchUUID, expectedStatus, nextStatus string, reviewedBy, reviewReason *string, markViewed bool) (*Match, error) {
	const q = `
UPDATE matching.matches
SET
	status = $3,
	reviewed_by = COALESCE($4::text, reviewed_by),
	review_reason = COALESCE($5::text, review_reason),
	viewed_by_user = viewed_by_user OR $6::boolean,
	reviewed_at = CASE WHEN $4::text IS NOT NULL THEN now() ELSE reviewed_at END,
	updated_at = now()
WHERE match_uuid = $1::uuid
  AND status = $2
RETURNING ` + matchColumnsUnqualified

	return scanMatch(p.QueryRow(ctx, q, matchUUID, expectedStatus, nextStatus, reviewedBy, reviewReason, markViewed))
}

// MatchListFilter controls the moderator list query. Viewed is a tri-state:
// nil means no filtering on viewed_by_user.
type MatchListFilter struct {
	Status     string
	ReportUUID string
	MinScore   float64
	Viewed     *bool
	Page       int
	PageSize   int
}

func (p *Pool) ListMatches(ctx context.Context, filter MatchListFilter) (int64, []*Match, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		return 0, nil, fmt.Errorf("page size must be >= 1")
	}

	const countQuery = `
SELECT COUNT(*)
FROM matching.matches m
WHERE ($1 = '' OR m.status = $1)
  AND ($2 = '' OR m.source_report_uuid = $2::uuid OR m.candidate_report_uuid = $2::uuid)
  AND m.score_total >= $3
  AND ($4::boolean IS NULL OR m.viewed_by_user = $4)
`
	var total int64
	if err := p.QueryRow(ctx, countQuery, filter.Status, filter.ReportUUID, filter.MinScore, filter.Viewed).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("count matches: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize

	q := `SELECT ` + matchColumns + `
FROM matching.matches m
WHERE ($1 = '' OR m.status = $1)
  AND ($2 = '' OR m.source_report_uuid = $2::uuid OR m.candidate_report_uuid = $2::uuid)
  AND m.score_total >= $3
  AND ($4::boolean IS NULL OR m.viewed_by_user = $4)
ORDER BY m.score_total DESC, m.match_id DESC
LIMIT $5
OFFSET $6
`
	rows, err := p.Query(ctx, q, filter.Status, filter.ReportUUID, filter.MinScore, filter.Viewed, filter.PageSize, offset)
	if err != nil {
		return 0, nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*Match, 0, filter.PageSize)
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return 0, nil, fmt.Errorf("scan match row: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, fmt.Errorf("iterate match rows: %w", err)
	}

	return total, matches, nil
}

// ListMatchesForReport returns matches surfaced to the reporting user.
// Suppressed matches are moderator-judged false positives and stay hidden.
func (p *Pool) ListMatchesForReport(ctx context.Context, reportUUID string) ([]*Match, error) {
	q := `SELECT ` + matchColumns + `
FROM matching.matches m
WHERE (m.source_report_uuid = $1::uuid OR m.candidate_report_uuid = $1::uuid)
  AND m.status <> 'suppressed'
ORDER BY m.score_total DESC, m.match_id DESC
`
	rows, err := p.Query(ctx, q, reportUUID)
	if err != nil {
		return nil, fmt.Errorf("query matches for report: %w", err)
	}
	defer rows.Close()

	matches := make([]*Match, 0, 16)
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match rows: %w", err)
	}
	return matches, nil
}

// MatchStats is the engine's operational summary.
type MatchStats struct {
	Reports         int64            `json:"reports"`
	Matches         int64            `json:"matches"`
	MatchesByStatus map[string]int64 `json:"matches_by_status"`
	LastMatchedAt   *time.Time       `json:"last_matched_at,omitempty"`
	LastReviewedAt  *time.Time       `json:"last_reviewed_at,omitempty"`
}

func (p *Pool) QueryMatchStats(ctx context.Context) (*MatchStats, error) {
	const q = `
SELECT
	(SELECT COUNT(*) FROM matching.reports) AS reports,
	(SELECT COUNT(*) FROM matching.matches) AS matches,
	(SELECT MAX(updated_at) FROM matching.matches) AS last_matched_at,
	(SELECT MAX(reviewed_at) FROM matching.matches) AS last_reviewed_at
`
	var stats MatchStats
	if err := p.QueryRow(ctx, q).Scan(
		&stats.Reports,
		&stats.Matches,
		&stats.LastMatchedAt,
		&stats.LastReviewedAt,
	); err != nil {
		return nil, fmt.Errorf("query match stats: %w", err)
	}

	const statusQuery = `
SELECT status, COUNT(*)::BIGINT
FROM matching.matches
GROUP BY status
ORDER BY status
`
	rows, err := p.Query(ctx, statusQuery)
	if err != nil {
		return nil, fmt.Errorf("query match status counts: %w", err)
	}
	defer rows.Close()

	stats.MatchesByStatus = map[string]int64{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan match status count: %w", err)
		}
		stats.MatchesByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match status counts: %w", err)
	}

	return &stats, nil
}
