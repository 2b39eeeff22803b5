package match

import (
	"context"
	"fmt"
	"math"
	"strings"

	"reunite.city/matcher/internal/db"
	"reunite.city/matcher/internal/scoring"
)

const (
	ReportTypeLost  = "lost"
	ReportTypeFound = "found"

	reportStatusApproved = "approved"

	kmPerDegreeLat = 111.32
)

// GenerateForReport scores a report against a bounded set of opposite-type
// reports and upserts one match row per surviving pair. Safe to re-run at any
// time: existing non-terminal matches are rescored in place and terminal ones
// stay frozen.
func (e *Engine) GenerateForReport(ctx context.Context, reportUUID string) ([]*db.Match, error) {
	reportUUID = strings.TrimSpace(reportUUID)
	if reportUUID == "" {
		return nil, fmt.Errorf("%w: report uuid is required", ErrValidation)
	}

	report, err := e.store.GetReportByUUID(ctx, reportUUID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fmt.Errorf("%w: report %s", ErrNotFound, reportUUID)
		}
		return nil, fmt.Errorf("load report %s: %w", reportUUID, err)
	}

	if report.Status != reportStatusApproved {
		e.logger.Debug().
			Str("report_uuid", reportUUID).
			Str("status", report.Status).
			Msg("skipping match generation for unapproved report")
		return []*db.Match{}, nil
	}

	candidates, err := e.store.FindCandidateReports(ctx, e.candidateFilter(report))
	if err != nil {
		return nil, fmt.Errorf("find candidates for report %s: %w", reportUUID, err)
	}
	if len(candidates) == 0 {
		return []*db.Match{}, nil
	}

	subject := subjectFromReport(report)

	matches := make([]*db.Match, 0, len(candidates))
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("candidate generation cancelled: %w", err)
		}
		if candidate.ReportType == report.ReportType {
			// The pre-filter already excludes same-type rows; this guard keeps
			// the type invariant independent of the store implementation.
			continue
		}

		total, breakdown := e.scorePair(subject, subjectFromReport(candidate))
		if breakdown.AllNull() || total < e.params.AcceptThreshold {
			continue
		}

		sourceUUID, candidateUUID := CanonicalPair(report.ReportUUID, candidate.ReportUUID)
		match, err := e.store.UpsertMatch(ctx, sourceUUID, candidateUUID, db.MatchScores{
			Total:    total,
			Geo:      breakdown.Geo,
			Temporal: breakdown.Temporal,
			Text:     breakdown.Text,
			Visual:   breakdown.Visual,
		})
		if err != nil {
			return nil, fmt.Errorf("upsert match %s/%s: %w", sourceUUID, candidateUUID, err)
		}
		matches = append(matches, match)
	}

	e.logger.Debug().
		Str("report_uuid", reportUUID).
		Int("candidates", len(candidates)).
		Int("matches", len(matches)).
		Msg("candidate generation finished")

	return matches, nil
}

// SyncReport refreshes the report mirror from an ingest payload and, when the
// report is approved, immediately regenerates its matches. A payload that
// tries to flip the report type is rejected: type is immutable once created.
func (e *Engine) SyncReport(ctx context.Context, upsert db.ReportUpsert) (*db.Report, []*db.Match, error) {
	report, err := e.store.UpsertReport(ctx, upsert)
	if err != nil {
		return nil, nil, fmt.Errorf("sync report %s: %w", upsert.ReportUUID, err)
	}
	if report.ReportType != upsert.ReportType {
		return nil, nil, fmt.Errorf("%w: report %s is %s, type cannot change to %s",
			ErrValidation, upsert.ReportUUID, report.ReportType, upsert.ReportType)
	}

	matches, err := e.GenerateForReport(ctx, report.ReportUUID)
	if err != nil {
		return nil, nil, err
	}
	return report, matches, nil
}

func (e *Engine) candidateFilter(report *db.Report) db.CandidateFilter {
	filter := db.CandidateFilter{
		ReportType:  oppositeType(report.ReportType),
		ExcludeUUID: report.ReportUUID,
		Limit:       e.candidateLimit(),
	}

	if report.OccurredAt != nil {
		window := e.params.MaxWindow()
		from := report.OccurredAt.Add(-window)
		to := report.OccurredAt.Add(window)
		filter.OccurredFrom = &from
		filter.OccurredTo = &to
	}

	if report.Latitude != nil && report.Longitude != nil {
		deltaLat := e.params.MaxDistanceKM / kmPerDegreeLat
		minLat := math.Max(-90, *report.Latitude-deltaLat)
		maxLat := math.Min(90, *report.Latitude+deltaLat)

		// Longitude degrees shrink toward the poles; widen the box using the
		// narrower of the two latitudes so the radius is never undercut.
		cosLat := math.Cos(*report.Latitude * math.Pi / 180)
		if cosLat < 0.01 {
			cosLat = 0.01
		}
		deltaLon := e.params.MaxDistanceKM / (kmPerDegreeLat * cosLat)
		minLon := math.Max(-180, *report.Longitude-deltaLon)
		maxLon := math.Min(180, *report.Longitude+deltaLon)

		filter.MinLat = &minLat
		filter.MaxLat = &maxLat
		filter.MinLon = &minLon
		filter.MaxLon = &maxLon
	}

	return filter
}

func (e *Engine) candidateLimit() int {
	if e.params.CandidateLimit > 0 {
		return e.params.CandidateLimit
	}
	return 200
}

func (e *Engine) scorePair(a, b scoring.Subject) (float64, scoring.Breakdown) {
	breakdown := scoring.Breakdown{
		Geo:      scoring.GeoScore(a, b, e.params.MaxDistanceKM),
		Temporal: scoring.TemporalScore(a, b, e.params.MaxWindowHours),
		Text:     e.safeScore("text", func() *float64 { return e.text.Score(a, b) }),
		Visual:   e.safeScore("visual", func() *float64 { return e.visual.Score(a, b) }),
	}

	total := scoring.Compose(breakdown, e.params)
	if total > 0 && a.Category != "" && strings.EqualFold(a.Category, b.Category) {
		total = math.Min(1, total+e.params.CategoryBoost)
	}
	return total, breakdown
}

// safeScore shields the composite from pluggable scorer failures: a panic in
// a text/visual implementation degrades that signal to unavailable.
func (e *Engine) safeScore(signal string, fn func() *float64) (result *float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().
				Str("signal", signal).
				Interface("panic", r).
				Msg("scorer failed, treating signal as unavailable")
			result = nil
		}
	}()
	return fn()
}

// CanonicalPair orders an unordered report pair deterministically so the
// unique index sees one key per pair no matter which side triggered scoring.
func CanonicalPair(a, b string) (string, string) {
	if strings.Compare(a, b) <= 0 {
		return a, b
	}
	return b, a
}

func oppositeType(reportType string) string {
	if reportType == ReportTypeLost {
		return ReportTypeFound
	}
	return ReportTypeLost
}

func subjectFromReport(r *db.Report) scoring.Subject {
	subject := scoring.Subject{
		Title:       r.Title,
		Description: r.Description,
		Category:    strings.TrimSpace(strings.ToLower(r.Category)),
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		OccurredAt:  r.OccurredAt,
	}
	for _, image := range r.ImageList() {
		if strings.TrimSpace(image.PHash) != "" {
			subject.ImageHashes = append(subject.ImageHashes, image.PHash)
		}
	}
	return subject
}
