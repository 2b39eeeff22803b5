package match

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"reunite.city/matcher/internal/db"
)

// fakeStore mirrors the storage semantics the engine relies on: canonical
// pair uniqueness, frozen terminal rows on upsert and compare-and-swap
// transitions that miss with ErrNoRows.
type fakeStore struct {
	mu      sync.Mutex
	reports map[string]*db.Report
	matches map[string]*db.Match // keyed by "source|candidate"

	nextMatchID int64
	upsertCalls int
	upsertErr   error
	getMatchErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reports: map[string]*db.Report{},
		matches: map[string]*db.Match{},
	}
}

func pairKey(sourceUUID, candidateUUID string) string {
	return sourceUUID + "|" + candidateUUID
}

func (s *fakeStore) addReport(r *db.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[r.ReportUUID] = r
}

func (s *fakeStore) addMatch(m *db.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[pairKey(m.SourceReportUUID, m.CandidateReportUUID)] = m
}

func (s *fakeStore) matchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

func (s *fakeStore) findByUUID(matchUUID string) *db.Match {
	for _, m := range s.matches {
		if m.MatchUUID == matchUUID {
			return m
		}
	}
	return nil
}

func (s *fakeStore) GetReportByUUID(_ context.Context, reportUUID string) (*db.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, exists := s.reports[reportUUID]
	if !exists {
		return nil, db.ErrNoRows
	}
	copyReport := *report
	return &copyReport, nil
}

func (s *fakeStore) UpsertReport(_ context.Context, upsert db.ReportUpsert) (*db.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.reports[upsert.ReportUUID]; exists {
		if existing.ReportType != upsert.ReportType {
			copyReport := *existing
			return &copyReport, nil
		}
		updated := *existing
		updated.Title = upsert.Title
		updated.Description = upsert.Description
		updated.Category = upsert.Category
		updated.LocationLabel = upsert.LocationLabel
		updated.Latitude = upsert.Latitude
		updated.Longitude = upsert.Longitude
		updated.OccurredAt = upsert.OccurredAt
		updated.Images = upsert.Images
		updated.OwnerUUID = upsert.OwnerUUID
		updated.Status = upsert.Status
		updated.UpdatedAt = time.Now().UTC()
		s.reports[upsert.ReportUUID] = &updated
		copyReport := updated
		return &copyReport, nil
	}

	report := &db.Report{
		ReportUUID:    upsert.ReportUUID,
		ReportType:    upsert.ReportType,
		Title:         upsert.Title,
		Description:   upsert.Description,
		Category:      upsert.Category,
		LocationLabel: upsert.LocationLabel,
		Latitude:      upsert.Latitude,
		Longitude:     upsert.Longitude,
		OccurredAt:    upsert.OccurredAt,
		Images:        upsert.Images,
		OwnerUUID:     upsert.OwnerUUID,
		Status:        upsert.Status,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	s.reports[upsert.ReportUUID] = report
	copyReport := *report
	return &copyReport, nil
}

func (s *fakeStore) FindCandidateReports(_ context.Context, filter db.CandidateFilter) ([]*db.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]*db.Report, 0, len(s.reports))
	for _, report := range s.reports {
		if report.ReportType != filter.ReportType || report.Status != "approved" {
			continue
		}
		if report.ReportUUID == filter.ExcludeUUID {
			continue
		}
		if filter.OccurredFrom != nil && report.OccurredAt != nil {
			if report.OccurredAt.Before(*filter.OccurredFrom) || report.OccurredAt.After(*filter.OccurredTo) {
				continue
			}
		}
		if filter.MinLat != nil && report.Latitude != nil && report.Longitude != nil {
			if *report.Latitude < *filter.MinLat || *report.Latitude > *filter.MaxLat ||
				*report.Longitude < *filter.MinLon || *report.Longitude > *filter.MaxLon {
				continue
			}
		}
		copyReport := *report
		candidates = append(candidates, &copyReport)
		if len(candidates) >= filter.Limit {
			break
		}
	}
	return candidates, nil
}

func (s *fakeStore) UpsertMatch(_ context.Context, sourceUUID, candidateUUID string, scores db.MatchScores) (*db.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertCalls++
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}

	if strings.Compare(sourceUUID, candidateUUID) > 0 {
		return nil, fmt.Errorf("pair not in canonical order: %s > %s", sourceUUID, candidateUUID)
	}

	key := pairKey(sourceUUID, candidateUUID)
	if existing, exists := s.matches[key]; exists {
		if Status(existing.Status).Terminal() {
			copyMatch := *existing
			return &copyMatch, nil
		}
		existing.ScoreTotal = scores.Total
		existing.ScoreGeo = scores.Geo
		existing.ScoreTemporal = scores.Temporal
		existing.ScoreText = scores.Text
		existing.ScoreVisual = scores.Visual
		existing.UpdatedAt = time.Now().UTC()
		copyMatch := *existing
		return &copyMatch, nil
	}

	s.nextMatchID++
	created := &db.Match{
		MatchID:             s.nextMatchID,
		MatchUUID:           fmt.Sprintf("match-%04d", s.nextMatchID),
		SourceReportUUID:    sourceUUID,
		CandidateReportUUID: candidateUUID,
		ScoreTotal:          scores.Total,
		ScoreGeo:            scores.Geo,
		ScoreTemporal:       scores.Temporal,
		ScoreText:           scores.Text,
		ScoreVisual:         scores.Visual,
		Status:              string(StatusCandidate),
		CreatedAt:           time.Now().UTC(),
		UpdatedAt:           time.Now().UTC(),
	}
	s.matches[key] = created
	copyMatch := *created
	return &copyMatch, nil
}

func (s *fakeStore) GetMatchByUUID(_ context.Context, matchUUID string) (*db.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getMatchErr != nil {
		return nil, s.getMatchErr
	}
	m := s.findByUUID(matchUUID)
	if m == nil {
		return nil, db.ErrNoRows
	}
	copyMatch := *m
	return &copyMatch, nil
}

func (s *fakeStore) TransitionMatch(_ context.Context, matchUUID, expectedStatus, nextStatus string, reviewedBy, reviewReason *string, markViewed bool) (*db.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.findByUUID(matchUUID)
	if m == nil || m.Status != expectedStatus {
		return nil, db.ErrNoRows
	}

	m.Status = nextStatus
	if reviewedBy != nil {
		m.ReviewedBy = reviewedBy
		now := time.Now().UTC()
		m.ReviewedAt = &now
	}
	if reviewReason != nil {
		m.ReviewReason = reviewReason
	}
	if markViewed {
		m.ViewedByUser = true
	}
	m.UpdatedAt = time.Now().UTC()

	copyMatch := *m
	return &copyMatch, nil
}

func (s *fakeStore) ListMatches(_ context.Context, filter db.MatchListFilter) (int64, []*db.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]*db.Match, 0, len(s.matches))
	for _, m := range s.matches {
		if filter.Status != "" && m.Status != filter.Status {
			continue
		}
		if m.ScoreTotal < filter.MinScore {
			continue
		}
		if filter.Viewed != nil && m.ViewedByUser != *filter.Viewed {
			continue
		}
		copyMatch := *m
		matches = append(matches, &copyMatch)
	}
	return int64(len(matches)), matches, nil
}

func (s *fakeStore) ListMatchesForReport(_ context.Context, reportUUID string) ([]*db.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]*db.Match, 0, len(s.matches))
	for _, m := range s.matches {
		if m.SourceReportUUID != reportUUID && m.CandidateReportUUID != reportUUID {
			continue
		}
		if m.Status == string(StatusSuppressed) {
			continue
		}
		copyMatch := *m
		matches = append(matches, &copyMatch)
	}
	return matches, nil
}

func (s *fakeStore) QueryMatchStats(_ context.Context) (*db.MatchStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &db.MatchStats{
		Reports:         int64(len(s.reports)),
		Matches:         int64(len(s.matches)),
		MatchesByStatus: map[string]int64{},
	}
	for _, m := range s.matches {
		stats.MatchesByStatus[m.Status]++
	}
	return stats, nil
}

// captureSink records emitted events for assertions.
type captureSink struct {
	mu       sync.Mutex
	promoted []MatchPromoted
	changed  []MatchStatusChanged
}

func (s *captureSink) MatchPromoted(_ context.Context, event MatchPromoted) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promoted = append(s.promoted, event)
}

func (s *captureSink) MatchStatusChanged(_ context.Context, event MatchStatusChanged) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changed = append(s.changed, event)
}

func (s *captureSink) promotedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.promoted)
}

func (s *captureSink) changedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.changed)
}
