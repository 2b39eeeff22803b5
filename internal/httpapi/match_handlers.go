package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"reunite.city/matcher/internal/db"
	"reunite.city/matcher/internal/match"
)

type scoreBreakdown struct {
	Geo      *float64 `json:"geo"`
	Temporal *float64 `json:"temporal"`
	Text     *float64 `json:"text"`
	Visual   *float64 `json:"visual"`
}

type matchItem struct {
	MatchUUID           string         `json:"match_uuid"`
	SourceReportUUID    string         `json:"source_report_uuid"`
	CandidateReportUUID string         `json:"candidate_report_uuid"`
	ScoreTotal          float64        `json:"score_total"`
	ScoreBreakdown      scoreBreakdown `json:"score_breakdown"`
	Status              string         `json:"status"`
	ReviewedBy          *string        `json:"reviewed_by,omitempty"`
	ReviewReason        *string        `json:"review_reason,omitempty"`
	ViewedByUser        bool           `json:"viewed_by_user"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	ReviewedAt          *time.Time     `json:"reviewed_at,omitempty"`
}

func toMatchItem(m *db.Match) matchItem {
	return matchItem{
		MatchUUID:           m.MatchUUID,
		SourceReportUUID:    m.SourceReportUUID,
		CandidateReportUUID: m.CandidateReportUUID,
		ScoreTotal:          m.ScoreTotal,
		ScoreBreakdown: scoreBreakdown{
			Geo:      m.ScoreGeo,
			Temporal: m.ScoreTemporal,
			Text:     m.ScoreText,
			Visual:   m.ScoreVisual,
		},
		Status:       m.Status,
		ReviewedBy:   m.ReviewedBy,
		ReviewReason: m.ReviewReason,
		ViewedByUser: m.ViewedByUser,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		ReviewedAt:   m.ReviewedAt,
	}
}

func toMatchItems(matches []*db.Match) []matchItem {
	items := make([]matchItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, toMatchItem(m))
	}
	return items
}

// respondEngineError maps the engine's error taxonomy onto distinct HTTP
// statuses so the moderator UI can tell "gone", "not valid in this state"
// and "another moderator got there first" apart.
func (s *Server) respondEngineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, match.ErrValidation):
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, match.ErrNotFound):
		return failNotFound(c, err.Error())
	case errors.Is(err, match.ErrInvalidTransition):
		return failInvalidTransition(c, err.Error())
	case errors.Is(err, match.ErrConflict):
		return failConflict(c, err.Error())
	default:
		s.logger.Error().Err(err).Msg("engine call failed")
		return internalError(c, "Internal server error")
	}
}

func (s *Server) handleListMatches(c echo.Context) error {
	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}

	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"page_size": err.Error()})
	}

	status := strings.TrimSpace(strings.ToLower(c.QueryParam("status")))
	if status != "" && !match.Status(status).Valid() {
		return failValidation(c, map[string]string{"status": "unknown match status"})
	}

	minScore, err := parseScoreFilter(c.QueryParam("min_score"))
	if err != nil {
		return failValidation(c, map[string]string{"min_score": err.Error()})
	}

	viewed, err := parseViewedFilter(c.QueryParam("viewed"))
	if err != nil {
		return failValidation(c, map[string]string{"viewed": err.Error()})
	}

	reportUUID := strings.TrimSpace(c.QueryParam("report"))
	if reportUUID != "" && !validUUID(reportUUID) {
		return failValidation(c, map[string]string{"report": "must be a UUID"})
	}

	filter := db.MatchListFilter{
		Status:     status,
		ReportUUID: reportUUID,
		MinScore:   minScore,
		Viewed:     viewed,
		Page:       page,
		PageSize:   pageSize,
	}

	total, matches, err := s.reader.ListMatches(c.Request().Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("query matches failed")
		return internalError(c, "Failed to load matches")
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}

	return success(c, map[string]any{
		"items": toMatchItems(matches),
		"pagination": map[string]any{
			"page":        page,
			"page_size":   pageSize,
			"total_items": total,
			"total_pages": totalPages,
		},
		"filters": map[string]any{
			"status":    filter.Status,
			"report":    filter.ReportUUID,
			"min_score": filter.MinScore,
			"viewed":    filter.Viewed,
		},
	})
}

func (s *Server) handleGetMatch(c echo.Context) error {
	matchUUID, ok := uuidParam(c, "match_uuid")
	if !ok {
		return failValidation(c, map[string]string{"match_uuid": "must be a UUID"})
	}

	m, err := s.reader.GetMatchByUUID(c.Request().Context(), matchUUID)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Match not found")
		}
		s.logger.Error().Err(err).Str("match_uuid", matchUUID).Msg("query match failed")
		return internalError(c, "Failed to load match")
	}

	return success(c, toMatchItem(m))
}

type transitionRequest struct {
	Action  string `json:"action"`
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}

func (s *Server) handleTransition(c echo.Context) error {
	matchUUID, ok := uuidParam(c, "match_uuid")
	if !ok {
		return failValidation(c, map[string]string{"match_uuid": "must be a UUID"})
	}

	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}

	action, err := match.ParseAction(req.Action)
	if err != nil {
		return failValidation(c, map[string]string{"action": "must be one of mark_viewed, promote, suppress, dismiss"})
	}

	m, err := s.engine.Transition(c.Request().Context(), matchUUID, action, req.ActorID, req.Reason)
	if err != nil {
		return s.respondEngineError(c, err)
	}
	return success(c, toMatchItem(m))
}

type bulkRequest struct {
	ActorID    string   `json:"actor_id"`
	MatchUUIDs []string `json:"match_ids"`
	Action     string   `json:"action"`
	Reason     string   `json:"reason"`
}

func (s *Server) handleBulk(c echo.Context) error {
	var req bulkRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}

	action, err := match.ParseAction(req.Action)
	if err != nil {
		return failValidation(c, map[string]string{"action": "must be one of promote, suppress, dismiss"})
	}

	for _, id := range req.MatchUUIDs {
		if !validUUID(strings.TrimSpace(id)) {
			return failValidation(c, map[string]string{"match_ids": fmt.Sprintf("%q is not a UUID", id)})
		}
	}

	result, err := s.engine.ApplyBulk(c.Request().Context(), req.ActorID, req.MatchUUIDs, action, req.Reason)
	if err != nil {
		return s.respondEngineError(c, err)
	}

	return success(c, map[string]any{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
}

func (s *Server) handleRematch(c echo.Context) error {
	reportUUID, ok := uuidParam(c, "report_uuid")
	if !ok {
		return failValidation(c, map[string]string{"report_uuid": "must be a UUID"})
	}

	matches, err := s.engine.GenerateForReport(c.Request().Context(), reportUUID)
	if err != nil {
		return s.respondEngineError(c, err)
	}

	return success(c, map[string]any{
		"report_uuid": reportUUID,
		"items":       toMatchItems(matches),
	})
}

func (s *Server) handleMatchesForReport(c echo.Context) error {
	reportUUID, ok := uuidParam(c, "report_uuid")
	if !ok {
		return failValidation(c, map[string]string{"report_uuid": "must be a UUID"})
	}

	matches, err := s.reader.ListMatchesForReport(c.Request().Context(), reportUUID)
	if err != nil {
		s.logger.Error().Err(err).Str("report_uuid", reportUUID).Msg("query matches for report failed")
		return internalError(c, "Failed to load matches")
	}

	return success(c, map[string]any{
		"report_uuid": reportUUID,
		"items":       toMatchItems(matches),
	})
}

func (s *Server) handleMarkViewed(c echo.Context) error {
	matchUUID, ok := uuidParam(c, "match_uuid")
	if !ok {
		return failValidation(c, map[string]string{"match_uuid": "must be a UUID"})
	}

	m, err := s.engine.MarkViewed(c.Request().Context(), matchUUID)
	if err != nil {
		return s.respondEngineError(c, err)
	}
	return success(c, toMatchItem(m))
}

type partyActionRequest struct {
	ActorID string `json:"actor_id"`
}

func (s *Server) handleAccept(c echo.Context) error {
	return s.handlePartyAction(c, s.engine.Accept)
}

func (s *Server) handleReject(c echo.Context) error {
	return s.handlePartyAction(c, s.engine.Reject)
}

func (s *Server) handlePartyAction(c echo.Context, apply func(ctx context.Context, matchUUID, actorID string) (*db.Match, error)) error {
	matchUUID, ok := uuidParam(c, "match_uuid")
	if !ok {
		return failValidation(c, map[string]string{"match_uuid": "must be a UUID"})
	}

	var req partyActionRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}

	m, err := apply(c.Request().Context(), matchUUID, req.ActorID)
	if err != nil {
		return s.respondEngineError(c, err)
	}
	return success(c, toMatchItem(m))
}
