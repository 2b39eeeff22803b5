package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"reunite.city/matcher/internal/db"
	"reunite.city/matcher/internal/reportschema"
)

const maxIngestPayloadBytes = 1 << 20

// handleIngestReport receives one report document from the reports
// collaborator, validates it against the v1 payload schema, refreshes the
// mirror and re-runs matching for the report.
func (s *Server) handleIngestReport(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxIngestPayloadBytes+1))
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not read request body"})
	}
	if len(body) > maxIngestPayloadBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "Payload too large", nil)
	}

	payload, err := reportschema.ValidateReportPayload(body)
	if err != nil {
		return failValidation(c, map[string]string{"payload": err.Error()})
	}

	report, matches, err := s.engine.SyncReport(c.Request().Context(), reportUpsertFromPayload(payload))
	if err != nil {
		return s.respondEngineError(c, err)
	}

	return success(c, map[string]any{
		"report_uuid": report.ReportUUID,
		"status":      report.Status,
		"items":       toMatchItems(matches),
	})
}

func reportUpsertFromPayload(payload *reportschema.ReportPayload) db.ReportUpsert {
	var images json.RawMessage
	if len(payload.Images) > 0 {
		if encoded, err := json.Marshal(payload.Images); err == nil {
			images = encoded
		}
	}

	return db.ReportUpsert{
		ReportUUID:    payload.ReportUUID,
		ReportType:    payload.ReportType,
		Title:         payload.Title,
		Description:   payload.Description,
		Category:      payload.Category,
		LocationLabel: payload.LocationLabel,
		Latitude:      payload.Latitude,
		Longitude:     payload.Longitude,
		OccurredAt:    payload.OccurredAtTime(),
		Images:        images,
		OwnerUUID:     payload.OwnerUUID,
		Status:        payload.Status,
	}
}
