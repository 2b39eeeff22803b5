package match

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// MatchPromoted tells the notification collaborator that both parties of a
// confirmed match should be informed.
type MatchPromoted struct {
	MatchUUID           string `json:"match_uuid"`
	SourceReportUUID    string `json:"source_report_uuid"`
	CandidateReportUUID string `json:"candidate_report_uuid"`
}

// MatchStatusChanged is the audit record for a real state change. Idempotent
// no-op transitions never produce one.
type MatchStatusChanged struct {
	MatchUUID  string    `json:"match_uuid"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ActorID    string    `json:"actor_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventSink receives engine events. The engine does not deliver
// notifications or write audit storage itself; collaborators subscribe
// through an implementation of this interface.
type EventSink interface {
	MatchPromoted(ctx context.Context, event MatchPromoted)
	MatchStatusChanged(ctx context.Context, event MatchStatusChanged)
}

// LogSink emits events as structured log lines, the default wiring when no
// external consumer is attached.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) MatchPromoted(_ context.Context, event MatchPromoted) {
	s.logger.Info().
		Str("event", "match_promoted").
		Str("match_uuid", event.MatchUUID).
		Str("source_report_uuid", event.SourceReportUUID).
		Str("candidate_report_uuid", event.CandidateReportUUID).
		Msg("match confirmed")
}

func (s *LogSink) MatchStatusChanged(_ context.Context, event MatchStatusChanged) {
	s.logger.Info().
		Str("event", "match_status_changed").
		Str("match_uuid", event.MatchUUID).
		Str("from_status", string(event.FromStatus)).
		Str("to_status", string(event.ToStatus)).
		Str("actor_id", event.ActorID).
		Str("reason", event.Reason).
		Time("timestamp", event.Timestamp).
		Msg("match status changed")
}

// NopSink drops all events.
type NopSink struct{}

func (NopSink) MatchPromoted(context.Context, MatchPromoted)           {}
func (NopSink) MatchStatusChanged(context.Context, MatchStatusChanged) {}
