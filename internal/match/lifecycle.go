package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reunite.city/matcher/internal/db"
)

// Transition applies one lifecycle action to one match. Re-requesting the
// state a match is already in is an idempotent success that emits no events;
// transitions out of a terminal state fail with ErrInvalidTransition; a
// compare-and-swap lost to a concurrent reviewer fails with ErrConflict.
func (e *Engine) Transition(ctx context.Context, matchUUID string, action Action, actorID, reason string) (*db.Match, error) {
	matchUUID = strings.TrimSpace(matchUUID)
	actorID = strings.TrimSpace(actorID)
	reason = strings.TrimSpace(reason)

	if matchUUID == "" {
		return nil, fmt.Errorf("%w: match uuid is required", ErrValidation)
	}
	target := action.TargetStatus()
	if target == "" {
		return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}
	if action.RequiresActor() && actorID == "" {
		return nil, fmt.Errorf("%w: actor id is required for %s", ErrValidation, action)
	}
	if action.RequiresReason() && reason == "" {
		return nil, fmt.Errorf("%w: reason is required for %s", ErrValidation, action)
	}

	current, err := e.store.GetMatchByUUID(ctx, matchUUID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchUUID)
		}
		return nil, fmt.Errorf("load match %s: %w", matchUUID, err)
	}

	from := Status(current.Status)
	if from == target {
		return current, nil
	}
	if from.Terminal() {
		return nil, fmt.Errorf("%w: match %s is %s", ErrInvalidTransition, matchUUID, from)
	}
	if !CanTransition(from, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
	}

	var reviewedBy, reviewReason *string
	if action.RequiresActor() {
		reviewedBy = &actorID
	}
	if reason != "" {
		reviewReason = &reason
	}

	updated, err := e.store.TransitionMatch(ctx, matchUUID, string(from), string(target), reviewedBy, reviewReason, action == ActionMarkViewed)
	if err != nil {
		if db.IsNoRows(err) {
			return e.resolveMissedSwap(ctx, matchUUID, target)
		}
		return nil, fmt.Errorf("transition match %s: %w", matchUUID, err)
	}

	e.emitTransition(ctx, updated, from, target, actorID, reason)
	return updated, nil
}

// resolveMissedSwap classifies a compare-and-swap miss: the row vanished, a
// concurrent caller already applied the same transition, or another actor
// moved the match elsewhere first.
func (e *Engine) resolveMissedSwap(ctx context.Context, matchUUID string, target Status) (*db.Match, error) {
	refreshed, err := e.store.GetMatchByUUID(ctx, matchUUID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchUUID)
		}
		return nil, fmt.Errorf("reload match %s: %w", matchUUID, err)
	}
	if Status(refreshed.Status) == target {
		return refreshed, nil
	}
	return nil, fmt.Errorf("%w: match %s moved to %s", ErrConflict, matchUUID, refreshed.Status)
}

func (e *Engine) emitTransition(ctx context.Context, updated *db.Match, from, to Status, actorID, reason string) {
	e.sink.MatchStatusChanged(ctx, MatchStatusChanged{
		MatchUUID:  updated.MatchUUID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Reason:     reason,
		Timestamp:  time.Now().UTC(),
	})

	if to == StatusPromoted {
		e.sink.MatchPromoted(ctx, MatchPromoted{
			MatchUUID:           updated.MatchUUID,
			SourceReportUUID:    updated.SourceReportUUID,
			CandidateReportUUID: updated.CandidateReportUUID,
		})
	}
}

// MarkViewed moves a candidate match into review when a human opens it.
func (e *Engine) MarkViewed(ctx context.Context, matchUUID string) (*db.Match, error) {
	return e.Transition(ctx, matchUUID, ActionMarkViewed, "", "")
}

// Accept is the end-user vocabulary for promote.
func (e *Engine) Accept(ctx context.Context, matchUUID, actorID string) (*db.Match, error) {
	return e.Transition(ctx, matchUUID, ActionPromote, actorID, "")
}

// Reject is the end-user vocabulary for dismiss.
func (e *Engine) Reject(ctx context.Context, matchUUID, actorID string) (*db.Match, error) {
	return e.Transition(ctx, matchUUID, ActionDismiss, actorID, "")
}
