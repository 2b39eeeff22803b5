package match

import (
	"context"
	"fmt"
	"strings"
)

// BulkItemFailure records why one id in a batch did not transition.
type BulkItemFailure struct {
	MatchUUID string    `json:"match_uuid"`
	ErrorKind ErrorKind `json:"error_kind"`
	Message   string    `json:"message"`
}

// BulkResult partitions a batch into per-id outcomes.
type BulkResult struct {
	Succeeded []string          `json:"succeeded"`
	Failed    []BulkItemFailure `json:"failed"`
}

// ApplyBulk runs one review action over a batch of match ids. Each id goes
// through the state machine independently: an invalid transition, missing row
// or storage failure on one id never aborts the rest of the batch.
func (e *Engine) ApplyBulk(ctx context.Context, actorID string, matchUUIDs []string, action Action, reason string) (*BulkResult, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, fmt.Errorf("%w: actor id is required", ErrValidation)
	}
	if !action.RequiresActor() {
		return nil, fmt.Errorf("%w: action %q is not a bulk review action", ErrValidation, action)
	}
	if len(matchUUIDs) == 0 {
		return nil, fmt.Errorf("%w: match ids are required", ErrValidation)
	}
	if action.RequiresReason() && strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: reason is required for %s", ErrValidation, action)
	}

	result := &BulkResult{
		Succeeded: make([]string, 0, len(matchUUIDs)),
		Failed:    make([]BulkItemFailure, 0),
	}

	for _, matchUUID := range matchUUIDs {
		if _, err := e.Transition(ctx, matchUUID, action, actorID, reason); err != nil {
			result.Failed = append(result.Failed, BulkItemFailure{
				MatchUUID: strings.TrimSpace(matchUUID),
				ErrorKind: KindOf(err),
				Message:   err.Error(),
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, strings.TrimSpace(matchUUID))
	}

	e.logger.Info().
		Str("actor_id", actorID).
		Str("action", string(action)).
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Msg("bulk review applied")

	return result, nil
}
