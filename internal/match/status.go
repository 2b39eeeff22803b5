package match

import (
	"fmt"
	"strings"
)

// Status is the canonical match lifecycle state. External collaborators map
// their own vocabularies (pending/accepted/rejected) onto these five states
// at the boundary.
type Status string

const (
	StatusCandidate     Status = "candidate"
	StatusPendingReview Status = "pending_review"
	StatusPromoted      Status = "promoted"
	StatusSuppressed    Status = "suppressed"
	StatusDismissed     Status = "dismissed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCandidate, StatusPendingReview, StatusPromoted, StatusSuppressed, StatusDismissed:
		return true
	}
	return false
}

// Terminal states are permanent; no edge leaves them.
func (s Status) Terminal() bool {
	switch s {
	case StatusPromoted, StatusSuppressed, StatusDismissed:
		return true
	}
	return false
}

var allowedTransitions = map[Status][]Status{
	StatusCandidate:     {StatusPendingReview, StatusPromoted, StatusSuppressed, StatusDismissed},
	StatusPendingReview: {StatusPromoted, StatusSuppressed, StatusDismissed},
}

func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Action is a caller-requested operation on one match.
type Action string

const (
	ActionMarkViewed Action = "mark_viewed"
	ActionPromote    Action = "promote"
	ActionSuppress   Action = "suppress"
	ActionDismiss    Action = "dismiss"
)

func ParseAction(raw string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(raw)))
	switch action {
	case ActionMarkViewed, ActionPromote, ActionSuppress, ActionDismiss:
		return action, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrValidation, raw)
}

func (a Action) TargetStatus() Status {
	switch a {
	case ActionMarkViewed:
		return StatusPendingReview
	case ActionPromote:
		return StatusPromoted
	case ActionSuppress:
		return StatusSuppressed
	case ActionDismiss:
		return StatusDismissed
	}
	return ""
}

// RequiresActor reports whether the action is a human review decision.
func (a Action) RequiresActor() bool {
	return a == ActionPromote || a == ActionSuppress || a == ActionDismiss
}

func (a Action) RequiresReason() bool {
	return a == ActionSuppress
}
