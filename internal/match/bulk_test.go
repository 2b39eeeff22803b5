package match

import (
	"context"
	"errors"
	"testing"

	"reunite.city/matcher/internal/db"
)

func seedBulkMatches(store *fakeStore) {
	pairs := []struct {
		uuid   string
		source string
		status Status
	}{
		{"m-1", "1111", StatusCandidate},
		{"m-2", "3333", StatusPendingReview},
		{"m-3", "5555", StatusPromoted},
	}
	for i, p := range pairs {
		store.addMatch(&db.Match{
			MatchID:             int64(i + 1),
			MatchUUID:           p.uuid,
			SourceReportUUID:    p.source,
			CandidateReportUUID: p.source + "-peer",
			ScoreTotal:          0.6,
			Status:              string(p.status),
		})
	}
}

func TestApplyBulkPartitionsOutcomes(t *testing.T) {
	store := newFakeStore()
	seedBulkMatches(store)
	sink := &captureSink{}
	engine := newTestEngine(t, store, sink, stubScorer{}, stubScorer{})

	// m-3 is already terminal and m-9 does not exist; both must fail without
	// touching the rest.
	result, err := engine.ApplyBulk(context.Background(), "moderator-7",
		[]string{"m-1", "m-3", "m-2", "m-9"}, ActionDismiss, "")
	if err != nil {
		t.Fatalf("bulk apply failed: %v", err)
	}

	if len(result.Succeeded) != 2 {
		t.Fatalf("succeeded = %v, want m-1 and m-2", result.Succeeded)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("failed = %v, want m-3 and m-9", result.Failed)
	}

	kinds := map[string]ErrorKind{}
	for _, failure := range result.Failed {
		kinds[failure.MatchUUID] = failure.ErrorKind
	}
	if kinds["m-3"] != KindInvalidTransition {
		t.Fatalf("m-3 kind = %s, want invalid_transition", kinds["m-3"])
	}
	if kinds["m-9"] != KindNotFound {
		t.Fatalf("m-9 kind = %s, want not_found", kinds["m-9"])
	}

	for _, uuid := range []string{"m-1", "m-2"} {
		if m := store.findByUUID(uuid); m.Status != string(StatusDismissed) {
			t.Fatalf("%s status = %s, want dismissed", uuid, m.Status)
		}
	}
	if m := store.findByUUID("m-3"); m.Status != string(StatusPromoted) {
		t.Fatalf("m-3 status = %s, terminal row must stay frozen", m.Status)
	}
	if sink.changedCount() != 2 {
		t.Fatalf("status-changed events = %d, want one per successful item", sink.changedCount())
	}
}

func TestApplyBulkValidation(t *testing.T) {
	store := newFakeStore()
	seedBulkMatches(store)
	engine := newTestEngine(t, store, nil, stubScorer{}, stubScorer{})

	if _, err := engine.ApplyBulk(context.Background(), "", []string{"m-1"}, ActionPromote, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation without actor, got %v", err)
	}
	if _, err := engine.ApplyBulk(context.Background(), "moderator-7", nil, ActionPromote, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation without ids, got %v", err)
	}
	if _, err := engine.ApplyBulk(context.Background(), "moderator-7", []string{"m-1"}, ActionMarkViewed, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for a non-review action, got %v", err)
	}
	if _, err := engine.ApplyBulk(context.Background(), "moderator-7", []string{"m-1"}, ActionSuppress, "  "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for suppress without reason, got %v", err)
	}
}

func TestApplyBulkSuppressCarriesReason(t *testing.T) {
	store := newFakeStore()
	seedBulkMatches(store)
	engine := newTestEngine(t, store, nil, stubScorer{}, stubScorer{})

	result, err := engine.ApplyBulk(context.Background(), "moderator-7",
		[]string{"m-1", "m-2"}, ActionSuppress, "spam reports")
	if err != nil {
		t.Fatalf("bulk suppress failed: %v", err)
	}
	if len(result.Succeeded) != 2 {
		t.Fatalf("succeeded = %v, want both", result.Succeeded)
	}

	for _, uuid := range result.Succeeded {
		m := store.findByUUID(uuid)
		if m.Status != string(StatusSuppressed) {
			t.Fatalf("%s status = %s, want suppressed", uuid, m.Status)
		}
		if m.ReviewReason == nil || *m.ReviewReason != "spam reports" {
			t.Fatalf("%s review_reason = %v, want spam reports", uuid, m.ReviewReason)
		}
	}
}

type failingGetStore struct {
	*fakeStore
	failUUID string
}

func (s *failingGetStore) GetMatchByUUID(ctx context.Context, matchUUID string) (*db.Match, error) {
	if matchUUID == s.failUUID {
		return nil, errors.New("connection reset by peer")
	}
	return s.fakeStore.GetMatchByUUID(ctx, matchUUID)
}

func TestApplyBulkIsolatesStorageFailures(t *testing.T) {
	inner := newFakeStore()
	seedBulkMatches(inner)
	store := &failingGetStore{fakeStore: inner, failUUID: "m-2"}
	engine := newTestEngine(t, store, nil, stubScorer{}, stubScorer{})

	result, err := engine.ApplyBulk(context.Background(), "moderator-7",
		[]string{"m-1", "m-2"}, ActionPromote, "")
	if err != nil {
		t.Fatalf("bulk apply failed: %v", err)
	}
	if len(result.Succeeded) != 1 || result.Succeeded[0] != "m-1" {
		t.Fatalf("succeeded = %v, want only m-1", result.Succeeded)
	}
	if len(result.Failed) != 1 || result.Failed[0].ErrorKind != KindStorage {
		t.Fatalf("failed = %v, want one storage failure", result.Failed)
	}
}
