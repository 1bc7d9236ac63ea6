package evaluation

import (
	"context"
	"testing"
	"time"

	"repuestos_backend/internal/lifecycle"
	"repuestos_backend/platform/apperr"
	"repuestos_backend/platform/events"
	"repuestos_backend/platform/logger"

	"github.com/google/uuid"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		text     string
		n        int
		kind     DecisionKind
		accepted []int
	}{
		{"si", 3, DecisionAcceptAll, nil},
		{"Sí, acepto todas", 3, DecisionAcceptAll, nil},
		{"ok dale", 2, DecisionAcceptAll, nil},
		{"no", 3, DecisionRejectAll, nil},
		{"rechazo todas", 3, DecisionRejectAll, nil},
		{"ninguna", 2, DecisionRejectAll, nil},
		{"solo 1 y 3", 3, DecisionAcceptPartial, []int{1, 3}},
		{"solamente la 2", 3, DecisionAcceptPartial, []int{2}},
		{"menos la 2", 3, DecisionAcceptPartial, []int{1, 3}},
		{"todas menos la 1", 3, DecisionAcceptPartial, []int{2, 3}},
		{"no quiero la 2", 3, DecisionAcceptPartial, []int{1, 3}},
		{"1 y 3", 3, DecisionAcceptPartial, []int{1, 3}},
		{"1, 2", 3, DecisionAcceptPartial, []int{1, 2}},
		{"acepto la 1", 3, DecisionAcceptPartial, []int{1}},
		{"tal vez mañana", 3, DecisionUnknown, nil},
		{"", 3, DecisionUnknown, nil},
		{"el precio esta caro", 3, DecisionUnknown, nil},
	}

	for _, tc := range cases {
		got := Classify(tc.text, tc.n)
		if got.Kind != tc.kind {
			t.Errorf("Classify(%q) kind = %v, want %v", tc.text, got.Kind, tc.kind)
			continue
		}
		if len(got.Accepted) != len(tc.accepted) {
			t.Errorf("Classify(%q) accepted = %v, want %v", tc.text, got.Accepted, tc.accepted)
			continue
		}
		for i := range tc.accepted {
			if got.Accepted[i] != tc.accepted[i] {
				t.Errorf("Classify(%q) accepted = %v, want %v", tc.text, got.Accepted, tc.accepted)
				break
			}
		}
	}
}

// Out-of-range indices are ignored; rejecting every presented offer through
// the complement collapses to reject-all.
func TestClassifyEdgeIndices(t *testing.T) {
	got := Classify("solo 1 y 9", 3)
	if got.Kind != DecisionAcceptPartial || len(got.Accepted) != 1 || got.Accepted[0] != 1 {
		t.Fatalf("out-of-range index must be dropped, got %+v", got)
	}

	got = Classify("menos la 1", 1)
	if got.Kind != DecisionRejectAll {
		t.Fatalf("excluding the only offer must reject all, got %+v", got)
	}

	// An exclusion that only names out-of-range offers carries no usable
	// index, so the reply asks for clarification instead of rejecting.
	got = Classify("menos la 2", 1)
	if got.Kind != DecisionUnknown {
		t.Fatalf("out-of-range exclusion must classify as unknown, got %+v", got)
	}
}

type fakeResponseStore struct {
	winners    []WinningOffer
	accepted   []uuid.UUID
	rejected   []uuid.UUID
	finalState lifecycle.RequestState
	applied    bool
}

func (f *fakeResponseStore) ListWinners(_ context.Context, _ uuid.UUID) ([]WinningOffer, error) {
	return f.winners, nil
}

func (f *fakeResponseStore) ApplyClientDecision(_ context.Context, _ uuid.UUID, accepted, rejected []uuid.UUID, finalState lifecycle.RequestState) error {
	f.accepted = accepted
	f.rejected = rejected
	f.finalState = finalState
	f.applied = true
	return nil
}

func newTestProcessor(winners []WinningOffer) (*ResponseProcessor, *fakeResponseStore) {
	store := &fakeResponseStore{winners: winners}
	log := logger.New("development")
	return NewResponseProcessor(store, events.NewInMemoryBus(log), log), store
}

func presentedWinners(n int) []WinningOffer {
	base := time.Now().Add(-time.Hour)
	out := make([]WinningOffer, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, WinningOffer{ID: uuid.New(), AdvisorID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	return out
}

// "solo 1 y 3" accepts the first and third presented offers and rejects the
// second; the request finalizes as accepted.
func TestProcessPartialAcceptance(t *testing.T) {
	winners := presentedWinners(3)
	proc, store := newTestProcessor(winners)

	accepted, err := proc.ProcessClientResponse(context.Background(), uuid.New(), "solo 1 y 3")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if !accepted {
		t.Fatal("expected acceptance")
	}
	if len(store.accepted) != 2 || len(store.rejected) != 1 {
		t.Fatalf("expected 2 accepted / 1 rejected, got %d/%d", len(store.accepted), len(store.rejected))
	}
	if store.accepted[0] != winners[0].ID || store.accepted[1] != winners[2].ID {
		t.Fatal("indices must map onto presentation order")
	}
	if store.rejected[0] != winners[1].ID {
		t.Fatal("unlisted offer must be rejected")
	}
	if store.finalState != lifecycle.RequestOfertasAceptadas {
		t.Fatalf("expected OFERTAS_ACEPTADAS, got %s", store.finalState)
	}
}

func TestProcessRejectAll(t *testing.T) {
	winners := presentedWinners(2)
	proc, store := newTestProcessor(winners)

	accepted, err := proc.ProcessClientResponse(context.Background(), uuid.New(), "no, gracias")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if accepted {
		t.Fatal("expected rejection")
	}
	if len(store.rejected) != 2 || len(store.accepted) != 0 {
		t.Fatalf("expected all rejected, got %d/%d", len(store.accepted), len(store.rejected))
	}
	if store.finalState != lifecycle.RequestOfertasRechazadas {
		t.Fatalf("expected OFERTAS_RECHAZADAS, got %s", store.finalState)
	}
}

// An uninterpretable reply mutates nothing.
func TestProcessUnknownMutatesNothing(t *testing.T) {
	proc, store := newTestProcessor(presentedWinners(2))

	_, err := proc.ProcessClientResponse(context.Background(), uuid.New(), "el precio esta caro")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected clarification as validation error, got %v", err)
	}
	if store.applied {
		t.Fatal("unknown decision must not touch the store")
	}
}

func TestProcessNoWinnersConflicts(t *testing.T) {
	proc, _ := newTestProcessor(nil)

	_, err := proc.ProcessClientResponse(context.Background(), uuid.New(), "si")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
