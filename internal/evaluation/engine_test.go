package evaluation

import (
	"context"
	"sync"
	"testing"
	"time"

	"repuestos_backend/internal/lifecycle"
	"repuestos_backend/internal/params"
	"repuestos_backend/platform/apperr"
	"repuestos_backend/platform/events"
	"repuestos_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu        sync.Mutex
	snapshot  *Snapshot
	committed *Outcome
	failed    bool
	failNote  string
	closed    bool
}

func (f *fakeStore) LoadSnapshot(_ context.Context, _ uuid.UUID) (*Snapshot, error) {
	return f.snapshot, nil
}

func (f *fakeStore) CommitEvaluation(_ context.Context, outcome *Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = outcome
	return nil
}

func (f *fakeStore) MarkEvaluationFailed(_ context.Context, _ uuid.UUID, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = true
	f.failNote = note
	return nil
}

func (f *fakeStore) CloseWithoutOffers(_ context.Context, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestEngine(snap *Snapshot) (*Engine, *fakeStore) {
	store := &fakeStore{snapshot: snap}
	return NewEngine(store, events.NewInMemoryBus(logger.New("development")), logger.New("development")), store
}

func detail(offerID, itemID uuid.UUID, priceCents int64, qty, warranty, delivery int) DetailSnapshot {
	return DetailSnapshot{
		ID:             uuid.New(),
		OfferID:        offerID,
		RequestItemID:  itemID,
		UnitPriceCents: priceCents,
		Quantity:       qty,
		WarrantyMonths: warranty,
		DeliveryDays:   delivery,
	}
}

// Two items adjudicated across two offers: 15000 cents x1 + 25000 cents x2 =
// 65000 total, aggregate delivery is the max, aggregate warranty the min.
func TestEvaluateAdjudicatesAndAggregates(t *testing.T) {
	requestID := uuid.New()
	itemA, itemB := uuid.New(), uuid.New()
	offerOne, offerTwo := uuid.New(), uuid.New()
	advisorOne, advisorTwo := uuid.New(), uuid.New()

	base := time.Now().Add(-time.Hour)
	snap := &Snapshot{
		RequestID: requestID,
		State:     lifecycle.RequestAbierta,
		Items: []ItemSnapshot{
			{ID: itemA, Name: "Filtro", Quantity: 1},
			{ID: itemB, Name: "Pastillas", Quantity: 2},
		},
		Offers: []OfferSnapshot{
			{
				ID: offerOne, AdvisorID: advisorOne, SubmittedAt: base,
				Details: []DetailSnapshot{
					// Wins item A on price.
					detail(offerOne, itemA, 15000, 1, 6, 3),
					// Loses item B on price.
					detail(offerOne, itemB, 30000, 2, 6, 3),
				},
			},
			{
				ID: offerTwo, AdvisorID: advisorTwo, SubmittedAt: base.Add(time.Minute),
				Details: []DetailSnapshot{
					detail(offerTwo, itemA, 20000, 1, 6, 5),
					// Wins item B on price.
					detail(offerTwo, itemB, 25000, 2, 12, 5),
				},
			},
		},
	}

	engine, store := newTestEngine(snap)
	outcome, err := engine.Evaluate(context.Background(), requestID, params.DefaultSettings())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	if len(outcome.Adjudications) != 2 {
		t.Fatalf("expected 2 adjudications, got %d", len(outcome.Adjudications))
	}
	if outcome.TotalCents != 15000+25000*2 {
		t.Fatalf("expected total 65000, got %d", outcome.TotalCents)
	}
	if outcome.SingleProvider {
		t.Fatal("two winning advisors must classify as multi-provider")
	}
	if outcome.AggregateDeliveryDays != 5 {
		t.Fatalf("aggregate delivery must be the max, got %d", outcome.AggregateDeliveryDays)
	}
	if outcome.AggregateWarrantyMos != 6 {
		t.Fatalf("aggregate warranty must be the min, got %d", outcome.AggregateWarrantyMos)
	}
	if len(outcome.WinningOffers) != 2 || len(outcome.LosingOffers) != 0 {
		t.Fatalf("both offers won a line: winners=%d losers=%d", len(outcome.WinningOffers), len(outcome.LosingOffers))
	}
	if store.committed == nil {
		t.Fatal("outcome must be committed")
	}
}

func TestEvaluateSingleProviderClassification(t *testing.T) {
	requestID := uuid.New()
	itemA, itemB := uuid.New(), uuid.New()
	offerOne := uuid.New()
	advisor := uuid.New()

	snap := &Snapshot{
		RequestID: requestID,
		State:     lifecycle.RequestAbierta,
		Items: []ItemSnapshot{
			{ID: itemA, Quantity: 1},
			{ID: itemB, Quantity: 1},
		},
		Offers: []OfferSnapshot{
			{
				ID: offerOne, AdvisorID: advisor, SubmittedAt: time.Now(),
				Details: []DetailSnapshot{
					detail(offerOne, itemA, 10000, 1, 3, 2),
					detail(offerOne, itemB, 12000, 1, 3, 2),
				},
			},
		},
	}

	engine, _ := newTestEngine(snap)
	outcome, err := engine.Evaluate(context.Background(), requestID, params.DefaultSettings())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !outcome.SingleProvider {
		t.Fatal("one winning advisor must classify as single-provider")
	}
}

// Equal scores break toward the earlier submitted offer, then the lower id.
func TestEvaluateTieBreaksOnSubmissionTime(t *testing.T) {
	requestID := uuid.New()
	item := uuid.New()
	early, late := uuid.New(), uuid.New()

	base := time.Now().Add(-time.Hour)
	snap := &Snapshot{
		RequestID: requestID,
		State:     lifecycle.RequestAbierta,
		Items:     []ItemSnapshot{{ID: item, Quantity: 1}},
		Offers: []OfferSnapshot{
			{ID: late, AdvisorID: uuid.New(), SubmittedAt: base.Add(time.Minute),
				Details: []DetailSnapshot{detail(late, item, 10000, 1, 6, 2)}},
			{ID: early, AdvisorID: uuid.New(), SubmittedAt: base,
				Details: []DetailSnapshot{detail(early, item, 10000, 1, 6, 2)}},
		},
	}

	engine, _ := newTestEngine(snap)
	outcome, err := engine.Evaluate(context.Background(), requestID, params.DefaultSettings())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if outcome.Adjudications[0].OfferID != early {
		t.Fatal("identical lines must adjudicate to the earlier offer")
	}
}

func TestEvaluateNoOffersClosesRequest(t *testing.T) {
	requestID := uuid.New()
	snap := &Snapshot{
		RequestID: requestID,
		State:     lifecycle.RequestAbierta,
		Items:     []ItemSnapshot{{ID: uuid.New(), Quantity: 1}},
	}

	engine, store := newTestEngine(snap)
	outcome, err := engine.Evaluate(context.Background(), requestID, params.DefaultSettings())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !outcome.ClosedWithoutOffers {
		t.Fatal("expected closed-without-offers outcome")
	}
	if !store.closed {
		t.Fatal("store must record the closure")
	}
	if store.committed != nil {
		t.Fatal("no adjudications may be committed")
	}
}

func TestEvaluateRejectsNonOpenRequest(t *testing.T) {
	snap := &Snapshot{RequestID: uuid.New(), State: lifecycle.RequestEvaluada}

	engine, _ := newTestEngine(snap)
	_, err := engine.Evaluate(context.Background(), snap.RequestID, params.DefaultSettings())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

// An expired deadline aborts with zero adjudications committed and the
// request flagged in the recoverable failed sub-state.
func TestEvaluateTimeoutCommitsNothing(t *testing.T) {
	requestID := uuid.New()
	item := uuid.New()
	offer := uuid.New()
	snap := &Snapshot{
		RequestID: requestID,
		State:     lifecycle.RequestAbierta,
		Items:     []ItemSnapshot{{ID: item, Quantity: 1}},
		Offers: []OfferSnapshot{
			{ID: offer, AdvisorID: uuid.New(), SubmittedAt: time.Now(),
				Details: []DetailSnapshot{detail(offer, item, 10000, 1, 3, 2)}},
		},
	}

	engine, store := newTestEngine(snap)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Evaluate(ctx, requestID, params.DefaultSettings())
	if !apperr.Is(err, apperr.KindTimeout) {
		t.Fatalf("expected timeout kind, got %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.committed != nil {
		t.Fatal("timed-out evaluation must commit nothing")
	}
	if !store.failed {
		t.Fatal("request must be flagged as evaluation-failed")
	}
}

// blockingCommitStore stalls the commit until the evaluation context dies.
type blockingCommitStore struct {
	fakeStore
}

func (f *blockingCommitStore) CommitEvaluation(ctx context.Context, _ *Outcome) error {
	<-ctx.Done()
	return ctx.Err()
}

// The deadline can also expire while the commit transaction is in flight. That
// failure takes the same abort path: timeout kind, nothing committed, request
// flagged evaluation-failed.
func TestEvaluateTimeoutDuringCommitCommitsNothing(t *testing.T) {
	requestID := uuid.New()
	item := uuid.New()
	offer := uuid.New()
	store := &blockingCommitStore{fakeStore{snapshot: &Snapshot{
		RequestID: requestID,
		State:     lifecycle.RequestAbierta,
		Items:     []ItemSnapshot{{ID: item, Quantity: 1}},
		Offers: []OfferSnapshot{
			{ID: offer, AdvisorID: uuid.New(), SubmittedAt: time.Now(),
				Details: []DetailSnapshot{detail(offer, item, 10000, 1, 3, 2)}},
		},
	}}}
	engine := NewEngine(store, events.NewInMemoryBus(logger.New("development")), logger.New("development"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := engine.Evaluate(ctx, requestID, params.DefaultSettings())
	if !apperr.Is(err, apperr.KindTimeout) {
		t.Fatalf("expected timeout kind, got %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.committed != nil {
		t.Fatal("aborted commit must leave nothing committed")
	}
	if !store.failed {
		t.Fatal("request must be flagged as evaluation-failed")
	}
}

func TestScoreComponents(t *testing.T) {
	if got := priceScore(10000, 10000); got != 1.0 {
		t.Errorf("cheapest line must score 1.0, got %v", got)
	}
	if got := priceScore(10000, 20000); got != 0.5 {
		t.Errorf("double price must score 0.5, got %v", got)
	}
	if got := deliveryScore(0, 0); got != 1.0 {
		t.Errorf("same-day best must score 1.0, got %v", got)
	}
	if got := deliveryScore(0, 4); got != 0.2 {
		t.Errorf("expected 0.2 for 4 days vs same-day best, got %v", got)
	}
	if got := warrantyScore(12, 6); got != 0.5 {
		t.Errorf("half warranty must score 0.5, got %v", got)
	}
	if got := warrantyScore(0, 0); got != 1.0 {
		t.Errorf("no warranty anywhere must not differentiate, got %v", got)
	}
}
