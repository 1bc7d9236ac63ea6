package params

import (
	"context"
	"encoding/json"
	"testing"

	"repuestos_backend/platform/apperr"
	"repuestos_backend/platform/logger"
)

type fakeRepo struct {
	rows      []Parameter
	written   [][]ParamUpdate
	updateErr error
}

func (f *fakeRepo) GetAll(context.Context) ([]Parameter, error) { return f.rows, nil }

func (f *fakeRepo) UpdateMany(_ context.Context, updates []ParamUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.written = append(f.written, updates)
	return nil
}

func TestStoreLoadAndSnapshot(t *testing.T) {
	repo := &fakeRepo{rows: []Parameter{
		{Key: KeyOfferTimeoutHours, Value: json.RawMessage(`72`)},
	}}
	store := NewStore(repo, logger.New("development"))

	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	snap := store.Snapshot()
	if snap.OfferTimeoutHours != 72 {
		t.Fatalf("expected loaded timeout 72, got %d", snap.OfferTimeoutHours)
	}
	if snap.ScoringWeights != DefaultSettings().ScoringWeights {
		t.Fatal("unset categories must fall back to defaults")
	}
}

func TestStoreLoadRejectsInvalidPersistedConfig(t *testing.T) {
	repo := &fakeRepo{rows: []Parameter{
		{Key: KeyScoringWeights, Value: json.RawMessage(`{"proximity":0.9,"activity":0.9,"performance":0.9,"trust":0.9}`)},
	}}
	store := NewStore(repo, logger.New("development"))

	if err := store.Load(context.Background()); err == nil {
		t.Fatal("expected load to fail on invalid weight set")
	}
}

func TestUpdateParametersRejectsBeforeWrite(t *testing.T) {
	repo := &fakeRepo{}
	store := NewStore(repo, logger.New("development"))
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	err := store.UpdateParameters(context.Background(), []ParamUpdate{
		{Key: KeyTierThresholds, Value: json.RawMessage(`[1,2,3,4,5]`)},
	})
	if err == nil {
		t.Fatal("expected increasing thresholds to be rejected")
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
	if len(repo.written) != 0 {
		t.Fatal("nothing may be persisted when validation fails")
	}

	// Snapshot must be unchanged.
	if store.Snapshot().TierThresholds != DefaultSettings().TierThresholds {
		t.Fatal("snapshot changed despite rejected update")
	}
}

func TestUpdateParametersRejectsUnknownKey(t *testing.T) {
	repo := &fakeRepo{}
	store := NewStore(repo, logger.New("development"))
	_ = store.Load(context.Background())

	err := store.UpdateParameters(context.Background(), []ParamUpdate{
		{Key: "no_such_parameter", Value: json.RawMessage(`1`)},
	})
	if err == nil || !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateParametersAppliesAndRefreshesCache(t *testing.T) {
	repo := &fakeRepo{}
	store := NewStore(repo, logger.New("development"))
	_ = store.Load(context.Background())

	err := store.UpdateParameters(context.Background(), []ParamUpdate{
		{Key: KeyEvaluationWeights, Value: json.RawMessage(`{"price":0.6,"delivery":0.25,"warranty":0.15}`)},
		{Key: KeyWarningLeadHours, Value: json.RawMessage(`4`)},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if len(repo.written) != 1 || len(repo.written[0]) != 2 {
		t.Fatalf("expected one batch of two writes, got %+v", repo.written)
	}

	snap := store.Snapshot()
	if snap.EvaluationWeights.Price != 0.6 {
		t.Fatalf("cache not refreshed, price weight = %v", snap.EvaluationWeights.Price)
	}
	if snap.WarningLeadHours != 4 {
		t.Fatalf("cache not refreshed, warning lead = %d", snap.WarningLeadHours)
	}
}
