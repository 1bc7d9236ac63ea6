package params

import (
	"context"
	"encoding/json"
	"sync"

	"repuestos_backend/platform/apperr"
	"repuestos_backend/platform/logger"
)

// storeRepository is the persistence surface the store needs.
type storeRepository interface {
	GetAll(ctx context.Context) ([]Parameter, error)
	UpdateMany(ctx context.Context, updates []ParamUpdate) error
}

// Store loads, validates and caches the configuration. One shared instance is
// constructed at process start and passed to every consumer; Snapshot hands
// out immutable copies so a run never sees a half-updated weight set.
type Store struct {
	repo storeRepository
	log  *logger.Logger

	mu     sync.RWMutex
	cached Settings
	loaded bool
}

// NewStore creates a configuration store on the given repository.
func NewStore(repo storeRepository, log *logger.Logger) *Store {
	return &Store{repo: repo, log: log}
}

// Load reads all parameters, assembles and validates the typed settings, and
// caches them. Invalid persisted configuration fails loudly rather than
// letting scoring run with a broken weight set.
func (s *Store) Load(ctx context.Context) error {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		return err
	}

	values := make(map[string]json.RawMessage, len(rows))
	for _, p := range rows {
		values[p.Key] = p.Value
	}

	settings, err := fromValues(values)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "configuration could not be decoded", err)
	}
	if err := settings.Validate(); err != nil {
		return apperr.Wrap(apperr.KindValidation, "persisted configuration is invalid", err)
	}

	s.mu.Lock()
	s.cached = settings
	s.loaded = true
	s.mu.Unlock()

	s.log.Info("configuration loaded", "parameters", len(rows))
	return nil
}

// Snapshot returns the current settings by value. Callers hold the snapshot
// for the duration of one scoring/evaluation/sweep run.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return DefaultSettings()
	}
	return s.cached
}

// UpdateParameters validates the candidate configuration that would result
// from applying updates, writes all rows in one transaction, and refreshes
// the cache. Nothing is persisted when validation fails.
func (s *Store) UpdateParameters(ctx context.Context, updates []ParamUpdate) error {
	if len(updates) == 0 {
		return apperr.Validation("no parameter updates provided")
	}

	candidate := make(map[string]json.RawMessage, len(updates))

	s.mu.RLock()
	current := s.cached
	s.mu.RUnlock()

	// Re-encode the current settings so unmentioned keys keep their values.
	currentValues, err := encodeSettings(current)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to encode current configuration", err)
	}
	for k, v := range currentValues {
		candidate[k] = v
	}
	for _, u := range updates {
		if _, known := currentValues[u.Key]; !known {
			return apperr.Validation("unknown configuration parameter: " + u.Key)
		}
		candidate[u.Key] = u.Value
	}

	next, err := fromValues(candidate)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "parameter update could not be decoded", err)
	}
	if err := next.Validate(); err != nil {
		return apperr.Wrap(apperr.KindValidation, err.Error(), err)
	}

	if err := s.repo.UpdateMany(ctx, updates); err != nil {
		return err
	}

	s.mu.Lock()
	s.cached = next
	s.loaded = true
	s.mu.Unlock()

	s.log.Info("configuration updated", "parameters", len(updates))
	return nil
}

func encodeSettings(s Settings) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage)

	entries := []struct {
		key string
		val any
	}{
		{KeyScoringWeights, s.ScoringWeights},
		{KeyEvaluationWeights, s.EvaluationWeights},
		{KeyTierThresholds, s.TierThresholds},
		{KeyTierWaitsMinutes, s.TierWaitsMinutes},
		{KeyTierChannels, s.TierChannels},
		{KeyRangePrice, s.PriceRange},
		{KeyRangeWarranty, s.WarrantyRange},
		{KeyRangeDelivery, s.DeliveryRange},
		{KeyRangeQuantity, s.QuantityRange},
		{KeyScoringDefaults, s.ScoringDefaults},
		{KeyEvaluationLock, s.Lock},
		{KeyEvaluationTimeout, s.EvalTimeoutSecs},
		{KeyOfferTimeoutHours, s.OfferTimeoutHours},
		{KeyWarningLeadHours, s.WarningLeadHours},
		{KeyWarningChannel, s.WarningChannel},
	}
	for _, e := range entries {
		raw, err := json.Marshal(e.val)
		if err != nil {
			return nil, err
		}
		out[e.key] = raw
	}
	return out, nil
}
