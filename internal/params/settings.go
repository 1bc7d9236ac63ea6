// Package params provides the configuration store for scoring weights, tier
// thresholds, wait times, evaluation weights and numeric ranges. Parameters
// live as JSON values in the database; this package assembles them into typed
// category structs, validates them as a whole, and caches the result.
package params

import (
	"encoding/json"
	"fmt"
	"math"
)

const weightSumTolerance = 1e-6

// Tiers is the number of escalation tiers.
const Tiers = 5

// Parameter keys.
const (
	KeyScoringWeights    = "scoring_weights"
	KeyEvaluationWeights = "evaluation_weights"
	KeyTierThresholds    = "tier_thresholds"
	KeyTierWaitsMinutes  = "tier_waits_minutes"
	KeyTierChannels      = "tier_channels"
	KeyRangePrice        = "range_price"
	KeyRangeWarranty     = "range_warranty_months"
	KeyRangeDelivery     = "range_delivery_days"
	KeyRangeQuantity     = "range_quantity"
	KeyScoringDefaults   = "scoring_defaults"
	KeyEvaluationLock    = "evaluation_lock"
	KeyEvaluationTimeout = "evaluation_timeout_seconds"
	KeyOfferTimeoutHours = "timeout_horas"
	KeyWarningLeadHours  = "warning_lead_hours"
	KeyWarningChannel    = "warning_channel"
)

// ScoringWeights weight the advisor composite score components.
type ScoringWeights struct {
	Proximity   float64 `json:"proximity"`
	Activity    float64 `json:"activity"`
	Performance float64 `json:"performance"`
	Trust       float64 `json:"trust"`
}

// Sum returns the total weight.
func (w ScoringWeights) Sum() float64 {
	return w.Proximity + w.Activity + w.Performance + w.Trust
}

// EvaluationWeights weight the offer-detail score components.
type EvaluationWeights struct {
	Price    float64 `json:"price"`
	Delivery float64 `json:"delivery"`
	Warranty float64 `json:"warranty"`
}

// Sum returns the total weight.
func (w EvaluationWeights) Sum() float64 {
	return w.Price + w.Delivery + w.Warranty
}

// NumericRange bounds an offer field.
type NumericRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the range (inclusive).
func (r NumericRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// ScoringDefaults supply fallbacks for advisors without metric history.
type ScoringDefaults struct {
	NeutralActivityPct    float64 `json:"neutral_activity_pct"`
	NeutralPerformancePct float64 `json:"neutral_performance_pct"`
	MinTrust              float64 `json:"min_trust"`
}

// LockSettings tune the per-request evaluation lock.
type LockSettings struct {
	TTLSeconds    int `json:"ttl_seconds"`
	RetryAttempts int `json:"retry_attempts"`
	RetryDelayMs  int `json:"retry_delay_ms"`
}

// Settings is the validated, immutable view of all configuration categories.
// A Snapshot is taken once per run (scoring pass, evaluation, sweep) so a
// concurrent parameter update never changes weights mid-run.
type Settings struct {
	ScoringWeights    ScoringWeights
	EvaluationWeights EvaluationWeights
	TierThresholds    [Tiers]float64
	TierWaitsMinutes  [Tiers]int
	TierChannels      [Tiers]string
	PriceRange        NumericRange
	WarrantyRange     NumericRange
	DeliveryRange     NumericRange
	QuantityRange     NumericRange
	ScoringDefaults   ScoringDefaults
	Lock              LockSettings
	EvalTimeoutSecs   int
	OfferTimeoutHours int
	WarningLeadHours  int
	WarningChannel    string
}

// DefaultSettings returns the shipped configuration.
func DefaultSettings() Settings {
	return Settings{
		ScoringWeights:    ScoringWeights{Proximity: 0.40, Activity: 0.25, Performance: 0.20, Trust: 0.15},
		EvaluationWeights: EvaluationWeights{Price: 0.50, Delivery: 0.30, Warranty: 0.20},
		TierThresholds:    [Tiers]float64{4.5, 4.0, 3.5, 3.0, 0},
		TierWaitsMinutes:  [Tiers]int{15, 20, 30, 45, 60},
		TierChannels:      [Tiers]string{"whatsapp", "whatsapp", "telegram", "telegram", "push"},
		PriceRange:        NumericRange{Min: 1000, Max: 50000000},
		WarrantyRange:     NumericRange{Min: 0, Max: 60},
		DeliveryRange:     NumericRange{Min: 0, Max: 90},
		QuantityRange:     NumericRange{Min: 1, Max: 1000},
		ScoringDefaults:   ScoringDefaults{NeutralActivityPct: 50, NeutralPerformancePct: 50, MinTrust: 1.0},
		Lock:              LockSettings{TTLSeconds: 300, RetryAttempts: 3, RetryDelayMs: 250},
		EvalTimeoutSecs:   60,
		OfferTimeoutHours: 24,
		WarningLeadHours:  2,
		WarningChannel:    "whatsapp",
	}
}

// Validate checks every category. All violations are reported at once so an
// operator fixing a parameter set sees the full picture.
func (s Settings) Validate() error {
	var problems []string

	if math.Abs(s.ScoringWeights.Sum()-1.0) > weightSumTolerance {
		problems = append(problems, fmt.Sprintf("scoring weights sum to %.6f, want 1.0", s.ScoringWeights.Sum()))
	}
	if math.Abs(s.EvaluationWeights.Sum()-1.0) > weightSumTolerance {
		problems = append(problems, fmt.Sprintf("evaluation weights sum to %.6f, want 1.0", s.EvaluationWeights.Sum()))
	}
	for _, w := range []float64{
		s.ScoringWeights.Proximity, s.ScoringWeights.Activity,
		s.ScoringWeights.Performance, s.ScoringWeights.Trust,
		s.EvaluationWeights.Price, s.EvaluationWeights.Delivery, s.EvaluationWeights.Warranty,
	} {
		if w < 0 {
			problems = append(problems, "weights must be non-negative")
			break
		}
	}

	for i := 1; i < Tiers; i++ {
		if s.TierThresholds[i] >= s.TierThresholds[i-1] {
			problems = append(problems, fmt.Sprintf("tier thresholds must be strictly decreasing (tier %d: %.2f >= tier %d: %.2f)",
				i+1, s.TierThresholds[i], i, s.TierThresholds[i-1]))
		}
	}

	for i, wait := range s.TierWaitsMinutes {
		if wait <= 0 || wait > 120 {
			problems = append(problems, fmt.Sprintf("tier %d wait must be in (0, 120] minutes, got %d", i+1, wait))
		}
	}

	for i, ch := range s.TierChannels {
		if ch == "" {
			problems = append(problems, fmt.Sprintf("tier %d has no notification channel", i+1))
		}
	}

	for name, r := range map[string]NumericRange{
		"price":    s.PriceRange,
		"warranty": s.WarrantyRange,
		"delivery": s.DeliveryRange,
		"quantity": s.QuantityRange,
	} {
		if r.Min < 0 || r.Max < r.Min {
			problems = append(problems, fmt.Sprintf("%s range [%g, %g] is invalid", name, r.Min, r.Max))
		}
	}

	if s.ScoringDefaults.NeutralActivityPct < 0 || s.ScoringDefaults.NeutralActivityPct > 100 {
		problems = append(problems, "neutral activity pct must be in [0, 100]")
	}
	if s.ScoringDefaults.NeutralPerformancePct < 0 || s.ScoringDefaults.NeutralPerformancePct > 100 {
		problems = append(problems, "neutral performance pct must be in [0, 100]")
	}
	if s.ScoringDefaults.MinTrust < 1.0 || s.ScoringDefaults.MinTrust > 5.0 {
		problems = append(problems, "min trust must be in [1.0, 5.0]")
	}

	if s.Lock.TTLSeconds <= 0 {
		problems = append(problems, "lock ttl must be positive")
	}
	if s.Lock.RetryAttempts < 1 {
		problems = append(problems, "lock retry attempts must be at least 1")
	}
	if s.Lock.RetryDelayMs < 0 {
		problems = append(problems, "lock retry delay must be non-negative")
	}
	if s.EvalTimeoutSecs <= 0 {
		problems = append(problems, "evaluation timeout must be positive")
	}
	if s.OfferTimeoutHours <= 0 {
		problems = append(problems, "timeout_horas must be positive")
	}
	if s.WarningLeadHours < 0 || s.WarningLeadHours >= s.OfferTimeoutHours {
		problems = append(problems, "warning lead hours must be non-negative and below timeout_horas")
	}
	if s.WarningChannel == "" {
		problems = append(problems, "warning channel must not be empty")
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// ConfigurationError aggregates every validation failure in a parameter set.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid configuration: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid configuration (%d problems): %s", len(e.Problems), e.Problems[0])
}

// fromValues assembles Settings from raw parameter JSON keyed by parameter
// name, starting from defaults so partial sets stay usable.
func fromValues(values map[string]json.RawMessage) (Settings, error) {
	s := DefaultSettings()

	decode := func(key string, dst any) error {
		raw, ok := values[key]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("failed to decode parameter %s: %w", key, err)
		}
		return nil
	}

	steps := []struct {
		key string
		dst any
	}{
		{KeyScoringWeights, &s.ScoringWeights},
		{KeyEvaluationWeights, &s.EvaluationWeights},
		{KeyTierThresholds, &s.TierThresholds},
		{KeyTierWaitsMinutes, &s.TierWaitsMinutes},
		{KeyTierChannels, &s.TierChannels},
		{KeyRangePrice, &s.PriceRange},
		{KeyRangeWarranty, &s.WarrantyRange},
		{KeyRangeDelivery, &s.DeliveryRange},
		{KeyRangeQuantity, &s.QuantityRange},
		{KeyScoringDefaults, &s.ScoringDefaults},
		{KeyEvaluationLock, &s.Lock},
		{KeyEvaluationTimeout, &s.EvalTimeoutSecs},
		{KeyOfferTimeoutHours, &s.OfferTimeoutHours},
		{KeyWarningLeadHours, &s.WarningLeadHours},
		{KeyWarningChannel, &s.WarningChannel},
	}
	for _, step := range steps {
		if err := decode(step.key, step.dst); err != nil {
			return Settings{}, err
		}
	}

	return s, nil
}
