package params

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings must validate: %v", err)
	}
}

func TestWeightSumValidation(t *testing.T) {
	s := DefaultSettings()
	s.ScoringWeights = ScoringWeights{Proximity: 0.40, Activity: 0.25, Performance: 0.20, Trust: 0.10}

	err := s.Validate()
	if err == nil {
		t.Fatal("expected weight-sum violation")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
	if !strings.Contains(cfgErr.Problems[0], "scoring weights sum") {
		t.Fatalf("unexpected problem: %s", cfgErr.Problems[0])
	}
}

func TestWeightSumWithinTolerance(t *testing.T) {
	s := DefaultSettings()
	// A sub-tolerance deviation must be accepted.
	s.EvaluationWeights = EvaluationWeights{Price: 0.5, Delivery: 0.3, Warranty: 0.2 + 5e-7}
	if err := s.Validate(); err != nil {
		t.Fatalf("deviation within 1e-6 must pass: %v", err)
	}

	s.EvaluationWeights.Warranty = 0.2 + 1e-4
	if err := s.Validate(); err == nil {
		t.Fatal("deviation above tolerance must fail")
	}
}

func TestTierThresholdsMustStrictlyDecrease(t *testing.T) {
	s := DefaultSettings()
	s.TierThresholds = [Tiers]float64{4.5, 4.5, 3.5, 3.0, 0}
	if err := s.Validate(); err == nil {
		t.Fatal("equal adjacent thresholds must be rejected")
	}

	s.TierThresholds = [Tiers]float64{4.5, 4.0, 4.2, 3.0, 0}
	if err := s.Validate(); err == nil {
		t.Fatal("increasing thresholds must be rejected")
	}
}

func TestTierWaitBounds(t *testing.T) {
	s := DefaultSettings()
	s.TierWaitsMinutes[2] = 0
	if err := s.Validate(); err == nil {
		t.Fatal("zero wait must be rejected")
	}

	s = DefaultSettings()
	s.TierWaitsMinutes[4] = 121
	if err := s.Validate(); err == nil {
		t.Fatal("wait above 120 minutes must be rejected")
	}
}

func TestRangeValidation(t *testing.T) {
	s := DefaultSettings()
	s.PriceRange = NumericRange{Min: 100, Max: 50}
	if err := s.Validate(); err == nil {
		t.Fatal("inverted range must be rejected")
	}
}

func TestWarningLeadMustBeBelowTimeout(t *testing.T) {
	s := DefaultSettings()
	s.OfferTimeoutHours = 2
	s.WarningLeadHours = 2
	if err := s.Validate(); err == nil {
		t.Fatal("warning lead equal to timeout must be rejected")
	}
}

func TestWarningChannelMustNotBeEmpty(t *testing.T) {
	s := DefaultSettings()
	s.WarningChannel = ""
	if err := s.Validate(); err == nil {
		t.Fatal("empty warning channel must be rejected")
	}
}

func TestFromValuesOverridesDefaults(t *testing.T) {
	values := map[string]json.RawMessage{
		KeyScoringWeights:    json.RawMessage(`{"proximity":0.5,"activity":0.2,"performance":0.2,"trust":0.1}`),
		KeyOfferTimeoutHours: json.RawMessage(`48`),
	}

	s, err := fromValues(values)
	if err != nil {
		t.Fatalf("fromValues failed: %v", err)
	}
	if s.ScoringWeights.Proximity != 0.5 {
		t.Fatalf("expected proximity weight 0.5, got %v", s.ScoringWeights.Proximity)
	}
	if s.OfferTimeoutHours != 48 {
		t.Fatalf("expected timeout 48h, got %d", s.OfferTimeoutHours)
	}
	// Untouched categories keep their defaults.
	if s.EvaluationWeights != DefaultSettings().EvaluationWeights {
		t.Fatal("evaluation weights should be defaults")
	}
}

func TestFromValuesRejectsMalformedJSON(t *testing.T) {
	values := map[string]json.RawMessage{
		KeyTierThresholds: json.RawMessage(`"not an array"`),
	}
	if _, err := fromValues(values); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNumericRangeContains(t *testing.T) {
	r := NumericRange{Min: 1, Max: 10}
	for v, want := range map[float64]bool{0.5: false, 1: true, 5: true, 10: true, 10.5: false} {
		if got := r.Contains(v); got != want {
			t.Errorf("Contains(%v) = %v, want %v", v, got, want)
		}
	}
}
