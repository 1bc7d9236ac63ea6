package matching

import (
	"context"
	"testing"

	"repuestos_backend/internal/advisors/repository"
	"repuestos_backend/internal/geography"
	"repuestos_backend/internal/params"
	"repuestos_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeAdvisors struct {
	byCity map[string][]repository.Advisor
}

func (f *fakeAdvisors) ListByCities(_ context.Context, cities []string) ([]repository.Advisor, error) {
	var out []repository.Advisor
	for _, c := range cities {
		out = append(out, f.byCity[c]...)
	}
	return out, nil
}

func ptr(v float64) *float64 { return &v }

func newTestEngine(advisors map[string][]repository.Advisor) *Engine {
	geo := &geography.StaticResolver{
		Metro: map[string]string{"MEDELLIN": "aburra", "ENVIGADO": "aburra"},
		Hubs:  map[string]string{"MEDELLIN": "antioquia", "RIONEGRO": "antioquia"},
	}
	return NewEngine(&fakeAdvisors{byCity: advisors}, geo, logger.New("development"))
}

func perfectAdvisor(city string) repository.Advisor {
	return repository.Advisor{
		ID:             uuid.New(),
		City:           city,
		Status:         repository.StatusActive,
		TrustScore:     5.0,
		ActivityPct:    ptr(100),
		PerformancePct: ptr(100),
	}
}

// Same-city advisor with perfect metrics and default weights scores exactly
// 5.0 and lands in tier 1.
func TestPerfectSameCityAdvisorScoresFiveTierOne(t *testing.T) {
	a := perfectAdvisor("MEDELLIN")
	engine := newTestEngine(map[string][]repository.Advisor{"MEDELLIN": {a}})

	ranked, err := engine.RankCandidates(context.Background(), "Medellin", params.DefaultSettings())
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(ranked))
	}
	if ranked[0].Composite != 5.0 {
		t.Fatalf("expected composite 5.0, got %v", ranked[0].Composite)
	}
	if ranked[0].Proximity != 5.0 {
		t.Fatalf("expected proximity 5.0, got %v", ranked[0].Proximity)
	}
	if ranked[0].Tier != 1 {
		t.Fatalf("expected tier 1, got %d", ranked[0].Tier)
	}
}

func TestProximityComponents(t *testing.T) {
	sameCity := perfectAdvisor("MEDELLIN")
	metro := perfectAdvisor("ENVIGADO")
	hub := perfectAdvisor("RIONEGRO")

	engine := newTestEngine(map[string][]repository.Advisor{
		"MEDELLIN": {sameCity},
		"ENVIGADO": {metro},
		"RIONEGRO": {hub},
	})

	ranked, err := engine.RankCandidates(context.Background(), "Medellin", params.DefaultSettings())
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(ranked))
	}

	got := map[uuid.UUID]float64{}
	for _, r := range ranked {
		got[r.Advisor.ID] = r.Proximity
	}
	if got[sameCity.ID] != 5.0 || got[metro.ID] != 4.0 || got[hub.ID] != 3.5 {
		t.Fatalf("unexpected proximity components: %v", got)
	}

	// Sorted best-first.
	if ranked[0].Advisor.ID != sameCity.ID {
		t.Fatal("same-city advisor should rank first")
	}
}

func TestUnmappedCityUsesFallbackProximity(t *testing.T) {
	far := perfectAdvisor("CUCUTA")
	engine := NewEngine(
		&fakeAdvisors{byCity: map[string][]repository.Advisor{"PASTO": {far}}},
		&geography.StaticResolver{},
		logger.New("development"),
	)

	ranked, err := engine.RankCandidates(context.Background(), "Pasto", params.DefaultSettings())
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("expected fallback-scored candidate, got %d", len(ranked))
	}
	if ranked[0].Proximity != 3.0 {
		t.Fatalf("expected fallback proximity 3.0, got %v", ranked[0].Proximity)
	}
}

func TestInactiveAndLowTrustExcludedBeforeScoring(t *testing.T) {
	inactive := perfectAdvisor("MEDELLIN")
	inactive.Status = repository.StatusSuspended

	lowTrust := perfectAdvisor("MEDELLIN")
	lowTrust.TrustScore = 1.2

	ok := perfectAdvisor("MEDELLIN")

	settings := params.DefaultSettings()
	settings.ScoringDefaults.MinTrust = 2.0

	engine := newTestEngine(map[string][]repository.Advisor{
		"MEDELLIN": {inactive, lowTrust, ok},
	})

	ranked, err := engine.RankCandidates(context.Background(), "Medellin", settings)
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}
	if len(ranked) != 1 || ranked[0].Advisor.ID != ok.ID {
		t.Fatalf("expected only the active, trusted advisor, got %d", len(ranked))
	}
}

func TestMissingMetricsFallBackToNeutral(t *testing.T) {
	newcomer := repository.Advisor{
		ID:         uuid.New(),
		City:       "MEDELLIN",
		Status:     repository.StatusActive,
		TrustScore: 3.0,
	}
	engine := newTestEngine(map[string][]repository.Advisor{"MEDELLIN": {newcomer}})

	settings := params.DefaultSettings()
	settings.ScoringDefaults.NeutralActivityPct = 50
	settings.ScoringDefaults.NeutralPerformancePct = 50

	ranked, err := engine.RankCandidates(context.Background(), "Medellin", settings)
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatal("newcomer must be scored, not dropped")
	}

	// proximity 5.0*0.40 + neutral 3.0*(0.25+0.20) + trust 3.0*0.15
	want := 5.0*0.40 + 3.0*0.25 + 3.0*0.20 + 3.0*0.15
	if diff := ranked[0].Composite - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected composite %v, got %v", want, ranked[0].Composite)
	}
}

func TestEmptyUnionReturnsEmptyRanking(t *testing.T) {
	engine := newTestEngine(map[string][]repository.Advisor{})

	ranked, err := engine.RankCandidates(context.Background(), "Leticia", params.DefaultSettings())
	if err != nil {
		t.Fatalf("an empty candidate set is a result, not an error: %v", err)
	}
	if len(ranked) != 0 {
		t.Fatalf("expected empty ranking, got %d", len(ranked))
	}
}

func TestNormalizePct(t *testing.T) {
	cases := map[float64]float64{0: 1, 25: 2, 50: 3, 75: 4, 100: 5, 150: 5, -10: 1}
	for pct, want := range cases {
		if got := normalizePct(pct); got != want {
			t.Errorf("normalizePct(%v) = %v, want %v", pct, got, want)
		}
	}
}

// Tier assignment is monotonic: a higher composite never yields a numerically
// higher (worse) tier.
func TestTierMonotonicity(t *testing.T) {
	thresholds := params.DefaultSettings().TierThresholds

	prevTier := params.Tiers
	for score := 0.0; score <= 5.0; score += 0.05 {
		tier := TierFor(score, thresholds)
		if tier > prevTier {
			t.Fatalf("tier increased from %d to %d as score rose to %v", prevTier, tier, score)
		}
		prevTier = tier
	}

	if TierFor(5.0, thresholds) != 1 {
		t.Fatal("top score must land in tier 1")
	}
	if TierFor(0.0, thresholds) != params.Tiers {
		t.Fatal("floor score must land in the last tier")
	}
}
