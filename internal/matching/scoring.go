// Package matching ranks advisors for a request. It combines geographic
// proximity with activity, performance and trust metrics into a composite
// score and assigns each advisor to an escalation tier.
package matching

import (
	"context"
	"sort"

	"repuestos_backend/internal/advisors/repository"
	"repuestos_backend/internal/geography"
	"repuestos_backend/internal/params"
	"repuestos_backend/platform/logger"
)

// Proximity component values on the composite 1-5 scale.
const (
	proximitySameCity     = 5.0
	proximityMetroArea    = 4.0
	proximityLogisticsHub = 3.5
	proximityFallback     = 3.0
)

// AdvisorSource is the slice of the advisors repository the engine needs.
type AdvisorSource interface {
	ListByCities(ctx context.Context, cities []string) ([]repository.Advisor, error)
}

// ScoredAdvisor is one ranked candidate.
type ScoredAdvisor struct {
	Advisor   repository.Advisor
	Proximity float64
	Composite float64
	Tier      int
}

// Engine scores and ranks eligible advisors.
type Engine struct {
	advisors AdvisorSource
	geo      geography.Resolver
	log      *logger.Logger
}

// NewEngine creates a matching engine.
func NewEngine(advisors AdvisorSource, geo geography.Resolver, log *logger.Logger) *Engine {
	return &Engine{advisors: advisors, geo: geo, log: log}
}

// RankCandidates builds the eligible candidate set for the origin city and
// returns it scored and sorted, best first. An empty slice means no eligible
// advisors exist; callers decide what to do with that.
func (e *Engine) RankCandidates(ctx context.Context, originCity string, settings params.Settings) ([]ScoredAdvisor, error) {
	candidates, err := e.eligible(ctx, originCity)
	if err != nil {
		return nil, err
	}

	ranked := make([]ScoredAdvisor, 0, len(candidates))
	for _, advisor := range candidates {
		// Exclusion happens before scoring, not after.
		if advisor.Status != repository.StatusActive {
			continue
		}
		if advisor.TrustScore < settings.ScoringDefaults.MinTrust {
			continue
		}

		proximity, err := e.proximityScore(ctx, originCity, advisor)
		if err != nil {
			return nil, err
		}

		composite := e.composite(advisor, proximity, settings)
		ranked = append(ranked, ScoredAdvisor{
			Advisor:   advisor,
			Proximity: proximity,
			Composite: composite,
			Tier:      TierFor(composite, settings.TierThresholds),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Composite != ranked[j].Composite {
			return ranked[i].Composite > ranked[j].Composite
		}
		// Deterministic order for equal scores.
		return ranked[i].Advisor.ID.String() < ranked[j].Advisor.ID.String()
	})
	return ranked, nil
}

func (e *Engine) proximityScore(ctx context.Context, originCity string, advisor repository.Advisor) (float64, error) {
	prox, err := e.geo.ResolveProximity(ctx, originCity, advisor.City)
	if err != nil {
		return 0, err
	}

	switch prox {
	case geography.SameCity:
		return proximitySameCity, nil
	case geography.MetroArea:
		return proximityMetroArea, nil
	case geography.LogisticsHub:
		return proximityLogisticsHub, nil
	default:
		// Coverage gap, not an error: score with the fallback and flag the
		// pair for mapping follow-up.
		e.log.GeographicGap(originCity, advisor.City)
		return proximityFallback, nil
	}
}

func (e *Engine) composite(advisor repository.Advisor, proximity float64, settings params.Settings) float64 {
	activity := normalizePct(valueOr(advisor.ActivityPct, settings.ScoringDefaults.NeutralActivityPct))
	performance := normalizePct(valueOr(advisor.PerformancePct, settings.ScoringDefaults.NeutralPerformancePct))

	w := settings.ScoringWeights
	return w.Proximity*proximity +
		w.Activity*activity +
		w.Performance*performance +
		w.Trust*advisor.TrustScore
}

// normalizePct maps a 0-100 percentage onto the 1-5 component scale.
func normalizePct(pct float64) float64 {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return 1 + 4*(pct/100)
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// TierFor returns the 1-based tier whose threshold the composite score meets.
// Thresholds are strictly decreasing, so a higher score never lands in a
// numerically higher tier.
func TierFor(composite float64, thresholds [params.Tiers]float64) int {
	for i, threshold := range thresholds {
		if composite >= threshold {
			return i + 1
		}
	}
	return params.Tiers
}
