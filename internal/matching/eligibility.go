package matching

import (
	"context"
	"strings"

	"repuestos_backend/internal/advisors/repository"
)

// eligible builds the candidate set: every advisor in the origin city, its
// metro area or its logistics hub, deduplicated by advisor identity.
func (e *Engine) eligible(ctx context.Context, originCity string) ([]repository.Advisor, error) {
	cities, err := e.geo.CitiesNear(ctx, originCity)
	if err != nil {
		return nil, err
	}

	normalized := make([]string, 0, len(cities))
	for _, c := range cities {
		normalized = append(normalized, strings.ToUpper(strings.TrimSpace(c)))
	}

	advisors, err := e.advisors.ListByCities(ctx, normalized)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(advisors))
	unique := advisors[:0]
	for _, a := range advisors {
		key := a.ID.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, a)
	}
	return unique, nil
}
