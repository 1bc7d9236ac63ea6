// Package geography resolves proximity between a request's origin city and an
// advisor's city. Metro-area and logistics-hub mappings are reference data
// imported at setup time; lookups here are read-only and cached.
package geography

import (
	"context"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Proximity classifies how close an advisor is to a request's origin.
type Proximity int

const (
	// None means no mapping covers the pair of cities.
	None Proximity = iota
	// LogisticsHub means both cities share a logistics hub.
	LogisticsHub
	// MetroArea means both cities belong to the same metropolitan area.
	MetroArea
	// SameCity means an exact city match.
	SameCity
)

func (p Proximity) String() string {
	switch p {
	case SameCity:
		return "SAME_CITY"
	case MetroArea:
		return "METRO_AREA"
	case LogisticsHub:
		return "LOGISTICS_HUB"
	default:
		return "NONE"
	}
}

// Resolver answers proximity queries and area membership lookups.
type Resolver interface {
	// ResolveProximity classifies the advisor city relative to the origin city.
	ResolveProximity(ctx context.Context, originCity, advisorCity string) (Proximity, error)
	// CitiesNear returns every city in the origin's metro area and logistics
	// hub, the origin itself included.
	CitiesNear(ctx context.Context, originCity string) ([]string, error)
}

// PGResolver is the Postgres-backed Resolver. Mappings are loaded once per
// process and served from memory; Reload refreshes after a bulk import.
type PGResolver struct {
	pool *pgxpool.Pool

	mu        sync.RWMutex
	metroOf   map[string]string   // city -> metro area
	hubOf     map[string]string   // city -> logistics hub
	metroArea map[string][]string // metro area -> cities
	hubCities map[string][]string // hub -> cities
}

// NewPGResolver creates a resolver; call Reload before first use.
func NewPGResolver(pool *pgxpool.Pool) *PGResolver {
	return &PGResolver{
		pool:      pool,
		metroOf:   map[string]string{},
		hubOf:     map[string]string{},
		metroArea: map[string][]string{},
		hubCities: map[string][]string{},
	}
}

// Reload replaces the in-memory mappings from the database.
func (r *PGResolver) Reload(ctx context.Context) error {
	metroOf := map[string]string{}
	metroArea := map[string][]string{}
	hubOf := map[string]string{}
	hubCities := map[string][]string{}

	rows, err := r.pool.Query(ctx, `SELECT city, area FROM metro_areas`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var city, area string
		if err := rows.Scan(&city, &area); err != nil {
			return err
		}
		city = normalizeCity(city)
		metroOf[city] = area
		metroArea[area] = append(metroArea[area], city)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	hubRows, err := r.pool.Query(ctx, `SELECT city, hub FROM logistics_hubs`)
	if err != nil {
		return err
	}
	defer hubRows.Close()
	for hubRows.Next() {
		var city, hub string
		if err := hubRows.Scan(&city, &hub); err != nil {
			return err
		}
		city = normalizeCity(city)
		hubOf[city] = hub
		hubCities[hub] = append(hubCities[hub], city)
	}
	if err := hubRows.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.metroOf, r.metroArea = metroOf, metroArea
	r.hubOf, r.hubCities = hubOf, hubCities
	r.mu.Unlock()
	return nil
}

// ResolveProximity classifies advisorCity relative to originCity.
func (r *PGResolver) ResolveProximity(_ context.Context, originCity, advisorCity string) (Proximity, error) {
	origin := normalizeCity(originCity)
	advisor := normalizeCity(advisorCity)
	if origin == "" || advisor == "" {
		return None, nil
	}
	if origin == advisor {
		return SameCity, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.metroOf[origin]; ok && a == r.metroOf[advisor] {
		return MetroArea, nil
	}
	if h, ok := r.hubOf[origin]; ok && h == r.hubOf[advisor] {
		return LogisticsHub, nil
	}
	return None, nil
}

// CitiesNear returns the origin plus every city sharing its metro area or hub.
func (r *PGResolver) CitiesNear(_ context.Context, originCity string) ([]string, error) {
	origin := normalizeCity(originCity)

	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{origin: true}
	out := []string{origin}
	appendCities := func(cities []string) {
		for _, c := range cities {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}

	if area, ok := r.metroOf[origin]; ok {
		appendCities(r.metroArea[area])
	}
	if hub, ok := r.hubOf[origin]; ok {
		appendCities(r.hubCities[hub])
	}
	return out, nil
}

func normalizeCity(city string) string {
	return strings.ToUpper(strings.TrimSpace(city))
}

// Compile-time check that PGResolver implements Resolver
var _ Resolver = (*PGResolver)(nil)
