package geography

import "context"

// StaticResolver serves proximity from fixed maps. Used in tests and in
// tooling that runs without a database.
type StaticResolver struct {
	Metro map[string]string // city -> metro area
	Hubs  map[string]string // city -> logistics hub
}

// ResolveProximity classifies advisorCity relative to originCity.
func (s *StaticResolver) ResolveProximity(_ context.Context, originCity, advisorCity string) (Proximity, error) {
	origin := normalizeCity(originCity)
	advisor := normalizeCity(advisorCity)
	if origin == "" || advisor == "" {
		return None, nil
	}
	if origin == advisor {
		return SameCity, nil
	}
	if a, ok := s.Metro[origin]; ok && a == s.Metro[advisor] {
		return MetroArea, nil
	}
	if h, ok := s.Hubs[origin]; ok && h == s.Hubs[advisor] {
		return LogisticsHub, nil
	}
	return None, nil
}

// CitiesNear returns the origin plus every city sharing its metro area or hub.
func (s *StaticResolver) CitiesNear(_ context.Context, originCity string) ([]string, error) {
	origin := normalizeCity(originCity)
	seen := map[string]bool{origin: true}
	out := []string{origin}

	if area, ok := s.Metro[origin]; ok {
		for city, a := range s.Metro {
			if a == area && !seen[city] {
				seen[city] = true
				out = append(out, city)
			}
		}
	}
	if hub, ok := s.Hubs[origin]; ok {
		for city, h := range s.Hubs {
			if h == hub && !seen[city] {
				seen[city] = true
				out = append(out, city)
			}
		}
	}
	return out, nil
}

// Compile-time check that StaticResolver implements Resolver
var _ Resolver = (*StaticResolver)(nil)
