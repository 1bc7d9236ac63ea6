package geography

import (
	"context"
	"testing"
)

func testResolver() *StaticResolver {
	return &StaticResolver{
		Metro: map[string]string{
			"MEDELLIN": "valle_de_aburra",
			"ENVIGADO": "valle_de_aburra",
			"ITAGUI":   "valle_de_aburra",
			"BOGOTA":   "sabana",
			"CHIA":     "sabana",
		},
		Hubs: map[string]string{
			"MEDELLIN":  "antioquia",
			"RIONEGRO":  "antioquia",
			"MANIZALES": "eje_cafetero",
			"PEREIRA":   "eje_cafetero",
		},
	}
}

func TestResolveProximity(t *testing.T) {
	r := testResolver()
	ctx := context.Background()

	cases := []struct {
		origin, advisor string
		want            Proximity
	}{
		{"Medellin", "medellin", SameCity},
		{"MEDELLIN", "Envigado", MetroArea},
		{"MEDELLIN", "Rionegro", LogisticsHub},
		{"Manizales", "Pereira", LogisticsHub},
		{"MEDELLIN", "Bogota", None},
		{"Cucuta", "Pasto", None},
		{"", "Bogota", None},
	}

	for _, tc := range cases {
		got, err := r.ResolveProximity(ctx, tc.origin, tc.advisor)
		if err != nil {
			t.Fatalf("ResolveProximity(%s, %s) errored: %v", tc.origin, tc.advisor, err)
		}
		if got != tc.want {
			t.Errorf("ResolveProximity(%s, %s) = %s, want %s", tc.origin, tc.advisor, got, tc.want)
		}
	}
}

func TestMetroAreaBeatsHub(t *testing.T) {
	// Cities sharing both a metro area and a hub resolve to the closer class.
	r := testResolver()
	r.Hubs["ENVIGADO"] = "antioquia"

	got, _ := r.ResolveProximity(context.Background(), "Medellin", "Envigado")
	if got != MetroArea {
		t.Fatalf("expected METRO_AREA, got %s", got)
	}
}

func TestCitiesNear(t *testing.T) {
	r := testResolver()

	cities, err := r.CitiesNear(context.Background(), "Medellin")
	if err != nil {
		t.Fatalf("CitiesNear errored: %v", err)
	}

	want := map[string]bool{"MEDELLIN": true, "ENVIGADO": true, "ITAGUI": true, "RIONEGRO": true}
	if len(cities) != len(want) {
		t.Fatalf("expected %d cities, got %v", len(want), cities)
	}
	for _, c := range cities {
		if !want[c] {
			t.Errorf("unexpected city %s", c)
		}
	}
}

func TestProximityString(t *testing.T) {
	for p, s := range map[Proximity]string{
		SameCity: "SAME_CITY", MetroArea: "METRO_AREA", LogisticsHub: "LOGISTICS_HUB", None: "NONE",
	} {
		if p.String() != s {
			t.Errorf("String(%d) = %s, want %s", p, p.String(), s)
		}
	}
}
