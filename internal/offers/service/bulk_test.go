package service

import (
	"testing"

	"repuestos_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestParseBulkRowsWithSentinel(t *testing.T) {
	rows := [][]string{
		{"CONFIGURACION GENERAL", "5"},
		{"Pastillas freno delanteras", "150.000", "2", "6"},
		{"Filtro de aceite", "$45,000", "1", "3", "", "Mann", "Alemania"},
	}

	lines, err := parseBulkRows(rows)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	first := lines[0]
	if first.UnitPriceCents != 15000000 {
		t.Errorf("expected 150000 pesos as 15000000 cents, got %d", first.UnitPriceCents)
	}
	if first.DeliveryDays != 5 {
		t.Errorf("sentinel delivery not applied, got %d", first.DeliveryDays)
	}
	if first.Quantity != 2 || first.WarrantyMonths != 6 {
		t.Errorf("unexpected quantity/warranty: %d/%d", first.Quantity, first.WarrantyMonths)
	}

	second := lines[1]
	if second.UnitPriceCents != 4500000 {
		t.Errorf("expected 45000 pesos as 4500000 cents, got %d", second.UnitPriceCents)
	}
	if second.Brand == nil || *second.Brand != "Mann" {
		t.Errorf("expected brand Mann, got %v", second.Brand)
	}
	if second.DeliveryDays != 5 {
		t.Errorf("empty delivery cell must fall back to sentinel, got %d", second.DeliveryDays)
	}
}

func TestParseBulkRowsRowDeliveryOverridesSentinel(t *testing.T) {
	rows := [][]string{
		{"configuración general", "10"},
		{"Amortiguador", "320000", "2", "12", "3"},
	}

	lines, err := parseBulkRows(rows)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if lines[0].DeliveryDays != 3 {
		t.Fatalf("row delivery must win over the sentinel, got %d", lines[0].DeliveryDays)
	}
}

func TestParseBulkRowsWithoutSentinelRequiresRowDelivery(t *testing.T) {
	rows := [][]string{
		{"Bujía", "18000", "4", "6"},
	}

	if _, err := parseBulkRows(rows); err == nil {
		t.Fatal("row without delivery and without a configuration row must be rejected")
	}
}

// A single bad row rejects the whole submission; no lines come back.
func TestParseBulkRowsAllOrNothing(t *testing.T) {
	rows := [][]string{
		{"CONFIGURACION GENERAL", "5"},
		{"Pastillas freno", "150000", "2", "6"},
		{"Filtro", "gratis", "1", "3"},
	}

	lines, err := parseBulkRows(rows)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if lines != nil {
		t.Fatal("no lines may be returned on rejection")
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseBulkRowsSentinelOnly(t *testing.T) {
	rows := [][]string{{"GENERAL CONFIGURATION", "5"}}

	if _, err := parseBulkRows(rows); err == nil {
		t.Fatal("configuration row with no item rows must be rejected")
	}
}

func TestMatchLinesToItems(t *testing.T) {
	itemID := uuid.New()
	items := map[string]itemRef{
		"PASTILLAS FRENO": {ID: itemID, Quantity: 2},
	}

	lines := []bulkLine{{ItemName: "  pastillas   freno ", UnitPriceCents: 100, Quantity: 1, DeliveryDays: 1}}
	out, err := matchLinesToItems(lines, items)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if out[0].RequestItemID != itemID {
		t.Fatal("name match must be whitespace and case insensitive")
	}
}

func TestMatchLinesToItemsUnknownAndDuplicate(t *testing.T) {
	itemID := uuid.New()
	items := map[string]itemRef{"FILTRO": {ID: itemID, Quantity: 1}}

	_, err := matchLinesToItems([]bulkLine{{ItemName: "Correa"}}, items)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown item must be a validation error, got %v", err)
	}

	dup := []bulkLine{{ItemName: "Filtro"}, {ItemName: "FILTRO"}}
	if _, err := matchLinesToItems(dup, items); err == nil {
		t.Fatal("duplicate item quote must be rejected")
	}
}
