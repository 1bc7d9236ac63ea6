package service

import (
	"fmt"
	"strconv"
	"strings"

	"repuestos_backend/internal/offers/transport"
	"repuestos_backend/platform/apperr"
)

// Sentinel values accepted as the general-configuration row marker.
var sentinelMarkers = map[string]bool{
	"CONFIGURACION GENERAL": true,
	"CONFIGURACIÓN GENERAL": true,
	"GENERAL CONFIGURATION": true,
}

// Data row cell layout:
//
//	0: item name (matched against the request's items)
//	1: unit price (pesos, converted to cents)
//	2: quantity
//	3: warranty months
//	4: delivery days (may be empty when the sentinel supplied one)
//	5: brand    (optional)
//	6: origin   (optional)
//	7: notes    (optional)
const (
	colName = iota
	colPrice
	colQuantity
	colWarranty
	colDelivery
	colBrand
	colOrigin
	colNotes
)

const minRowCells = colWarranty + 1

// bulkLine is one parsed data row, keyed by item name instead of item id.
type bulkLine struct {
	ItemName       string
	UnitPriceCents int64
	Quantity       int
	WarrantyMonths int
	DeliveryDays   int
	Brand          *string
	Origin         *string
	Notes          *string
}

// parseBulkRows parses and validates every row before returning anything. A
// single bad row rejects the whole submission; no partial offer is ever built.
func parseBulkRows(rows [][]string) ([]bulkLine, error) {
	if len(rows) == 0 {
		return nil, apperr.Validation("bulk offer has no rows")
	}

	sharedDelivery := -1
	start := 0
	if isSentinelRow(rows[0]) {
		days, err := parseSentinelRow(rows[0])
		if err != nil {
			return nil, err
		}
		sharedDelivery = days
		start = 1
	}

	dataRows := rows[start:]
	if len(dataRows) == 0 {
		return nil, apperr.Validation("bulk offer has a configuration row but no item rows")
	}

	lines := make([]bulkLine, 0, len(dataRows))
	var problems []string
	for i, row := range dataRows {
		line, err := parseDataRow(row, sharedDelivery)
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %v", start+i+1, err))
			continue
		}
		lines = append(lines, line)
	}
	if len(problems) > 0 {
		return nil, apperr.Validation("bulk offer rejected").WithDetails(problems)
	}
	return lines, nil
}

func isSentinelRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	return sentinelMarkers[strings.ToUpper(strings.TrimSpace(row[0]))]
}

// parseSentinelRow extracts the shared delivery days from the marker row.
func parseSentinelRow(row []string) (int, error) {
	if len(row) < 2 {
		return 0, apperr.Validation("configuration row is missing the delivery time")
	}
	days, err := strconv.Atoi(strings.TrimSpace(row[1]))
	if err != nil || days < 0 {
		return 0, apperr.Validation("configuration row has an invalid delivery time")
	}
	return days, nil
}

func parseDataRow(row []string, sharedDelivery int) (bulkLine, error) {
	if len(row) < minRowCells {
		return bulkLine{}, fmt.Errorf("expected at least %d cells, got %d", minRowCells, len(row))
	}

	name := strings.TrimSpace(row[colName])
	if name == "" {
		return bulkLine{}, fmt.Errorf("item name is empty")
	}

	price, err := parsePesos(row[colPrice])
	if err != nil {
		return bulkLine{}, fmt.Errorf("invalid unit price %q", row[colPrice])
	}

	qty, err := strconv.Atoi(strings.TrimSpace(row[colQuantity]))
	if err != nil || qty < 1 {
		return bulkLine{}, fmt.Errorf("invalid quantity %q", row[colQuantity])
	}

	warranty, err := strconv.Atoi(strings.TrimSpace(row[colWarranty]))
	if err != nil || warranty < 0 {
		return bulkLine{}, fmt.Errorf("invalid warranty months %q", row[colWarranty])
	}

	delivery := sharedDelivery
	if len(row) > colDelivery && strings.TrimSpace(row[colDelivery]) != "" {
		delivery, err = strconv.Atoi(strings.TrimSpace(row[colDelivery]))
		if err != nil || delivery < 0 {
			return bulkLine{}, fmt.Errorf("invalid delivery days %q", row[colDelivery])
		}
	}
	if delivery < 0 {
		return bulkLine{}, fmt.Errorf("no delivery time: neither a row value nor a configuration row")
	}

	return bulkLine{
		ItemName:       name,
		UnitPriceCents: price,
		Quantity:       qty,
		WarrantyMonths: warranty,
		DeliveryDays:   delivery,
		Brand:          optionalCell(row, colBrand),
		Origin:         optionalCell(row, colOrigin),
		Notes:          optionalCell(row, colNotes),
	}, nil
}

// parsePesos converts a price cell to integer cents. Accepts thousands
// separators as advisors type them ("1.500.000" or "1,500,000").
func parsePesos(cell string) (int64, error) {
	clean := strings.TrimSpace(cell)
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.TrimSpace(clean)

	pesos, err := strconv.ParseInt(clean, 10, 64)
	if err != nil || pesos <= 0 {
		return 0, fmt.Errorf("not a positive amount")
	}
	return pesos * 100, nil
}

func optionalCell(row []string, idx int) *string {
	if len(row) <= idx {
		return nil
	}
	v := strings.TrimSpace(row[idx])
	if v == "" {
		return nil
	}
	return &v
}

// matchLinesToItems resolves parsed bulk lines against the request's items by
// normalized name. Every line must match exactly one item and no item may be
// quoted twice.
func matchLinesToItems(lines []bulkLine, items map[string]itemRef) ([]transport.OfferLine, error) {
	var problems []string
	seen := make(map[string]bool, len(lines))
	out := make([]transport.OfferLine, 0, len(lines))

	for _, line := range lines {
		key := normalizeItemName(line.ItemName)
		ref, ok := items[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("item %q is not part of the request", line.ItemName))
			continue
		}
		if seen[key] {
			problems = append(problems, fmt.Sprintf("item %q is quoted more than once", line.ItemName))
			continue
		}
		seen[key] = true

		out = append(out, transport.OfferLine{
			RequestItemID:  ref.ID,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
			WarrantyMonths: line.WarrantyMonths,
			DeliveryDays:   line.DeliveryDays,
			Brand:          line.Brand,
			Origin:         line.Origin,
			Notes:          line.Notes,
		})
	}
	if len(problems) > 0 {
		return nil, apperr.Validation("bulk offer rejected").WithDetails(problems)
	}
	return out, nil
}

func normalizeItemName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}
