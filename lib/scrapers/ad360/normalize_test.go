package ad360

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDeduplicatesByBrandAndPartNumber(t *testing.T) {
	parts := Normalize([]RawRecord{
		{"brand": "Brembo", "partNumber": "BP-001", "price": "45,99"},
		{"brand": "brembo", "partNumber": "bp001", "price": "99,99"},
		{"brand": "Brembo", "partNumber": "BP 001", "price": "12,00"},
	}, NormalizeOptions{SupplierID: 7})

	require.Len(t, parts, 1)
	// first occurrence wins, including its price
	require.Equal(t, "BP-001", parts[0].PartNumber)
	require.Equal(t, "BP001", parts[0].PartNumberNorm)
	require.Equal(t, 45.99, parts[0].Price.Amount)
}

func TestNormalizePreservesFirstOccurrenceOrder(t *testing.T) {
	parts := Normalize([]RawRecord{
		{"brand": "Bosch", "partNumber": "A1"},
		{"brand": "TRW", "partNumber": "B2"},
		{"brand": "Bosch", "partNumber": "a-1"},
		{"brand": "Valeo", "partNumber": "C3"},
	}, NormalizeOptions{})

	require.Len(t, parts, 3)
	require.Equal(t, "A1", parts[0].PartNumberNorm)
	require.Equal(t, "B2", parts[1].PartNumberNorm)
	require.Equal(t, "C3", parts[2].PartNumberNorm)
}

func TestNormalizePartNumberStripsSpacesAndDashes(t *testing.T) {
	require.Equal(t, "1K0615301", normalizePartNumber("1K0 615 301"))
	require.Equal(t, "1K0615301", normalizePartNumber("1k0-615-301"))
	require.Equal(t, "", normalizePartNumber(" - "))
}

func TestNormalizeResolvesFieldSynonyms(t *testing.T) {
	parts := Normalize([]RawRecord{
		{"marca": "TRW", "reference": "DF-4823", "desc": "Disco de freno", "pvp": "38,50", "disponibilidad": "En stock"},
	}, NormalizeOptions{SupplierID: 7})

	require.Len(t, parts, 1)
	p := parts[0]
	require.Equal(t, "ad360", p.Source)
	require.Equal(t, int64(7), p.SupplierID)
	require.Equal(t, "TRW", p.Brand)
	require.Equal(t, "DF4823", p.PartNumberNorm)
	require.Equal(t, "Disco de freno", p.Description)
	require.Equal(t, 38.50, p.Price.Amount)
	require.Equal(t, "EUR", p.Price.Currency)
	require.Equal(t, "En stock", p.Stock)
}

func TestNormalizeBrandAliases(t *testing.T) {
	parts := Normalize([]RawRecord{
		{"brand": "VAG", "partNumber": "1K0 615 301"},
		{"brand": "Volkswagen Genuine", "partNumber": "5Q0 698 151"},
		{"brand": "Acme Parts", "partNumber": "X-9"},
	}, NormalizeOptions{})

	require.Len(t, parts, 3)
	require.Equal(t, "Volkswagen", parts[0].Brand)
	require.Equal(t, "Volkswagen", parts[1].Brand)
	require.Equal(t, "Acme Parts", parts[2].Brand)
}

func TestNormalizeDropsRecordsWithoutPartNumber(t *testing.T) {
	parts := Normalize([]RawRecord{
		{"brand": "Bosch", "description": "no reference at all"},
		{"brand": "Bosch", "partNumber": "  "},
		{"brand": "Bosch", "partNumber": "OK-1"},
	}, NormalizeOptions{})

	require.Len(t, parts, 1)
	require.Equal(t, "OK1", parts[0].PartNumberNorm)
}

func TestNormalizeEmptyInput(t *testing.T) {
	parts := Normalize(nil, NormalizeOptions{})
	require.NotNil(t, parts)
	require.Empty(t, parts)
}

func TestParsePrice(t *testing.T) {
	require.Equal(t, 45.99, parsePrice("45,99", "EUR").Amount)
	require.Equal(t, 45.99, parsePrice("45,99 €", "EUR").Amount)
	require.Equal(t, 12.5, parsePrice(12.5, "EUR").Amount)
	require.Equal(t, float64(30), parsePrice(30, "EUR").Amount)

	// unparseable and out-of-range values degrade to zero; a
	// thousands-separated price has two periods after comma
	// normalization and lands in the unparseable bucket too
	require.Equal(t, float64(0), parsePrice("consultar", "EUR").Amount)
	require.Equal(t, float64(0), parsePrice("1.234,56", "EUR").Amount)
	require.Equal(t, float64(0), parsePrice(nil, "EUR").Amount)
	require.Equal(t, float64(0), parsePrice("-5,00", "EUR").Amount)

	require.Equal(t, "EUR", parsePrice(nil, "EUR").Currency)
}

func TestNormalizeOERefs(t *testing.T) {
	parts := Normalize([]RawRecord{
		{"brand": "Bosch", "partNumber": "BR-1", "oeRefs": []any{"1K0 698 151", " ", "5Q0698151A"}},
	}, NormalizeOptions{})

	require.Len(t, parts, 1)
	require.Equal(t, []string{"1K0 698 151", "5Q0698151A"}, parts[0].OERefs)
}
