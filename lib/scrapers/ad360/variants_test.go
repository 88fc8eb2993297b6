package ad360

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const variantTableHTML = `
<html><body>
<table class="vehicle-variants"><tbody>
	<tr>
		<td>SEAT</td>
		<td>León</td>
		<td>1.9 TDI</td>
		<td>77 KW (105 CV)</td>
		<td>BLS</td>
		<td>2005 - 2010</td>
	</tr>
	<tr>
		<td>SEAT</td>
		<td>León</td>
		<td>2.0 TDI</td>
		<td>103 KW (140 CV)</td>
		<td>BKD</td>
		<td>2005 - 2012</td>
	</tr>
	<tr>
		<td>header</td>
		<td></td>
		<td></td>
	</tr>
</tbody></table>
</body></html>`

func TestParseVariantRows(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(variantTableHTML))
	require.NoError(t, err)

	rows := parseVariantRows(doc, variantSelectorCandidates)
	require.Len(t, rows, 2)

	first := rows[0].Variant
	require.Equal(t, "SEAT", first.Make)
	require.Equal(t, "León", first.Model)
	require.Equal(t, "1.9 TDI", first.Version)
	require.Equal(t, "77 KW (105 CV)", first.Power)
	require.Equal(t, "77", first.KW)
	require.Equal(t, "BLS", first.Engine)
	require.Equal(t, "2005 - 2010", first.Years)

	require.Equal(t, "103", rows[1].Variant.KW)
	require.Equal(t, "table.vehicle-variants tbody tr", rows[0].Selector)
	require.Equal(t, 1, rows[1].RowIndex)
}

func TestParseVariantRowsExtractsYearsFromCombinedCells(t *testing.T) {
	html := `<table class="variants"><tbody>
		<tr><td>Ford</td><td>Focus</td><td>1.6 TDCi 2011-2014 85 kw</td></tr>
	</tbody></table>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	rows := parseVariantRows(doc, variantSelectorCandidates)
	require.Len(t, rows, 1)
	require.Equal(t, "85", rows[0].Variant.KW)
	require.Equal(t, "2011-2014", rows[0].Variant.Years)
}

// A generic results table must not register as a disambiguation table,
// otherwise every catalog page would look like a pending variant choice.
func TestVariantDetectionIgnoresGenericTables(t *testing.T) {
	html := `<table><tbody>
		<tr><td>Brembo</td><td>P85020</td><td>Pastillas de freno</td></tr>
	</tbody></table>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	require.Nil(t, parseVariantRows(doc, variantDetectionCandidates))
	// the explicit selector list still reaches it through the bare
	// table fallback
	require.NotNil(t, parseVariantRows(doc, variantSelectorCandidates))
}

func TestMatchVariantRow(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(variantTableHTML))
	require.NoError(t, err)
	rows := parseVariantRows(doc, variantSelectorCandidates)
	require.Len(t, rows, 2)

	idx := matchVariantRow(rows, VehicleVariant{
		Make: "SEAT", Model: "León", Version: "2.0 TDI",
		Power: "103 KW (140 CV)", Engine: "BKD", Years: "2005 - 2012",
	})
	require.Equal(t, 1, idx)

	// tolerates minor drift in the rendered text
	idx = matchVariantRow(rows, VehicleVariant{
		Make: "SEAT", Model: "Leon", Version: "2.0 TDI",
		Power: "103 kW", Engine: "BKD", Years: "2005-2012",
	})
	require.Equal(t, 1, idx)

	idx = matchVariantRow(rows, VehicleVariant{
		Make: "Renault", Model: "Clio", Version: "0.9 TCe",
	})
	require.Equal(t, -1, idx)
}
