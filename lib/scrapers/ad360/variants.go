package ad360

import (
	"regexp"
	"strings"

	"garagevision-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
)

// VehicleVariant is one candidate configuration returned when a
// registration number maps to more than one catalog entry. Ephemeral:
// produced by one search call and consumed by a follow-up fetch; never
// persisted here.
type VehicleVariant struct {
	Make    string `json:"make"`
	Model   string `json:"model"`
	Version string `json:"version"`
	Power   string `json:"power"`
	KW      string `json:"kw"`
	Engine  string `json:"engine"`
	Years   string `json:"years"`
}

// Specific selectors first; the bare table selector is a last resort
// used only when parsing an explicit variant search, never to decide
// whether a disambiguation table is present at all.
var variantSelectorCandidates = []string{
	"table.vehicle-variants tbody tr",
	"table.variants tbody tr",
	".variant-table tbody tr",
	"[data-testid='vehicle-variants'] tbody tr",
	"table tbody tr",
}

var variantDetectionCandidates = variantSelectorCandidates[:len(variantSelectorCandidates)-1]

var kwRegex = regexp.MustCompile(`(?i)(\d+)\s*kw`)
var yearsRegex = regexp.MustCompile(`\d{4}\s*[-–/]\s*(?:\d{4})?|\d{4}`)

type variantRow struct {
	Selector string
	RowIndex int
	Variant  VehicleVariant
}

// parseVariantRows extracts variant candidates from a disambiguation
// table by cell position. Combined cells (power with horsepower in
// parentheses, year ranges inside the version) are split with light
// regexes. Rows missing the minimum cells are dropped, not fatal.
func parseVariantRows(doc *goquery.Document, selectors []string) []variantRow {
	for _, selector := range selectors {
		rows := doc.Find(selector)
		if rows.Length() == 0 {
			continue
		}

		var out []variantRow
		rows.Each(func(i int, row *goquery.Selection) {
			cells := htmlutil.CellTexts(row.Find(rowCellSelector))
			if len(cells) < 3 {
				return
			}

			variant := VehicleVariant{
				Make:  cells[0],
				Model: cells[1],
			}
			if variant.Make == "" || variant.Model == "" {
				return
			}
			if len(cells) > 2 {
				variant.Version = cells[2]
			}
			if len(cells) > 3 {
				variant.Power = cells[3]
			}
			if len(cells) > 4 {
				variant.Engine = cells[4]
			}
			if len(cells) > 5 {
				variant.Years = cells[5]
			}

			joined := strings.Join(cells, " ")
			if m := kwRegex.FindStringSubmatch(variant.Power); m != nil {
				variant.KW = m[1]
			} else if m := kwRegex.FindStringSubmatch(joined); m != nil {
				variant.KW = m[1]
			}
			if variant.Years == "" {
				variant.Years = yearsRegex.FindString(joined)
			}

			out = append(out, variantRow{
				Selector: selector,
				RowIndex: i,
				Variant:  variant,
			})
		})

		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (v VehicleVariant) matchText() string {
	return strings.ToLower(strings.Join([]string{
		v.Make, v.Model, v.Version, v.Power, v.Engine, v.Years,
	}, " "))
}

const variantMatchThreshold = 0.75

// matchVariantRow finds the table row corresponding to a previously
// returned variant. The portal carries no stable row ids, so the row is
// re-identified by text similarity.
func matchVariantRow(rows []variantRow, want VehicleVariant) int {
	wantText := want.matchText()
	best := -1
	var bestScore float64
	for i, row := range rows {
		score := matchr.JaroWinkler(row.Variant.matchText(), wantText, false)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if bestScore < variantMatchThreshold {
		return -1
	}
	return best
}
