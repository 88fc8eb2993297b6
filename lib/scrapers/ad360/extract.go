package ad360

import (
	"encoding/json"
	"strings"
	"sync"

	"garagevision-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"github.com/playwright-community/playwright-go"
)

// URL fragments that mark a response as carrying catalog data.
var catalogURLMarkers = []string{"/parts", "/catalog", "/search", "/results"}

// Row selectors tried in order during the DOM scrape; the first one
// with at least one match wins. The portal renders results as a classic
// table on most accounts but some states produce card lists instead.
var rowSelectorCandidates = []string{
	"table.parts tbody tr",
	".parts-table tbody tr",
	".results-table tbody tr",
	"[data-testid='parts-table'] tbody tr",
	"table tbody tr",
	".parts-list .part-item",
	".results-list .result-item",
}

const rowCellSelector = "td, .cell, .part-cell"

// Selectors under which the department shortcut controls appear when
// the portal demands one extra disambiguating click.
var departmentSelectorCandidates = []string{
	".departments a",
	".department-list a",
	".category-grid a",
	"a.department",
	".departments button",
}

const departmentMatchThreshold = 0.8

func isCatalogURL(url string) bool {
	for _, marker := range catalogURLMarkers {
		if strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

// decodeCatalogPayload parses an intercepted response body into raw
// records. The portal wraps its lists inconsistently: `items`, `parts`,
// `results`, or a bare top-level array. Anything else decodes to nil.
func decodeCatalogPayload(body []byte) []RawRecord {
	var bare []map[string]any
	if err := json.Unmarshal(body, &bare); err == nil {
		return toRawRecords(bare)
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil
	}
	for _, key := range []string{"items", "parts", "results"} {
		raw, ok := wrapped[key]
		if !ok {
			continue
		}
		var list []map[string]any
		if err := json.Unmarshal(raw, &list); err != nil {
			continue
		}
		if len(list) > 0 {
			return toRawRecords(list)
		}
	}
	return nil
}

func toRawRecords(list []map[string]any) []RawRecord {
	out := make([]RawRecord, len(list))
	for i, m := range list {
		out[i] = RawRecord(m)
	}
	return out
}

// catalogSniffer collects raw records from background catalog responses
// while a page settles. Events arrive on the driver goroutine, hence
// the lock.
type catalogSniffer struct {
	mu      sync.Mutex
	records []RawRecord
}

func (s *catalogSniffer) attach(page playwright.Page) {
	page.OnResponse(func(res playwright.Response) {
		if !isCatalogURL(res.URL()) {
			return
		}
		body, err := res.Body()
		if err != nil {
			return
		}
		records := decodeCatalogPayload(body)
		if len(records) == 0 {
			return
		}
		s.mu.Lock()
		s.records = append(s.records, records...)
		s.mu.Unlock()
	})
}

func (s *catalogSniffer) collected() []RawRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RawRecord(nil), s.records...)
}

// scrapeRows maps rendered result rows to raw records by fixed cell
// position. Rows with fewer than three extractable cells are discarded.
func scrapeRows(doc *goquery.Document) []RawRecord {
	for _, selector := range rowSelectorCandidates {
		rows := doc.Find(selector)
		if rows.Length() == 0 {
			continue
		}

		var records []RawRecord
		rows.Each(func(_ int, row *goquery.Selection) {
			cells := htmlutil.CellTexts(row.Find(rowCellSelector))
			if len(cells) < 3 {
				return
			}
			record := RawRecord{}
			assignCell := func(key string, idx int) {
				if idx < len(cells) && cells[idx] != "" {
					record[key] = cells[idx]
				}
			}
			assignCell("brand", 1)
			assignCell("partNumber", 2)
			assignCell("description", 3)
			assignCell("price", 4)
			assignCell("stock", 5)
			if len(record) > 0 {
				records = append(records, record)
			}
		})

		if len(records) > 0 {
			return records
		}
	}
	return nil
}

// bestDepartmentMatch picks the visible department label most similar
// to the configured hint, or -1 when nothing clears the threshold.
func bestDepartmentMatch(labels []string, hint string) int {
	best := -1
	var bestScore float64
	for i, label := range labels {
		score := matchr.JaroWinkler(strings.ToLower(label), strings.ToLower(hint), false)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if bestScore < departmentMatchThreshold {
		return -1
	}
	return best
}
