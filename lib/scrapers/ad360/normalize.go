package ad360

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Source identifies records produced by this integration.
const Source = "ad360"

const DefaultCurrency = "EUR"

// RawRecord is one parts row exactly as the portal emitted it, under
// whichever field spellings the extraction path happened to see.
// Synonyms are resolved exactly once, at the normalization boundary;
// nothing downstream deals with them again.
type RawRecord map[string]any

func (r RawRecord) first(keys ...string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(toString(v))
		if s != "" {
			return s
		}
	}
	return ""
}

func (r RawRecord) Brand() string       { return r.first("brand", "marca") }
func (r RawRecord) PartNumber() string  { return r.first("partNumber", "reference", "ref") }
func (r RawRecord) Description() string { return r.first("description", "desc") }
func (r RawRecord) Stock() string       { return r.first("stock", "disponibilidad") }
func (r RawRecord) Category() string    { return r.first("category", "categoria") }

func (r RawRecord) PriceValue() any {
	for _, k := range []string{"price", "pvp", "neto", "net"} {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func (r RawRecord) OERefs() []string {
	v, ok := r["oeRefs"]
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s := strings.TrimSpace(toString(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type Price struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	VatIncluded bool    `json:"vatIncluded"`
}

// CanonicalPart is the deduplicated, normalized output record of this
// integration. BRAND|PartNumberNorm is its uniqueness key.
type CanonicalPart struct {
	Source         string   `json:"source"`
	SupplierID     int64    `json:"supplierId"`
	Brand          string   `json:"brand"`
	PartNumber     string   `json:"partNumber"`
	PartNumberNorm string   `json:"partNumberNorm"`
	Description    string   `json:"description"`
	Price          Price    `json:"price"`
	Stock          string   `json:"stock"`
	Category       string   `json:"category"`
	OERefs         []string `json:"oeRefs"`
}

// DedupKey is the uniqueness key of this part within one result set.
func (p CanonicalPart) DedupKey() string {
	return strings.ToUpper(p.Brand) + "|" + p.PartNumberNorm
}

// known spellings that should collapse onto one display name, keyed by
// the uppercased raw brand
var brandAliases = map[string]string{
	"VAG":                "Volkswagen",
	"VOLKSWAGEN GENUINE": "Volkswagen",
}

func canonicalBrand(raw string) string {
	raw = strings.TrimSpace(raw)
	if alias, ok := brandAliases[strings.ToUpper(raw)]; ok {
		return alias
	}
	return raw
}

var partNumberStrip = regexp.MustCompile(`[\s\-]`)

func normalizePartNumber(pn string) string {
	return partNumberStrip.ReplaceAllString(strings.ToUpper(pn), "")
}

var priceKeep = regexp.MustCompile(`[^\d,.\-]`)

// parsePrice degrades to a zero amount on anything unparseable: one
// malformed row must never abort a whole catalog fetch.
func parsePrice(raw any, currency string) Price {
	price := Price{Currency: currency}

	switch v := raw.(type) {
	case nil:
		return price
	case float64:
		price.Amount = v
	case float32:
		price.Amount = float64(v)
	case int:
		price.Amount = float64(v)
	case int64:
		price.Amount = float64(v)
	case json.Number:
		price.Amount, _ = v.Float64()
	case string:
		cleaned := priceKeep.ReplaceAllString(v, "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
		amount, err := strconv.ParseFloat(cleaned, 64)
		if err == nil {
			price.Amount = amount
		}
	}

	if math.IsNaN(price.Amount) || math.IsInf(price.Amount, 0) || price.Amount < 0 {
		price.Amount = 0
	}
	return price
}

type NormalizeOptions struct {
	SupplierID int64
	// Currency defaults to EUR, the portal's operating currency. The
	// portal markup never states it, so it is fixed per supplier.
	Currency string
}

// Normalize turns heterogeneous raw records into deduplicated canonical
// parts. Input order is preserved: the first record seen for a dedup
// key wins and output order matches first-occurrence order. Records
// without an identifiable part number are dropped.
func Normalize(items []RawRecord, opts NormalizeOptions) []CanonicalPart {
	currency := opts.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	out := []CanonicalPart{}
	seen := map[string]bool{}
	for _, it := range items {
		pnRaw := it.PartNumber()
		pnNorm := normalizePartNumber(pnRaw)
		if pnNorm == "" {
			continue
		}

		part := CanonicalPart{
			Source:         Source,
			SupplierID:     opts.SupplierID,
			Brand:          canonicalBrand(it.Brand()),
			PartNumber:     pnRaw,
			PartNumberNorm: pnNorm,
			Description:    it.Description(),
			Price:          parsePrice(it.PriceValue(), currency),
			Stock:          it.Stock(),
			Category:       it.Category(),
			OERefs:         it.OERefs(),
		}

		key := part.DedupKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, part)
	}
	return out
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
