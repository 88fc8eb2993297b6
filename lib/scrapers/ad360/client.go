package ad360

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"garagevision-backend/lib/browser"
	"garagevision-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("garagevision.lib.scrapers.ad360")

type Config struct {
	BaseUrl string `json:"base_url"`
	// Distributor is the branch selected before catalog browsing.
	Distributor string `json:"distributor"`
	// DepartmentHint names the department shortcut used as a last
	// resort when generic extraction finds no rows. Heuristic data
	// tied to the portal's current UI, hence configuration.
	DepartmentHint     string   `json:"department_hint"`
	Currency           string   `json:"currency"`
	BrowserExecutables []string `json:"browser_executables"`
	NavTimeoutMs       float64  `json:"nav_timeout_ms"`
	SettleTimeoutMs    float64  `json:"settle_timeout_ms"`
}

func (c Config) withDefaults() Config {
	if c.BaseUrl == "" {
		c.BaseUrl = "https://connect.ad360.es"
	}
	if c.Distributor == "" {
		c.Distributor = "AD Vicente"
	}
	if c.DepartmentHint == "" {
		c.DepartmentHint = "Frenos"
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.NavTimeoutMs == 0 {
		c.NavTimeoutMs = 15000
	}
	if c.SettleTimeoutMs == 0 {
		c.SettleTimeoutMs = 15000
	}
	return c
}

// Client drives the supplier portal through a headless browser. Each
// public operation acquires its own browser process, runs one linear
// navigate-extract sequence and tears everything down before returning,
// so concurrent operations are fully independent.
type Client struct {
	config   Config
	sessions SessionStore
	http     *resty.Client

	// swapped out in tests to observe that the session gate fires
	// before any browser is launched
	acquire func() (*browser.Handle, error)
}

func NewClient(config Config, sessions SessionStore) *Client {
	config = config.withDefaults()

	httpc := resty.New()
	httpc.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	httpc.SetTimeout(time.Second * 30)
	httpc.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpc.GetClient().Transport)
	telemetry.InstrumentResty(httpc, "scrapers/ad360/http")

	launcher := browser.Launcher{ExecutablePaths: config.BrowserExecutables}
	return &Client{
		config:   config,
		sessions: sessions,
		http:     httpc,
		acquire:  launcher.Acquire,
	}
}

// Probe checks that the portal is reachable at all, without a session.
// Used by the link flow to distinguish "portal down" from "session
// expired".
func (c *Client) Probe(ctx context.Context) error {
	res, err := c.http.R().SetContext(ctx).Get(c.config.BaseUrl)
	if err != nil {
		return fmt.Errorf("probe %s: %w", c.config.BaseUrl, err)
	}
	if res.StatusCode() >= 500 {
		return fmt.Errorf("probe %s: portal returned %d", c.config.BaseUrl, res.StatusCode())
	}
	return nil
}

// openPortal loads the session, acquires a browser and lands on the
// authenticated portal. The session gate runs before any browser is
// launched: a missing session must not cost a browser start.
func (c *Client) openPortal(ctx context.Context, tenantID, supplierID int64) (*browser.Handle, playwright.Page, error) {
	sess, err := c.sessions.Load(ctx, tenantID, supplierID)
	if err != nil {
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil || len(sess.Cookies) == 0 {
		return nil, nil, ErrNeedsRelink
	}

	handle, err := c.acquire()
	if err != nil {
		return nil, nil, err
	}

	page, err := c.landOn(ctx, handle, sess)
	if err != nil {
		handle.Close()
		return nil, nil, err
	}
	return handle, page, nil
}

func (c *Client) landOn(ctx context.Context, handle *browser.Handle, sess *Session) (playwright.Page, error) {
	browserCtx, err := handle.Browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	if err := browserCtx.AddCookies(sess.playwrightCookies()); err != nil {
		return nil, fmt.Errorf("inject session cookies: %w", err)
	}
	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	_, err = page.Goto(c.config.BaseUrl, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(c.config.NavTimeoutMs),
	})
	if err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", c.config.BaseUrl, err)
	}

	if err := c.loginGate(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}

// SearchVehicleVariants looks up a vehicle by registration (or VIN) and
// returns the disambiguation candidates the portal offers. A vehicle
// with a single catalog entry yields an empty list; that is a normal
// outcome, not a failure.
func (c *Client) SearchVehicleVariants(ctx context.Context, tenantID, supplierID int64, vin, reg string) ([]VehicleVariant, error) {
	ctx, span := tracer.Start(ctx, "client:SearchVehicleVariants")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("tenant_id", tenantID),
		attribute.Int64("supplier_id", supplierID),
	)

	handle, page, err := c.openPortal(ctx, tenantID, supplierID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open portal")
		return nil, err
	}
	defer handle.Close()

	c.selectDistributor(ctx, page)
	c.openReplacementTab(ctx, page)
	if err := c.submitVehicleSearch(ctx, page, vin, reg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "vehicle search failed")
		return nil, err
	}

	doc, err := pageDocument(page)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	rows := parseVariantRows(doc, variantSelectorCandidates)
	variants := make([]VehicleVariant, len(rows))
	for i, row := range rows {
		variants[i] = row.Variant
	}
	span.SetAttributes(attribute.Int("variant_count", len(variants)))
	return variants, nil
}

// FetchPartsForVehicle runs the full workflow for one vehicle and
// returns its normalized, deduplicated parts catalog. When a
// registration search lands on a disambiguation table, the first
// variant is taken; callers that care about the choice should use
// SearchVehicleVariants plus FetchPartsForVariant.
func (c *Client) FetchPartsForVehicle(ctx context.Context, tenantID, supplierID int64, vin, reg string) ([]CanonicalPart, error) {
	return c.fetchParts(ctx, "client:FetchPartsForVehicle", tenantID, supplierID, vin, reg, nil)
}

// FetchPartsForVariant resumes a registration lookup with the variant
// the caller selected from an earlier SearchVehicleVariants result.
func (c *Client) FetchPartsForVariant(ctx context.Context, tenantID, supplierID int64, vin, reg string, variant VehicleVariant) ([]CanonicalPart, error) {
	return c.fetchParts(ctx, "client:FetchPartsForVariant", tenantID, supplierID, vin, reg, &variant)
}

func (c *Client) fetchParts(ctx context.Context, op string, tenantID, supplierID int64, vin, reg string, variant *VehicleVariant) ([]CanonicalPart, error) {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.Int64("tenant_id", tenantID),
		attribute.Int64("supplier_id", supplierID),
	)

	handle, page, err := c.openPortal(ctx, tenantID, supplierID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open portal")
		return nil, err
	}
	defer handle.Close()

	// catalog responses can start flowing during the search itself,
	// so the sniffer attaches before any navigation
	sniffer := &catalogSniffer{}
	sniffer.attach(page)

	c.selectDistributor(ctx, page)
	c.openReplacementTab(ctx, page)
	if err := c.submitVehicleSearch(ctx, page, vin, reg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "vehicle search failed")
		return nil, err
	}

	if err := c.resolveVariantSelection(ctx, page, variant); err != nil {
		span.RecordError(err)
		return nil, err
	}

	records := c.extractRecords(ctx, page, sniffer)
	parts := Normalize(records, NormalizeOptions{
		SupplierID: supplierID,
		Currency:   c.config.Currency,
	})
	span.SetAttributes(
		attribute.Int("raw_count", len(records)),
		attribute.Int("part_count", len(parts)),
	)
	return parts, nil
}

// resolveVariantSelection advances past a disambiguation table if the
// search produced one: the requested variant's row when given, the
// first row otherwise. No table means the lookup was direct.
func (c *Client) resolveVariantSelection(ctx context.Context, page playwright.Page, variant *VehicleVariant) error {
	doc, err := pageDocument(page)
	if err != nil {
		return err
	}

	rows := parseVariantRows(doc, variantDetectionCandidates)
	if len(rows) == 0 {
		return nil
	}

	idx := 0
	if variant != nil {
		idx = matchVariantRow(rows, *variant)
		if idx < 0 {
			slog.WarnContext(ctx, "selected variant not found in disambiguation table, taking first row",
				"make", variant.Make, "model", variant.Model)
			idx = 0
		}
	}

	row := rows[idx]
	err = page.Locator(row.Selector).Nth(row.RowIndex).Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(c.config.NavTimeoutMs),
	})
	if err != nil {
		return fmt.Errorf("select vehicle variant row %d: %w", row.RowIndex, err)
	}
	c.settle(page)
	return nil
}

// extractRecords runs the extraction strategies in preference order:
// intercepted catalog responses, then a DOM scrape, then one department
// drill-down followed by a final scrape. Zero records is a valid
// outcome.
func (c *Client) extractRecords(ctx context.Context, page playwright.Page, sniffer *catalogSniffer) []RawRecord {
	ctx, span := tracer.Start(ctx, "step:extract")
	defer span.End()

	// give late background responses a moment to land
	page.WaitForTimeout(1500)

	if records := sniffer.collected(); len(records) > 0 {
		span.SetAttributes(attribute.String("strategy", "network"))
		return records
	}

	if doc, err := pageDocument(page); err == nil {
		if records := scrapeRows(doc); len(records) > 0 {
			span.SetAttributes(attribute.String("strategy", "dom"))
			return records
		}
	} else {
		span.RecordError(err)
	}

	if !c.departmentDrilldown(ctx, page) {
		span.SetAttributes(attribute.String("strategy", "none"))
		return nil
	}

	// the drill-down click may have triggered catalog responses of
	// its own
	if records := sniffer.collected(); len(records) > 0 {
		span.SetAttributes(attribute.String("strategy", "department_network"))
		return records
	}
	if doc, err := pageDocument(page); err == nil {
		if records := scrapeRows(doc); len(records) > 0 {
			span.SetAttributes(attribute.String("strategy", "department_dom"))
			return records
		}
	} else {
		span.RecordError(err)
	}

	span.SetAttributes(attribute.String("strategy", "none"))
	return nil
}
