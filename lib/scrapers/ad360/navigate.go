package ad360

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// The portal may degrade a stale session to an anonymous landing page
// instead of redirecting, so the login check probes both the URL and
// the DOM.
var loginURLMarkers = []string{"login", "auth", "signin"}

var loginFormSelectors = []string{
	"form[action*='login']",
	"form[action*='auth']",
	"input[name='username']",
	"input[name='password']",
	"input[type='password']",
}

var distributorSelectSelectors = []string{
	"select[name='distributor']",
	"select[name='distribuidor']",
	"select#distributor",
}

var replacementTabSelectors = []string{
	"a:has-text('RECAMBIO')",
	"button:has-text('RECAMBIO')",
	"[role='tab']:has-text('RECAMBIO')",
	"a:has-text('REPLACEMENT')",
	"[role='tab']:has-text('REPLACEMENT')",
}

var regFieldSelectors = []string{
	"input[name='reg']",
	"input[name='matricula']",
	"#reg",
	"input[placeholder*='matrícula']",
	"input[placeholder*='registration']",
	"input[placeholder*='plate']",
}

var vinFieldSelectors = []string{
	"input[name='vin']",
	"input[name='bastidor']",
	"#vin",
	"input[placeholder*='VIN']",
	"input[placeholder*='vin']",
	"input[placeholder*='bastidor']",
}

var submitSelectors = []string{
	"button:has-text('Buscar')",
	"button:has-text('Search')",
	"button:has-text('Find')",
	"input[type='submit']",
	"button[type='submit']",
	".search-button",
	".btn-search",
}

// isLoginSurface reports whether the page the portal served is a login
// surface rather than an authenticated landing page.
func isLoginSurface(pageURL string, doc *goquery.Document) bool {
	lowered := strings.ToLower(pageURL)
	for _, marker := range loginURLMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	for _, selector := range loginFormSelectors {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}
	return false
}

func pageDocument(page playwright.Page) (*goquery.Document, error) {
	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("read page content: %w", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(content))
}

// firstMatch walks the candidate selectors in order, returning the
// first element present on the page.
func firstMatch(page playwright.Page, selectors []string) (playwright.ElementHandle, string) {
	for _, selector := range selectors {
		el, err := page.QuerySelector(selector)
		if err == nil && el != nil {
			return el, selector
		}
	}
	return nil, ""
}

// loginGate raises ErrNeedsRelink when the landing page turned out to
// be a login surface despite the injected cookies.
func (c *Client) loginGate(ctx context.Context, page playwright.Page) error {
	span := trace.SpanFromContext(ctx)

	doc, err := pageDocument(page)
	if err != nil {
		return err
	}
	if isLoginSurface(page.URL(), doc) {
		span.AddEvent("login surface detected", trace.WithAttributes(
			attribute.String("url", page.URL()),
		))
		return ErrNeedsRelink
	}
	return nil
}

// selectDistributor picks the configured distributor branch. Some
// portal states start past this step, so absence of the control is
// tolerated.
func (c *Client) selectDistributor(ctx context.Context, page playwright.Page) {
	ctx, span := tracer.Start(ctx, "step:select_distributor")
	defer span.End()

	if el, selector := firstMatch(page, distributorSelectSelectors); el != nil {
		_, err := el.SelectOption(playwright.SelectOptionValues{
			Labels: &[]string{c.config.Distributor},
		})
		if err == nil {
			span.SetAttributes(attribute.String("matched_selector", selector))
			return
		}
		slog.DebugContext(ctx, "distributor select failed, trying click candidates",
			"selector", selector, "err", err)
	}

	clickCandidates := []string{
		fmt.Sprintf("button:has-text(%q)", c.config.Distributor),
		fmt.Sprintf("a:has-text(%q)", c.config.Distributor),
		fmt.Sprintf("[role='option']:has-text(%q)", c.config.Distributor),
	}
	if el, selector := firstMatch(page, clickCandidates); el != nil {
		if err := el.Click(); err == nil {
			span.SetAttributes(attribute.String("matched_selector", selector))
			c.settle(page)
			return
		}
	}

	slog.DebugContext(ctx, "no distributor control found, assuming preselected",
		"distributor", c.config.Distributor)
}

// openReplacementTab switches to the replacement-parts tab, tolerating
// its absence like the distributor step.
func (c *Client) openReplacementTab(ctx context.Context, page playwright.Page) {
	ctx, span := tracer.Start(ctx, "step:open_replacement_tab")
	defer span.End()

	el, selector := firstMatch(page, replacementTabSelectors)
	if el == nil {
		slog.DebugContext(ctx, "no replacement tab control found, assuming active")
		return
	}
	if err := el.Click(); err != nil {
		slog.DebugContext(ctx, "replacement tab click failed", "selector", selector, "err", err)
		return
	}
	span.SetAttributes(attribute.String("matched_selector", selector))
	c.settle(page)
}

// submitVehicleSearch fills the vehicle identifier input (registration
// preferred, VIN fallback) and submits the search. A missing input or
// submit control after candidate exhaustion is fatal: the portal markup
// changed shape.
func (c *Client) submitVehicleSearch(ctx context.Context, page playwright.Page, vin, reg string) error {
	ctx, span := tracer.Start(ctx, "step:search_vehicle")
	defer span.End()

	var field playwright.ElementHandle
	var fieldSelector, fieldValue string

	if reg != "" {
		field, fieldSelector = firstMatch(page, regFieldSelectors)
		fieldValue = reg
	}
	if field == nil && vin != "" {
		field, fieldSelector = firstMatch(page, vinFieldSelectors)
		fieldValue = vin
	}
	if field == nil {
		navErr := &NavigationError{
			Step:      "vehicle_search_input",
			Selectors: append(append([]string{}, regFieldSelectors...), vinFieldSelectors...),
		}
		span.RecordError(navErr)
		return navErr
	}
	span.SetAttributes(attribute.String("input_selector", fieldSelector))

	if err := field.Fill(fieldValue); err != nil {
		return fmt.Errorf("fill vehicle input %s: %w", fieldSelector, err)
	}

	submit, submitSelector := firstMatch(page, submitSelectors)
	if submit == nil {
		navErr := &NavigationError{
			Step:      "vehicle_search_submit",
			Selectors: submitSelectors,
		}
		span.RecordError(navErr)
		return navErr
	}
	span.SetAttributes(attribute.String("submit_selector", submitSelector))

	if err := submit.Click(); err != nil {
		return fmt.Errorf("click search submit %s: %w", submitSelector, err)
	}
	c.settle(page)
	return nil
}

// departmentDrilldown clicks the department shortcut best matching the
// configured hint, for portal states that need one extra click before
// any rows render. Returns false when no shortcut cleared the match
// threshold.
func (c *Client) departmentDrilldown(ctx context.Context, page playwright.Page) bool {
	ctx, span := tracer.Start(ctx, "step:department_drilldown")
	defer span.End()

	for _, selector := range departmentSelectorCandidates {
		elements, err := page.QuerySelectorAll(selector)
		if err != nil || len(elements) == 0 {
			continue
		}

		labels := make([]string, len(elements))
		for i, el := range elements {
			text, err := el.TextContent()
			if err != nil {
				continue
			}
			labels[i] = strings.TrimSpace(text)
		}

		best := bestDepartmentMatch(labels, c.config.DepartmentHint)
		if best < 0 {
			continue
		}
		span.SetAttributes(
			attribute.String("matched_selector", selector),
			attribute.String("department", labels[best]),
		)
		if err := elements[best].Click(); err != nil {
			slog.DebugContext(ctx, "department click failed",
				"selector", selector, "department", labels[best], "err", err)
			continue
		}
		c.settle(page)
		return true
	}

	slog.DebugContext(ctx, "no department shortcut matched hint",
		"hint", c.config.DepartmentHint)
	return false
}

// settle waits for the network to go idle after an interaction. A
// timeout is tolerated: a page that never goes fully idle can still
// have rendered its rows.
func (c *Client) settle(page playwright.Page) {
	err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(c.config.SettleTimeoutMs),
	})
	if err != nil {
		slog.Debug("network idle wait elapsed", "err", err)
	}
}
