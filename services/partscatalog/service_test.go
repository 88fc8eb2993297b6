package partscatalog

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"garagevision-backend/lib/cryptovault"
	"garagevision-backend/lib/scrapers/ad360"
	"garagevision-backend/lib/testutil"
	"garagevision-backend/services/partscatalog/db"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type fakeScraper struct {
	probeErr    error
	variants    []ad360.VehicleVariant
	parts       []ad360.CanonicalPart
	err         error
	fetchCalls  int
	searchCalls int
}

func (f *fakeScraper) Probe(ctx context.Context) error { return f.probeErr }

func (f *fakeScraper) SearchVehicleVariants(ctx context.Context, tenantID, supplierID int64, vin, reg string) ([]ad360.VehicleVariant, error) {
	f.searchCalls++
	return f.variants, f.err
}

func (f *fakeScraper) FetchPartsForVehicle(ctx context.Context, tenantID, supplierID int64, vin, reg string) ([]ad360.CanonicalPart, error) {
	f.fetchCalls++
	return f.parts, f.err
}

func (f *fakeScraper) FetchPartsForVariant(ctx context.Context, tenantID, supplierID int64, vin, reg string, variant ad360.VehicleVariant) ([]ad360.CanonicalPart, error) {
	f.fetchCalls++
	return f.parts, f.err
}

func setupService(t *testing.T, scraper Scraper) (Service, *cryptovault.Vault, func()) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/partscatalog",
		DbSchema: db.Schema,
	})

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	vault, err := cryptovault.New(key)
	require.NoError(t, err)

	return NewService(setup.DB, vault, scraper), vault, cleanup
}

var testCookies = []ad360.Cookie{
	{Name: "sid", Value: "abc123", Domain: ".ad360.es", Path: "/"},
}

func TestLinkRequiresConsent(t *testing.T) {
	service, _, cleanup := setupService(t, &fakeScraper{})
	defer cleanup()

	err := service.Link(context.Background(), LinkRequest{
		TenantID:   1,
		SupplierID: 7,
		Cookies:    testCookies,
	})
	require.ErrorIs(t, err, ErrConsentRequired)

	status, err := service.Status(context.Background(), 1, 7)
	require.NoError(t, err)
	require.False(t, status.Linked)
}

func TestLinkRejectsUnreachablePortal(t *testing.T) {
	scraper := &fakeScraper{probeErr: context.DeadlineExceeded}
	service, _, cleanup := setupService(t, scraper)
	defer cleanup()

	err := service.Link(context.Background(), LinkRequest{
		TenantID:   1,
		SupplierID: 7,
		Cookies:    testCookies,
		Consent:    true,
	})
	require.Error(t, err)
}

func TestLinkStatusUnlinkRoundTrip(t *testing.T) {
	service, vault, cleanup := setupService(t, &fakeScraper{})
	defer cleanup()
	ctx := context.Background()

	err := service.Link(ctx, LinkRequest{
		TenantID:   1,
		SupplierID: 7,
		Cookies:    testCookies,
		Consent:    true,
	})
	require.NoError(t, err)

	status, err := service.Status(ctx, 1, 7)
	require.NoError(t, err)
	require.True(t, status.Linked)
	require.NotZero(t, status.LinkedAt)
	require.NotZero(t, status.ConsentGivenAt)

	// the scraper-facing store decrypts the same session back
	store := SessionStore(service.db, vault)
	session, err := store.Load(ctx, 1, 7)
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Equal(t, "abc123", session.Cookies[0].Value)

	require.NoError(t, service.Unlink(ctx, 1, 7))
	status, err = service.Status(ctx, 1, 7)
	require.NoError(t, err)
	require.False(t, status.Linked)

	session, err = store.Load(ctx, 1, 7)
	require.NoError(t, err)
	require.Nil(t, session)
}

func TestSessionStoreUnknownTenant(t *testing.T) {
	service, vault, cleanup := setupService(t, &fakeScraper{})
	defer cleanup()

	store := SessionStore(service.db, vault)
	session, err := store.Load(context.Background(), 999, 7)
	require.NoError(t, err)
	require.Nil(t, session)
}

func TestFetchPartsCachesByVehicle(t *testing.T) {
	scraper := &fakeScraper{parts: []ad360.CanonicalPart{
		{Source: "ad360", Brand: "Brembo", PartNumber: "P85020", PartNumberNorm: "P85020"},
	}}
	service, _, cleanup := setupService(t, scraper)
	defer cleanup()
	ctx := context.Background()

	parts, err := service.FetchPartsForVehicle(ctx, 1, 7, "", "1234ABC")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.Equal(t, 1, scraper.fetchCalls)

	// second fetch for the same vehicle is served from cache
	parts, err = service.FetchPartsForVehicle(ctx, 1, 7, "", "1234ABC")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.Equal(t, 1, scraper.fetchCalls)

	// a different vehicle misses
	_, err = service.FetchPartsForVehicle(ctx, 1, 7, "", "5678XYZ")
	require.NoError(t, err)
	require.Equal(t, 2, scraper.fetchCalls)
}

func TestSearchVehicleVariantsCaches(t *testing.T) {
	scraper := &fakeScraper{variants: []ad360.VehicleVariant{
		{Make: "SEAT", Model: "León", Version: "1.9 TDI"},
	}}
	service, _, cleanup := setupService(t, scraper)
	defer cleanup()
	ctx := context.Background()

	variants, err := service.SearchVehicleVariants(ctx, 1, 7, "", "1234ABC")
	require.NoError(t, err)
	require.Len(t, variants, 1)

	_, err = service.SearchVehicleVariants(ctx, 1, 7, "", "1234ABC")
	require.NoError(t, err)
	require.Equal(t, 1, scraper.searchCalls)
}

func TestFetchPartsForVariantBypassesCacheButFillsIt(t *testing.T) {
	scraper := &fakeScraper{parts: []ad360.CanonicalPart{
		{Brand: "TRW", PartNumber: "GDB1550", PartNumberNorm: "GDB1550"},
	}}
	service, _, cleanup := setupService(t, scraper)
	defer cleanup()
	ctx := context.Background()
	variant := ad360.VehicleVariant{Make: "SEAT", Model: "León"}

	_, err := service.FetchPartsForVariant(ctx, 1, 7, "", "1234ABC", variant)
	require.NoError(t, err)
	_, err = service.FetchPartsForVariant(ctx, 1, 7, "", "1234ABC", variant)
	require.NoError(t, err)
	// an explicit variant choice always goes to the portal
	require.Equal(t, 2, scraper.fetchCalls)

	// but a plain fetch afterwards reads its result from cache
	parts, err := service.FetchPartsForVehicle(ctx, 1, 7, "", "1234ABC")
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.Equal(t, 2, scraper.fetchCalls)
}

func TestUnlinkPurgesCachedCatalog(t *testing.T) {
	scraper := &fakeScraper{parts: []ad360.CanonicalPart{
		{Brand: "Brembo", PartNumber: "P85020", PartNumberNorm: "P85020"},
	}}
	service, _, cleanup := setupService(t, scraper)
	defer cleanup()
	ctx := context.Background()

	err := service.Link(ctx, LinkRequest{
		TenantID: 1, SupplierID: 7, Cookies: testCookies, Consent: true,
	})
	require.NoError(t, err)

	_, err = service.FetchPartsForVehicle(ctx, 1, 7, "", "1234ABC")
	require.NoError(t, err)
	_, err = service.SearchCached(ctx, 1, 7, "", "1234ABC", "")
	require.NoError(t, err)

	require.NoError(t, service.Unlink(ctx, 1, 7))

	// revoking consent drops everything fetched through the session
	_, err = service.SearchCached(ctx, 1, 7, "", "1234ABC", "")
	require.ErrorIs(t, err, ErrNotCached)
}

func TestSessionExpiryFlipsAccountStatus(t *testing.T) {
	scraper := &fakeScraper{}
	service, _, cleanup := setupService(t, scraper)
	defer cleanup()
	ctx := context.Background()

	err := service.Link(ctx, LinkRequest{
		TenantID: 1, SupplierID: 7, Cookies: testCookies, Consent: true,
	})
	require.NoError(t, err)

	scraper.err = ad360.ErrNeedsRelink
	_, err = service.FetchPartsForVehicle(ctx, 1, 7, "", "1234ABC")
	require.ErrorIs(t, err, ad360.ErrNeedsRelink)

	status, err := service.Status(ctx, 1, 7)
	require.NoError(t, err)
	require.False(t, status.Linked)
}

func TestSearchCached(t *testing.T) {
	scraper := &fakeScraper{parts: []ad360.CanonicalPart{
		{Brand: "Brembo", PartNumber: "P85020", PartNumberNorm: "P85020", Description: "Pastillas de freno"},
		{Brand: "TRW", PartNumber: "GDB1550", PartNumberNorm: "GDB1550", Description: "Pastillas de freno"},
		{Brand: "Valeo", PartNumber: "598643", PartNumberNorm: "598643", Description: "Kit de embrague"},
	}}
	service, _, cleanup := setupService(t, scraper)
	defer cleanup()
	ctx := context.Background()

	// nothing cached yet
	_, err := service.SearchCached(ctx, 1, 7, "", "1234ABC", "freno")
	require.ErrorIs(t, err, ErrNotCached)

	_, err = service.FetchPartsForVehicle(ctx, 1, 7, "", "1234ABC")
	require.NoError(t, err)

	results, err := service.SearchCached(ctx, 1, 7, "", "1234ABC", "freno")
	require.NoError(t, err)
	require.Len(t, results, 2)

	results, err = service.SearchCached(ctx, 1, 7, "", "1234ABC", "brembo")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Brembo", results[0].Brand)

	// empty query returns everything up to the cap
	results, err = service.SearchCached(ctx, 1, 7, "", "1234ABC", "")
	require.NoError(t, err)
	require.Len(t, results, 3)
}

func TestSearchCachedCapsResults(t *testing.T) {
	parts := make([]ad360.CanonicalPart, 80)
	for i := range parts {
		parts[i] = ad360.CanonicalPart{
			Brand:          "Bosch",
			PartNumber:     "X",
			PartNumberNorm: "X",
		}
	}
	scraper := &fakeScraper{parts: parts}
	service, _, cleanup := setupService(t, scraper)
	defer cleanup()
	ctx := context.Background()

	_, err := service.FetchPartsForVehicle(ctx, 1, 7, "", "1234ABC")
	require.NoError(t, err)

	results, err := service.SearchCached(ctx, 1, 7, "", "1234ABC", "bosch")
	require.NoError(t, err)
	require.Len(t, results, searchCachedLimit)
}

func TestAuditTrail(t *testing.T) {
	service, _, cleanup := setupService(t, &fakeScraper{})
	defer cleanup()
	ctx := context.Background()

	err := service.Link(ctx, LinkRequest{
		TenantID: 1, SupplierID: 7, Cookies: testCookies, Consent: true,
	})
	require.NoError(t, err)
	require.NoError(t, service.Unlink(ctx, 1, 7))

	events, err := service.AuditTrail(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	actions := []string{events[0].Action, events[1].Action}
	require.Contains(t, actions, "link")
	require.Contains(t, actions, "unlink")
}

func TestPruneCache(t *testing.T) {
	scraper := &fakeScraper{parts: []ad360.CanonicalPart{{Brand: "Bosch", PartNumber: "A", PartNumberNorm: "A"}}}
	service, _, cleanup := setupService(t, scraper)
	defer cleanup()
	ctx := context.Background()

	_, err := service.FetchPartsForVehicle(ctx, 1, 7, "", "1234ABC")
	require.NoError(t, err)

	// force the entry into the past, then prune
	_, err = service.db.Exec("UPDATE ad360_cache SET expires_at = ?", time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)
	require.NoError(t, service.PruneCache(ctx))

	_, err = service.SearchCached(ctx, 1, 7, "", "1234ABC", "")
	require.ErrorIs(t, err, ErrNotCached)
}

func TestVehicleKey(t *testing.T) {
	require.Equal(t, "VIN:WVWZZZ|REG:1234ABC", vehicleKey("wvwzzz", " 1234abc "))
	require.Equal(t, "VIN:|REG:1234ABC", vehicleKey("", "1234ABC"))
}
