package ad360

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"garagevision-backend/lib/browser"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

type stubSessionStore struct {
	session *Session
	err     error
}

func (s *stubSessionStore) Load(ctx context.Context, tenantID, supplierID int64) (*Session, error) {
	return s.session, s.err
}

func setupClient(t *testing.T, store SessionStore) (*Client, *bool) {
	client := NewClient(Config{}, store)
	acquired := false
	client.acquire = func() (*browser.Handle, error) {
		acquired = true
		return nil, fmt.Errorf("no browser in tests")
	}
	return client, &acquired
}

func TestOperationsRequireLinkedSessionBeforeBrowser(t *testing.T) {
	client, acquired := setupClient(t, &stubSessionStore{})
	ctx := context.Background()

	_, err := client.SearchVehicleVariants(ctx, 1, 7, "", "1234ABC")
	require.ErrorIs(t, err, ErrNeedsRelink)

	_, err = client.FetchPartsForVehicle(ctx, 1, 7, "WVWZZZ1KZ5W000001", "")
	require.ErrorIs(t, err, ErrNeedsRelink)

	_, err = client.FetchPartsForVariant(ctx, 1, 7, "", "1234ABC", VehicleVariant{Make: "SEAT"})
	require.ErrorIs(t, err, ErrNeedsRelink)

	// the whole point of the early gate: no browser was ever launched
	require.False(t, *acquired)
}

func TestSessionWithoutCookiesNeedsRelink(t *testing.T) {
	client, acquired := setupClient(t, &stubSessionStore{
		session: &Session{TenantID: 1, SupplierID: 7},
	})

	_, err := client.FetchPartsForVehicle(context.Background(), 1, 7, "", "1234ABC")
	require.ErrorIs(t, err, ErrNeedsRelink)
	require.False(t, *acquired)
}

func TestSessionStoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("database gone")
	client, acquired := setupClient(t, &stubSessionStore{err: storeErr})

	_, err := client.FetchPartsForVehicle(context.Background(), 1, 7, "", "1234ABC")
	require.ErrorIs(t, err, storeErr)
	require.False(t, *acquired)
}

func TestBrowserUnavailableSurfacesAsSentinel(t *testing.T) {
	client, _ := setupClient(t, &stubSessionStore{
		session: &Session{
			TenantID:   1,
			SupplierID: 7,
			Cookies:    []Cookie{{Name: "sid", Value: "abc", Domain: ".ad360.es", Path: "/"}},
		},
	})
	client.acquire = func() (*browser.Handle, error) {
		return nil, fmt.Errorf("%w: no chromium found", browser.ErrUnavailable)
	}

	_, err := client.FetchPartsForVehicle(context.Background(), 1, 7, "", "1234ABC")
	require.ErrorIs(t, err, ErrBrowserUnavailable)
}

func TestConfigDefaults(t *testing.T) {
	config := Config{}.withDefaults()
	require.Equal(t, "https://connect.ad360.es", config.BaseUrl)
	require.Equal(t, "AD Vicente", config.Distributor)
	require.Equal(t, "Frenos", config.DepartmentHint)
	require.Equal(t, "EUR", config.Currency)
	require.NotZero(t, config.NavTimeoutMs)
	require.NotZero(t, config.SettleTimeoutMs)

	// explicit values survive
	config = Config{Distributor: "AD Norte", Currency: "EUR"}.withDefaults()
	require.Equal(t, "AD Norte", config.Distributor)
}

func TestIsLoginSurface(t *testing.T) {
	docFrom := func(html string) *goquery.Document {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		require.NoError(t, err)
		return doc
	}

	plain := docFrom("<html><body><h1>Catálogo</h1></body></html>")
	require.True(t, isLoginSurface("https://connect.ad360.es/login", plain))
	require.True(t, isLoginSurface("https://connect.ad360.es/auth/callback", plain))
	require.False(t, isLoginSurface("https://connect.ad360.es/home", plain))

	withForm := docFrom(`<html><body><form action="/login"><input type="password"></form></body></html>`)
	require.True(t, isLoginSurface("https://connect.ad360.es/home", withForm))
}
