package ad360

import (
	"context"

	"github.com/playwright-community/playwright-go"
)

// Cookie is one portal authentication cookie as captured by the link
// flow.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HttpOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}

// Session is the persisted authenticated context for one (tenant,
// supplier) pair. It is read-only to the scraper: created and refreshed
// by the external link flow, invalidated implicitly by the portal.
type Session struct {
	TenantID   int64    `json:"tenantId"`
	SupplierID int64    `json:"supplierId"`
	Cookies    []Cookie `json:"cookies"`
}

// SessionStore is the narrow contract this scraper consumes. Load
// returns nil (and no error) when no session is linked.
type SessionStore interface {
	Load(ctx context.Context, tenantID, supplierID int64) (*Session, error)
}

func (s *Session) playwrightCookies() []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, len(s.Cookies))
	for i, c := range s.Cookies {
		cookie := playwright.OptionalCookie{
			Name:  c.Name,
			Value: c.Value,
		}
		if c.Domain != "" {
			cookie.Domain = playwright.String(c.Domain)
		}
		if c.Path != "" {
			cookie.Path = playwright.String(c.Path)
		}
		if c.Expires != 0 {
			cookie.Expires = playwright.Float(c.Expires)
		}
		if c.HttpOnly {
			cookie.HttpOnly = playwright.Bool(true)
		}
		if c.Secure {
			cookie.Secure = playwright.Bool(true)
		}
		out[i] = cookie
	}
	return out
}
