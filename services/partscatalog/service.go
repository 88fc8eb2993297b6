package partscatalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"garagevision-backend/lib/cryptovault"
	"garagevision-backend/lib/scrapers/ad360"
	"garagevision-backend/services/partscatalog/db"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("services/partscatalog")

const (
	StatusLinked   = "linked"
	StatusUnlinked = "unlinked"
)

const (
	cacheKindParts    = "parts"
	cacheKindVariants = "variants"
)

const (
	partsCacheTTL    = time.Hour
	variantsCacheTTL = 30 * time.Minute
)

// searchCachedLimit caps the rows a cached text search returns.
const searchCachedLimit = 50

var (
	ErrConsentRequired = errors.New("partscatalog: explicit consent required to store portal credentials")
	ErrNotCached       = errors.New("partscatalog: no cached catalog for this vehicle")
)

// Scraper is the portal-driving surface the service orchestrates,
// satisfied by *ad360.Client and faked in tests.
type Scraper interface {
	Probe(ctx context.Context) error
	SearchVehicleVariants(ctx context.Context, tenantID, supplierID int64, vin, reg string) ([]ad360.VehicleVariant, error)
	FetchPartsForVehicle(ctx context.Context, tenantID, supplierID int64, vin, reg string) ([]ad360.CanonicalPart, error)
	FetchPartsForVariant(ctx context.Context, tenantID, supplierID int64, vin, reg string, variant ad360.VehicleVariant) ([]ad360.CanonicalPart, error)
}

type Service struct {
	db      *sql.DB
	qry     *db.Queries
	vault   *cryptovault.Vault
	scraper Scraper
}

func NewService(database *sql.DB, vault *cryptovault.Vault, scraper Scraper) Service {
	return Service{
		db:      database,
		qry:     db.New(database),
		vault:   vault,
		scraper: scraper,
	}
}

// SessionStore exposes the persisted sessions in the form the scraper
// consumes. Wire the result into ad360.NewClient.
func SessionStore(database *sql.DB, vault *cryptovault.Vault) ad360.SessionStore {
	return sessionStore{qry: db.New(database), vault: vault}
}

type LinkRequest struct {
	TenantID   int64          `json:"tenantId"`
	SupplierID int64          `json:"supplierId"`
	Cookies    []ad360.Cookie `json:"cookies"`
	Consent    bool           `json:"consent"`
}

// Link stores a freshly captured portal session for a tenant. The
// session holds credentials, so the caller must carry the tenant's
// explicit consent and the portal is probed first to avoid storing a
// session against a dead endpoint.
func (s Service) Link(ctx context.Context, req LinkRequest) error {
	ctx, span := tracer.Start(ctx, "Link")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("tenant_id", req.TenantID),
		attribute.Int64("supplier_id", req.SupplierID),
	)

	if !req.Consent {
		return ErrConsentRequired
	}
	if len(req.Cookies) == 0 {
		return fmt.Errorf("partscatalog: link requires at least one session cookie")
	}

	if err := s.scraper.Probe(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("portal unreachable: %w", err)
	}

	ciphertext, err := s.vault.EncryptJSON(ad360.Session{
		TenantID:   req.TenantID,
		SupplierID: req.SupplierID,
		Cookies:    req.Cookies,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	now := time.Now().Unix()
	err = s.qry.UpsertSupplierAccount(ctx, db.UpsertSupplierAccountParams{
		TenantID:          req.TenantID,
		SupplierID:        req.SupplierID,
		Status:            StatusLinked,
		SessionCiphertext: ciphertext,
		ConsentGivenAt:    sql.NullInt64{Int64: now, Valid: true},
		LinkedAt:          sql.NullInt64{Int64: now, Valid: true},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.audit(ctx, req.TenantID, req.SupplierID, "link", fmt.Sprintf("%d cookies", len(req.Cookies)))
	return nil
}

// Unlink discards the stored session and marks the account unlinked.
// Cached catalog data came through that session, so revoking it purges
// the cache too.
func (s Service) Unlink(ctx context.Context, tenantID, supplierID int64) error {
	ctx, span := tracer.Start(ctx, "Unlink")
	defer span.End()

	err := s.qry.UpsertSupplierAccount(ctx, db.UpsertSupplierAccountParams{
		TenantID:          tenantID,
		SupplierID:        supplierID,
		Status:            StatusUnlinked,
		SessionCiphertext: "",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err = s.qry.DeleteSupplierCache(ctx, db.DeleteSupplierCacheParams{
		TenantID:   tenantID,
		SupplierID: supplierID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.audit(ctx, tenantID, supplierID, "unlink", "")
	return nil
}

type AccountStatus struct {
	Linked         bool  `json:"linked"`
	ConsentGivenAt int64 `json:"consentGivenAt,omitempty"`
	LinkedAt       int64 `json:"linkedAt,omitempty"`
	LastUsedAt     int64 `json:"lastUsedAt,omitempty"`
}

func (s Service) Status(ctx context.Context, tenantID, supplierID int64) (AccountStatus, error) {
	ctx, span := tracer.Start(ctx, "Status")
	defer span.End()

	account, err := s.qry.GetSupplierAccount(ctx, db.GetSupplierAccountParams{
		TenantID:   tenantID,
		SupplierID: supplierID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return AccountStatus{}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AccountStatus{}, err
	}

	return AccountStatus{
		Linked:         account.Status == StatusLinked,
		ConsentGivenAt: account.ConsentGivenAt.Int64,
		LinkedAt:       account.LinkedAt.Int64,
		LastUsedAt:     account.LastUsedAt.Int64,
	}, nil
}

// SearchVehicleVariants returns the disambiguation candidates for a
// vehicle, from cache when a recent lookup exists.
func (s Service) SearchVehicleVariants(ctx context.Context, tenantID, supplierID int64, vin, reg string) ([]ad360.VehicleVariant, error) {
	ctx, span := tracer.Start(ctx, "SearchVehicleVariants")
	defer span.End()
	key := vehicleKey(vin, reg)
	span.SetAttributes(attribute.String("vehicle_key", key))

	var cached []ad360.VehicleVariant
	if s.readCache(ctx, tenantID, supplierID, key, cacheKindVariants, &cached) {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	variants, err := s.scraper.SearchVehicleVariants(ctx, tenantID, supplierID, vin, reg)
	if err != nil {
		s.recordFailure(ctx, span, tenantID, supplierID, err)
		return nil, err
	}

	s.writeCache(ctx, tenantID, supplierID, key, cacheKindVariants, variants, variantsCacheTTL)
	s.markUsed(ctx, tenantID, supplierID)
	s.audit(ctx, tenantID, supplierID, "search_variants", key)
	return variants, nil
}

// FetchPartsForVehicle returns the vehicle's normalized catalog,
// fetching through the portal on cache miss.
func (s Service) FetchPartsForVehicle(ctx context.Context, tenantID, supplierID int64, vin, reg string) ([]ad360.CanonicalPart, error) {
	ctx, span := tracer.Start(ctx, "FetchPartsForVehicle")
	defer span.End()
	key := vehicleKey(vin, reg)
	span.SetAttributes(attribute.String("vehicle_key", key))

	var cached []ad360.CanonicalPart
	if s.readCache(ctx, tenantID, supplierID, key, cacheKindParts, &cached) {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return cached, nil
	}

	parts, err := s.scraper.FetchPartsForVehicle(ctx, tenantID, supplierID, vin, reg)
	if err != nil {
		s.recordFailure(ctx, span, tenantID, supplierID, err)
		return nil, err
	}

	s.writeCache(ctx, tenantID, supplierID, key, cacheKindParts, parts, partsCacheTTL)
	s.markUsed(ctx, tenantID, supplierID)
	s.audit(ctx, tenantID, supplierID, "fetch_parts", key)
	return parts, nil
}

// FetchPartsForVariant resolves a pending variant choice. The result
// lands in the same per-vehicle cache a plain fetch uses. Never served
// from cache itself: the caller is explicitly overriding whichever
// variant an earlier fetch settled on.
func (s Service) FetchPartsForVariant(ctx context.Context, tenantID, supplierID int64, vin, reg string, variant ad360.VehicleVariant) ([]ad360.CanonicalPart, error) {
	ctx, span := tracer.Start(ctx, "FetchPartsForVariant")
	defer span.End()
	key := vehicleKey(vin, reg)
	span.SetAttributes(attribute.String("vehicle_key", key))

	parts, err := s.scraper.FetchPartsForVariant(ctx, tenantID, supplierID, vin, reg, variant)
	if err != nil {
		s.recordFailure(ctx, span, tenantID, supplierID, err)
		return nil, err
	}

	s.writeCache(ctx, tenantID, supplierID, key, cacheKindParts, parts, partsCacheTTL)
	s.markUsed(ctx, tenantID, supplierID)
	s.audit(ctx, tenantID, supplierID, "fetch_parts_variant", key)
	return parts, nil
}

// SearchCached filters a previously fetched catalog by free text
// without touching the portal. Returns ErrNotCached when no live cache
// entry covers the vehicle.
func (s Service) SearchCached(ctx context.Context, tenantID, supplierID int64, vin, reg, query string) ([]ad360.CanonicalPart, error) {
	ctx, span := tracer.Start(ctx, "SearchCached")
	defer span.End()
	key := vehicleKey(vin, reg)

	var parts []ad360.CanonicalPart
	if !s.readCache(ctx, tenantID, supplierID, key, cacheKindParts, &parts) {
		return nil, ErrNotCached
	}

	query = strings.ToLower(strings.TrimSpace(query))
	out := []ad360.CanonicalPart{}
	for _, p := range parts {
		if len(out) >= searchCachedLimit {
			break
		}
		if query == "" || matchesQuery(p, query) {
			out = append(out, p)
		}
	}
	span.SetAttributes(attribute.Int("result_count", len(out)))
	return out, nil
}

// AuditTrail lists the most recent integration actions for a tenant.
func (s Service) AuditTrail(ctx context.Context, tenantID int64, limit int64) ([]db.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.qry.ListAuditEvents(ctx, db.ListAuditEventsParams{
		TenantID: tenantID,
		Limit:    limit,
	})
}

// PruneCache drops expired cache rows. Run periodically by the daemon.
func (s Service) PruneCache(ctx context.Context) error {
	return s.qry.DeleteExpiredCache(ctx, time.Now().Unix())
}

func matchesQuery(p ad360.CanonicalPart, query string) bool {
	return strings.Contains(strings.ToLower(p.Brand), query) ||
		strings.Contains(strings.ToLower(p.PartNumber), query) ||
		strings.Contains(strings.ToLower(p.PartNumberNorm), query) ||
		strings.Contains(strings.ToLower(p.Description), query)
}

// vehicleKey identifies a vehicle across cache entries regardless of
// which identifier the caller supplied.
func vehicleKey(vin, reg string) string {
	return "VIN:" + strings.ToUpper(strings.TrimSpace(vin)) +
		"|REG:" + strings.ToUpper(strings.TrimSpace(reg))
}

func (s Service) readCache(ctx context.Context, tenantID, supplierID int64, key, kind string, out any) bool {
	entry, err := s.qry.GetCacheEntry(ctx, db.GetCacheEntryParams{
		TenantID:   tenantID,
		SupplierID: supplierID,
		VehicleKey: key,
		Kind:       kind,
	})
	if err != nil {
		return false
	}
	if entry.ExpiresAt < time.Now().Unix() {
		return false
	}
	return json.Unmarshal([]byte(entry.Payload), out) == nil
}

func (s Service) writeCache(ctx context.Context, tenantID, supplierID int64, key, kind string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	now := time.Now()
	err = s.qry.SetCacheEntry(ctx, db.SetCacheEntryParams{
		TenantID:   tenantID,
		SupplierID: supplierID,
		VehicleKey: key,
		Kind:       kind,
		Payload:    string(payload),
		CreatedAt:  now.Unix(),
		ExpiresAt:  now.Add(ttl).Unix(),
	})
	if err != nil {
		span := trace.SpanFromContext(ctx)
		span.AddEvent("cache write failed", trace.WithAttributes(
			attribute.String("error", err.Error()),
		))
	}
}

func (s Service) markUsed(ctx context.Context, tenantID, supplierID int64) {
	_ = s.qry.TouchSupplierAccount(ctx, db.TouchSupplierAccountParams{
		LastUsedAt: sql.NullInt64{Int64: time.Now().Unix(), Valid: true},
		TenantID:   tenantID,
		SupplierID: supplierID,
	})
}

// recordFailure marks the span and, when the portal rejected the
// session, flips the account status so callers see needs_relink
// before the tenant links again.
func (s Service) recordFailure(ctx context.Context, span trace.Span, tenantID, supplierID int64, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if errors.Is(err, ad360.ErrNeedsRelink) {
		_ = s.qry.SetSupplierAccountStatus(ctx, db.SetSupplierAccountStatusParams{
			Status:     StatusUnlinked,
			TenantID:   tenantID,
			SupplierID: supplierID,
		})
		s.audit(ctx, tenantID, supplierID, "session_expired", "")
	}
}

func (s Service) audit(ctx context.Context, tenantID, supplierID int64, action, detail string) {
	_ = s.qry.CreateAuditEvent(ctx, db.CreateAuditEventParams{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		SupplierID: supplierID,
		Action:     action,
		Detail:     detail,
		CreatedAt:  time.Now().Unix(),
	})
}
