package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"garagevision-backend/lib/configutil"
	"garagevision-backend/lib/cryptovault"
	"garagevision-backend/lib/scrapers/ad360"
	"garagevision-backend/lib/sqlutil"
	"garagevision-backend/lib/telemetry"
	"garagevision-backend/lib/util/serviceutil"
	"garagevision-backend/services/partscatalog"
	partscatalogdb "garagevision-backend/services/partscatalog/db"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

type Config struct {
	Port     int              `json:"port"`
	Database sqlutil.Database `json:"database"`
	// base64 AES key sealing stored portal sessions
	VaultKey string       `json:"vault_key"`
	Scraper  ad360.Config `json:"scraper"`
}

type idParams struct {
	TenantID   int64 `json:"tenantId" query:"tenantId"`
	SupplierID int64 `json:"supplierId" query:"supplierId"`
}

type vehicleParams struct {
	idParams
	Vin string `json:"vin" query:"vin"`
	Reg string `json:"reg" query:"reg"`
}

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.InitSlog(false)

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8460
	}

	db, err := config.Database.Open(partscatalogdb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}

	vault, err := cryptovault.NewFromBase64(config.VaultKey)
	if err != nil {
		serviceutil.Fatal("failed to initialize session vault", err)
	}

	t, err := telemetry.SetupFromEnv(ctx, "partscatalog")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	scraper := ad360.NewClient(config.Scraper, partscatalog.SessionStore(db, vault))
	service := partscatalog.NewService(db, vault, scraper)

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := service.PruneCache(ctx); err != nil {
					slog.WarnContext(ctx, "failed to prune expired cache entries", "err", err)
				}
			}
		}
	}()

	app := fiber.New()
	app.Use(helmet.New())
	app.Use(logger.New(logger.Config{
		Format: "${pid} | ${time} | ${latency} | [${ip}]:${port} | ${status} - ${method} ${path}\n",
	}))

	app.Post("/link", func(c *fiber.Ctx) error {
		var req partscatalog.LinkRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request payload"})
		}
		if err := service.Link(c.Context(), req); err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"linked": true})
	})

	app.Post("/unlink", func(c *fiber.Ctx) error {
		var req idParams
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request payload"})
		}
		if err := service.Unlink(c.Context(), req.TenantID, req.SupplierID); err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"linked": false})
	})

	app.Get("/status", func(c *fiber.Ctx) error {
		var req idParams
		if err := c.QueryParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid query"})
		}
		status, err := service.Status(c.Context(), req.TenantID, req.SupplierID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(status)
	})

	app.Post("/variants", func(c *fiber.Ctx) error {
		var req vehicleParams
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request payload"})
		}
		if req.Vin == "" && req.Reg == "" {
			return c.Status(400).JSON(fiber.Map{"error": "vin or reg is required"})
		}
		variants, err := service.SearchVehicleVariants(c.Context(), req.TenantID, req.SupplierID, req.Vin, req.Reg)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"variants": variants})
	})

	app.Post("/parts", func(c *fiber.Ctx) error {
		var req vehicleParams
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request payload"})
		}
		if req.Vin == "" && req.Reg == "" {
			return c.Status(400).JSON(fiber.Map{"error": "vin or reg is required"})
		}
		parts, err := service.FetchPartsForVehicle(c.Context(), req.TenantID, req.SupplierID, req.Vin, req.Reg)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"parts": parts})
	})

	app.Post("/parts/variant", func(c *fiber.Ctx) error {
		var req struct {
			vehicleParams
			Variant ad360.VehicleVariant `json:"variant"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request payload"})
		}
		parts, err := service.FetchPartsForVariant(c.Context(), req.TenantID, req.SupplierID, req.Vin, req.Reg, req.Variant)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"parts": parts})
	})

	app.Post("/search", func(c *fiber.Ctx) error {
		var req struct {
			vehicleParams
			Query string `json:"query"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request payload"})
		}
		parts, err := service.SearchCached(c.Context(), req.TenantID, req.SupplierID, req.Vin, req.Reg, req.Query)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"parts": parts})
	})

	app.Get("/audit", func(c *fiber.Ctx) error {
		var req struct {
			TenantID int64 `query:"tenantId"`
			Limit    int64 `query:"limit"`
		}
		if err := c.QueryParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid query"})
		}
		events, err := service.AuditTrail(c.Context(), req.TenantID, req.Limit)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"events": events})
	})

	go func() {
		<-ctx.Done()
		app.Shutdown()
	}()
	if err := app.Listen(fmt.Sprintf(":%d", config.Port)); err != nil {
		serviceutil.Fatal("server stopped", err)
	}
}

// writeError maps domain failures onto transport codes: expired or
// missing sessions are the caller's problem, portal shape drift and
// missing browsers are upstream problems.
func writeError(c *fiber.Ctx, err error) error {
	var navErr *ad360.NavigationError
	switch {
	case errors.Is(err, ad360.ErrNeedsRelink):
		return c.Status(409).JSON(fiber.Map{"error": "needs_relink"})
	case errors.Is(err, partscatalog.ErrConsentRequired):
		return c.Status(403).JSON(fiber.Map{"error": "consent_required"})
	case errors.Is(err, partscatalog.ErrNotCached):
		return c.Status(404).JSON(fiber.Map{"error": "not_cached"})
	case errors.Is(err, ad360.ErrBrowserUnavailable):
		return c.Status(502).JSON(fiber.Map{"error": "browser_unavailable"})
	case errors.As(err, &navErr):
		return c.Status(502).JSON(fiber.Map{"error": "portal_navigation_failed", "step": navErr.Step})
	default:
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
}
