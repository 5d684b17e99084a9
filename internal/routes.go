// Package internal contains core application wiring
package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "sitebeam/api/v1"
	"sitebeam/internal/auth"
	"sitebeam/internal/config"
)

// publicCORSConfig is the permissive CORS setup shared by the public
// endpoints: the beacon and the forms are posted cross-origin from the
// marketing site.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// MountAPIRoutes returns the route mount function for the given API.
func MountAPIRoutes(api *v1.API) func(*cartridge.Server) {
	return func(srv *cartridge.Server) {
		cfg := config.GetConfig()
		logger := srv.GetLogger()

		// Rate limiting only in production; it gets in the way of tests.
		conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
			return func(c *fiber.Ctx) error {
				if cfg.IsProduction() {
					return limiter(c)
				}
				return c.Next()
			}
		}

		// 70/min per IP absorbs legitimate tracking traffic while
		// capping abuse.
		publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
			cartridgemiddleware.WithMax(70),
			cartridgemiddleware.WithDuration(time.Minute),
		))

		// Stricter limit on login to slow down brute force attempts.
		authRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
			cartridgemiddleware.WithMax(10),
			cartridgemiddleware.WithDuration(time.Minute),
		))

		// No Sec-Fetch-Site validation anywhere on the JSON API: the
		// beacon and the forms are posted cross-site (and by clients
		// that send no fetch metadata at all), and the admin routes
		// authenticate with bearer tokens, not cookies.
		publicAPIConfig := &cartridge.RouteConfig{
			EnableCORS:         true,
			EnableSecFetchSite: cartridge.Bool(false),
			CustomMiddleware:   []fiber.Handler{publicRateLimiter},
			CORSConfig:         publicCORSConfig,
		}

		loginConfig := &cartridge.RouteConfig{
			EnableCORS:         true,
			EnableSecFetchSite: cartridge.Bool(false),
			CustomMiddleware:   []fiber.Handler{authRateLimiter},
			CORSConfig:         publicCORSConfig,
		}

		adminConfig := &cartridge.RouteConfig{
			EnableSecFetchSite: cartridge.Bool(false),
			CustomMiddleware: []fiber.Handler{
				auth.BearerAuth(cfg.PrivateKey, logger),
			},
		}

		// === HEALTH ===
		srv.Get("/_health", api.HealthHandler)

		// === PUBLIC API ROUTES ===
		srv.Post("/x/api/v1/beacon", api.CreateBeaconHandler, publicAPIConfig)
		srv.Options("/x/api/v1/beacon", func(ctx *cartridge.Context) error {
			return ctx.SendStatus(fiber.StatusNoContent)
		}, publicAPIConfig)

		srv.Post("/x/api/v1/contact", api.CreateContactMessageHandler, publicAPIConfig)
		srv.Post("/x/api/v1/subscribe", api.SubscribeHandler, publicAPIConfig)
		srv.Get("/x/api/v1/site-config", api.GetSiteConfigHandler, publicAPIConfig)

		// === AUTHENTICATION ===
		srv.Post("/x/api/v1/admin/login", api.LoginHandler, loginConfig)

		// === PROTECTED ADMIN ROUTES ===
		srv.Get("/x/api/v1/admin/summary", api.GetSummaryHandler, adminConfig)
		srv.Get("/x/api/v1/admin/settings", api.GetSettingsHandler, adminConfig)
		srv.Post("/x/api/v1/admin/settings", api.UpdateSettingsHandler, adminConfig)
		srv.Get("/x/api/v1/admin/messages", api.ListContactMessagesHandler, adminConfig)
		srv.Post("/x/api/v1/admin/messages/:id/read", api.MarkMessageReadHandler, adminConfig)
		srv.Get("/x/api/v1/admin/subscribers", api.ListSubscribersHandler, adminConfig)

		// Token is validated inside the handler: EventSource cannot
		// send an Authorization header.
		srv.Get("/x/api/v1/admin/live", api.LiveFeedHandler)
	}
}
