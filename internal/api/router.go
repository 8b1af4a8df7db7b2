package api

import (
	"net/http"

	"parcel-tracking/internal/api/middleware"
	"parcel-tracking/internal/models"
	"parcel-tracking/internal/modules/locations"
	"parcel-tracking/internal/modules/parcels"
	"parcel-tracking/internal/modules/routing"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all the API endpoints for the application.
func SetupRoutes(
	e *echo.Echo,
	jwtSecret string,
	parcelHandler *parcels.Handler,
	locationHandler *locations.Handler,
	routeHandler *routing.RouteHandler,
) {
	authMiddleware := middleware.JWTMAuth(jwtSecret)

	// --- Public Routes ---
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Authenticated Routes ---
	g := e.Group("", authMiddleware)

	parcels.RegisterRoutes(g, parcelHandler, middleware.RoleRequired(models.RoleAdmin, models.RoleDriver))
	locations.RegisterRoutes(g, locationHandler, middleware.RoleRequired(models.RoleAdmin, models.RoleDriver))
	routing.RegisterRoutes(g, routeHandler)
}
