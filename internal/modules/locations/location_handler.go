package locations

import (
	"net/http"

	"parcel-tracking/internal/models"
	"parcel-tracking/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler exposes the driver location endpoints.
type Handler struct {
	svc LocationServiceInterface
	hub *Hub
}

func NewHandler(svc LocationServiceInterface, hub *Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// GetLocation handles GET /drivers/:driverId/location, the poll endpoint.
func (h *Handler) GetLocation(c echo.Context) error {
	loc, err := h.svc.GetLocation(c.Request().Context(), c.Param("driverId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, models.LocationResponse{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
	})
}

// ReportLocation handles POST /drivers/:driverId/location. Drivers may only
// report for themselves.
func (h *Handler) ReportLocation(c echo.Context) error {
	driverID := c.Param("driverId")
	userID, role, err := utils.ExtractUserInfo(c)
	if err != nil {
		return utils.RespondWithError(c, http.StatusUnauthorized, err.Error())
	}
	if role == models.RoleDriver && userID != driverID {
		return utils.RespondWithError(c, http.StatusForbidden, "Drivers can only report their own location")
	}

	var req models.LocationReportRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	loc, err := h.svc.ReportLocation(c.Request().Context(), driverID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, loc)
}

// StreamLocation handles GET /ws/drivers/:driverId/location, the push feed.
func (h *Handler) StreamLocation(c echo.Context) error {
	driverID := c.Param("driverId")
	if err := h.hub.Serve(c.Response(), c.Request(), driverID); err != nil {
		c.Logger().Errorf("feed upgrade for driver %s: %v", driverID, err)
	}
	return nil
}

// RegisterRoutes attaches location endpoints to the provided Echo group.
// reportGuard restricts who may report positions.
func RegisterRoutes(g *echo.Group, h *Handler, reportGuard ...echo.MiddlewareFunc) {
	g.GET("/drivers/:driverId/location", h.GetLocation)
	g.POST("/drivers/:driverId/location", h.ReportLocation, reportGuard...)
	g.GET("/ws/drivers/:driverId/location", h.StreamLocation)
}
