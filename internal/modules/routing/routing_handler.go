package routing

import (
	"net/http"

	"parcel-tracking/internal/models"
	"parcel-tracking/pkg/utils"

	"github.com/labstack/echo/v4"
)

// RouteHandler exposes the directions proxy.
type RouteHandler struct {
	svc RouteServiceInterface
}

func NewRouteHandler(svc RouteServiceInterface) *RouteHandler {
	return &RouteHandler{svc: svc}
}

// GetRoute handles GET /routes?origin=lat,lng&destination=lat,lng.
func (h *RouteHandler) GetRoute(c echo.Context) error {
	var q models.RouteQuery
	if err := c.Bind(&q); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}
	origin, err := models.ParseCoordinate(q.Origin)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	dest, err := models.ParseCoordinate(q.Destination)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	info, err := h.svc.Route(c.Request().Context(), origin, dest)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, info)
}

// RegisterRoutes attaches routing endpoints to the provided Echo group.
func RegisterRoutes(g *echo.Group, h *RouteHandler) {
	g.GET("/routes", h.GetRoute)
}
