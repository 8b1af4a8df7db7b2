package parcels

import (
	"net/http"

	"parcel-tracking/internal/models"
	"parcel-tracking/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for parcels.
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new parcel handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// GetParcel handles GET /parcels/:parcelId and returns the tracked entity.
func (h *Handler) GetParcel(c echo.Context) error {
	userID, role, err := utils.ExtractUserInfo(c)
	if err != nil {
		return utils.RespondWithError(c, http.StatusUnauthorized, err.Error())
	}

	entity, err := h.service.GetTrackedEntity(c.Request().Context(), c.Param("parcelId"), userID, role)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, entity)
}

// UpdateStatus handles PUT /parcels/:parcelId/status.
func (h *Handler) UpdateStatus(c echo.Context) error {
	userID, role, err := utils.ExtractUserInfo(c)
	if err != nil {
		return utils.RespondWithError(c, http.StatusUnauthorized, err.Error())
	}

	var req models.UpdateParcelStatusRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	parcel, err := h.service.UpdateStatus(c.Request().Context(), c.Param("parcelId"), userID, role, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, parcel)
}

// RegisterRoutes attaches parcel endpoints to the provided Echo group.
// statusGuard restricts who may change a parcel's status.
func RegisterRoutes(g *echo.Group, h *Handler, statusGuard ...echo.MiddlewareFunc) {
	g.GET("/parcels/:parcelId", h.GetParcel)
	g.PUT("/parcels/:parcelId/status", h.UpdateStatus, statusGuard...)
}
