package utils

import (
	"errors"
	"net/http"
	"sync"

	"parcel-tracking/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	validate *validator.Validate
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

var (
	validatorOnce sync.Once
	sharedValid   *Validator
)

// GetValidator returns the process-wide validator.
func GetValidator() *Validator {
	validatorOnce.Do(func() {
		sharedValid = &Validator{validate: validator.New()}
	})
	return sharedValid
}

func RespondWithJSON(c echo.Context, code int, payload interface{}) error {
	return c.JSON(code, payload)
}

func RespondWithError(c echo.Context, code int, message string) error {
	return c.JSON(code, models.ErrorResponse{Message: message})
}

// HandleServiceError maps service sentinels to HTTP replies.
func HandleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, "Resource not found")
	case errors.Is(err, models.ErrForbidden):
		return RespondWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrInvalidStatusTransition):
		return RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrDriverRequired), errors.Is(err, models.ErrInvalidCoordinate):
		return RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNoRoute):
		return RespondWithError(c, http.StatusUnprocessableEntity, err.Error())
	}
	c.Logger().Error("unhandled service error: ", err)
	return RespondWithError(c, http.StatusInternalServerError, "Internal server error")
}
