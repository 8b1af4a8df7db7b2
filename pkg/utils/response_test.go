package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"parcel-tracking/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", fmt.Errorf("repo.X: %w", models.ErrNotFound), http.StatusNotFound},
		{"transition", models.ErrInvalidStatusTransition, http.StatusConflict},
		{"forbidden", fmt.Errorf("service.X: %w", models.ErrForbidden), http.StatusForbidden},
		{"driver", models.ErrDriverRequired, http.StatusBadRequest},
		{"coordinate", models.ErrInvalidCoordinate, http.StatusBadRequest},
		{"no route", models.ErrNoRoute, http.StatusUnprocessableEntity},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			if err := HandleServiceError(c, tt.err); err != nil {
				t.Fatalf("HandleServiceError returned %v", err)
			}
			if rec.Code != tt.code {
				t.Errorf("code = %d, want %d", rec.Code, tt.code)
			}
			var body models.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Message == "" {
				t.Errorf("body = %q, want error message", rec.Body.String())
			}
		})
	}
}

func TestGenerateAccessToken(t *testing.T) {
	signed, err := GenerateAccessToken("0123456789abcdef", "D1", models.RoleDriver, time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	claims := &models.JwtCustomClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("0123456789abcdef"), nil
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "D1" || claims.Role != models.RoleDriver {
		t.Errorf("claims = %+v", claims)
	}
}

func TestGetValidator(t *testing.T) {
	ok := models.LocationReportRequest{Latitude: 23.7, Longitude: 90.4}
	if err := GetValidator().Validate(ok); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
	bad := models.LocationReportRequest{Latitude: 123, Longitude: 90.4}
	if err := GetValidator().Validate(bad); err == nil {
		t.Error("out of range latitude accepted")
	}
}
