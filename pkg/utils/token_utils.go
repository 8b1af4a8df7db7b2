package utils

import (
	"errors"
	"fmt"
	"time"

	"parcel-tracking/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// GenerateAccessToken signs an HS256 token carrying the user id and role.
func GenerateAccessToken(secret, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("utils.GenerateAccessToken: %w", err)
	}
	return signed, nil
}

// ExtractUserInfo returns the user id and role the auth middleware stored on
// the context.
func ExtractUserInfo(c echo.Context) (string, string, error) {
	userID, ok := c.Get("userID").(string)
	if !ok || userID == "" {
		return "", "", errors.New("user ID not found in token")
	}
	role, _ := c.Get("userRole").(string)
	return userID, role, nil
}
