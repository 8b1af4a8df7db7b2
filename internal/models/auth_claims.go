package models

import "github.com/golang-jwt/jwt/v5"

// Roles carried in access tokens.
const (
	RoleAdmin    = "admin"
	RoleSeller   = "seller"
	RoleDriver   = "driver"
	RoleCustomer = "customer"
)

type JwtCustomClaims struct {
	UserID string `json:"userID"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
