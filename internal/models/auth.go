package models

import "github.com/golang-jwt/jwt/v5"

// OperatorRole is the role claim carried by console operator tokens.
type OperatorRole string

const (
	RoleSuperAdmin OperatorRole = "SUPERADMIN"
	RoleAdmin      OperatorRole = "ADMIN"
	RoleScheduler  OperatorRole = "SCHEDULER"
	RoleViewer     OperatorRole = "VIEWER"
)

// JWTClaims represents the JWT payload of an operator access token.
type JWTClaims struct {
	UserID   string       `json:"user_id"`
	Role     OperatorRole `json:"role"`
	FullName string       `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}
