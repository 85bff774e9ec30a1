package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of a portfolio session token
type SessionClaims struct {
	PortfolioAccess bool `json:"portfolio_access"`
	jwt.RegisteredClaims
}
