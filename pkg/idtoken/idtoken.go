// Package idtoken reads the claims of an identity token issued by an OAuth
// provider (Google, Apple) without verifying its signature.
//
// The client forwards the decoded claims to the backend's OAuth exchange
// endpoint; the backend is responsible for verifying the token. Nothing in
// this package establishes that a token is authentic.
package idtoken

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the registered claims plus the OpenID Connect profile claims
// the exchange endpoint needs.
type Claims struct {
	jwt.RegisteredClaims

	Email         string `json:"email,omitempty"`
	EmailVerified any    `json:"email_verified,omitempty"` // Apple sends "true", Google sends true
	Name          string `json:"name,omitempty"`
	GivenName     string `json:"given_name,omitempty"`
	FamilyName    string `json:"family_name,omitempty"`
	Picture       string `json:"picture,omitempty"`
}

// DisplayName returns Name, or given and family names joined by a space.
func (c *Claims) DisplayName() string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	return strings.TrimSpace(strings.TrimSpace(c.GivenName) + " " + strings.TrimSpace(c.FamilyName))
}

// Decode parses token and returns its claims. The signature is not checked;
// expiry and other temporal claims are not validated either.
func Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrMalformedToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
