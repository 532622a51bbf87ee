package server

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims are the API token claims. Scope is informational; every valid
// token may issue every command.
type Claims struct {
	gojwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// JWTValidator issues and checks HS256 API tokens.
type JWTValidator struct {
	cfg AuthConfig
	now func() time.Time
}

// NewJWTValidator creates a validator for cfg.
func NewJWTValidator(cfg AuthConfig) (*JWTValidator, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt: secret is required")
	}
	return &JWTValidator{cfg: cfg, now: time.Now}, nil
}

// Issue signs a token for subject valid for ttl (TokenTTL when zero).
func (v *JWTValidator) Issue(subject, scope string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = v.cfg.TokenTTL
	}
	now := v.now()
	claims := Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.cfg.Issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
		Scope: scope,
	}
	if v.cfg.Audience != "" {
		claims.Audience = gojwt.ClaimStrings{v.cfg.Audience}
	}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(v.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, expiry, issuer and audience.
func (v *JWTValidator) Parse(token string) (*Claims, error) {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithTimeFunc(v.now),
		gojwt.WithExpirationRequired(),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(v.cfg.Audience))
	}
	claims := &Claims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return []byte(v.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("jwt: invalid token")
	}
	return claims, nil
}

// ValidatorFunc adapts Parse to middleware.AuthConfig.
func (v *JWTValidator) ValidatorFunc() func(string) (map[string]any, error) {
	return func(token string) (map[string]any, error) {
		c, err := v.Parse(token)
		if err != nil {
			return nil, err
		}
		return map[string]any{"sub": c.Subject, "scope": c.Scope}, nil
	}
}
