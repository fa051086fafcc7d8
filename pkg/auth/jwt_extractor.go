package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTExtractorConfig configures the JWT-based principal extractor.
type JWTExtractorConfig struct {
	// SubjectClaim is the claim carrying the user id. Default: "sub".
	SubjectClaim string

	// NameClaim is the claim carrying the display name. Default: "name".
	NameClaim string

	// RoleClaim is the claim carrying the role. Default: "role".
	RoleClaim string

	// PublicKeyPath is the path to the PEM-encoded RSA public key for RS256
	// verification. If empty, tokens are parsed but NOT verified (suitable
	// for dev/testing behind a trusted proxy).
	PublicKeyPath string

	// Issuer is the expected token issuer (iss claim). If empty, issuer is
	// not validated.
	Issuer string

	// Audience is the expected token audience (aud claim). If empty,
	// audience is not validated.
	Audience string

	// Logger for debugging. If nil, uses slog.Default().
	Logger *slog.Logger
}

// NewJWTPrincipalExtractor creates a PrincipalExtractor that resolves the
// principal from a JWT Bearer token in the Authorization header.
//
// Security model:
//   - If PublicKeyPath is set, tokens are cryptographically verified (RS256)
//   - If PublicKeyPath is empty, tokens are parsed without verification
//   - Missing or invalid tokens resolve to an anonymous principal
func NewJWTPrincipalExtractor(cfg JWTExtractorConfig) (PrincipalExtractor, error) {
	if cfg.SubjectClaim == "" {
		cfg.SubjectClaim = "sub"
	}
	if cfg.NameClaim == "" {
		cfg.NameClaim = "name"
	}
	if cfg.RoleClaim == "" {
		cfg.RoleClaim = "role"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var publicKey *rsa.PublicKey
	if cfg.PublicKeyPath != "" {
		keyData, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read JWT public key from %s: %w", cfg.PublicKeyPath, err)
		}
		block, _ := pem.Decode(keyData)
		if block == nil {
			return nil, fmt.Errorf("failed to decode PEM block from %s", cfg.PublicKeyPath)
		}
		parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		rsaKey, ok := parsedKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is not RSA (got %T)", parsedKey)
		}
		publicKey = rsaKey
		cfg.Logger.Info("JWT principal extractor: using RS256 verification", "keyPath", cfg.PublicKeyPath)
	} else {
		cfg.Logger.Warn("JWT principal extractor: no public key configured, tokens parsed without verification (trusted proxy mode)")
	}

	return func(r *http.Request) Principal {
		token := extractBearerToken(r)
		if token == "" {
			return Principal{}
		}

		claims, err := parseJWTClaims(token, publicKey, cfg)
		if err != nil {
			cfg.Logger.Debug("JWT parse failed, treating caller as anonymous", "error", err)
			return Principal{}
		}

		userID, _ := claims[cfg.SubjectClaim].(string)
		if userID == "" {
			return Principal{}
		}
		name, _ := claims[cfg.NameClaim].(string)
		roleStr, _ := claims[cfg.RoleClaim].(string)

		role := ParseRole(roleStr)
		if role == RoleAnonymous {
			// A valid subject without a role claim is still a signed-in user.
			role = RoleUser
		}

		return Principal{UserID: userID, Name: name, Role: role}
	}, nil
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// parseJWTClaims parses and optionally verifies a JWT token.
func parseJWTClaims(tokenString string, publicKey *rsa.PublicKey, cfg JWTExtractorConfig) (jwt.MapClaims, error) {
	parserOpts := []jwt.ParserOption{}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}

	claims := jwt.MapClaims{}

	if publicKey == nil {
		parser := jwt.NewParser(parserOpts...)
		if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	}, parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}
