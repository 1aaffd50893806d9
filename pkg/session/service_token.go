package session

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceTokenConfig configures verification of service credentials used by
// the scheduled-job collaborators (expiry sweep, recall-schedule processing).
type ServiceTokenConfig struct {
	// PublicKeyPath is the path to the PEM-encoded RSA public key for RS256
	// verification. If empty, tokens are parsed but NOT verified (suitable for
	// dev/testing behind a trusted proxy).
	PublicKeyPath string

	// Issuer is the expected token issuer (iss claim). If empty, issuer is not validated.
	Issuer string

	// Audience is the expected token audience (aud claim). If empty, audience is not validated.
	Audience string

	// Logger for debugging. If nil, uses slog.Default().
	Logger *slog.Logger
}

// ServiceTokenVerifier verifies Bearer tokens presented by scheduler callers.
type ServiceTokenVerifier struct {
	cfg       ServiceTokenConfig
	publicKey *rsa.PublicKey
}

// NewServiceTokenVerifier creates a verifier from the given config.
func NewServiceTokenVerifier(cfg ServiceTokenConfig) (*ServiceTokenVerifier, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	v := &ServiceTokenVerifier{cfg: cfg}
	if cfg.PublicKeyPath != "" {
		keyData, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read service token public key from %s: %w", cfg.PublicKeyPath, err)
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
		v.publicKey = rsaKey
		cfg.Logger.Info("service token verifier: using RS256 verification", "keyPath", cfg.PublicKeyPath)
	} else {
		cfg.Logger.Warn("service token verifier: no public key configured, tokens parsed without verification (trusted proxy mode)")
	}

	return v, nil
}

// Verify parses the Bearer token on the request and returns a service Session.
// The token subject becomes the session user id.
func (v *ServiceTokenVerifier) Verify(r *http.Request) (Session, error) {
	tokenString := extractBearerToken(r)
	if tokenString == "" {
		return Session{}, fmt.Errorf("service credential is required (Authorization: Bearer <token>)")
	}

	parserOpts := []jwt.ParserOption{}
	if v.cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.cfg.Audience))
	}

	var token *jwt.Token
	var err error
	if v.publicKey != nil {
		token, err = jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return v.publicKey, nil
		}, parserOpts...)
	} else {
		parser := jwt.NewParser(parserOpts...)
		token, _, err = parser.ParseUnverified(tokenString, jwt.MapClaims{})
	}
	if err != nil {
		return Session{}, fmt.Errorf("service token parse error: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, fmt.Errorf("unexpected claims type")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		sub = "scheduler"
	}

	return Session{
		UserID:   sub,
		UserName: sub,
		Role:     "service",
		Service:  true,
	}, nil
}

// ServiceMiddleware returns middleware that requires a valid service credential
// and stores the resulting service Session in the request context.
func ServiceMiddleware(v *ServiceTokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := v.Verify(r)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "unauthorized",
					"message": err.Error(),
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
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
