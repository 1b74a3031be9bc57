package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"shiftlog/internal/actor"
	"shiftlog/internal/engine"
	"shiftlog/internal/repo"
)

// EmployeeHeader carries an employee id or username when header identity is
// enabled.
const EmployeeHeader = "X-Employee-Id"

type AuthConfig struct {
	JWTSecret           string
	AllowHeaderIdentity bool
	Logger              zerolog.Logger
}

// SignToken mints an HS256 token whose subject is the employee id.
func SignToken(secret, employeeID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	if strings.TrimSpace(employeeID) == "" {
		return "", errors.New("employee id required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  employeeID,
		IssuedAt: jwt.NewNumericDate(now),
		Issuer:   "shiftlog",
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func authenticateJWT(token, secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("subject claim required")
	}
	return claims.Subject, nil
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// newAuthMiddleware resolves the caller to an employee once per request and
// stores it with actor.WithActor. Health and API docs stay public.
func newAuthMiddleware(basePath string, cfg AuthConfig, r repo.Repo) func(http.Handler) http.Handler {
	public := map[string]bool{
		path.Join(basePath, "health"):       true,
		path.Join(basePath, "openapi.json"): true,
		"/docs":                             true,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !strings.HasPrefix(req.URL.Path, basePath) || public[req.URL.Path] {
				next.ServeHTTP(w, req)
				return
			}

			var ref string
			authz := strings.TrimSpace(req.Header.Get("Authorization"))
			header := strings.TrimSpace(req.Header.Get(EmployeeHeader))
			switch {
			case authz != "":
				token, ok := bearerToken(authz)
				if !ok {
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				sub, err := authenticateJWT(token, cfg.JWTSecret)
				if err != nil {
					cfg.Logger.Debug().Err(err).Msg("bearer token rejected")
					respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
					return
				}
				ref = sub
			case header != "" && cfg.AllowHeaderIdentity:
				cfg.Logger.Warn().Str("employee", header).Msg("using X-Employee-Id header without a token")
				ref = header
			default:
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
				return
			}

			a, err := actor.Resolve(req.Context(), r, ref)
			if errors.Is(err, engine.ErrNotFound) {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "unknown employee", nil))
				return
			}
			if err != nil {
				respondStatusError(w, newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil))
				return
			}
			next.ServeHTTP(w, req.WithContext(actor.WithActor(req.Context(), a)))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.GetStatus())
	_ = json.NewEncoder(w).Encode(err)
}
