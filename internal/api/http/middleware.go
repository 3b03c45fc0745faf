package http

import (
	"context"
	"net/http"
	"strings"

	"whitelist-bot/internal/domain"
	"whitelist-bot/internal/logger"
	"whitelist-bot/internal/security"

	"github.com/gorilla/mux"
)

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by the auth middleware.
func ClaimsFromContext(ctx context.Context) (*security.IngressClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*security.IngressClaims)
	return claims, ok
}

// ActorFromClaims builds the acting member for a token. Admin tokens act as administrators.
func ActorFromClaims(claims *security.IngressClaims) domain.Actor {
	return domain.Actor{
		ID:      claims.ActorID,
		Name:    claims.Subject,
		RoleIDs: claims.RoleIDs,
		IsAdmin: claims.Scope == security.ScopeAdmin,
	}
}

type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

// Require rejects requests without a valid bearer token of the given scope.
func (a *AuthMiddleware) Require(scope security.Scope) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractToken(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authorization token is not provided")
				return
			}

			claims, err := a.tokenManager.ValidateToken(token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid token: "+err.Error())
				return
			}

			if claims.Scope != scope {
				writeJSONError(w, http.StatusForbidden, "UNAUTHORIZED", security.ErrWrongScope.Error())
				return
			}

			if tenantID, ok := mux.Vars(r)["tenantID"]; ok && !claims.AllowsTenant(tenantID) {
				writeJSONError(w, http.StatusForbidden, "UNAUTHORIZED", "token is not valid for this tenant")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// logRequests logs every request once it has been served.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
