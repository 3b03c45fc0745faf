package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"whitelist-bot/internal/domain"
	apperrors "whitelist-bot/internal/errors"
	"whitelist-bot/internal/logger"
	"whitelist-bot/internal/platform"
	"whitelist-bot/internal/security"
	"whitelist-bot/internal/service"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// MemberSource resolves the live roles of a tenant member.
type MemberSource interface {
	FetchMember(ctx context.Context, tenantID, memberID string) (domain.Member, error)
}

// Handler serves the HTTP ingress.
type Handler struct {
	onboarding service.OnboardingService
	tenants    service.TenantService
	members    MemberSource
}

func NewHandler(onboarding service.OnboardingService, tenants service.TenantService, members MemberSource) *Handler {
	return &Handler{onboarding: onboarding, tenants: tenants, members: members}
}

// NewRouter registers every ingress route.
func NewRouter(h *Handler, auth *AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	r.Handle("/v1/interactions", auth.Require(security.ScopeGateway)(http.HandlerFunc(h.HandleInteraction))).
		Methods(http.MethodPost)

	tenants := r.PathPrefix("/v1/tenants/{tenantID}").Subrouter()
	tenants.Use(auth.Require(security.ScopeAdmin))
	tenants.HandleFunc("/config", h.PutConfig).Methods(http.MethodPut)
	tenants.HandleFunc("/config", h.GetConfig).Methods(http.MethodGet)
	tenants.HandleFunc("/cases", h.ListCases).Methods(http.MethodGet)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleInteraction accepts an interaction forwarded by a gateway process.
// Administrative commands are not accepted here; use the admin routes.
func (h *Handler) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	var in service.Interaction
	if err := decode(r, &in); err != nil {
		writeJSONError(w, http.StatusBadRequest, string(apperrors.CodeInvalidInput), err.Error())
		return
	}
	if in.TenantID == "" || in.Actor.ID == "" {
		writeJSONError(w, http.StatusBadRequest, string(apperrors.CodeInvalidInput), "tenant_id and actor.id are required")
		return
	}
	claims, _ := ClaimsFromContext(r.Context())
	if !claims.AllowsTenant(in.TenantID) {
		writeJSONError(w, http.StatusForbidden, string(apperrors.CodeUnauthorized), "token is not valid for this tenant")
		return
	}

	// Only the actor id is taken from the body: roles come from the platform and
	// administrator rights are never granted through a gateway token.
	member, err := h.members.FetchMember(r.Context(), in.TenantID, in.Actor.ID)
	if err != nil {
		if platform.IsCode(err, platform.CodeNotFound) {
			writeJSONError(w, http.StatusForbidden, string(apperrors.CodeUnauthorized), "actor is not a member of this tenant")
			return
		}
		logger.Error("Failed to resolve interaction actor", "tenant_id", in.TenantID, "actor_id", in.Actor.ID, "error", err)
		writeJSONError(w, http.StatusBadGateway, string(apperrors.CodeUnknown), "failed to resolve actor roles")
		return
	}
	in.Actor.RoleIDs = member.RoleIDs
	in.Actor.IsAdmin = false
	if in.Actor.Name == "" {
		in.Actor.Name = member.Name
	}

	writeJSON(w, http.StatusOK, h.onboarding.HandleInteraction(r.Context(), in))
}

// PutConfig validates and stores the tenant configuration, then posts the request prompt.
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	tenantID := mux.Vars(r)["tenantID"]
	var cfg domain.TenantConfig
	if err := decode(r, &cfg); err != nil {
		writeJSONError(w, http.StatusBadRequest, string(apperrors.CodeInvalidInput), err.Error())
		return
	}
	cfg.TenantID = tenantID

	claims, _ := ClaimsFromContext(r.Context())
	saved, err := h.tenants.Configure(r.Context(), ActorFromClaims(claims), cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.tenants.NotifyConfigured(r.Context(), *saved); err != nil {
		logger.Warn("Tenant configured but notification failed", "tenant_id", tenantID, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.tenants.GetConfig(r.Context(), mux.Vars(r)["tenantID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	cases, err := h.onboarding.ListCases(r.Context(), mux.Vars(r)["tenantID"], ActorFromClaims(claims))
	if err != nil {
		writeError(w, err)
		return
	}
	if cases == nil {
		cases = []domain.ApplicationCase{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cases": cases})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("malformed request body: " + err.Error())
	}
	return nil
}

type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("Ingress request failed", "code", code, "error", err)
	}
	writeJSON(w, status, errorBody{Code: string(code), Message: err.Error(), Metadata: apperrors.MetadataOf(err)})
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
