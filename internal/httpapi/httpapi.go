package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/service"
	"ledgerpos/backend/internal/store"
)

// companyHeader selects the tenant a request operates on. Requests without it
// fall back to the service's default company.
const companyHeader = "X-Company-ID"

var errTooManyAttempts = errors.New("too many login attempts")

type API struct {
	service       *service.Service
	auth          *AuthManager
	logger        *zap.Logger
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		auth:          auth,
		logger:        logger.Named("http"),
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	owner := []string{domain.RoleOwner}
	staff := []string{domain.RoleOwner, domain.RoleCashier}

	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("POST /api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("GET /api/v1/inventory", a.requireAuth(a.handleListInventory, staff...))
	mux.HandleFunc("POST /api/v1/inventory", a.requireAuth(a.handleAddInventoryItem, owner...))
	mux.HandleFunc("POST /api/v1/inventory/{id}/adjust", a.requireAuth(a.handleAdjustQuantity, owner...))

	mux.HandleFunc("POST /api/v1/sales", a.requireAuth(a.handleRecordSale, staff...))
	mux.HandleFunc("DELETE /api/v1/sales/{id}", a.requireAuth(a.handleDeleteSale, owner...))
	mux.HandleFunc("POST /api/v1/returns", a.requireAuth(a.handleRecordReturn, staff...))
	mux.HandleFunc("GET /api/v1/invoices", a.requireAuth(a.handleListInvoices, staff...))
	mux.HandleFunc("GET /api/v1/invoices/{id}", a.requireAuth(a.handleGetInvoice, staff...))
	mux.HandleFunc("GET /api/v1/stock-moves", a.requireAuth(a.handleListStockMoves, owner...))

	mux.HandleFunc("GET /api/v1/capital-transactions", a.requireAuth(a.handleListCapital, owner...))
	mux.HandleFunc("POST /api/v1/capital-transactions", a.requireAuth(a.handleRecordCapital, owner...))
	mux.HandleFunc("GET /api/v1/profit-distributions", a.requireAuth(a.handleListDistributions, owner...))
	mux.HandleFunc("POST /api/v1/profit-distributions", a.requireAuth(a.handleDistributeProfit, owner...))
	mux.HandleFunc("GET /api/v1/profit", a.requireAuth(a.handleAvailableProfit, owner...))
	mux.HandleFunc("GET /api/v1/equity", a.requireAuth(a.handleOwnerEquity, owner...))
	mux.HandleFunc("GET /api/v1/expenses", a.requireAuth(a.handleListExpenses, owner...))
	mux.HandleFunc("POST /api/v1/expenses", a.requireAuth(a.handleRecordExpense, owner...))

	mux.HandleFunc("GET /api/v1/dashboard", a.requireAuth(a.handleDashboard, owner...))
	mux.HandleFunc("GET /api/v1/dashboard/multi", a.requireAuth(a.handleDashboardMulti, owner...))

	mux.HandleFunc("GET /api/v1/reports/inventory", a.requireAuth(a.handleInventoryReport, owner...))
	mux.HandleFunc("GET /api/v1/reports/sales", a.requireAuth(a.handleSalesReport, owner...))
	mux.HandleFunc("GET /api/v1/reports/returns", a.requireAuth(a.handleReturnsReport, owner...))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			a.writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+companyHeader)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		next.ServeHTTP(rec, r)
		a.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(startedAt)),
		)
	})
}

// statusFor maps service and store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case service.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrStockConflict),
		errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, store.ErrVersionConflict),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, err error) {
	a.writeError(w, statusFor(err), err)
}

func companyID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(companyHeader))
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parseLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// parseTime accepts RFC3339 timestamps or plain dates.
func parseTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New("invalid time " + strconv.Quote(raw))
}

func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		a.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
