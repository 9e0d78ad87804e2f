package probesim

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nexport/opsdash/internal/dashboard"
	"github.com/nexport/opsdash/internal/probe"
)

var (
	probeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "probesim_probe_requests_total",
		Help: "Probe requests by method and outcome.",
	}, []string{"method", "outcome"})

	probeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "probesim_probe_duration_seconds",
		Help:    "Probe handling latency by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "probesim_login_attempts_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})
)

// envelope mirrors the probe reply wire format: exactly one of data and
// error is set, always under HTTP 200.
type envelope struct {
	Data any        `json:"data,omitempty"`
	Err  *wireError `json:"error,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// tokenClaims are the JWT claims issued at login.
type tokenClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Server serves the auth and probe API over the fixture store.
type Server struct {
	store    *Store
	log      *zap.Logger
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
	router   chi.Router
}

// NewServer wires routes, auth, and metrics around the store.
func NewServer(store *Store, log *zap.Logger, secret []byte) *Server {
	s := &Server{
		store:    store,
		log:      log,
		secret:   secret,
		tokenTTL: 12 * time.Hour,
		now:      time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/auth/token", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/api/probe", s.handleProbe)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler for mounting or serving.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger assigns a request ID and logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// authenticate verifies the bearer token on probe routes.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		var claims tokenClaims
		_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			s.log.Warn("token rejected", zap.Error(err))
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogin checks credentials and issues a signed session token with
// the user's roles in its claims.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		loginAttempts.WithLabelValues("malformed").Inc()
		http.Error(w, "malformed credentials", http.StatusBadRequest)
		return
	}

	roles, err := s.store.Authenticate(r.Context(), creds.User, creds.Password)
	if errors.Is(err, ErrBadCredentials) {
		loginAttempts.WithLabelValues("rejected").Inc()
		s.log.Warn("login rejected", zap.String("user", creds.User))
		http.Error(w, "bad credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		loginAttempts.WithLabelValues("error").Inc()
		s.log.Error("login failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	now := s.now()
	claims := tokenClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   creds.User,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		loginAttempts.WithLabelValues("error").Inc()
		s.log.Error("token signing failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	loginAttempts.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleProbe dispatches one probe request. Unknown methods answer with
// the FieldNotFound code under HTTP 200, the same shape a progressively
// rolled-out production backend uses for fields it does not have yet.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	var req probe.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, envelope{Err: &wireError{
			Code:    "BadRequest",
			Message: "malformed probe request",
		}})
		return
	}

	start := time.Now()
	data, err := s.dispatch(r.Context(), req)
	probeDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, errUnknownMethod):
		probeRequests.WithLabelValues(req.Method, "field_not_found").Inc()
		writeJSON(w, http.StatusOK, envelope{Err: &wireError{
			Code:    probe.ErrCodeFieldNotFound,
			Message: "method not available in this deployment: " + req.Method,
		}})
	case err != nil:
		probeRequests.WithLabelValues(req.Method, "error").Inc()
		s.log.Error("probe failed", zap.String("probe_method", req.Method), zap.Error(err))
		writeJSON(w, http.StatusOK, envelope{Err: &wireError{
			Code:    "Internal",
			Message: err.Error(),
		}})
	default:
		probeRequests.WithLabelValues(req.Method, "ok").Inc()
		writeJSON(w, http.StatusOK, envelope{Data: data})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var errUnknownMethod = errors.New("unknown probe method")

// dispatch routes a probe method to its store query, pulling the
// parameters each method honors out of the request's filters.
func (s *Server) dispatch(ctx context.Context, req probe.Request) (any, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	switch req.Method {
	case dashboard.MethodGapExpiring:
		return s.store.ExpiringGaps(ctx, filterStrings(req, "status", []string{"Pending", "Partial"}), limit)

	case dashboard.MethodCostDeviation:
		minPct, _ := filterFloat(req, "deviation_pct")
		return s.store.CostDeviations(ctx, minPct, limit)

	case dashboard.MethodAPOutstanding:
		return s.store.PayablesOutstanding(ctx, s.now())

	case dashboard.MethodStockAlerts:
		minDays, _ := filterFloat(req, "days_stale")
		return s.store.StaleStock(ctx, int(minDays), limit)

	case dashboard.MethodTodoMaterialReqs:
		status := filterString(req, "status", "Open")
		n, err := s.store.MaterialRequestCount(ctx, status)
		return countData(n), err

	case dashboard.MethodTodoInstallments:
		within, ok := filterFloat(req, "due_in_days")
		if !ok {
			within = 7
		}
		n, err := s.store.InstallmentsDueCount(ctx, s.now(), int(within))
		return countData(n), err

	case dashboard.MethodTodoGaps:
		n, err := s.store.UnresolvedGapCount(ctx, filterStrings(req, "status", []string{"Pending", "Partial"}))
		return countData(n), err

	case dashboard.MethodTodoDraftInvoices:
		n, err := s.store.DraftInvoiceCount(ctx)
		return countData(n), err

	case dashboard.MethodAPSummary:
		return s.store.APSummary(ctx, s.now(), limit)

	case dashboard.MethodWinRate:
		return s.store.QuoteWinRate(ctx)

	default:
		return nil, errUnknownMethod
	}
}

func countData(n int) map[string]int {
	return map[string]int{"count": n}
}

// filterString returns the first "=" filter value for the field.
func filterString(req probe.Request, field, fallback string) string {
	for _, f := range req.Filters {
		if f.Field == field && f.Operator == "=" {
			if s, ok := f.Value.(string); ok {
				return s
			}
		}
	}
	return fallback
}

// filterStrings returns the "in" filter values for the field. Values
// arrive as []any after JSON decoding.
func filterStrings(req probe.Request, field string, fallback []string) []string {
	for _, f := range req.Filters {
		if f.Field != field || f.Operator != "in" {
			continue
		}
		switch v := f.Value.(type) {
		case []string:
			return v
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return fallback
}

// filterFloat returns the first numeric comparison value for the field.
func filterFloat(req probe.Request, field string) (float64, bool) {
	for _, f := range req.Filters {
		if f.Field != field {
			continue
		}
		switch v := f.Value.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		}
	}
	return 0, false
}
