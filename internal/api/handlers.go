package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xtrntr/auction/internal/auth"
	"github.com/xtrntr/auction/internal/bidding"
	"github.com/xtrntr/auction/internal/biddingerrors"
	"github.com/xtrntr/auction/internal/insight"
	"github.com/xtrntr/auction/internal/logger"
	"github.com/xtrntr/auction/internal/models"
)

// Catalog is the item management the catalog routes need
type Catalog interface {
	CreateItem(ctx context.Context, item *models.Item) (*models.Item, error)
	UpdateItem(ctx context.Context, itemID int, upd models.ItemUpdate) (*models.Item, error)
	ListItems(ctx context.Context, filter models.ItemFilter) ([]models.ItemView, int, error)
}

// BidPlacer is the acceptance pipeline
type BidPlacer interface {
	PlaceBid(ctx context.Context, itemID int, bidder models.Bidder, amount decimal.Decimal) (*models.AcceptedBid, error)
}

// Pinger reports storage health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Catalog     Catalog
	Reads       *bidding.Reconciler
	Bids        BidPlacer
	AuthService *auth.AuthService

	// Insight is nil when no oracle is configured
	Insight *insight.Service
	Health  Pinger

	log logrus.FieldLogger
	now func() time.Time
}

// NewHandler creates a new handler
func NewHandler(catalog Catalog, reads *bidding.Reconciler, bids BidPlacer, authService *auth.AuthService, log logrus.FieldLogger) *Handler {
	return &Handler{
		Catalog:     catalog,
		Reads:       reads,
		Bids:        bids,
		AuthService: authService,
		log:         log,
		now:         time.Now,
	}
}

// Router builds the HTTP surface. ws, when non-nil, is mounted at /ws.
func (h *Handler) Router(allowedOrigins []string, ws http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(h.log))
	r.Use(middleware.Recoverer)

	// Enable CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Healthz)
	if ws != nil {
		r.Handle("/ws", ws)
	}

	// Public endpoints
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Get("/items", h.ListItems)
	r.Get("/items/{id}", h.GetItem)
	r.Get("/bids/{itemId}", h.GetItemBids)
	r.Get("/bids/{itemId}/highest", h.GetHighestBid)

	// Protected endpoints (require JWT)
	r.Group(func(r chi.Router) {
		r.Use(h.JWTAuthMiddleware)
		r.Get("/auth/profile", h.Profile)
		r.Post("/items", h.CreateItem)
		r.Put("/items/{id}", h.UpdateItem)
		r.Post("/bids", h.PlaceBid)
		r.Get("/bids/user/my-bids", h.GetMyBids)
		r.Post("/ai/why-worth-it", h.WhyWorthIt)
		r.Post("/ai/price-prediction", h.PricePrediction)
		r.Post("/ai/bidding-strategy", h.BiddingStrategy)
	})

	return r
}

type ctxKey int

const userKey ctxKey = iota

// UserFromContext returns the authenticated user set by JWTAuthMiddleware
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}

// JWTAuthMiddleware verifies JWT tokens
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			fail(w, http.StatusUnauthorized, "Access token required")
			return
		}

		// Remove "Bearer " prefix if present
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		user, err := h.AuthService.Authenticate(r.Context(), tokenString)
		if err != nil {
			if !errors.Is(err, biddingerrors.ErrUnauthorized) {
				h.log.WithError(err).Error("failed to authenticate request")
			}
			fail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Healthz pings storage
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			h.log.WithError(err).Warn("health check failed")
			fail(w, http.StatusServiceUnavailable, "Storage unavailable")
			return
		}
	}
	respond(w, http.StatusOK, "OK", map[string]string{"status": "ok"})
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response{Success: status < 400, Message: message, Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	respond(w, status, message, nil)
}

// writeError maps err onto a status code. Unexpected errors are logged and
// reported with fallback.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var rej *biddingerrors.Rejection
	switch {
	case errors.Is(err, biddingerrors.ErrItemNotFound):
		fail(w, http.StatusNotFound, "Item not found")
	case errors.As(err, &rej):
		respond(w, http.StatusBadRequest, rej.Error(), map[string]any{"currentPrice": rej.CurrentPrice})
	case errors.Is(err, biddingerrors.ErrInvalidBid),
		errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, insight.ErrInvalidBudget):
		fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, biddingerrors.ErrInvalidCredentials):
		fail(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, biddingerrors.ErrUnauthorized):
		fail(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, biddingerrors.ErrUserExists):
		fail(w, http.StatusConflict, "Username or email already exists")
	default:
		h.log.WithError(err).WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).Error(fallback)
		fail(w, http.StatusInternalServerError, fallback)
	}
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	return id, err == nil && id > 0
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// pageMeta renders pagination with the resource-specific count keys
func pageMeta(p models.Pagination, totalKey, perPageKey string) map[string]any {
	return map[string]any{
		"currentPage": p.CurrentPage,
		"totalPages":  p.TotalPages,
		totalKey:      p.Total,
		perPageKey:    p.PerPage,
		"hasNextPage": p.HasNextPage,
		"hasPrevPage": p.HasPrevPage,
	}
}
