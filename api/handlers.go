/*
handlers.go - HTTP API handlers for the tariff engine

PURPOSE:
  Exposes the pricing engine via REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates pricing to the engine.

ENDPOINTS:
  Quotes:
    POST   /api/quotes                 Price a stay under a rate

  Rates:
    GET    /api/rates                  List rates (?vehicle_type=&type=&active=)
    GET    /api/rates/{id}             Get one rate

  Scenarios:
    GET    /api/scenarios              List demo tariff tables
    GET    /api/scenarios/current      Currently loaded table
    POST   /api/scenarios/load         Replace the tables with a demo table

  Ops:
    GET    /api/health                 Storage liveness
    GET    /metrics                    Prometheus metrics

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Tariff table access (SQLite or PostgreSQL)
  - Engine: Pricing, reading configuration through the same Store
  - TableFactory: JSON to tariff records for scenario loads

REQUEST FLOW:
  1. Decode the JSON body
  2. Validate tags
  3. Load the charged rate and price the stay
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid interval, unknown rate type
  - 404: Rate or scenario not found
  - 422: Tariff tables are missing configuration the rate needs
  - 502: A configuration read failed
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/tariff-engine/factory"
	"github.com/warp/tariff-engine/tariff"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the tariff table storage the API needs. Both store/sqlite and
// store/postgres satisfy it.
type Store interface {
	tariff.ConfigSource
	GetRate(ctx context.Context, id tariff.RateID) (tariff.Rate, error)
	ListRates(ctx context.Context, filter tariff.RateFilter) ([]tariff.Rate, error)
	ImportTable(ctx context.Context, table *factory.Table) error
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        Store
	Engine       *tariff.Engine
	TableFactory *factory.TableFactory

	// FetchTimeout bounds the configuration reads of one quote.
	FetchTimeout time.Duration

	log      *zap.Logger
	validate *validator.Validate
	newID    func() string

	mu              sync.RWMutex
	currentScenario string
}

// NewHandler creates a handler pricing with opts over store.
func NewHandler(store Store, opts tariff.Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Handler{
		Store:        store,
		Engine:       tariff.NewEngine(store, opts),
		TableFactory: factory.NewTableFactory(),
		FetchTimeout: 5 * time.Second,
		log:          log.Named("api"),
		validate:     v,
		newID:        uuid.NewString,
	}
}

// =============================================================================
// QUOTE HANDLERS
// =============================================================================

// CreateQuote prices a stay.
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	log := h.log.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !h.validRequest(w, req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.FetchTimeout)
	defer cancel()

	rate, err := h.Store.GetRate(ctx, tariff.RateID(req.RateID))
	if err != nil {
		log.Warn("rate lookup failed", zap.String("rate_id", req.RateID), zap.Error(err))
		writeDomainError(w, "Failed to load rate", err)
		return
	}

	entry := tariff.Entry{Date: req.EntryDate, Time: req.EntryTime, VehicleType: req.VehicleType}
	res, err := h.Engine.CalculateAdvancedPrice(ctx, entry, rate, req.ExitDate, req.ExitTime)
	if err != nil {
		outcome := outcomeFor(err)
		observeQuote(rate.Type, outcome, time.Since(started))
		log.Warn("quote failed",
			zap.String("rate_id", req.RateID),
			zap.String("outcome", outcome),
			zap.Error(err))
		writeDomainError(w, "Failed to price stay", err)
		return
	}

	observeQuote(rate.Type, "ok", time.Since(started))
	observeResult(res)

	quote := toQuoteDTO(h.newID(), rate.ID, res)
	log.Info("quote priced",
		zap.String("quote_id", quote.ID),
		zap.String("rate_id", req.RateID),
		zap.String("charged_rate_id", quote.ChargedRateID),
		zap.String("price", res.Price.StringFixed(2)),
		zap.Int("elapsed_minutes", res.ElapsedMinutes),
		zap.Int("suggestions", len(res.Suggestions)),
		zap.Int("warnings", len(res.Warnings)))

	writeJSON(w, http.StatusOK, quote)
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

// ListRates returns rates, optionally narrowed by vehicle type, rate type
// label and activity.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter tariff.RateFilter
	if label := q.Get("type"); label != "" {
		rt, err := tariff.ParseRateType(label)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid rate type", err)
			return
		}
		filter.Types = []tariff.RateType{rt}
	}
	filter.ActiveOnly = q.Get("active") == "true"

	var (
		rates []tariff.Rate
		err   error
	)
	if vt := q.Get("vehicle_type"); vt != "" {
		rates, err = h.Store.RelatedRates(r.Context(), vt, filter)
	} else {
		rates, err = h.Store.ListRates(r.Context(), filter)
	}
	if err != nil {
		writeDomainError(w, "Failed to list rates", err)
		return
	}

	dtos := make([]factory.RateJSON, len(rates))
	for i, rate := range rates {
		dtos[i] = factory.RateToJSON(rate)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRate returns a single rate.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rate, err := h.Store.GetRate(r.Context(), tariff.RateID(id))
	if err != nil {
		writeDomainError(w, "Failed to get rate", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.RateToJSON(rate))
}

// =============================================================================
// OPS HANDLERS
// =============================================================================

// Health reports whether the store answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		h.log.Error("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, HealthDTO{Status: "unavailable", Storage: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok", Storage: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps tariff errors to their HTTP status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	resp := ErrorResponse{Error: message, Code: outcomeFor(err), Details: err.Error()}
	writeJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch {
	case tariff.IsNotFound(err):
		return http.StatusNotFound
	case tariff.IsClientError(err):
		return http.StatusBadRequest
	case tariff.IsConfigurationError(err):
		return http.StatusUnprocessableEntity
	case tariff.IsUpstream(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func outcomeFor(err error) string {
	switch statusFor(err) {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusUnprocessableEntity:
		return "missing_configuration"
	case http.StatusBadGateway:
		return "upstream_error"
	default:
		return "internal_error"
	}
}

// validRequest runs tag validation and writes a 400 on failure.
func (h *Handler) validRequest(w http.ResponseWriter, req any) bool {
	err := h.validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid request",
		Code:    "validation_failed",
		Details: validationMessages(verrs),
	})
	return false
}

func validationMessages(errs validator.ValidationErrors) []string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		switch err.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("field %s must match %s", err.Field(), err.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return msgs
}
