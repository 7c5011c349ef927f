package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"github.com/warelink/shipbridge/internal/engine"
	"github.com/warelink/shipbridge/pkg/courier"
	"go.uber.org/zap"
)

// Server is the HTTP server for the shipping service.
type Server struct {
	port   int
	engine *engine.Engine
	sender courier.Address
	logger *otelzap.Logger
}

// Config holds server configuration.
type Config struct {
	Port int

	// Sender is the default pickup address stamped on shipments when the
	// request does not supply one.
	Sender courier.Address
}

// New creates a new server instance.
func New(cfg Config, eng *engine.Engine, logger *otelzap.Logger) *Server {
	return &Server{
		port:   cfg.Port,
		engine: eng,
		sender: cfg.Sender,
		logger: logger,
	}
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Orders API
	mux.HandleFunc("GET /orders", s.handleListOrders)
	mux.HandleFunc("GET /orders/{id}", s.handleGetOrder)
	mux.HandleFunc("POST /orders/{id}/quotes", s.handleRequestQuotes)
	mux.HandleFunc("POST /orders/{id}/ship", s.handleShip)
	mux.HandleFunc("GET /labels/{shipmentId}", s.handleGetLabel)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := engine.ListParams{
		Page:    queryInt(q.Get("page"), 1),
		PerPage: queryInt(q.Get("per_page"), 20),
		Status:  q.Get("status"),
		Search:  q.Get("search"),
	}

	list, err := s.engine.ListOrders(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	orders := make([]orderDetailJSON, 0, len(list.Orders))
	for _, d := range list.Orders {
		orders = append(orders, toOrderDetailJSON(d))
	}
	s.writeJSON(w, http.StatusOK, orderListJSON{
		Data: orders,
		Meta: paginationJSON{
			Page:       list.Pagination.Page,
			PerPage:    list.Pagination.PerPage,
			Total:      list.Pagination.Total,
			TotalPages: list.Pagination.TotalPages,
		},
	})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	detail, err := s.engine.SyncAndGetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toOrderDetailJSON(detail))
}

type quoteRequestJSON struct {
	PickupPostcode string `json:"pickupPostcode,omitempty"`
}

func (s *Server) handleRequestQuotes(w http.ResponseWriter, r *http.Request) {
	var req quoteRequestJSON
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorJSON{Error: "Invalid JSON: " + err.Error()})
			return
		}
	}

	outcome, err := s.engine.RequestQuotes(r.Context(), r.PathValue("id"), req.PickupPostcode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	quotes := make([]quotationJSON, 0, len(outcome.Quotations))
	for _, q := range outcome.Quotations {
		quotes = append(quotes, toQuotationJSON(q))
	}
	s.writeJSON(w, http.StatusOK, quoteOutcomeJSON{
		IsRural:    outcome.IsRural,
		Quotations: quotes,
	})
}

type shipRequestJSON struct {
	QuotationID string       `json:"quotationId"`
	Sender      *addressJSON `json:"sender,omitempty"`
}

func (s *Server) handleShip(w http.ResponseWriter, r *http.Request) {
	var req shipRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorJSON{Error: "Invalid JSON: " + err.Error()})
		return
	}
	if req.QuotationID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorJSON{Error: "quotationId is required"})
		return
	}

	sender := s.sender
	if req.Sender != nil {
		sender = req.Sender.toAddress()
	}

	shipment, err := s.engine.SelectQuoteAndShip(r.Context(), r.PathValue("id"), req.QuotationID, sender)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toShipmentJSON(shipment))
}

func (s *Server) handleGetLabel(w http.ResponseWriter, r *http.Request) {
	label, err := s.engine.GetLabel(r.Context(), r.PathValue("shipmentId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", label.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", label.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(label.Data)
}

type errorJSON struct {
	Error string `json:"error"`
}

type conflictJSON struct {
	Error    string       `json:"error"`
	Shipment shipmentJSON `json:"shipment"`
}

type validationJSON struct {
	Error         string   `json:"error"`
	MissingFields []string `json:"missingFields"`
}

// writeError maps engine errors to HTTP status codes. An already-shipped
// order answers 409 with the existing shipment so callers can treat the
// retry as success.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *engine.ConflictError
	if errors.As(err, &conflict) {
		s.writeJSON(w, http.StatusConflict, conflictJSON{
			Error:    conflict.Error(),
			Shipment: toShipmentJSON(conflict.Shipment),
		})
		return
	}

	var validation *engine.ValidationError
	if errors.As(err, &validation) {
		s.writeJSON(w, http.StatusBadRequest, validationJSON{
			Error:         validation.Error(),
			MissingFields: validation.MissingFields,
		})
		return
	}

	switch {
	case errors.Is(err, engine.ErrOrderNotFound),
		errors.Is(err, engine.ErrShipmentNotFound):
		s.writeJSON(w, http.StatusNotFound, errorJSON{Error: err.Error()})
	case errors.Is(err, engine.ErrOrderShipped):
		s.writeJSON(w, http.StatusConflict, errorJSON{Error: err.Error()})
	case errors.Is(err, engine.ErrQuotationNotFound),
		errors.Is(err, engine.ErrQuotationExpired),
		errors.Is(err, engine.ErrNoQuotes),
		errors.Is(err, engine.ErrMissingPostcode),
		errors.Is(err, engine.ErrNoItems),
		errors.Is(err, engine.ErrNoConsignment):
		s.writeJSON(w, http.StatusBadRequest, errorJSON{Error: err.Error()})
	default:
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		s.writeJSON(w, http.StatusInternalServerError, errorJSON{Error: "internal error"})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
