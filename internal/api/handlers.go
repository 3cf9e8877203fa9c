package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/price-sync/internal/database"
	"github.com/trogers1052/price-sync/internal/dates"
	"github.com/trogers1052/price-sync/internal/models"
	"github.com/trogers1052/price-sync/internal/pricesync"
)

const defaultPriceWindowDays = 30

// Store is the read side of the price database used by the API
type Store interface {
	Ping() error
	GetSymbols() ([]models.Symbol, error)
	GetSymbolByTicker(ticker string) (*models.Symbol, error)
	GetDailyPrices(symbolID int, startDate, endDate time.Time) ([]*models.DailyPrice, error)
}

// Syncer runs an on-demand sync
type Syncer interface {
	InsertDaily(ctx context.Context, start, end string) (*pricesync.Result, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store  Store
	syncer Syncer
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewHandler creates a new Handler
func NewHandler(store Store, syncer Syncer, log logrus.FieldLogger) *Handler {
	return &Handler{
		store:  store,
		syncer: syncer,
		log:    log,
		now:    time.Now,
	}
}

// GetSymbols handles GET /symbols
func (h *Handler) GetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.store.GetSymbols()
	if err != nil {
		h.log.WithError(err).Error("failed to list symbols")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if symbols == nil {
		symbols = []models.Symbol{}
	}

	respondJSON(w, http.StatusOK, symbols)
}

// GetPrices handles GET /symbols/{ticker}/prices?start=&end=
func (h *Handler) GetPrices(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]

	endDate := h.now().UTC()
	if s := r.URL.Query().Get("end"); s != "" {
		var err error
		if endDate, err = dates.Parse(s); err != nil {
			http.Error(w, "invalid end date: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	startDate := endDate.AddDate(0, 0, -defaultPriceWindowDays)
	if s := r.URL.Query().Get("start"); s != "" {
		var err error
		if startDate, err = dates.Parse(s); err != nil {
			http.Error(w, "invalid start date: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	symbol, err := h.store.GetSymbolByTicker(ticker)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	prices, err := h.store.GetDailyPrices(symbol.ID, startDate, endDate)
	if err != nil {
		h.log.WithError(err).WithField("ticker", ticker).Error("failed to get daily prices")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if prices == nil {
		prices = []*models.DailyPrice{}
	}

	respondJSON(w, http.StatusOK, prices)
}

// TriggerSync handles POST /sync?start=&end=
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	res, err := h.syncer.InsertDaily(r.Context(), q.Get("start"), q.Get("end"))
	switch {
	case errors.Is(err, pricesync.ErrSyncInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, dates.ErrUnparseable):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.log.WithError(err).Error("on-demand sync failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
