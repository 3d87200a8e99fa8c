package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/validation"
)

// PriceHandler serves live and cached spot prices.
type PriceHandler struct {
	priceService    *service.PriceService
	defaultCurrency string
}

// NewPriceHandler creates a new PriceHandler. defaultCurrency is used when
// the request names none.
func NewPriceHandler(priceService *service.PriceService, defaultCurrency string) *PriceHandler {
	return &PriceHandler{
		priceService:    priceService,
		defaultCurrency: defaultCurrency,
	}
}

// PricesResponse lists the prices found and the symbols the feed did not know.
type PricesResponse struct {
	Currency string                     `json:"currency"`
	Prices   map[string]decimal.Decimal `json:"prices"`
	Missing  []string                   `json:"missing"`
}

// GetPrices handles GET requests for current prices.
//
// Endpoint: GET /api/crypto/prices?symbols=btc,eth&currency=eur
// Response: 200 OK with PricesResponse
// Error: 400 Bad Request if symbols or currency are invalid
// Error: 503 Service Unavailable if the price feed cannot be reached
func (h *PriceHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	symbols, err := validation.ParseSymbols(r.URL.Query().Get("symbols"))
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrievePrices)
		return
	}

	currency := validation.NormalizeCurrency(r.URL.Query().Get("currency"))
	if currency == "" {
		currency = h.defaultCurrency
	}
	if err := validation.ValidateCurrency(currency); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrievePrices)
		return
	}

	prices, err := h.priceService.GetPrices(r.Context(), symbols, currency)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrievePrices)
		return
	}

	resp := PricesResponse{Currency: currency, Prices: prices, Missing: []string{}}
	for _, symbol := range symbols {
		if _, ok := prices[symbol]; !ok {
			resp.Missing = append(resp.Missing, symbol)
		}
	}
	response.RespondJSON(w, http.StatusOK, resp)
}

// CachedPrices handles GET requests for the price cache contents.
//
// Endpoint: GET /api/crypto/prices/cached
// Response: 200 OK with array of model.CachedPrice
func (h *PriceHandler) CachedPrices(w http.ResponseWriter, _ *http.Request) {
	response.RespondJSON(w, http.StatusOK, h.priceService.Cached())
}
