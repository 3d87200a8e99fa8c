package handlers

import (
	"net/http"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/validation"
)

// PortfolioHandler handles HTTP requests for the derived portfolio views.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
	valuationService *service.ValuationService
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioService *service.PortfolioService, valuationService *service.ValuationService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
		valuationService: valuationService,
	}
}

// ProfitAndLoss handles GET requests for the unrealized profit or loss.
//
// Endpoint: GET /api/crypto/portfolio/pnl
// Response: 200 OK with model.ProfitAndLoss
// Error: 503 Service Unavailable if the price feed cannot be reached
func (h *PortfolioHandler) ProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	pnl, err := h.valuationService.ComputePnL(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToComputePnL)
		return
	}

	response.RespondJSON(w, http.StatusOK, pnl)
}

// Holdings handles GET requests for the holdings snapshot and open lots.
//
// Endpoint: GET /api/portfolio/holdings
// Response: 200 OK with model.HoldingsView
func (h *PortfolioHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	view, err := h.portfolioService.GetHoldings(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToComputeHoldings)
		return
	}

	response.RespondJSON(w, http.StatusOK, view)
}

// OpenLots handles GET requests for the unsold FIFO lots.
//
// Endpoint: GET /api/portfolio/lots
// Response: 200 OK with array of model.HoldingLot
func (h *PortfolioHandler) OpenLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.portfolioService.GetOpenLots(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToComputeHoldings)
		return
	}

	response.RespondJSON(w, http.StatusOK, lots)
}

// TaxReport handles GET requests for realized gains per FIFO match.
//
// Endpoint: GET /api/portfolio/tax-report
// Response: 200 OK with model.TaxReport
func (h *PortfolioHandler) TaxReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.portfolioService.GetTaxReport(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToGenerateTaxReport)
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}

// Portfolio handles GET requests for the cached holdings at current prices.
//
// Endpoint: GET /api/users/portfolio
// Response: 200 OK with model.PortfolioView
func (h *PortfolioHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	view, err := h.portfolioService.GetPortfolio(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrievePortfolio)
		return
	}

	response.RespondJSON(w, http.StatusOK, view)
}

// DeleteSymbol handles DELETE requests that drop a symbol from the cached
// holdings. The transaction log is not changed.
//
// Endpoint: DELETE /api/portfolio?symbol=btc
// Response: 204 No Content
// Error: 400 Bad Request if the symbol is missing or malformed
// Error: 404 Not Found if the user holds no such symbol
func (h *PortfolioHandler) DeleteSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := validation.NormalizeSymbol(r.URL.Query().Get("symbol"))
	if err := validation.ValidateSymbol(symbol); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrievePortfolio)
		return
	}

	if err := h.portfolioService.DeleteSymbol(r.Context(), currentUser(r).ID, symbol); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrievePortfolio)
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}
