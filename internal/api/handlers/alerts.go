package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/validation"
)

// AlertHandler handles price alert rules.
type AlertHandler struct {
	alertService *service.AlertService
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(alertService *service.AlertService) *AlertHandler {
	return &AlertHandler{alertService: alertService}
}

// GetAlerts handles GET requests for the alert switch and rules.
//
// Endpoint: GET /api/users/alerts
// Response: 200 OK with model.AlertPreferences
func (h *AlertHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.alertService.GetPreferences(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveAlerts)
		return
	}

	response.RespondJSON(w, http.StatusOK, prefs)
}

// SetAlert handles PUT requests that create or overwrite a rule.
//
// Endpoint: PUT /api/users/alerts
// Request Body: SetAlertRequest (symbol, threshold)
// Response: 200 OK with model.AlertRule
// Error: 422 Unprocessable Entity if the user has alerts turned off
func (h *AlertHandler) SetAlert(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.SetAlertRequest](r)
	if err != nil {
		respondBadRequest(w, err)
		return
	}
	req.Symbol = validation.NormalizeSymbol(req.Symbol)

	if err := validation.ValidateSetAlert(req); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToUpdateAlert)
		return
	}

	rule, err := h.alertService.SetAlert(r.Context(), currentUser(r).ID, req)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToUpdateAlert)
		return
	}

	response.RespondJSON(w, http.StatusOK, rule)
}

// DeleteAlert handles DELETE requests for a rule.
//
// Endpoint: DELETE /api/users/alerts/{symbol}
// Response: 204 No Content
// Error: 404 Not Found if there is no rule for the symbol
func (h *AlertHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	if err := h.alertService.DeleteAlert(r.Context(), currentUser(r).ID, symbol); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToUpdateAlert)
		return
	}

	response.RespondJSON(w, http.StatusNoContent, nil)
}

// Evaluate handles GET requests that check the rules against current prices.
//
// Endpoint: GET /api/users/alerts/evaluate
// Response: 200 OK with array of model.TriggeredAlert
// Error: 503 Service Unavailable if the price feed cannot be reached
func (h *AlertHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	triggered, err := h.alertService.Evaluate(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveAlerts)
		return
	}

	response.RespondJSON(w, http.StatusOK, triggered)
}

// History handles GET requests for recorded triggers, newest first.
//
// Endpoint: GET /api/users/alerts/history?limit=50
// Response: 200 OK with array of model.TriggeredAlert
// Error: 400 Bad Request if limit is not a positive integer
func (h *AlertHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondError(w, http.StatusBadRequest, "validation failed", map[string]string{"limit": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	history, err := h.alertService.TriggerHistory(r.Context(), currentUser(r).ID, limit)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveAlerts)
		return
	}

	response.RespondJSON(w, http.StatusOK, history)
}
