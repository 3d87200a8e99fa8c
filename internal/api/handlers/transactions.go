package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/service"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/validation"
)

// TransactionHandler handles HTTP requests for transaction endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the transactionService.
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler with the provided service dependency.
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

// ListTransactions handles GET requests for the authenticated user's log,
// oldest first. Incoming transfers are included.
//
// Endpoint: GET /api/crypto/transactions
// Query parameters (all optional):
//   - symbols: comma separated symbols
//   - types: comma separated BUY, SELL, TRANSFER
//   - start_date, end_date: YYYY-MM-DD or RFC3339, inclusive
//   - sort_dir: asc (default) or desc
//
// Response: 200 OK with array of model.Transaction
// Error: 400 Bad Request if a filter is malformed
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := request.ParseTransactionFilters(
		q.Get("symbols"), q.Get("types"), q.Get("start_date"), q.Get("end_date"), q.Get("sort_dir"),
	)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid filter", err.Error())
		return
	}

	transactions, err := h.transactionService.ListTransactions(r.Context(), currentUser(r).ID, filters)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveTransactions)
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// GetTransaction handles GET requests to retrieve a single transaction by ID.
//
// Endpoint: GET /api/crypto/transactions/{uuid}
// Response: 200 OK with model.Transaction
// Error: 400 Bad Request if transaction ID is invalid (validated by middleware)
// Error: 404 Not Found if the transaction does not exist or belongs to someone else
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "uuid")

	transaction, err := h.transactionService.GetTransaction(r.Context(), currentUser(r).ID, transactionID)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToRetrieveTransaction)
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}

// CreateTransaction handles POST requests to record a BUY or SELL.
// Without unitPrice the live price in the user's currency is used.
//
// Endpoint: POST /api/crypto/transactions
// Request Body: CreateTransactionRequest (symbol, type, amount, unitPrice)
// Response: 201 Created with model.Transaction
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 409 Conflict if another write for the user raced this one
// Error: 422 Unprocessable Entity if a SELL exceeds the open lots
// Error: 503 Service Unavailable if a live price is needed but the feed is down
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateTransactionRequest](r)
	if err != nil {
		respondBadRequest(w, err)
		return
	}
	req.Symbol = validation.NormalizeSymbol(req.Symbol)
	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))

	if err := validation.ValidateCreateTransaction(req); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToCreateTransaction)
		return
	}

	transaction, err := h.transactionService.CreateTransaction(r.Context(), currentUser(r).ID, req)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToCreateTransaction)
		return
	}

	response.RespondJSON(w, http.StatusCreated, transaction)
}

// Transfer handles POST requests that move units to another user.
//
// Endpoint: POST /api/crypto/transfer
// Request Body: TransferRequest (receiverId, symbol, amount)
// Response: 201 Created with model.TransferResult
// Error: 404 Not Found if the receiver does not exist
// Error: 422 Unprocessable Entity for self transfers or insufficient holdings
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.TransferRequest](r)
	if err != nil {
		respondBadRequest(w, err)
		return
	}
	req.Symbol = validation.NormalizeSymbol(req.Symbol)

	if err := validation.ValidateTransfer(req); err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToCreateTransaction)
		return
	}

	result, err := h.transactionService.Transfer(r.Context(), currentUser(r).ID, req)
	if err != nil {
		respondServiceError(w, r, err, apperrors.ErrFailedToCreateTransaction)
		return
	}

	response.RespondJSON(w, http.StatusCreated, result)
}
