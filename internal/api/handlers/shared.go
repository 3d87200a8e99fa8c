package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/middleware"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/validation"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// parseJSON decodes the request body into T, rejecting unknown fields and
// trailing data.
func parseJSON[T any](r *http.Request) (T, error) {
	var v T
	if r.Body == nil {
		return v, errors.New("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, errors.New("request body is required")
		}
		return v, err
	}
	if dec.More() {
		return v, errors.New("request body must contain a single JSON object")
	}
	return v, nil
}

// currentUser returns the user set by the authentication middleware.
func currentUser(r *http.Request) model.User {
	user, _ := middleware.UserFromContext(r.Context())
	return user
}

// errorStatus maps a service error to an HTTP status and the public message.
// Unknown errors map to 500 with the fallback message.
func errorStatus(err error, fallback error) (int, string) {
	var validationErr *validation.Error
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation failed"
	case errors.Is(err, apperrors.ErrInvalidAmount),
		errors.Is(err, apperrors.ErrInvalidPrice),
		errors.Is(err, apperrors.ErrInvalidSymbol),
		errors.Is(err, apperrors.ErrInvalidCurrency),
		errors.Is(err, apperrors.ErrInvalidUUID),
		errors.Is(err, apperrors.ErrUnknownTransactionType):
		return http.StatusBadRequest, unwrapSentinel(err)
	case errors.Is(err, apperrors.ErrInvalidCredentials),
		errors.Is(err, apperrors.ErrInvalidToken):
		return http.StatusUnauthorized, unwrapSentinel(err)
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, apperrors.ErrForbidden.Error()
	case errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrTransactionNotFound),
		errors.Is(err, apperrors.ErrHoldingNotFound),
		errors.Is(err, apperrors.ErrAlertNotFound):
		return http.StatusNotFound, unwrapSentinel(err)
	case errors.Is(err, apperrors.ErrEmailExists),
		errors.Is(err, apperrors.ErrConcurrentModification):
		return http.StatusConflict, unwrapSentinel(err)
	case errors.Is(err, apperrors.ErrInsufficientHoldings),
		errors.Is(err, apperrors.ErrAlertsDisabled),
		errors.Is(err, apperrors.ErrSelfTransfer),
		errors.Is(err, apperrors.ErrPriceNotFound):
		return http.StatusUnprocessableEntity, unwrapSentinel(err)
	case errors.Is(err, apperrors.ErrPriceUnavailable):
		return http.StatusServiceUnavailable, apperrors.ErrPriceUnavailable.Error()
	default:
		return http.StatusInternalServerError, fallback.Error()
	}
}

var publicSentinels = []error{
	apperrors.ErrInvalidAmount, apperrors.ErrInvalidPrice, apperrors.ErrInvalidSymbol,
	apperrors.ErrInvalidCurrency, apperrors.ErrInvalidUUID, apperrors.ErrUnknownTransactionType,
	apperrors.ErrInvalidCredentials, apperrors.ErrInvalidToken,
	apperrors.ErrUserNotFound, apperrors.ErrTransactionNotFound, apperrors.ErrHoldingNotFound,
	apperrors.ErrAlertNotFound, apperrors.ErrEmailExists, apperrors.ErrConcurrentModification,
	apperrors.ErrInsufficientHoldings, apperrors.ErrAlertsDisabled, apperrors.ErrSelfTransfer,
	apperrors.ErrPriceNotFound,
}

// unwrapSentinel returns the message of the first public sentinel in err's chain.
func unwrapSentinel(err error) string {
	for _, sentinel := range publicSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// respondServiceError writes err using the shared status mapping. Server
// errors are logged and their details withheld.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback error) {
	status, message := errorStatus(err, fallback)

	var details any
	var validationErr *validation.Error
	var insufficient *apperrors.InsufficientHoldingsError
	switch {
	case errors.As(err, &validationErr):
		details = validationErr.Fields
	case errors.As(err, &insufficient):
		details = map[string]string{
			"symbol":    insufficient.Symbol,
			"requested": insufficient.Requested.String(),
			"shortfall": insufficient.Shortfall.String(),
		}
	case status == http.StatusNotFound || status == http.StatusUnprocessableEntity:
		details = err.Error()
	case status >= http.StatusInternalServerError:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(message)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "30")
	}
	response.RespondError(w, status, message, details)
}

// respondBadRequest reports a body that could not be decoded.
func respondBadRequest(w http.ResponseWriter, err error) {
	response.RespondError(w, http.StatusBadRequest, "invalid request body", fmt.Sprint(err))
}
