package validation

import (
	"net/mail"
	"strings"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/request"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordLength = 72
)

func validatePassword(errors map[string]string, field, password string) {
	switch {
	case len(password) < minPasswordLength:
		errors[field] = "password must be at least 8 characters"
	case len(password) > maxPasswordLength:
		errors[field] = "password must be 72 characters or less"
	}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// ValidateRegister validates a registration request.
func ValidateRegister(req request.RegisterRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Name) == "" {
		errors["name"] = "name is required"
	} else if len(req.Name) > 100 {
		errors["name"] = "name must be 100 characters or less"
	}

	if !validEmail(req.Email) {
		errors["email"] = "a valid email is required"
	}

	validatePassword(errors, "password", req.Password)

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func ValidateLogin(req request.LoginRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Email) == "" {
		errors["email"] = "email is required"
	}
	if req.Password == "" {
		errors["password"] = "password is required"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

func ValidateForgotPassword(req request.ForgotPasswordRequest) error {
	if !validEmail(req.Email) {
		return &Error{Fields: map[string]string{"email": "a valid email is required"}}
	}
	return nil
}

func ValidateResetPassword(req request.ResetPasswordRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Token) == "" {
		errors["token"] = "token is required"
	}
	validatePassword(errors, "password", req.Password)

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateUpdatePreferences validates a preferences update. The currency,
// when present, is expected to be normalized already.
func ValidateUpdatePreferences(req request.UpdatePreferencesRequest) error {
	errors := make(map[string]string)

	if req.DefaultCurrency == nil && req.EnableAlerts == nil {
		errors["preferences"] = "at least one preference must be provided"
	}
	if req.DefaultCurrency != nil && ValidateCurrency(*req.DefaultCurrency) != nil {
		errors["defaultCurrency"] = "unknown currency code"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateSetAlert validates an alert rule request.
func ValidateSetAlert(req request.SetAlertRequest) error {
	errors := make(map[string]string)

	if req.Symbol == "" {
		errors["symbol"] = "symbol is required"
	} else if ValidateSymbol(req.Symbol) != nil {
		errors["symbol"] = "invalid symbol: " + req.Symbol
	}

	if req.Threshold == nil {
		errors["threshold"] = "threshold is required"
	} else if !req.Threshold.IsPositive() {
		errors["threshold"] = "threshold must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
