package service_test

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/request"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/testutil"
)

// resetTokenFrom pulls the reset token out of the link in a reset email.
func resetTokenFrom(t *testing.T, body string) string {
	t.Helper()

	_, after, ok := strings.Cut(body, "token=")
	if !ok {
		t.Fatalf("No reset link in mail body: %q", body)
	}
	raw, _, _ := strings.Cut(after, "\n")
	token, err := url.QueryUnescape(strings.TrimSpace(raw))
	if err != nil {
		t.Fatalf("Failed to unescape reset token: %v", err)
	}
	return token
}

// TestAuthService_Login tests credential checks.
//
// WHY: Login must not reveal whether the email or the password was wrong.
func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name     string
		inactive bool
		email    func(email string) string
		password string
		wantErr  error
	}{
		{name: "valid credentials", email: func(e string) string { return e }, password: testutil.DefaultPassword},
		{name: "wrong password", email: func(e string) string { return e }, password: "wrong", wantErr: apperrors.ErrInvalidCredentials},
		{name: "unknown email", email: func(string) string { return "nobody@example.com" }, password: testutil.DefaultPassword, wantErr: apperrors.ErrInvalidCredentials},
		{name: "inactive account", inactive: true, email: func(e string) string { return e }, password: testutil.DefaultPassword, wantErr: apperrors.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			svc := testutil.NewTestAuthService(t, db, testutil.NewRecordingMailer())
			builder := testutil.NewUser()
			if tt.inactive {
				builder = builder.Inactive()
			}
			user := builder.Build(t, db)

			pair, err := svc.Login(t.Context(), request.LoginRequest{Email: tt.email(user.Email), Password: tt.password})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() returned unexpected error: %v", err)
			}
			if pair.AccessToken == "" || pair.RefreshToken == "" {
				t.Errorf("Expected both tokens, got %+v", pair)
			}
			if pair.ExpiresIn != 900 {
				t.Errorf("Expected expiresIn 900, got %d", pair.ExpiresIn)
			}

			authed, err := svc.Authenticate(t.Context(), pair.AccessToken)
			if err != nil {
				t.Fatalf("Authenticate() returned unexpected error: %v", err)
			}
			if authed.ID != user.ID {
				t.Errorf("Expected user %s, got %s", user.ID, authed.ID)
			}
		})
	}
}

// TestAuthService_Refresh tests refresh token rotation.
func TestAuthService_Refresh(t *testing.T) {
	t.Run("rotates and rejects the previous token", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db, testutil.NewRecordingMailer())
		user := testutil.NewUser().Build(t, db)
		first, err := svc.Login(t.Context(), request.LoginRequest{Email: user.Email, Password: testutil.DefaultPassword})
		if err != nil {
			t.Fatalf("Login() returned unexpected error: %v", err)
		}

		second, err := svc.Refresh(t.Context(), request.RefreshRequest{RefreshToken: first.RefreshToken})
		if err != nil {
			t.Fatalf("Refresh() returned unexpected error: %v", err)
		}
		if second.RefreshToken == first.RefreshToken {
			t.Error("Expected a new refresh token")
		}

		_, err = svc.Refresh(t.Context(), request.RefreshRequest{RefreshToken: first.RefreshToken})
		if !errors.Is(err, apperrors.ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken for a reused token, got %v", err)
		}
	})

	t.Run("logout revokes the refresh token", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db, testutil.NewRecordingMailer())
		user := testutil.NewUser().Build(t, db)
		pair, err := svc.Login(t.Context(), request.LoginRequest{Email: user.Email, Password: testutil.DefaultPassword})
		if err != nil {
			t.Fatalf("Login() returned unexpected error: %v", err)
		}

		if err := svc.Logout(t.Context(), user.ID); err != nil {
			t.Fatalf("Logout() returned unexpected error: %v", err)
		}

		_, err = svc.Refresh(t.Context(), request.RefreshRequest{RefreshToken: pair.RefreshToken})
		if !errors.Is(err, apperrors.ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken after logout, got %v", err)
		}
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db, testutil.NewRecordingMailer())
		user := testutil.NewUser().Build(t, db)
		pair, err := svc.Login(t.Context(), request.LoginRequest{Email: user.Email, Password: testutil.DefaultPassword})
		if err != nil {
			t.Fatalf("Login() returned unexpected error: %v", err)
		}

		_, err = svc.Refresh(t.Context(), request.RefreshRequest{RefreshToken: pair.AccessToken})

		if !errors.Is(err, apperrors.ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})
}

// TestAuthService_PasswordReset tests the forgot and reset flow.
func TestAuthService_PasswordReset(t *testing.T) {
	t.Run("reset link sets a new password once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		mailer := testutil.NewRecordingMailer()
		svc := testutil.NewTestAuthService(t, db, mailer)
		user := testutil.NewUser().Build(t, db)

		if err := svc.ForgotPassword(t.Context(), request.ForgotPasswordRequest{Email: user.Email}); err != nil {
			t.Fatalf("ForgotPassword() returned unexpected error: %v", err)
		}
		sent := mailer.Sent()
		if len(sent) != 1 || sent[0].To != user.Email {
			t.Fatalf("Expected one reset mail to %s, got %+v", user.Email, sent)
		}
		token := resetTokenFrom(t, sent[0].Body)

		if err := svc.ResetPassword(t.Context(), request.ResetPasswordRequest{Token: token, Password: "a-brand-new-secret"}); err != nil {
			t.Fatalf("ResetPassword() returned unexpected error: %v", err)
		}

		if _, err := svc.Login(t.Context(), request.LoginRequest{Email: user.Email, Password: "a-brand-new-secret"}); err != nil {
			t.Errorf("Login with new password failed: %v", err)
		}
		if _, err := svc.Login(t.Context(), request.LoginRequest{Email: user.Email, Password: testutil.DefaultPassword}); !errors.Is(err, apperrors.ErrInvalidCredentials) {
			t.Errorf("Expected old password to be rejected, got %v", err)
		}

		err := svc.ResetPassword(t.Context(), request.ResetPasswordRequest{Token: token, Password: "yet-another-secret"})
		if !errors.Is(err, apperrors.ErrInvalidToken) {
			t.Errorf("Expected reused token to be rejected, got %v", err)
		}
	})

	t.Run("unknown email reports success without mail", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		mailer := testutil.NewRecordingMailer()
		svc := testutil.NewTestAuthService(t, db, mailer)

		err := svc.ForgotPassword(t.Context(), request.ForgotPasswordRequest{Email: "ghost@example.com"})

		if err != nil {
			t.Errorf("Expected nil error, got %v", err)
		}
		if len(mailer.Sent()) != 0 {
			t.Errorf("Expected no mail, got %d", len(mailer.Sent()))
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestAuthService(t, db, testutil.NewRecordingMailer())

		err := svc.ResetPassword(t.Context(), request.ResetPasswordRequest{Token: "not-a-token", Password: "whatever-long"})

		if !errors.Is(err, apperrors.ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})
}
