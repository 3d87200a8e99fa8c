package mail

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
)

// PasswordReset builds the email carrying a reset link to clientURL.
func PasswordReset(to, name, clientURL, token string, ttl time.Duration) Message {
	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(clientURL, "/"), url.QueryEscape(token))

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	b.WriteString("We received a request to reset your password. Use the link below to choose a new one:\n\n")
	fmt.Fprintf(&b, "%s\n\n", link)
	fmt.Fprintf(&b, "The link expires in %d minutes and can be used once.\n", int(ttl.Minutes()))
	b.WriteString("If you did not request a reset you can ignore this email.\n")

	return Message{To: to, Subject: "Password reset request", Body: b.String()}
}

// PriceAlert builds one email listing every alert triggered for a user.
func PriceAlert(to, name string, alerts []model.TriggeredAlert) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	b.WriteString("The following price alerts were triggered:\n\n")
	for _, a := range alerts {
		fmt.Fprintf(&b, "  %s is at %s %s (threshold %s)\n",
			a.Symbol, a.Price.String(), strings.ToUpper(a.Currency), a.Threshold.String())
	}

	subject := "Price alert"
	if len(alerts) == 1 {
		subject = fmt.Sprintf("Price alert: %s reached %s", alerts[0].Symbol, alerts[0].Threshold.String())
	}
	return Message{To: to, Subject: subject, Body: b.String()}
}
