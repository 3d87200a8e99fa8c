package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/api/response"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/apperrors"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/model"
	"github.com/ndewijer/Crypto-Portfolio-Tracker-Backend/internal/testutil"
)

func setupTransactionHandler(t *testing.T, prices *testutil.StubPriceSource) (*TransactionHandler, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return NewTransactionHandler(testutil.NewTestTransactionService(t, db, prices)), db
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("creates a buy and normalizes input", func(t *testing.T) {
		handler, db := setupTransactionHandler(t, testutil.NewStubPriceSource())
		user := testutil.NewUser().Build(t, db)

		req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/crypto/transactions",
			`{"symbol":" Bitcoin ","type":"buy","amount":"0.5","unitPrice":"30000"}`), user)
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}
		tx := testutil.DecodeJSON[model.Transaction](t, w)
		if tx.Symbol != "bitcoin" || tx.Type != model.TransactionBuy || tx.OwnerID != user.ID {
			t.Errorf("Unexpected transaction: %+v", tx)
		}
		if !tx.Amount.Equal(testutil.Dec("0.5")) {
			t.Errorf("Expected amount 0.5, got %s", tx.Amount)
		}
	})

	t.Run("returns 400 with field details on invalid input", func(t *testing.T) {
		handler, db := setupTransactionHandler(t, testutil.NewStubPriceSource())
		user := testutil.NewUser().Build(t, db)

		req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/crypto/transactions",
			`{"symbol":"btc","type":"TRANSFER","amount":"-1"}`), user)
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
		}
		body := testutil.DecodeJSON[response.ErrorResponse](t, w)
		details, ok := body.Details.(map[string]any)
		if !ok || details["type"] == nil || details["amount"] == nil {
			t.Errorf("Expected type and amount details, got %#v", body.Details)
		}
	})

	t.Run("returns 400 for unknown fields", func(t *testing.T) {
		handler, db := setupTransactionHandler(t, testutil.NewStubPriceSource())
		user := testutil.NewUser().Build(t, db)

		req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/crypto/transactions",
			`{"symbol":"btc","type":"BUY","amount":"1","fee":"2"}`), user)
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("returns 422 for an oversell", func(t *testing.T) {
		handler, db := setupTransactionHandler(t, testutil.NewStubPriceSource())
		user := testutil.NewUser().Build(t, db)

		req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/crypto/transactions",
			`{"symbol":"btc","type":"SELL","amount":"1","unitPrice":"10"}`), user)
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("Expected 422, got %d: %s", w.Code, w.Body.String())
		}
		body := testutil.DecodeJSON[response.ErrorResponse](t, w)
		details, _ := body.Details.(map[string]any)
		if details["symbol"] != "btc" || details["shortfall"] != "1" {
			t.Errorf("Expected shortfall details, got %#v", body.Details)
		}
	})

	t.Run("returns 503 with Retry-After when the feed is down", func(t *testing.T) {
		handler, db := setupTransactionHandler(t, testutil.NewStubPriceSource().WithError(apperrors.ErrPriceUnavailable))
		user := testutil.NewUser().Build(t, db)

		req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/crypto/transactions",
			`{"symbol":"btc","type":"BUY","amount":"1"}`), user)
		w := httptest.NewRecorder()

		handler.CreateTransaction(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("Expected 503, got %d: %s", w.Code, w.Body.String())
		}
		if w.Header().Get("Retry-After") == "" {
			t.Error("Expected Retry-After header")
		}
	})
}

func TestTransactionHandler_ListAndGet(t *testing.T) {
	handler, db := setupTransactionHandler(t, testutil.NewStubPriceSource())
	user := testutil.NewUser().Build(t, db)
	other := testutil.NewUser().Build(t, db)
	tx := testutil.NewTransaction(user.ID).Build(t, db)

	t.Run("lists the user's transactions", func(t *testing.T) {
		req := testutil.AsUser(httptest.NewRequest(http.MethodGet, "/api/crypto/transactions", nil), user)
		w := httptest.NewRecorder()

		handler.ListTransactions(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		txs := testutil.DecodeJSON[[]model.Transaction](t, w)
		if len(txs) != 1 || txs[0].ID != tx.ID {
			t.Errorf("Unexpected list: %+v", txs)
		}
	})

	t.Run("gets one transaction", func(t *testing.T) {
		req := testutil.AsUser(testutil.NewRequestWithURLParams(http.MethodGet, "/api/crypto/transactions/"+tx.ID,
			map[string]string{"uuid": tx.ID}), user)
		w := httptest.NewRecorder()

		handler.GetTransaction(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 404 for someone else's transaction", func(t *testing.T) {
		req := testutil.AsUser(testutil.NewRequestWithURLParams(http.MethodGet, "/api/crypto/transactions/"+tx.ID,
			map[string]string{"uuid": tx.ID}), other)
		w := httptest.NewRecorder()

		handler.GetTransaction(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})
}

func TestTransactionHandler_Transfer(t *testing.T) {
	t.Run("moves holdings to the receiver", func(t *testing.T) {
		handler, db := setupTransactionHandler(t, testutil.NewStubPriceSource().WithPrice("btc", "usd", "100"))
		sender := testutil.NewUser().Build(t, db)
		receiver := testutil.NewUser().Build(t, db)
		testutil.CreateHolding(t, db, sender.ID, "btc", "2")

		req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/crypto/transfer", map[string]string{
			"receiverId": receiver.ID, "symbol": "BTC", "amount": "1.5",
		}), sender)
		w := httptest.NewRecorder()

		handler.Transfer(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
		}
		result := testutil.DecodeJSON[model.TransferResult](t, w)
		if !result.ReceiverHolding.Amount.Equal(testutil.Dec("1.5")) {
			t.Errorf("Expected receiver holding 1.5, got %s", result.ReceiverHolding.Amount)
		}
	})

	t.Run("returns 422 for a self transfer", func(t *testing.T) {
		handler, db := setupTransactionHandler(t, testutil.NewStubPriceSource().WithPrice("btc", "usd", "100"))
		sender := testutil.NewUser().Build(t, db)

		req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/crypto/transfer", map[string]string{
			"receiverId": sender.ID, "symbol": "btc", "amount": "1",
		}), sender)
		w := httptest.NewRecorder()

		handler.Transfer(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Expected 422, got %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("returns 404 for an unknown receiver", func(t *testing.T) {
		handler, db := setupTransactionHandler(t, testutil.NewStubPriceSource().WithPrice("btc", "usd", "100"))
		sender := testutil.NewUser().Build(t, db)

		req := testutil.AsUser(testutil.NewJSONRequest(t, http.MethodPost, "/api/crypto/transfer", map[string]string{
			"receiverId": testutil.MakeID(), "symbol": "btc", "amount": "1",
		}), sender)
		w := httptest.NewRecorder()

		handler.Transfer(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d: %s", w.Code, w.Body.String())
		}
	})
}

// WHY: filters are parsed from the query string; a bad filter must be a 400
// rather than silently returning the full log.
func TestTransactionHandler_ListFiltered(t *testing.T) {
	handler, db := setupTransactionHandler(t, testutil.NewStubPriceSource())
	user := testutil.NewUser().Build(t, db)

	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	first := testutil.NewTransaction(user.ID).Buy("btc", "2", "100").At(day).Build(t, db)
	testutil.NewTransaction(user.ID).Buy("eth", "5", "10").At(day.Add(time.Hour)).Build(t, db)
	last := testutil.NewTransaction(user.ID).Sell("btc", "1", "120").At(day.AddDate(0, 0, 2)).Build(t, db)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"by symbol", "?symbols=BTC", []string{first.ID, last.ID}},
		{"by symbol newest first", "?symbols=btc&sort_dir=desc", []string{last.ID, first.ID}},
		{"by type", "?types=sell", []string{last.ID}},
		{"by date range", "?start_date=2024-03-02&end_date=2024-03-03", []string{last.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AsUser(httptest.NewRequest(http.MethodGet, "/api/crypto/transactions"+tt.query, nil), user)
			w := httptest.NewRecorder()

			handler.ListTransactions(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
			}
			txs := testutil.DecodeJSON[[]model.Transaction](t, w)
			if len(txs) != len(tt.wantIDs) {
				t.Fatalf("Expected %d transactions, got %d", len(tt.wantIDs), len(txs))
			}
			for i, id := range tt.wantIDs {
				if txs[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, txs[i].ID)
				}
			}
		})
	}

	t.Run("malformed filter returns 400", func(t *testing.T) {
		req := testutil.AsUser(httptest.NewRequest(http.MethodGet, "/api/crypto/transactions?types=swap", nil), user)
		w := httptest.NewRecorder()

		handler.ListTransactions(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}
