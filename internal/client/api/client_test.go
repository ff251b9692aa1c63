package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/models"
)

// roundTripperFunc makes it easy to stub http.Client.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripperFunc) *Client {
	return New("http://bank.test/", &http.Client{Transport: fn, Timeout: time.Second})
}

func jsonResponse(status int, body any) *http.Response {
	b, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(b)),
	}
}

func TestLogin_Success(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.String() != "http://bank.test/api/v1/users/login" {
			t.Errorf("unexpected URL: %s", req.URL)
		}
		if req.Header.Get("Authorization") != "" {
			t.Error("login must not carry a bearer token")
		}
		var in map[string]string
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode request failed: %v", err)
		}
		if in["username"] != "alice" || in["password"] != "secret" {
			t.Errorf("unexpected credentials: %v", in)
		}
		return jsonResponse(http.StatusOK, map[string]any{
			"token": "tok",
			"user":  map[string]any{"user_id": "u1", "username": "alice", "role": "user"},
		}), nil
	})
	c.SetToken("stale")

	res, err := c.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Token != "tok" || res.User.ID != "u1" || res.User.Role != models.RoleMember {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	hookCalled := false
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, map[string]string{"error": "invalid username or password"}), nil
	})
	c.OnUnauthorized(func() { hookCalled = true })

	_, err := c.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if apperr.Message(err) != "invalid username or password" {
		t.Errorf("message = %q", apperr.Message(err))
	}
	if hookCalled {
		t.Error("unauthenticated calls must not trigger the expiry hook")
	}
}

func TestAuthenticatedCall_Unauthorized(t *testing.T) {
	hookCalled := 0
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		return jsonResponse(http.StatusUnauthorized, map[string]string{"msg": "Token has expired"}), nil
	})
	c.SetToken("tok")
	c.OnUnauthorized(func() { hookCalled++ })

	_, err := c.Accounts(context.Background(), AccountFilter{})
	if !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if hookCalled != 1 {
		t.Errorf("hook called %d times; want 1", hookCalled)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		kind    error
		message string
	}{
		{"validation", http.StatusBadRequest, map[string]string{"error": "Insufficient funds"}, apperr.ErrValidation, "Insufficient funds"},
		{"admin guard", http.StatusForbidden, map[string]string{"message": "admin access required"}, apperr.ErrValidation, "admin access required"},
		{"not found", http.StatusNotFound, map[string]string{"error": "account not found"}, apperr.ErrValidation, "account not found"},
		{"server", http.StatusInternalServerError, map[string]string{"error": "failed to process withdrawal"}, apperr.ErrServer, "failed to process withdrawal"},
		{"token check", http.StatusUnauthorized, map[string]string{"msg": "Invalid token"}, apperr.ErrAuth, "Invalid token"},
		{"bare server", http.StatusBadGateway, nil, apperr.ErrServer, "bad gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(func(req *http.Request) (*http.Response, error) {
				if tt.body == nil {
					return &http.Response{StatusCode: tt.status, Body: io.NopCloser(strings.NewReader(""))}, nil
				}
				return jsonResponse(tt.status, tt.body), nil
			})
			err := c.Withdraw(context.Background(), "a1", decimal.NewFromInt(5), "")
			if !errors.Is(err, tt.kind) {
				t.Fatalf("error = %v; want kind %v", err, tt.kind)
			}
			if got := apperr.Message(err); got != tt.message {
				t.Errorf("message = %q; want %q", got, tt.message)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("network down")
	})
	_, err := c.Profile(context.Background())
	if !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestInvalidJSON(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("not-json"))}, nil
	})
	_, err := c.Loans(context.Background(), false)
	if !errors.Is(err, apperr.ErrNetwork) || !strings.Contains(err.Error(), "invalid response") {
		t.Fatalf("expected invalid response error, got %v", err)
	}
}

func TestRequestShapes(t *testing.T) {
	type seen struct {
		method, path, query string
		body                map[string]any
	}
	var got seen
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		got = seen{method: req.Method, path: req.URL.Path, query: req.URL.RawQuery}
		if req.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		if req.Body != nil {
			_ = json.NewDecoder(req.Body).Decode(&got.body)
		}
		return jsonResponse(http.StatusOK, map[string]any{}), nil
	})
	ctx := context.Background()

	cases := []struct {
		name   string
		call   func() error
		method string
		path   string
		query  string
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "transfer",
			call:   func() error { return c.Transfer(ctx, models.Transfer{FromAccountID: "A", ToAccountID: "B", Amount: decimal.NewFromInt(40)}) },
			method: http.MethodPost, path: "/api/v1/accounts/transfer",
			check: func(t *testing.T, body map[string]any) {
				if body["from_account_id"] != "A" || body["to_account_id"] != "B" {
					t.Errorf("unexpected transfer body: %v", body)
				}
			},
		},
		{
			name:   "all accounts",
			call:   func() error { _, err := c.Accounts(ctx, AccountFilter{All: true}); return err },
			method: http.MethodGet, path: "/api/v1/accounts", query: "all=true",
		},
		{
			name:   "accounts of user",
			call:   func() error { _, err := c.Accounts(ctx, AccountFilter{UserID: "u9"}); return err },
			method: http.MethodGet, path: "/api/v1/accounts", query: "user_id=u9",
		},
		{
			name:   "all loans",
			call:   func() error { _, err := c.Loans(ctx, true); return err },
			method: http.MethodGet, path: "/api/v1/loans", query: "all=true",
		},
		{
			name:   "loan payment",
			call:   func() error { return c.MakeLoanPayment(ctx, "L1", decimal.NewFromInt(100), "A") },
			method: http.MethodPost, path: "/api/v1/loans/L1/payment",
			check: func(t *testing.T, body map[string]any) {
				if body["account_id"] != "A" {
					t.Errorf("unexpected payment body: %v", body)
				}
			},
		},
		{
			name:   "delete user",
			call:   func() error { return c.DeleteUser(ctx, "u2") },
			method: http.MethodDelete, path: "/api/v1/users/u2",
		},
		{
			name:   "close account",
			call:   func() error { return c.CloseAccount(ctx, "A") },
			method: http.MethodPost, path: "/api/v1/accounts/A/close",
		},
		{
			name:   "activate loan",
			call:   func() error { return c.ActivateLoan(ctx, "L1") },
			method: http.MethodPost, path: "/api/v1/loans/L1/activate",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got = seen{}
			if err := tc.call(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.method != tc.method || got.path != tc.path || got.query != tc.query {
				t.Errorf("request = %s %s?%s; want %s %s?%s", got.method, got.path, got.query, tc.method, tc.path, tc.query)
			}
			if tc.check != nil {
				tc.check(t, got.body)
			}
		})
	}
}

func TestListDecoding(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/api/v1/accounts/user/transactions":
			return jsonResponse(http.StatusOK, map[string]any{"transactions": []map[string]any{
				{"transaction_id": "t1", "account_id": "A", "transaction_type": "deposit", "amount": 10.5, "created_at": "2024-01-01T00:00:00"},
			}}), nil
		case "/api/v1/loans/L1/payment-amount":
			return jsonResponse(http.StatusOK, map[string]any{"payment_amount": 86.07}), nil
		}
		return jsonResponse(http.StatusNotFound, map[string]string{"error": "not found"}), nil
	})

	txs, err := c.UserTransactions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 || !txs[0].Amount.Equal(decimal.RequireFromString("10.5")) {
		t.Errorf("unexpected transactions: %+v", txs)
	}

	p, err := c.LoanPayment(context.Background(), "L1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Equal(decimal.RequireFromString("86.07")) {
		t.Errorf("payment = %s", p)
	}
}
