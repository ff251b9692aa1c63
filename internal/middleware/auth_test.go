package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atinyakov/GophBank/internal/models"
)

var testSecret = []byte("test-secret")

// dummyHandler records whether it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestBearerAuth_PublicPathBypass(t *testing.T) {
	dummy := &dummyHandler{}
	h := BearerAuth(testSecret, "/api/v1/users/login")(dummy)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil))

	if !dummy.called {
		t.Error("expected next handler to be called for a public path")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 OK, got %d", rec.Code)
	}
}

func TestBearerAuth_Rejections(t *testing.T) {
	expired, err := NewToken(testSecret, models.User{ID: "u1", Username: "alice"}, -time.Minute)
	if err != nil {
		t.Fatalf("NewToken returned error: %v", err)
	}
	foreign, err := NewToken([]byte("other"), models.User{ID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("NewToken returned error: %v", err)
	}

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{"no header", "", "Missing Authorization Header"},
		{"wrong scheme", "Basic abc", "Missing Authorization Header"},
		{"garbage", "Bearer not-a-token", "Invalid token"},
		{"wrong secret", "Bearer " + foreign, "Invalid token"},
		{"expired", "Bearer " + expired, "Token has expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := BearerAuth(testSecret)(dummy)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if dummy.called {
				t.Error("did not expect next handler to be called")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
			if got := decodeBody(t, rec)["msg"]; got != tt.msg {
				t.Errorf("msg = %q; want %q", got, tt.msg)
			}
		})
	}
}

func TestBearerAuth_ValidToken(t *testing.T) {
	token, err := NewToken(testSecret, models.User{ID: "u1", Username: "alice", Role: models.RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("NewToken returned error: %v", err)
	}
	dummy := &dummyHandler{}
	h := BearerAuth(testSecret)(dummy)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !dummy.called {
		t.Fatal("expected next handler to be called with a valid token")
	}
	c := ClaimsFromContext(dummy.ctx)
	if c == nil || c.UserID != "u1" || c.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", c)
	}
	if !c.IsAdmin() {
		t.Error("expected admin claims")
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name   string
		claims *Claims
		want   int
	}{
		{"anonymous", nil, http.StatusForbidden},
		{"member", &Claims{UserID: "u1", Role: models.RoleMember}, http.StatusForbidden},
		{"admin", &Claims{UserID: "u2", Role: models.RoleAdmin}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			RequireAdmin(dummy).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d; want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusForbidden {
				if got := decodeBody(t, rec)["message"]; got != "admin access required" {
					t.Errorf("message = %q", got)
				}
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	dummy := &dummyHandler{}
	h := RequestID(dummy)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc" {
		t.Errorf("echoed id = %q; want abc", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get(RequestIDHeader); len(got) != 36 {
		t.Errorf("generated id = %q; want a uuid", got)
	}
}

func TestWithRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("tea"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", nil)
	req.Header.Set(RequestIDHeader, "rid")
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("status field = %v", fields["status"])
	}
	if fields["size"] != int64(3) {
		t.Errorf("size field = %v", fields["size"])
	}
	if fields["method"] != http.MethodPost || fields["request_id"] != "rid" {
		t.Errorf("unexpected fields: %v", fields)
	}
}
