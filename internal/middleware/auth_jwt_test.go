package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"escrow-service/internal/infra"
)

func TestAuthJWT(t *testing.T) {
	const secret = "test-secret"

	token, err := infra.GenerateToken("acct-1", secret, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	foreign, err := infra.GenerateToken("acct-1", "other-secret", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	expired, err := infra.GenerateToken("acct-1", secret, time.Hour, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantID     string
	}{
		{
			name:       "valid token",
			header:     "Bearer " + token,
			wantStatus: http.StatusOK,
			wantID:     "acct-1",
		},
		{
			name:       "case-insensitive scheme",
			header:     "bearer " + token,
			wantStatus: http.StatusOK,
			wantID:     "acct-1",
		},
		{
			name:       "missing header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic " + token,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			header:     "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			header:     "Bearer " + foreign,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			header:     "Bearer " + expired,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotID string
			h := AuthJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID = AccountIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status: got %d want %d", rec.Code, tc.wantStatus)
			}
			if gotID != tc.wantID {
				t.Fatalf("account id: got %q want %q", gotID, tc.wantID)
			}
		})
	}
}

func TestOptionalAuthJWT(t *testing.T) {
	const secret = "test-secret"

	token, err := infra.GenerateToken("acct-1", secret, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
		wantID string
	}{
		{name: "valid token", header: "Bearer " + token, wantID: "acct-1"},
		{name: "no header", header: "", wantID: ""},
		{name: "garbage token", header: "Bearer not.a.token", wantID: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotID string
			h := OptionalAuthJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID = AccountIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d want %d", rec.Code, http.StatusOK)
			}
			if gotID != tc.wantID {
				t.Fatalf("account id: got %q want %q", gotID, tc.wantID)
			}
		})
	}
}

func TestAccountIDFromContextDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := AccountIDFromContext(req.Context()); got != "" {
		t.Fatalf("AccountIDFromContext() = %q, want empty", got)
	}
}
