package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"escrow-service/internal/adapter/memstore"
	"escrow-service/internal/domain"
	"escrow-service/internal/escrow"
	"escrow-service/internal/middleware"
)

var testStart = time.Date(2026, time.July, 6, 10, 0, 0, 0, time.UTC)

const testSecret = "handler-test-secret"

type testApp struct {
	*App
	now      *time.Time
	projects *memstore.ProjectStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	now := new(time.Time)
	*now = testStart
	clock := func() time.Time { return *now }

	projects := memstore.NewProjectStore()
	accounts := memstore.NewAccountStore()
	svc := escrow.NewService(projects, zerolog.Nop()).WithClock(clock)
	auth := escrow.NewAuthService(accounts, testSecret, time.Hour, zerolog.Nop()).WithClock(clock)

	return &testApp{
		App:      NewApp(svc, auth, nil, zerolog.Nop()),
		now:      now,
		projects: projects,
	}
}

func (ta *testApp) advance(d time.Duration) {
	*ta.now = ta.now.Add(d)
}

func (ta *testApp) register(t *testing.T, email, name string) *domain.Account {
	t.Helper()
	account, _, err := ta.Auth.Register(context.Background(), email, name, "password-1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return account
}

// doRequest invokes a handler directly, with an optional authenticated
// account and chi URL params injected into the request context.
func doRequest(t *testing.T, h http.HandlerFunc, method, target, accountID string, params map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	ctx := req.Context()
	if accountID != "" {
		ctx = middleware.ContextWithAccountID(ctx, accountID)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &body)
	return body.Error.Code
}

func (ta *testApp) createProject(t *testing.T, creator string, goal int64, days int, amounts ...int64) projectDTO {
	t.Helper()
	descriptions := make([]string, len(amounts))
	for i := range descriptions {
		descriptions[i] = fmt.Sprintf("phase %d", i+1)
	}
	rec := doRequest(t, ta.ProjectsCreate, http.MethodPost, "/v1/projects", creator, nil, projectCreateRequest{
		Title:                 "Reservoir Restoration",
		GoalAmount:            goal,
		DurationDays:          days,
		MilestoneDescriptions: descriptions,
		MilestoneAmounts:      amounts,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: status %d body %s", rec.Code, rec.Body)
	}
	var dto projectDTO
	decodeBody(t, rec, &dto)
	return dto
}

func (ta *testApp) fund(t *testing.T, projectID int64, accountID string, amount int64) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, ta.ProjectFund, http.MethodPost, "/v1/projects/1/fund", accountID,
		map[string]string{"id": fmt.Sprint(projectID)}, fundRequest{Amount: amount})
}
