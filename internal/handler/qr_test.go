package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trovoapp/family-qr/internal/handler"
	"github.com/trovoapp/family-qr/internal/model"
	"github.com/trovoapp/family-qr/internal/repository"
	"github.com/trovoapp/family-qr/internal/router"
	"github.com/trovoapp/family-qr/internal/service"
	"github.com/trovoapp/family-qr/internal/store"
)

const (
	testID     = "11111-22222-33333-44444"
	testSecret = "sesame"
)

// envelope mirrors the response shape shared by every endpoint.
type envelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Data json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	repo := repository.NewQrRepo(store.NewMemory())
	qr := model.NewQrCode(testID, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	if err := repo.CreateBatch(context.Background(), []model.QrCode{qr}); err != nil {
		t.Fatalf("seed qr: %v", err)
	}
	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterQr(e, handler.NewQrHandler(service.NewQrService(repo, testSecret)))
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec, env
}

func TestGetRejectsInvalidID(t *testing.T) {
	e := newTestServer(t)
	rec, env := doJSON(t, e, http.MethodGet, "/v1/qr/not-a-real-id", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "bad-request/invalid-id" {
		t.Fatalf("error = %+v, want bad-request/invalid-id", env.Error)
	}
}

func TestGetRejectsMissingID(t *testing.T) {
	e := newTestServer(t)
	rec, env := doJSON(t, e, http.MethodGet, "/v1/qr", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "bad-request/missing-id" {
		t.Fatalf("error = %+v, want bad-request/missing-id", env.Error)
	}
}

func TestGetUnknownCode(t *testing.T) {
	e := newTestServer(t)
	rec, env := doJSON(t, e, http.MethodGet, "/v1/qr/99999-99999-99999-99999", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "bad-request/not-found" {
		t.Fatalf("error = %+v, want bad-request/not-found", env.Error)
	}
}

func TestClaimAndReleaseFlow(t *testing.T) {
	e := newTestServer(t)

	rec, env := doJSON(t, e, http.MethodPost, "/v1/qr/"+testID+"/slots", `{"uid":"alice"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("claim status = %d, want 201", rec.Code)
	}
	var qr model.QrCode
	if err := json.Unmarshal(env.Data, &qr); err != nil {
		t.Fatalf("decode claim payload: %v", err)
	}
	if qr.Slots[0].UID == nil || *qr.Slots[0].UID != "alice" {
		t.Fatalf("slot 0 holder = %v, want alice", qr.Slots[0].UID)
	}
	if qr.RegisteredBy == nil || *qr.RegisteredBy != "alice" {
		t.Fatalf("registeredBy = %v, want alice", qr.RegisteredBy)
	}

	// Claiming twice with the same uid is rejected.
	rec, env = doJSON(t, e, http.MethodPost, "/v1/qr/"+testID+"/slots", `{"uid":"alice"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("duplicate claim status = %d, want 403", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "forbidden/already-registered" {
		t.Fatalf("error = %+v, want forbidden/already-registered", env.Error)
	}

	rec, env = doJSON(t, e, http.MethodDelete, "/v1/qr/"+testID+"/slots", `{"uid":"alice"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("release status = %d, want 201", rec.Code)
	}
	if err := json.Unmarshal(env.Data, &qr); err != nil {
		t.Fatalf("decode release payload: %v", err)
	}
	if !qr.Slots[0].Empty {
		t.Fatalf("slot 0 not empty after release: %+v", qr.Slots[0])
	}
	if qr.RegisteredBy == nil || *qr.RegisteredBy != "alice" {
		t.Fatalf("registeredBy after release = %v, want alice (sticky)", qr.RegisteredBy)
	}
	if len(qr.Scans) != 2 {
		t.Fatalf("scan count = %d, want 2", len(qr.Scans))
	}
}

func TestClaimRequiresUID(t *testing.T) {
	e := newTestServer(t)
	rec, env := doJSON(t, e, http.MethodPost, "/v1/qr/"+testID+"/slots", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "bad-request/missing-uid" {
		t.Fatalf("error = %+v, want bad-request/missing-uid", env.Error)
	}

	// The uid check precedes the identifier shape check, so a request that
	// is wrong on both counts still reports the missing uid.
	rec, env = doJSON(t, e, http.MethodPost, "/v1/qr/not-a-real-id/slots", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "bad-request/missing-uid" {
		t.Fatalf("error = %+v, want bad-request/missing-uid", env.Error)
	}
}

func TestReleaseUnknownUser(t *testing.T) {
	e := newTestServer(t)
	rec, env := doJSON(t, e, http.MethodDelete, "/v1/qr/"+testID+"/slots", `{"uid":"mallory"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "not-found/user-not-registered" {
		t.Fatalf("error = %+v, want not-found/user-not-registered", env.Error)
	}
}

func TestGenerateBatch(t *testing.T) {
	e := newTestServer(t)

	rec, env := doJSON(t, e, http.MethodPost, "/v1/qr", `{"auth":"wrong","quantity":2}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "internal/unauthorized" {
		t.Fatalf("error = %+v, want internal/unauthorized", env.Error)
	}

	// Quantity may arrive as a numeric string; the success payload reports
	// the effective quantity.
	rec, env = doJSON(t, e, http.MethodPost, "/v1/qr", `{"auth":"sesame","quantity":"3"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var data struct {
		Status   string `json:"status"`
		Quantity int    `json:"quantity"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if data.Status != "success" || data.Quantity != 3 {
		t.Fatalf("payload = %+v, want status=success quantity=3", data)
	}

	// Absent quantity defaults to one.
	rec, env = doJSON(t, e, http.MethodPost, "/v1/qr", `{"auth":"sesame"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if data.Quantity != 1 {
		t.Fatalf("default quantity = %d, want 1", data.Quantity)
	}
}
