package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dummy_device/device-go/internal/db"
	"dummy_device/device-go/internal/db/dbtest"
	"dummy_device/device-go/internal/device"
)

type wireDevice struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	DeviceType string          `json:"device_type"`
	State      json.RawMessage `json:"state"`
	CreatedAt  int64           `json:"created_at"`
	UpdatedAt  int64           `json:"updated_at"`
}

type wireEnvelope[T any] struct {
	Success bool    `json:"success"`
	Data    *T      `json:"data"`
	Error   *string `json:"error"`
}

func doJSON[T any](t *testing.T, router http.Handler, method, path, body string) (int, wireEnvelope[T]) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var env wireEnvelope[T]
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: decode body: %v\nbody=%s", method, path, err, rr.Body.String())
	}
	return rr.Code, env
}

func TestHandler_Postgres_DeviceLifecycle(t *testing.T) {
	pool, _ := dbtest.New(t, db.Options{MaxConns: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := zerolog.New(io.Discard)
	store := device.NewPostgresStore(log, pool, nil)
	if _, err := store.EnsureDefaults(ctx); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}

	router := NewHandler(log, store, pool, Options{}).Router()

	rrReady := httptest.NewRecorder()
	router.ServeHTTP(rrReady, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rrReady.Code != http.StatusOK {
		t.Fatalf("readyz expected 200, got %d: %s", rrReady.Code, rrReady.Body.String())
	}

	code, list := doJSON[[]wireDevice](t, router, http.MethodGet, "/devices", "")
	if code != http.StatusOK || list.Data == nil || len(*list.Data) != 4 {
		t.Fatalf("expected 4 seeded devices, got %d %+v", code, list)
	}

	code, created := doJSON[wireDevice](t, router, http.MethodPost, "/devices", `{"name":"Attic Light","deviceType":"LightBulb"}`)
	if code != http.StatusOK || !created.Success || created.Data == nil {
		t.Fatalf("create expected 200, got %d %+v", code, created)
	}
	if len(created.Data.ID) != 32 {
		t.Fatalf("expected 32-hex id, got %q", created.Data.ID)
	}
	if created.Data.CreatedAt != created.Data.UpdatedAt {
		t.Fatalf("expected equal timestamps on create")
	}

	code, list = doJSON[[]wireDevice](t, router, http.MethodGet, "/devices", "")
	if code != http.StatusOK || list.Data == nil || len(*list.Data) != 5 || (*list.Data)[0].ID != created.Data.ID {
		t.Fatalf("expected created device first in list of 5, got %d %+v", code, list.Data)
	}

	path := "/devices/" + created.Data.ID
	code, updated := doJSON[wireDevice](t, router, http.MethodPut, path+"/state", `{"state":{"on":true,"level":7}}`)
	if code != http.StatusOK || updated.Data == nil {
		t.Fatalf("update expected 200, got %d %+v", code, updated)
	}
	if updated.Data.UpdatedAt < updated.Data.CreatedAt {
		t.Fatalf("updated_at precedes created_at")
	}

	code, fetched := doJSON[wireDevice](t, router, http.MethodGet, path, "")
	if code != http.StatusOK || fetched.Data == nil {
		t.Fatalf("get expected 200, got %d %+v", code, fetched)
	}
	var state map[string]any
	if err := json.Unmarshal(fetched.Data.State, &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(state) != 2 || state["on"] != true || state["level"] != float64(7) {
		t.Fatalf("expected replaced state, got %v", state)
	}

	code, missing := doJSON[wireDevice](t, router, http.MethodGet, "/devices/00000000-0000-0000-0000-000000000099", "")
	if code != http.StatusNotFound || missing.Success || missing.Error == nil {
		t.Fatalf("expected 404 envelope, got %d %+v", code, missing)
	}

	code, bad := doJSON[wireDevice](t, router, http.MethodPost, "/devices", `{"name":"x","device_type":"Toaster"}`)
	if code != http.StatusBadRequest || bad.Success {
		t.Fatalf("expected 400 for unknown type, got %d %+v", code, bad)
	}
}
