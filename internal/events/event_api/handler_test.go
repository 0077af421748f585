package event_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	"ms-events/internal/events/ical"
	"ms-events/internal/events/qr"
	"ms-events/internal/events/service"
	"ms-events/internal/logger"
	"ms-events/internal/utils"
)

var testNow = time.Date(2024, 5, 3, 6, 0, 0, 0, time.UTC)

func setupRouter(t *testing.T) (http.Handler, *event_api.Handler) {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })
	require.NoError(t, db.Migrate(context.Background(), bunDB))

	store := &db.DB{Bun: bunDB, Now: func() time.Time { return testNow }}
	svc := service.NewEventService(store, logger.Discard())
	svc.Now = func() time.Time { return testNow }

	h := event_api.NewHandler(svc, qr.NewGenerator("http://localhost:8080"),
		ical.Feed{Name: "Events", BaseURL: "http://localhost:8080"}, logger.Discard())

	r := chi.NewRouter()
	r.Use(event_api.RequestLogger(logger.Discard()))
	h.RegisterRoutes(r)
	return r, h
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func eventBody(name, date, from, to string) string {
	b, _ := json.Marshal(map[string]any{
		"name": name,
		"date": date,
		"from": from,
		"to":   to,
		"location": map[string]string{
			"street":    "1 George St",
			"suburb":    "Sydney",
			"state":     "NSW",
			"post-code": "2000",
		},
		"description": "test event",
	})
	return string(b)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) utils.ErrorResponse {
	var resp utils.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestCreateEvent(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodPost, "/events", eventBody("Party", "2024-05-04", "10:00:00", "12:00:00"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["id"])
	assert.Equal(t, "2024-05-03 06:00:00", resp["last-update"])
	links := resp["_links"].(map[string]any)
	assert.Equal(t, "/events/1", links["self"].(map[string]any)["href"])
}

func TestCreateEvent_BadRequests(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodPost, "/events", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, r, http.MethodPost, "/events", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, r, http.MethodPost, "/events", `{"name":"Party"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, "date is required", resp.Errors["date"])

	rr = do(t, r, http.MethodPost, "/events", eventBody("Party", "2024-05-04", "12:00:00", "10:00:00"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateEvent_Overlap(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodPost, "/events", eventBody("Party", "2024-05-04", "10:00:00", "12:00:00"))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, r, http.MethodPost, "/events", eventBody("Clash", "2024-05-04", "11:00:00", "13:00:00"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, "overlaps with event 1", resp.Errors["time_range"])

	// touching intervals do not overlap
	rr = do(t, r, http.MethodPost, "/events", eventBody("After", "2024-05-04", "12:00:00", "13:00:00"))
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestGetEvent(t *testing.T) {
	r, _ := setupRouter(t)
	do(t, r, http.MethodPost, "/events", eventBody("First", "2024-05-04", "10:00:00", "12:00:00"))
	do(t, r, http.MethodPost, "/events", eventBody("Second", "2024-05-05", "10:00:00", "12:00:00"))

	rr := do(t, r, http.MethodGet, "/events/1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "First", resp["name"])
	meta := resp["_metadata"].(map[string]any)
	assert.Equal(t, true, meta["weekend"])
	links := resp["_links"].(map[string]any)
	assert.Equal(t, "/events/2", links["next"].(map[string]any)["href"])
	assert.NotContains(t, links, "previous")
}

func TestGetEvent_NotFoundAndBadID(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodGet, "/events/42", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Event 42 doesn't exist", decodeError(t, rr).Message)

	rr = do(t, r, http.MethodGet, "/events/abc", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Errors, "id")
}

func TestUpdateEvent(t *testing.T) {
	r, _ := setupRouter(t)
	do(t, r, http.MethodPost, "/events", eventBody("Party", "2024-05-04", "10:00:00", "12:00:00"))

	rr := do(t, r, http.MethodPatch, "/events/1", `{"name":"Renamed"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, r, http.MethodGet, "/events/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Renamed", resp["name"])

	rr = do(t, r, http.MethodPatch, "/events/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, r, http.MethodPatch, "/events/9", `{"name":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteEvent(t *testing.T) {
	r, _ := setupRouter(t)
	do(t, r, http.MethodPost, "/events", eventBody("Party", "2024-05-04", "10:00:00", "12:00:00"))

	rr := do(t, r, http.MethodDelete, "/events/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp utils.MessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "The event with id 1 was removed from the database!", resp.Message)
	assert.Equal(t, int64(1), resp.ID)

	rr = do(t, r, http.MethodDelete, "/events/1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListEvents(t *testing.T) {
	r, _ := setupRouter(t)
	do(t, r, http.MethodPost, "/events", eventBody("B", "2024-05-04", "10:00:00", "12:00:00"))
	do(t, r, http.MethodPost, "/events", eventBody("A", "2024-05-05", "10:00:00", "12:00:00"))

	rr := do(t, r, http.MethodGet, "/events?order=-id&size=1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var page struct {
		Page     int              `json:"page"`
		PageSize int              `json:"page-size"`
		Events   []map[string]any `json:"events"`
		Links    map[string]struct {
			Href string `json:"href"`
		} `json:"_links"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.PageSize)
	require.Len(t, page.Events, 1)
	assert.Equal(t, float64(2), page.Events[0]["id"])
	assert.Contains(t, page.Links["next"].Href, "page=2")

	rr = do(t, r, http.MethodGet, "/events?page=3", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, r, http.MethodGet, "/events?order=id", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Errors, "order")
}

func TestStatistics(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodGet, "/events/statistics", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	do(t, r, http.MethodPost, "/events", eventBody("Party", "2024-05-04", "10:00:00", "12:00:00"))

	rr = do(t, r, http.MethodGet, "/events/statistics?format=json", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["total"])

	rr = do(t, r, http.MethodGet, "/events/statistics?format=image", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")))

	rr = do(t, r, http.MethodGet, "/events/statistics?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportCalendar(t *testing.T) {
	r, _ := setupRouter(t)
	do(t, r, http.MethodPost, "/events", eventBody("Party", "2024-05-04", "10:00:00", "12:00:00"))

	rr := do(t, r, http.MethodGet, "/events/export.ics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "events.ics")
	assert.Contains(t, rr.Body.String(), "SUMMARY:Party")
}

func TestEventQR(t *testing.T) {
	r, _ := setupRouter(t)
	do(t, r, http.MethodPost, "/events", eventBody("Party", "2024-05-04", "10:00:00", "12:00:00"))

	rr := do(t, r, http.MethodGet, "/events/1/qr", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	rr = do(t, r, http.MethodGet, "/events/5/qr", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEventFlyer(t *testing.T) {
	r, _ := setupRouter(t)
	do(t, r, http.MethodPost, "/events", eventBody("Party", "2024-05-04", "10:00:00", "12:00:00"))

	rr := do(t, r, http.MethodGet, "/events/1/flyer", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))

	rr = do(t, r, http.MethodGet, "/events/5/flyer", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWeather_Validation(t *testing.T) {
	r, _ := setupRouter(t)

	rr := do(t, r, http.MethodGet, "/weather", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, r, http.MethodGet, "/weather?date=2024-05-04&format=svg", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, r, http.MethodGet, "/weather?date=2030-01-01", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// no forecast client configured
	rr = do(t, r, http.MethodGet, "/weather?date=2024-05-04", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestHealth(t *testing.T) {
	r, h := setupRouter(t)

	rr := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	h.Ping = func(ctx context.Context) error { return errors.New("down") }
	rr = do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
