package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"brick-tracker/internal/alerts"
	"brick-tracker/internal/metrics"
	"brick-tracker/internal/snapshot"
)

var (
	t0  = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	now = time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingReader struct{}

func (failingReader) Load(context.Context, int) ([]snapshot.Snapshot, error) {
	return nil, errors.New("boom")
}

func fixture() snapshot.Memory {
	return snapshot.Memory{
		snapshot.New(t0, []snapshot.ItemRecord{
			{ID: "X", Name: "Item X", ReferencePrice: 100, CurrentPrice: 110, RetirementEstimate: "Q2 2025"},
			{ID: "Y", Name: "Item Y", ReferencePrice: 50, CurrentPrice: 50},
		}),
		snapshot.New(t0.AddDate(0, 0, 10), []snapshot.ItemRecord{
			{ID: "X", Name: "Item X", ReferencePrice: 100, CurrentPrice: 95, RetirementEstimate: "Q2 2025"},
			{ID: "Y", Name: "Item Y", ReferencePrice: 50, CurrentPrice: 70, RetiredMarker: "2025-05"},
			{ID: "N", Name: "New", ReferencePrice: 20, CurrentPrice: 20, RetirementEstimate: "late 2027"},
		}),
	}
}

func newTestRouter(t *testing.T, reader snapshot.Reader) (*gin.Engine, *Hub) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	h := NewHandler(Options{
		Reader: reader,
		Policy: metrics.ApproachingPolicy{Horizon: 90 * 24 * time.Hour},
		Hub:    hub,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return now },
	})
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "brick_tracker_test_total", Help: "test"}))
	return NewRouter(h, reg), hub
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGetAlerts(t *testing.T) {
	r, _ := newTestRouter(t, fixture())
	w := get(t, r, "/api/v1/alerts")
	require.Equal(t, http.StatusOK, w.Code)

	var res alerts.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, alerts.StatusOK, res.Status)
	assert.Len(t, res.Alerts[alerts.KindBuyingOpportunity], 1)
	assert.Len(t, res.Alerts[alerts.KindNewlyRetired], 1)
	assert.Len(t, res.Alerts[alerts.KindRetirement], 1)
}

func TestGetAlerts_Series(t *testing.T) {
	r, _ := newTestRouter(t, fixture())
	w := get(t, r, "/api/v1/alerts?series=true")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status    alerts.Status   `json:"status"`
		Snapshots int             `json:"snapshots"`
		Results   []alerts.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, alerts.StatusOK, body.Status)
	assert.Equal(t, 2, body.Snapshots)
	assert.Len(t, body.Results, 1)
}

func TestGetAlerts_InsufficientData(t *testing.T) {
	r, _ := newTestRouter(t, fixture()[:1])

	w := get(t, r, "/api/v1/alerts")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"insufficient_data"`)

	w = get(t, r, "/api/v1/alerts?series=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"results":[]`)

	w = get(t, r, "/api/v1/alerts/report")
	assert.Contains(t, w.Body.String(), "Insufficient data")
}

func TestGetAlerts_LoadError(t *testing.T) {
	r, _ := newTestRouter(t, failingReader{})
	w := get(t, r, "/api/v1/alerts")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetAlertReport(t *testing.T) {
	r, _ := newTestRouter(t, fixture())
	w := get(t, r, "/api/v1/alerts/report")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "== Buying Opportunities (1) ==")

	w = get(t, r, "/api/v1/alerts/report?series=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alert report:")
}

func TestGetItemHistory(t *testing.T) {
	r, _ := newTestRouter(t, fixture())

	w := get(t, r, "/api/v1/items/X/history")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		ItemID  string `json:"item_id"`
		Summary struct {
			DaysTracked int `json:"days_tracked"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "X", body.ItemID)
	assert.Equal(t, 10, body.Summary.DaysTracked)

	w = get(t, r, "/api/v1/items/N/history?format=text")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient history")

	w = get(t, r, "/api/v1/items/ghost/history")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetApproaching(t *testing.T) {
	r, _ := newTestRouter(t, fixture())

	w := get(t, r, "/api/v1/approaching")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []approachingView `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 1, "Y is retired and N is years away")
	assert.Equal(t, "X", body.Items[0].ItemID)
	assert.Equal(t, metrics.ApproachSoon, body.Items[0].Approach)

	w = get(t, r, "/api/v1/approaching?horizon_days=10")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Items)

	w = get(t, r, "/api/v1/approaching?format=text")
	assert.Contains(t, w.Body.String(), "Item X (X)")

	w = get(t, r, "/api/v1/approaching?horizon_days=soon")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportWorkbook(t *testing.T) {
	r, _ := newTestRouter(t, fixture())
	w := get(t, r, "/api/v1/export.xlsx")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Alerts", "History X", "History Y", "History N"}, f.GetSheetList())
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t, fixture())

	w := get(t, r, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = get(t, r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "brick_tracker_test_total")
}

func TestHub_Broadcast(t *testing.T) {
	r, hub := newTestRouter(t, fixture())
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	ev := alerts.Event{Kind: alerts.KindRetirement, Priority: alerts.PriorityHigh, ItemID: "Y", Message: "Item Y retired (2025-05)"}
	require.NoError(t, hub.Notify(context.Background(), []alerts.Event{ev}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var msg hubMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "alerts", msg.Type)
	require.Len(t, msg.Events, 1)
	assert.Equal(t, "Y", msg.Events[0].ItemID)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	stalled := &hubClient{send: make(chan []byte)}
	hub.clients[stalled] = struct{}{}

	ev := alerts.Event{Kind: alerts.KindRetirement, ItemID: "Y"}
	done := make(chan error, 1)
	go func() { done <- hub.Notify(context.Background(), []alerts.Event{ev}) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a client that is not reading")
	}
	assert.Zero(t, hub.Clients(), "stalled client is dropped")

	_, open := <-stalled.send
	assert.False(t, open)
}
