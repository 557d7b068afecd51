package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jamespfennell/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psford/t-tracker/internal/animation"
	"github.com/psford/t-tracker/internal/app"
	"github.com/psford/t-tracker/internal/metrics"
	"github.com/psford/t-tracker/internal/rules"
	"github.com/psford/t-tracker/internal/stops"
	"github.com/psford/t-tracker/internal/ws"
)

func newTestApplication(t *testing.T) *application {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	davis := gtfs.Stop{Id: "place-davis", Name: "Davis"}
	catalog := stops.NewCatalog([]gtfs.Stop{
		davis,
		{Id: "70063", Name: "Davis", Parent: &davis},
		{Id: "70064", Name: "Davis", Parent: &davis},
		{Id: "place-alfcl", Name: "Alewife"},
	})

	ruleStore, err := rules.Open(":memory:", catalog, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ruleStore.Close() })

	return &application{Application: &app.Application{
		Logger:  logger,
		Store:   animation.NewStore(animation.DefaultConfig(), logger),
		Rules:   ruleStore,
		Stops:   catalog,
		Hub:     ws.NewHub(250*time.Millisecond, logger),
		Metrics: metrics.NewTracker(),
	}}
}

func doRequest(t *testing.T, api *application, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	api.routes().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) responseModel {
	t.Helper()
	var resp responseModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateAndListRules(t *testing.T) {
	api := newTestApplication(t)

	rec := doRequest(t, api, http.MethodPost, "/api/rules.json",
		`{"checkpointStopId": "place-davis", "routeId": "Red", "directionId": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	created, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, created["id"])
	assert.Equal(t, "place-davis", created["checkpointStopId"])

	rec = doRequest(t, api, http.MethodGet, "/api/rules.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, false, data["paused"])
	assert.Len(t, data["rules"], 1)
}

func TestCreateRuleRejectsBadInput(t *testing.T) {
	api := newTestApplication(t)

	cases := map[string]struct {
		body string
		code int
	}{
		"malformed json": {`{nope`, http.StatusBadRequest},
		"bad stop id":    {`{"checkpointStopId": "a b c", "routeId": "Red"}`, http.StatusBadRequest},
		"bad route id":   {`{"checkpointStopId": "place-davis", "routeId": "Red Line!"}`, http.StatusBadRequest},
		"unknown stop":   {`{"checkpointStopId": "place-ghost", "routeId": "Red"}`, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, api, http.MethodPost, "/api/rules.json", tc.body)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestCreateRuleEnforcesLimitAndDuplicates(t *testing.T) {
	api := newTestApplication(t)

	body := `{"checkpointStopId": "place-davis", "routeId": "Red", "directionId": 0}`
	rec := doRequest(t, api, http.MethodPost, "/api/rules.json", body)
	require.Equal(t, http.StatusOK, rec.Code)

	// The same triple again is a structured rejection, not a server error.
	rec = doRequest(t, api, http.MethodPost, "/api/rules.json", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	for i := 1; i < rules.MaxRules; i++ {
		rec = doRequest(t, api, http.MethodPost, "/api/rules.json",
			`{"checkpointStopId": "place-davis", "routeId": "Red", "directionId": `+strconv.Itoa(i)+`}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = doRequest(t, api, http.MethodPost, "/api/rules.json",
		`{"checkpointStopId": "place-alfcl", "routeId": "Red", "directionId": 0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteRule(t *testing.T) {
	api := newTestApplication(t)

	rec := doRequest(t, api, http.MethodPost, "/api/rules.json",
		`{"checkpointStopId": "place-davis", "routeId": "Red", "directionId": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	created := decodeResponse(t, rec).Data.(map[string]any)
	id := created["id"].(string)

	rec = doRequest(t, api, http.MethodDelete, "/api/rules/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, api, http.MethodDelete, "/api/rules/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Empty(t, api.Rules.List())
}

func TestPauseRules(t *testing.T) {
	api := newTestApplication(t)

	rec := doRequest(t, api, http.MethodPut, "/api/rules/pause.json", `{"paused": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, api.Rules.Paused())

	rec = doRequest(t, api, http.MethodPut, "/api/rules/pause.json", `{"paused": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, api.Rules.Paused())

	rec = doRequest(t, api, http.MethodPut, "/api/rules/pause.json", `{bad`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
