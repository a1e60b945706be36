package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsync/core/ack"
	"github.com/kilianp07/evsync/core/events"
	"github.com/kilianp07/evsync/core/logger"
	"github.com/kilianp07/evsync/core/metrics"
	"github.com/kilianp07/evsync/core/model"
	"github.com/kilianp07/evsync/core/pending"
	"github.com/kilianp07/evsync/core/remote"
	"github.com/kilianp07/evsync/core/syncengine"
)

func newEngine(t *testing.T, client remote.Client) *syncengine.Engine {
	t.Helper()
	syncengine.ResetMetrics(nil)
	e, err := syncengine.New(syncengine.Config{
		AdapterID:          "admin-test",
		ServiceCheckEvery:  time.Hour,
		StatusFlushEvery:   time.Hour,
		StatusRefreshEvery: time.Hour,
		RequestTimeout:     time.Second,
	}, client, syncengine.WithLogger(logger.Nop{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestUnauthorized(t *testing.T) {
	h := NewHandler(newEngine(t, remote.NewMockClient()), "tok")
	req := httptest.NewRequest(http.MethodGet, "/api/sync/stats", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServiceCheckAndStats(t *testing.T) {
	e := newEngine(t, remote.NewMockClient())
	h := NewHandler(e, "tok")
	_, err := e.AddStaticData(context.Background(), model.Single(model.EVSE{ID: "DE*ABC*E1"}), syncengine.Enqueue)
	require.NoError(t, err)

	rr := do(t, h, http.MethodGet, "/api/sync/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var before Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &before))
	assert.Equal(t, 1, before.Queues["add"])
	assert.False(t, before.FullSetDone)

	rr = do(t, h, http.MethodPost, "/api/sync/service-check", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var rep map[string]Acknowledgement
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Equal(t, ack.KindSuccess.String(), rep["data"].Kind)
	assert.Equal(t, ack.KindNoOperation.String(), rep["cdrs"].Kind)

	rr = do(t, h, http.MethodGet, "/api/sync/stats", "")
	var after Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &after))
	assert.True(t, after.FullSetDone)
	assert.Equal(t, 0, after.Queues["add"])
	assert.Equal(t, uint64(1), after.Paths[string(events.PathFullSet)].Runs)
	assert.Equal(t, 1, after.Paths[string(events.PathFullSet)].Samples)
}

func TestFlushAndRefresh(t *testing.T) {
	h := NewHandler(newEngine(t, remote.NewMockClient()), "tok")

	rr := do(t, h, http.MethodPost, "/api/sync/status/flush", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var a Acknowledgement
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &a))
	assert.Equal(t, ack.KindNoOperation.String(), a.Kind)

	rr = do(t, h, http.MethodPost, "/api/sync/status/refresh", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/sync/status/flush", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestAuthorizeEndpoint(t *testing.T) {
	client := remote.NewMockClient()
	client.OnAuthorize = func(_ context.Context, token string) (*remote.AuthResponse, error) {
		return &remote.AuthResponse{Status: remote.AuthBlocked, Description: "stolen card"}, nil
	}
	h := NewHandler(newEngine(t, client), "tok")

	rr := do(t, h, http.MethodPost, "/api/sync/authorize", `{"token":"04AB"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var res authorizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "04AB", res.Token)
	assert.Equal(t, ack.Blocked.String(), res.Kind)
	assert.Equal(t, "stolen card", res.Description)

	rr = do(t, h, http.MethodPost, "/api/sync/authorize", `{"token":""}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/sync/authorize", `nope`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNewStats(t *testing.T) {
	s := newStats(syncengine.Stats{
		DataRuns: 3,
		Runs:     map[events.Path]uint64{events.PathDelta: 2},
		Runtimes: map[events.Path]metrics.Summary{events.PathDelta: {Count: 2, Mean: 1500 * time.Microsecond, Max: 2 * time.Millisecond}},
		Queues:   pending.Depths{CDRs: 4},
	})
	assert.Equal(t, uint64(3), s.DataRuns)
	assert.Equal(t, 4, s.Queues["cdr"])
	assert.Equal(t, PathStats{Runs: 2, Samples: 2, MeanMS: 1.5, MaxMS: 2}, s.Paths["delta"])
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.Error(t, Config{Address: ":8081"}.Validate())
	assert.NoError(t, Config{Address: ":8081", Token: "t"}.Validate())
}
