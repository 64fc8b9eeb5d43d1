package sink

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func newSinkForTest(t *testing.T, keys ...string) (*httptest.Server, *Recorder) {
	t.Helper()
	rec := NewRecorder()
	srv := httptest.NewServer(NewRouter(rec, keys, testLogger()))
	t.Cleanup(srv.Close)
	return srv, rec
}

// postRaw posts body as JSON and returns status and response body.
func postRaw(t *testing.T, url, body string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func TestHealthReturnsOK(t *testing.T) {
	srv, _ := newSinkForTest(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCaptureRecordsEvent(t *testing.T) {
	srv, rec := newSinkForTest(t)

	status, body := postRaw(t, srv.URL+"/i/v0/e/",
		`{"api_key":"k","event":"request","properties":{"distinct_id":"u1"}}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":1}`, string(body))

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "request", events[0].Event)
	assert.Equal(t, "u1", events[0].DistinctID)
	assert.Equal(t, "/i/v0/e/", events[0].Route)
	assert.NotEmpty(t, events[0].ID)

	reqs := rec.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/json", reqs[0].ContentType)
}

func TestIdentifyDistinctIDAtTopLevel(t *testing.T) {
	srv, rec := newSinkForTest(t)

	status, _ := postRaw(t, srv.URL+"/i/v0/e/",
		`{"api_key":"k","distinct_id":"u2","$set":{"is_cool":false},"event":"$identify"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u2", rec.Events()[0].DistinctID)
}

func TestBatchRecordsEntriesInOrder(t *testing.T) {
	srv, rec := newSinkForTest(t)

	status, _ := postRaw(t, srv.URL+"/batch/", `{"api_key":"k","batch":[
		{"event":"first","properties":{"distinct_id":"u1"}},
		{"event":"second","properties":{"distinct_id":"u1"}},
		{"event":"third","properties":{"distinct_id":"u1"}}
	]}`)
	require.Equal(t, http.StatusOK, status)

	events := rec.Events()
	require.Len(t, events, 3)
	for i, name := range []string{"first", "second", "third"} {
		assert.Equal(t, name, events[i].Event)
		assert.Equal(t, "/batch/", events[i].Route)
	}
}

func TestAPIKeyContract(t *testing.T) {
	testCases := []struct {
		name     string
		keys     []string
		body     string
		expected int
	}{
		{"missing key", nil, `{"event":"e","properties":{}}`, http.StatusUnauthorized},
		{"blank key", nil, `{"api_key":" ","event":"e"}`, http.StatusUnauthorized},
		{"nested key only", nil, `{"event":"e","properties":{"api_key":"k"}}`, http.StatusUnauthorized},
		{"any key accepted without allow list", nil, `{"api_key":"whatever","event":"e"}`, http.StatusOK},
		{"unknown key", []string{"phc_1"}, `{"api_key":"phc_2","event":"e"}`, http.StatusUnauthorized},
		{"allowed key", []string{"phc_1"}, `{"api_key":"phc_1","event":"e"}`, http.StatusOK},
		{"invalid JSON", nil, `not json`, http.StatusBadRequest},
		{"missing event", nil, `{"api_key":"k","properties":{}}`, http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, rec := newSinkForTest(t, tc.keys...)
			status, _ := postRaw(t, srv.URL+"/i/v0/e/", tc.body)
			assert.Equal(t, tc.expected, status)
			if tc.expected != http.StatusOK {
				assert.Zero(t, rec.Count(""))
			}
		})
	}
}

func TestBatchRejectsMalformedEntriesAtomically(t *testing.T) {
	srv, rec := newSinkForTest(t)

	status, _ := postRaw(t, srv.URL+"/batch/", `{"api_key":"k","batch":[{"event":"ok"},{"properties":{}}]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Zero(t, rec.Count(""))

	status, _ = postRaw(t, srv.URL+"/batch/", `{"api_key":"k","batch":{"event":"ok"}}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestReceivedCounts(t *testing.T) {
	srv, _ := newSinkForTest(t)

	postRaw(t, srv.URL+"/i/v0/e/", `{"api_key":"k","event":"a"}`)
	postRaw(t, srv.URL+"/batch/", `{"api_key":"k","batch":[{"event":"a"},{"event":"b"}]}`)

	parseCount := func(query string) int {
		resp, err := http.Get(srv.URL + "/received" + query)
		require.NoError(t, err)
		defer resp.Body.Close()
		var r struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
		return r.Count
	}

	assert.Equal(t, 2, parseCount("?event=a"))
	assert.Equal(t, 1, parseCount("?event=b"))
	assert.Equal(t, 3, parseCount(""))
}
