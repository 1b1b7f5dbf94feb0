package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leeforge/sncicd-plugin-activate/errors"
	"github.com/leeforge/sncicd-plugin-activate/logging"
	"github.com/leeforge/sncicd-plugin-activate/metrics"
	"github.com/leeforge/sncicd-plugin-activate/request"
)

var testOptions = Options{
	Username: "admin",
	Password: "secret",
	Headers: map[string]string{
		request.HeaderAccept:    "application/json",
		request.HeaderUserAgent: request.UserAgent,
	},
}

func TestPostSendsJSONBodyAuthAndHeaders(t *testing.T) {
	var got *http.Request
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	defer srv.Close()

	resp, err := New().Post(context.Background(), srv.URL+"/activate", map[string]any{}, testOptions)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"result":{}}`, string(resp.Body))
	assert.NotEmpty(t, resp.RequestID)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "{}", gotBody)
	user, pass, ok := got.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "admin", user)
	assert.Equal(t, "secret", pass)
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "sncicd_extint_github", got.Header.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, resp.RequestID, got.Header.Get(request.HeaderRequestID))
}

func TestGetHasNoBody(t *testing.T) {
	var gotLen int64 = -2
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLen = r.ContentLength
		assert.Empty(t, r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New().Get(context.Background(), srv.URL, testOptions)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gotLen)
}

func TestCorrelationIDIsPropagated(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(request.HeaderCorrelationID)
	}))
	defer srv.Close()

	ctx := request.WithCorrelationID(context.Background(), "run-1")
	_, err := New().Get(ctx, srv.URL, testOptions)
	require.NoError(t, err)
	assert.Equal(t, "run-1", seen)
}

func TestNon2xxReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"result":{"error":"dup"}}`))
	}))
	defer srv.Close()

	resp, err := New().Get(context.Background(), srv.URL, testOptions)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
	assert.JSONEq(t, `{"result":{"error":"dup"}}`, string(statusErr.Body))
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	m := metrics.NewCollector()
	_, err := New(WithMetrics(m)).Get(context.Background(), url, testOptions)
	require.Error(t, err)

	assert.Equal(t, apperrors.ErrorTypeTransport, apperrors.TypeOf(err))
	assert.NotEmpty(t, err.Error())
	assert.Equal(t, int64(1), m.Summary()["http_transport_errors_total"])
}

func TestCanceledContextIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Get(ctx, srv.URL, testOptions)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeTransport, apperrors.TypeOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(WithTimeout(20*time.Millisecond)).Get(context.Background(), srv.URL, testOptions)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeTransport, apperrors.TypeOf(err))
}

func TestMetricsRecordsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := metrics.NewCollector()
	c := New(WithMetrics(m))
	_, _ = c.Post(context.Background(), srv.URL, map[string]any{}, testOptions)

	got, ok := m.GetMetrics()[metrics.RequestsTotal+":method=POST:status=401"]
	require.True(t, ok)
	assert.Equal(t, float64(1), got.Value)
}

func TestWithTimeoutLeavesCallerClientAlone(t *testing.T) {
	hc := &http.Client{}
	c := New(WithHTTPClient(hc), WithTimeout(5*time.Second))

	assert.Equal(t, time.Duration(0), hc.Timeout)
	assert.Equal(t, 5*time.Second, c.http.Timeout)
	assert.NotSame(t, hc, c.http)
}

func TestTracesThroughContextLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	cfg := logging.DefaultConfig()
	cfg.Level = "debug"
	cfg.Format = "json"
	ctx := logging.ToContext(context.Background(), logging.NewLogger(cfg, logging.WithTerminal(&buf)))

	_, err := New().Get(ctx, srv.URL, testOptions)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "sending request")
	assert.Contains(t, buf.String(), `"logger":"http"`)
}
