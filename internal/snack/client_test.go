package snack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) Config {
	cfg := DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.Retry = RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	cfg.Circuit = CircuitConfig{FailureThreshold: 5, SuccessThreshold: 1, Timeout: time.Hour, FailureWindow: time.Minute}
	return cfg
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c := New(cfg)
	t.Cleanup(c.Close)
	return c
}

func TestCreate(t *testing.T) {
	var got saveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "3.0.0", r.Header.Get("Snack-Api-Version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Mint-IDE/1.0", r.Header.Get("User-Agent"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"@anon/long-id","hashId":"abc123"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	s, err := c.Create(context.Background(), "export default () => null", "")
	require.NoError(t, err)

	assert.Equal(t, "abc123", s.ID)
	assert.Equal(t, "https://snack.expo.dev/embed/abc123?platform=ios&preview=true&theme=dark", s.URL)

	assert.Equal(t, "Mint IDE Preview", got.Manifest.Name)
	assert.Equal(t, "Created with Mint - React Native Browser IDE", got.Manifest.Description)
	assert.Equal(t, "50.0.0", got.Manifest.SDKVersion)
	assert.Equal(t, "0.73.4", got.Dependencies["react-native"])
	assert.Equal(t, "~50.0.0", got.Dependencies["expo"])
	require.Contains(t, got.Code, "App.js")
	assert.Equal(t, File{Type: "CODE", Contents: "export default () => null"}, got.Code["App.js"])
}

func TestCreateFallsBackToID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"plain-id"}`))
	}))
	defer srv.Close()

	s, err := newTestClient(t, testConfig(srv.URL)).Create(context.Background(), "x", "Main.js")
	require.NoError(t, err)
	assert.Equal(t, "plain-id", s.ID)
}

func TestCreateMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, testConfig(srv.URL)).Create(context.Background(), "x", "")
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "decode", reqErr.Op)
}

func TestCreateRejectsEmptyCode(t *testing.T) {
	c := newTestClient(t, testConfig("http://127.0.0.1:1"))
	_, err := c.Create(context.Background(), "", "")
	assert.Error(t, err)
}

func TestCreateUpstreamErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad manifest", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, testConfig(srv.URL)).Create(context.Background(), "x", "")

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadRequest, upstream.Status)
	assert.Contains(t, upstream.Body, "bad manifest")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"hashId":"third-time"}`))
	}))
	defer srv.Close()

	s, err := newTestClient(t, testConfig(srv.URL)).Create(context.Background(), "x", "")
	require.NoError(t, err)
	assert.Equal(t, "third-time", s.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateCachesIdenticalRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"hashId":"cached"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, testConfig(srv.URL))
	ctx := context.Background()

	_, err := c.Create(ctx, "same", "App.js")
	require.NoError(t, err)
	_, err = c.Create(ctx, "same", "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.Create(ctx, "same", "Other.js")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.MaxRetries = 0
	cfg.Circuit.FailureThreshold = 2
	c := newTestClient(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Create(ctx, "x", "")
		var upstream *UpstreamError
		require.True(t, errors.As(err, &upstream))
	}
	assert.Equal(t, CircuitOpen, c.State())

	_, err := c.Create(ctx, "x", "")
	var open *CircuitOpenError
	require.True(t, errors.As(err, &open))
	assert.Equal(t, int32(2), calls.Load())
	assert.Contains(t, UserMessage(err), "temporarily unavailable")
}

func TestCircuitHalfOpenRecovers(t *testing.T) {
	cb := newCircuitBreaker("test", CircuitConfig{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Second, FailureWindow: time.Minute})
	now := time.Now()
	cb.now = func() time.Time { return now }

	cb.record(&UpstreamError{Status: 500})
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.allow())

	now = now.Add(2 * time.Second)
	assert.True(t, cb.allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.record(nil)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitIgnoresClientErrors(t *testing.T) {
	cb := newCircuitBreaker("test", CircuitConfig{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Second, FailureWindow: time.Minute})
	cb.record(&UpstreamError{Status: 400})
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestEmbedURL(t *testing.T) {
	tests := []struct {
		name string
		opts EmbedOptions
		want string
	}{
		{"no options", EmbedOptions{}, "https://snack.expo.dev/embed/abc"},
		{"platform only", EmbedOptions{Platform: "android"}, "https://snack.expo.dev/embed/abc?platform=android"},
		{"preview false", EmbedOptions{Preview: Bool(false)}, "https://snack.expo.dev/embed/abc?preview=false"},
		{"all", EmbedOptions{Platform: "web", Preview: Bool(true), Theme: "light"}, "https://snack.expo.dev/embed/abc?platform=web&preview=true&theme=light"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EmbedURL("abc", tt.opts))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &UpstreamError{Status: 503}, true},
		{"rate limited", &UpstreamError{Status: 429}, true},
		{"bad request", &UpstreamError{Status: 400}, false},
		{"circuit open", &CircuitOpenError{Endpoint: "x"}, false},
		{"connection refused", newRequestError("request", errors.New("dial tcp: connection refused")), true},
		{"bad json", newRequestError("decode", errors.New("invalid character")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(tt.err))
		})
	}
}

func TestBackoffIsCapped(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	for attempt := 0; attempt < 10; attempt++ {
		d := backoff(attempt, cfg)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
	}
}
