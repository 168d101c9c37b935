package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing(_ context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(t *testing.T, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	return w
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.Register(Liveness, "goroutines", MaxGoroutines(1_000_000))
	h.Register(Liveness, "disk", failing("read-only filesystem"))

	w := serve(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"disk":"ok","goroutines":"ok"}}`, w.Body.String())

	disk := h.checks[Liveness][1]
	for range 3 {
		disk.run(context.Background())
	}

	w = serve(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"disk":"read-only filesystem","goroutines":"ok"}}`, w.Body.String())
}

func TestThresholds(t *testing.T) {
	ctx := context.Background()
	var fail atomic.Bool
	fail.Store(true)

	h := New()
	h.Register(Liveness, "flaky", func(context.Context) error {
		if fail.Load() {
			return errors.New("flap")
		}
		return nil
	}, WithThresholds(2, 2))
	c := h.checks[Liveness][0]

	c.run(ctx)
	assert.True(t, h.Report(Liveness).OK, "one failure is below threshold")
	c.run(ctx)
	assert.False(t, h.Report(Liveness).OK)

	fail.Store(false)
	c.run(ctx)
	assert.False(t, h.Report(Liveness).OK, "one success is below threshold")
	c.run(ctx)
	assert.True(t, h.Report(Liveness).OK)
}

func TestReadyEndpoint_Gate(t *testing.T) {
	h := New()
	h.Register(Readiness, "storage", Ping(pingFunc(passing)))

	w := serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_gate":"not ready","storage":"ok"}}`, w.Body.String())
	assert.False(t, h.IsReady())

	h.SetReady(true)
	w = serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestPingTimeout(t *testing.T) {
	h := New()
	h.Register(Readiness, "storage", Ping(pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})), WithTimeout(10*time.Millisecond), WithThresholds(1, 1))
	h.SetReady(true)

	h.checks[Readiness][0].run(context.Background())

	r := h.Report(Readiness)
	assert.False(t, r.OK)
	assert.Contains(t, r.Checks["storage"], "deadline exceeded")
}

func TestStartStop(t *testing.T) {
	var runs atomic.Int32
	h := New()
	h.Register(Readiness, "counter", func(context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)

	h.Stop()
	h.Stop()
	time.Sleep(20 * time.Millisecond)
	stopped := runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
}

func TestMaxGoroutines(t *testing.T) {
	require.NoError(t, MaxGoroutines(1_000_000)(context.Background()))
	require.Error(t, MaxGoroutines(0)(context.Background()))
}
