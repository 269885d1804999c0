package breed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spycats/internal/logging"
)

func catalogServer(t *testing.T, hits *int32, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const catalog = `[{"id":"abys","name":"Abyssinian"},{"id":"beng","name":"Bengal"},{"id":"sphy","name":"Sphynx"}]`

func TestClientAcceptsAndRejects(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits, http.StatusOK, catalog)
	c := NewClient(Config{URL: srv.URL}, logging.Discard())
	ctx := context.Background()

	v, err := c.Check(ctx, "Bengal")
	require.NoError(t, err)
	assert.Equal(t, Accepted, v)

	v, err = c.Check(ctx, "Tabby Deluxe")
	require.NoError(t, err)
	assert.Equal(t, Rejected, v)

	v, err = c.Check(ctx, "bengal")
	require.NoError(t, err)
	assert.Equal(t, Rejected, v, "matching is exact")
}

func TestClientRepeatedNameFetchesOnce(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits, http.StatusOK, catalog)
	c := NewClient(Config{URL: srv.URL, CacheTTL: time.Minute}, logging.Discard())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, err := c.Check(ctx, "Sphynx")
		require.NoError(t, err)
		assert.Equal(t, Accepted, v)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestClientCachesCatalogAcrossNames(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits, http.StatusOK, catalog)
	c := NewClient(Config{URL: srv.URL, CacheTTL: time.Minute}, logging.Discard())
	ctx := context.Background()

	want := map[string]Verdict{
		"Bengal":     Accepted,
		"Sphynx":     Accepted,
		"Abyssinian": Accepted,
		"Nope":       Rejected,
	}
	for name, verdict := range want {
		v, err := c.Check(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, verdict, v, name)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "one catalog fetch answers every name")
}

func TestClientRefetchesExpiredCatalog(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits, http.StatusOK, catalog)
	c := NewClient(Config{URL: srv.URL, CacheTTL: 50 * time.Millisecond}, logging.Discard())
	ctx := context.Background()

	_, err := c.Check(ctx, "Bengal")
	require.NoError(t, err)
	time.Sleep(150 * time.Millisecond)
	_, err = c.Check(ctx, "Sphynx")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestClientSharedFetchOutlivesCancelledCaller(t *testing.T) {
	var hits int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		started <- struct{}{}
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalog))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{URL: srv.URL, Timeout: 5 * time.Second}, logging.Discard())

	type result struct {
		v   Verdict
		err error
	}
	cancelCtx, cancel := context.WithCancel(context.Background())
	first := make(chan result, 1)
	go func() {
		v, err := c.Check(cancelCtx, "Bengal")
		first <- result{v, err}
	}()
	<-started

	second := make(chan result, 1)
	go func() {
		v, err := c.Check(context.Background(), "Sphynx")
		second <- result{v, err}
	}()

	cancel()
	r1 := <-first
	assert.Equal(t, Unavailable, r1.v)
	assert.ErrorIs(t, r1.err, context.Canceled)

	close(release)
	r2 := <-second
	require.NoError(t, r2.err)
	assert.Equal(t, Accepted, r2.v)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	v, err := c.Check(context.Background(), "Bengal")
	require.NoError(t, err)
	assert.Equal(t, Accepted, v, "the detached fetch filled the cache")
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestClientUnavailableOnServerError(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits, http.StatusBadGateway, `upstream down`)
	c := NewClient(Config{URL: srv.URL}, logging.Discard())

	v, err := c.Check(context.Background(), "Bengal")
	require.Error(t, err)
	assert.Equal(t, Unavailable, v)

	_, _ = c.Check(context.Background(), "Bengal")
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits), "failures are not cached")
}

func TestClientUnavailableOnGarbage(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits, http.StatusOK, `{"not":"a list"}`)
	c := NewClient(Config{URL: srv.URL}, logging.Discard())

	v, err := c.Check(context.Background(), "Bengal")
	require.Error(t, err)
	assert.Equal(t, Unavailable, v)
}

func TestClientUnavailableOnTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})
	c := NewClient(Config{URL: srv.URL, Timeout: 50 * time.Millisecond}, logging.Discard())

	v, err := c.Check(context.Background(), "Bengal")
	require.Error(t, err)
	assert.Equal(t, Unavailable, v)
}

func TestClientUnreachable(t *testing.T) {
	c := NewClient(Config{URL: "http://127.0.0.1:1/v1/breeds", Timeout: time.Second}, logging.Discard())
	v, err := c.Check(context.Background(), "Bengal")
	require.Error(t, err)
	assert.Equal(t, Unavailable, v)
}

func TestClientSendsAPIKey(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("x-api-key")
		_, _ = w.Write([]byte(catalog))
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{URL: srv.URL, APIKey: "secret"}, logging.Discard())
	_, err := c.Check(context.Background(), "Bengal")
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestClientConcurrentChecks(t *testing.T) {
	var hits int32
	srv := catalogServer(t, &hits, http.StatusOK, catalog)
	c := NewClient(Config{URL: srv.URL}, logging.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Check(context.Background(), "Abyssinian")
			assert.NoError(t, err)
			assert.Equal(t, Accepted, v)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&hits), int32(16))
}

func TestStaticAndFake(t *testing.T) {
	ctx := context.Background()
	s := NewStatic("Bengal")
	v, err := s.Check(ctx, "Bengal")
	require.NoError(t, err)
	assert.Equal(t, Accepted, v)
	v, _ = s.Check(ctx, "Lion")
	assert.Equal(t, Rejected, v)

	f := NewFake().Set("Bengal", Accepted).Set("Glitch", Unavailable)
	v, err = f.Check(ctx, "Glitch")
	assert.ErrorIs(t, err, ErrFakeUnavailable)
	assert.Equal(t, Unavailable, v)
	v, err = f.Check(ctx, "Unknown")
	require.NoError(t, err)
	assert.Equal(t, Rejected, v)
	assert.Equal(t, []string{"Glitch", "Unknown"}, f.Calls())
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "rejected", Rejected.String())
	assert.Equal(t, "unavailable", Unavailable.String())
}
