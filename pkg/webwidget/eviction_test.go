package webwidget

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/go-go-golems/carechat/pkg/session"
	"github.com/go-go-golems/carechat/pkg/transport"
	"github.com/stretchr/testify/require"
)

func newEvictionServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(context.Background(), Settings{IdleTimeout: 10 * time.Second}, func() (transport.Transport, error) {
		return &fakeTransport{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, time.Minute, srv.settings.EvictInterval)
	return srv
}

func addWidget(srv *Server, id string, tr *fakeTransport, last time.Time) *widget {
	wd := &widget{
		conv:         chat.NewConversation(session.New(), tr),
		transport:    tr,
		lastActivity: last,
	}
	srv.mu.Lock()
	srv.widgets[id] = wd
	srv.mu.Unlock()
	return wd
}

func TestEvictIdleOnce(t *testing.T) {
	srv := newEvictionServer(t)
	stale := &fakeTransport{}
	fresh := &fakeTransport{}
	addWidget(srv, "stale", stale, time.Now().Add(-time.Hour))
	addWidget(srv, "fresh", fresh, time.Now())

	require.Equal(t, 1, srv.evictIdleOnce(time.Now()))
	require.True(t, stale.closed)
	require.False(t, fresh.closed)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Contains(t, srv.widgets, "fresh")
	require.NotContains(t, srv.widgets, "stale")
}

func TestEvictIdleOnceSkipsResponding(t *testing.T) {
	srv := newEvictionServer(t)
	tr := &fakeTransport{gate: make(chan struct{})}
	wd := addWidget(srv, "busy", tr, time.Now().Add(-time.Hour))

	ex, ok := wd.conv.Prepare("still typing back")
	require.True(t, ok)

	require.Equal(t, 0, srv.evictIdleOnce(time.Now()))

	close(tr.gate)
	require.NoError(t, ex.Run(context.Background()))
	require.Equal(t, 1, srv.evictIdleOnce(time.Now()))
}

func TestEvictKeepsSharedTransportOpen(t *testing.T) {
	srv := newEvictionServer(t)
	shared := &fakeTransport{}
	addWidget(srv, "old", shared, time.Now().Add(-time.Hour))
	addWidget(srv, "new", shared, time.Now())

	require.Equal(t, 1, srv.evictIdleOnce(time.Now()))
	require.False(t, shared.closed)
}

func TestEvictionDisabled(t *testing.T) {
	srv, err := NewServer(context.Background(), Settings{}, func() (transport.Transport, error) {
		return &fakeTransport{}, nil
	})
	require.NoError(t, err)
	addWidget(srv, "old", &fakeTransport{}, time.Now().Add(-time.Hour))
	require.Equal(t, 0, srv.evictIdleOnce(time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.StartEvictionLoop(ctx)
	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.False(t, srv.evictRunning)
}

func TestWidgetForTouchesBeforeEviction(t *testing.T) {
	srv := newEvictionServer(t)

	for i := 0; i < 200; i++ {
		stale := addWidget(srv, "w", &fakeTransport{}, time.Now().Add(-time.Hour))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "w"})

		var wg sync.WaitGroup
		var got *widget
		var err error
		wg.Add(2)
		go func() {
			defer wg.Done()
			got, err = srv.widgetFor(httptest.NewRecorder(), req, true)
		}()
		go func() {
			defer wg.Done()
			srv.evictIdleOnce(time.Now())
		}()
		wg.Wait()
		require.NoError(t, err)

		// a widget handed out to a request must still be registered
		if got == stale {
			srv.mu.Lock()
			require.Same(t, stale, srv.widgets["w"])
			srv.mu.Unlock()
		}

		srv.mu.Lock()
		clear(srv.widgets)
		srv.mu.Unlock()
	}
}
