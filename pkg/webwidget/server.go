// Package webwidget serves the chat widget as a server-rendered web page.
// Every browser gets its own conversation, keyed by a cookie.
package webwidget

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-go-golems/carechat/pkg/chat"
	"github.com/go-go-golems/carechat/pkg/render"
	"github.com/go-go-golems/carechat/pkg/session"
	"github.com/go-go-golems/carechat/pkg/transport"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const CookieName = "carechat_widget"

// TransportFactory returns the transport for a new widget conversation.
type TransportFactory func() (transport.Transport, error)

type Settings struct {
	Addr           string
	Title          string
	RefreshSeconds int
	Pretty         bool
	Language       string
	Timeout        time.Duration

	// IdleTimeout drops a browser's conversation after this long without a
	// request; zero keeps conversations until shutdown.
	IdleTimeout   time.Duration
	EvictInterval time.Duration
}

type widget struct {
	conv      *chat.Conversation
	transport transport.Transport

	mu           sync.Mutex
	lastActivity time.Time
}

// Server owns the HTTP handlers and the per-browser conversations.
type Server struct {
	baseCtx  context.Context
	cancel   context.CancelFunc
	settings Settings
	factory  TransportFactory
	renderer *render.HTMLRenderer

	router chi.Router
	server *http.Server

	mu           sync.Mutex
	widgets      map[string]*widget
	evictRunning bool

	exchanges sync.WaitGroup
}

// NewServer constructs a Server. Exchanges started by the widget run under
// ctx, so cancelling it resolves them with the fallback reply.
func NewServer(ctx context.Context, settings Settings, factory TransportFactory) (*Server, error) {
	if factory == nil {
		return nil, errors.New("transport factory is required")
	}
	if settings.Title == "" {
		settings.Title = "Support chat"
	}
	if settings.RefreshSeconds <= 0 {
		settings.RefreshSeconds = 2
	}
	if settings.IdleTimeout > 0 && settings.EvictInterval <= 0 {
		settings.EvictInterval = time.Minute
	}

	renderer, err := render.NewHTMLRenderer(settings.Pretty)
	if err != nil {
		return nil, err
	}

	baseCtx, cancel := context.WithCancel(ctx)
	s := &Server{
		baseCtx:  baseCtx,
		cancel:   cancel,
		settings: settings,
		factory:  factory,
		renderer: renderer,
		widgets:  make(map[string]*widget),
	}
	s.registerHTTPHandlers()

	s.server = &http.Server{
		Addr:              settings.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerHTTPHandlers() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/thread", s.handleThread)
	r.Post("/send", s.handleSend)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	s.router = r
}

// widgetFor returns the caller's widget, creating it and setting the cookie
// when create is true.
func (s *Server) widgetFor(w http.ResponseWriter, r *http.Request, create bool) (*widget, error) {
	if c, err := r.Cookie(CookieName); err == nil {
		// touched under s.mu so the eviction loop cannot drop it in between
		s.mu.Lock()
		wd, ok := s.widgets[c.Value]
		if ok {
			wd.touch(time.Now())
		}
		s.mu.Unlock()
		if ok {
			return wd, nil
		}
	}
	if !create {
		return nil, nil
	}

	tr, err := s.factory()
	if err != nil {
		return nil, errors.Wrap(err, "create transport")
	}
	opts := []session.Option{}
	if s.settings.Language != "" {
		opts = append(opts, session.WithLanguage(s.settings.Language))
	}
	var convOpts []chat.Option
	if s.settings.Timeout > 0 {
		convOpts = append(convOpts, chat.WithExchangeTimeout(s.settings.Timeout))
	}
	wd := &widget{
		conv:      chat.NewConversation(session.New(opts...), tr, convOpts...),
		transport: tr,
	}
	wd.touch(time.Now())

	id := uuid.NewString()
	s.mu.Lock()
	s.widgets[id] = wd
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	reqLog(r).Debug().Str("user_id", wd.conv.Session().UserID()).Msg("new widget conversation")
	return wd, nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	wd, err := s.widgetFor(w, r, true)
	if err != nil {
		reqLog(r).Error().Err(err).Msg("could not create widget")
		http.Error(w, "chat unavailable", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	err = s.renderer.Page(&buf, render.PageData{
		Title:          s.settings.Title,
		SendPath:       "/send",
		RefreshSeconds: s.settings.RefreshSeconds,
		View:           render.Project(wd.conv.Snapshot()),
	})
	s.writeHTML(w, r, &buf, err)
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	var st chat.State
	if wd, _ := s.widgetFor(w, r, false); wd != nil {
		st = wd.conv.Snapshot()
	}
	var buf bytes.Buffer
	err := s.renderer.Thread(&buf, render.Project(st))
	s.writeHTML(w, r, &buf, err)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	wd, err := s.widgetFor(w, r, true)
	if err != nil {
		reqLog(r).Error().Err(err).Msg("could not create widget")
		http.Error(w, "chat unavailable", http.StatusServiceUnavailable)
		return
	}

	if ex, ok := wd.conv.Prepare(r.PostForm.Get("message")); ok {
		s.exchanges.Add(1)
		go func() {
			defer s.exchanges.Done()
			_ = ex.Run(s.baseCtx)
		}()
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) writeHTML(w http.ResponseWriter, r *http.Request, buf *bytes.Buffer, err error) {
	if err != nil {
		reqLog(r).Error().Err(err).Msg("render failed")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// Wait blocks until every background exchange has been applied.
func (s *Server) Wait() {
	s.exchanges.Wait()
}

// Close cancels in-flight exchanges, waits for them to resolve and closes
// the widget transports.
func (s *Server) Close() error {
	s.cancel()
	s.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	closed := map[io.Closer]bool{}
	for id, wd := range s.widgets {
		delete(s.widgets, id)
		c, ok := wd.transport.(io.Closer)
		if !ok || closed[c] {
			continue
		}
		closed[c] = true
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run serves until ctx is cancelled or an interrupt arrives, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eg := errgroup.Group{}
	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	s.StartEvictionLoop(srvCtx)

	eg.Go(func() error {
		<-srvCtx.Done()
		log.Info().Msg("shutting down web widget")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		if err := s.Close(); err != nil {
			log.Warn().Err(err).Msg("closing transports")
		}
		log.Info().Msg("server shutdown complete")
		return nil
	})

	eg.Go(func() error {
		defer srvCancel()
		log.Info().Str("addr", s.settings.Addr).Msg("starting web widget")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server listen error")
			return err
		}
		return nil
	})

	return eg.Wait()
}

// requestLogger attaches a request-scoped logger and logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func reqLog(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}
