package webwidget

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog/log"
)

// StartEvictionLoop drops widgets that have been idle for Settings.IdleTimeout,
// checking every Settings.EvictInterval. It does nothing when either is zero
// or a loop is already running.
func (s *Server) StartEvictionLoop(ctx context.Context) {
	if ctx == nil {
		panic("webwidget: StartEvictionLoop requires non-nil ctx")
	}
	idle := s.settings.IdleTimeout
	interval := s.settings.EvictInterval
	if idle <= 0 || interval <= 0 {
		return
	}

	s.mu.Lock()
	if s.evictRunning {
		s.mu.Unlock()
		return
	}
	s.evictRunning = true
	s.mu.Unlock()

	go s.runEvictionLoop(ctx, interval)
}

func (s *Server) runEvictionLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.evictRunning = false
			s.mu.Unlock()
			return
		case now := <-ticker.C:
			if n := s.evictIdleOnce(now); n > 0 {
				log.Debug().Int("evicted", n).Msg("evicted idle widgets")
			}
		}
	}
}

func (s *Server) evictIdleOnce(now time.Time) int {
	idle := s.settings.IdleTimeout
	if idle <= 0 {
		return 0
	}
	if now.IsZero() {
		now = time.Now()
	}

	var evicted []*widget
	s.mu.Lock()
	for id, wd := range s.widgets {
		if !wd.idleSince(now, idle) {
			continue
		}
		delete(s.widgets, id)
		evicted = append(evicted, wd)
	}
	s.mu.Unlock()

	for _, wd := range evicted {
		if c, ok := wd.transport.(io.Closer); ok && !s.sharedTransport(wd) {
			_ = c.Close()
		}
	}
	return len(evicted)
}

func (w *widget) touch(now time.Time) {
	w.mu.Lock()
	w.lastActivity = now
	w.mu.Unlock()
}

// idleSince reports whether the widget has not been used for idle and has
// no exchange in flight.
func (w *widget) idleSince(now time.Time, idle time.Duration) bool {
	if w.conv.Responding() {
		return false
	}
	w.mu.Lock()
	last := w.lastActivity
	w.mu.Unlock()
	if last.IsZero() {
		return false
	}
	return now.Sub(last) >= idle
}

// sharedTransport reports whether another live widget still uses wd's transport.
func (s *Server) sharedTransport(wd *widget) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.widgets {
		if other.transport == wd.transport {
			return true
		}
	}
	return false
}
