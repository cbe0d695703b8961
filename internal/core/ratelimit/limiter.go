// Package ratelimit holds the request throttling policies (login, register,
// writes). Limiters are built once at startup and passed to the middleware.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Limiter interface {
	// Allow consumes one unit for key and reports whether the request may proceed.
	Allow(ctx context.Context, key string) (bool, error)
}

// hitLog is the log of admitted requests for one key, oldest first.
type hitLog struct {
	hits     []time.Time
	lastSeen time.Time
}

// Memory is a sliding-window log per key: at most limit requests are admitted
// in any span of one window. Keys idle for three windows are dropped by a
// janitor goroutine.
type Memory struct {
	limit  int
	window time.Duration

	mu   sync.Mutex
	keys map[string]*hitLog
	now  func() time.Time

	stop chan struct{}
	once sync.Once
}

func NewMemory(limit int, window time.Duration) *Memory {
	m := &Memory{
		limit:  max(1, limit),
		window: window,
		keys:   make(map[string]*hitLog),
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go m.janitor()
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	w, ok := m.keys[key]
	if !ok {
		w = &hitLog{hits: make([]time.Time, 0, m.limit)}
		m.keys[key] = w
	}
	w.lastSeen = now

	cutoff := now.Add(-m.window)
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	w.hits = append(w.hits[:0], w.hits[i:]...)
	if len(w.hits) >= m.limit {
		return false, nil
	}
	w.hits = append(w.hits, now)
	return true, nil
}

func (m *Memory) janitor() {
	t := time.NewTicker(m.window)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-3 * m.window)
	for k, w := range m.keys {
		if w.lastSeen.Before(cutoff) {
			delete(m.keys, k)
		}
	}
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}
