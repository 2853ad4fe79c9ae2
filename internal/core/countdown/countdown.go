// Package countdown drives offer countdowns from a single shared ticker.
//
// Each watch is Active while now is before its end time and receives a
// [Tick] per scheduler tick. On the first tick at or after the end time it
// receives one final Tick with Expired set, its channel is closed and the
// watch is dropped. The transition happens once and never reverses.
package countdown

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const DefaultInterval = time.Second

type Tick struct {
	ProductID string
	Remaining time.Duration
	Label     string
	Expired   bool
}

type watch struct {
	productID string
	endsAt    time.Time
	c         chan Tick
	gone      chan struct{}
}

// drop closes the watch. Callers hold Scheduler.mu.
func (w *watch) drop() {
	close(w.c)
	close(w.gone)
}

type Scheduler struct {
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	watches map[*watch]struct{}
	closed  bool

	stop chan struct{}
	done chan struct{}
}

type Opt func(*Scheduler)

func IntervalOpt(d time.Duration) Opt {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func ClockOpt(now func() time.Time) Opt {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func NewScheduler(opts ...Opt) *Scheduler {
	s := &Scheduler{
		interval: DefaultInterval,
		now:      time.Now,
		watches:  make(map[*watch]struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is done or Close is called.
func (s *Scheduler) Run(ctx context.Context) {
	const op = "Scheduler.Run"
	log := slog.With("op", op)

	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info("running", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case <-s.stop:
			s.closeAll()
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) Close() {
	const op = "Scheduler.Close"
	log := slog.With("op", op)

	log.Info("closing countdown scheduler...")
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
	log.Info("countdown scheduler is closed")
}

// Watch registers a countdown to endsAt. The first tick is delivered at
// once. The channel closes after the Expired tick or when ctx is done.
func (s *Scheduler) Watch(
	ctx context.Context, productID string, endsAt time.Time,
) <-chan Tick {
	w := &watch{
		productID: productID,
		endsAt:    endsAt,
		c:         make(chan Tick, 1),
		gone:      make(chan struct{}),
	}

	t := s.makeTick(w, s.now())
	w.c <- t
	if t.Expired {
		close(w.c)
		return w.c
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(w.c)
		return w.c
	}
	s.watches[w] = struct{}{}
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.unwatch(w)
		case <-w.gone:
		}
	}()

	return w.c
}

// Len returns the number of active watches.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

func (s *Scheduler) tick() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for w := range s.watches {
		t := s.makeTick(w, now)
		if t.Expired {
			s.deliverFinal(w, t)
			delete(s.watches, w)
			w.drop()
			continue
		}
		select {
		case w.c <- t:
		default:
			// the observer still holds the previous tick
		}
	}
}

// deliverFinal replaces a pending tick so the Expired one is never dropped.
func (s *Scheduler) deliverFinal(w *watch, t Tick) {
	select {
	case <-w.c:
	default:
	}
	w.c <- t
}

func (s *Scheduler) unwatch(w *watch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watches[w]; !ok {
		return
	}
	delete(s.watches, w)
	w.drop()
}

func (s *Scheduler) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for w := range s.watches {
		delete(s.watches, w)
		w.drop()
	}
}

func (s *Scheduler) makeTick(w *watch, now time.Time) Tick {
	remaining := w.endsAt.Sub(now)
	if remaining <= 0 {
		return Tick{ProductID: w.productID, Expired: true}
	}
	return Tick{
		ProductID: w.productID,
		Remaining: remaining,
		Label:     Label(remaining),
	}
}

// Label renders a remaining duration the way product cards show it:
// "2d 3h", "3h 4m" or "4m 5s".
func Label(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
}
