package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.DocumentScheduler = (*Syncer)(nil)

const defaultMirrorTimeout = 5 * time.Second

type SyncerOpt func(*Syncer) error

func MirrorOpt(m port.Mirror) SyncerOpt {
	return func(s *Syncer) error {
		if m == nil {
			return errors.New("mirror is nil")
		}
		s.mirrors = append(s.mirrors, m)
		return nil
	}
}

func MirrorTimeoutOpt(d time.Duration) SyncerOpt {
	return func(s *Syncer) error {
		if d <= 0 {
			return errors.New("mirror timeout must be positive")
		}
		s.timeout = d
		return nil
	}
}

// BatchDelayOpt holds each flush back for d so that mutations made in
// quick succession are sent as one document.
func BatchDelayOpt(d time.Duration) SyncerOpt {
	return func(s *Syncer) error {
		if d < 0 {
			return errors.New("batch delay is negative")
		}
		s.delay = d
		return nil
	}
}

// A Syncer mirrors product documents to the remote sinks in the background.
//
// Schedule never blocks. Documents scheduled before a flush starts collapse
// into the latest one, so each mutation is delivered at most once. Failed
// deliveries are logged and dropped.
type Syncer struct {
	mirrors []port.Mirror
	timeout time.Duration
	delay   time.Duration

	mu      sync.Mutex
	pending *domain.Document

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewSyncer(opts ...SyncerOpt) (*Syncer, error) {
	const op = "NewSyncer"

	s := &Syncer{
		timeout: defaultMirrorTimeout,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return s, nil
}

func (s *Syncer) Schedule(doc domain.Document) {
	s.mu.Lock()
	s.pending = &doc
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run flushes scheduled documents until ctx is done or Close is called.
// A pending document is flushed once more on the way out.
func (s *Syncer) Run(ctx context.Context) {
	const op = "Syncer.Run"
	log := slog.With("op", op)

	defer close(s.done)

	log.Info("running", "nMirrors", len(s.mirrors))
	for {
		select {
		case <-ctx.Done():
			s.flush(context.WithoutCancel(ctx))
			return
		case <-s.stop:
			s.flush(context.WithoutCancel(ctx))
			return
		case <-s.wake:
			if !s.wait(ctx) {
				s.flush(context.WithoutCancel(ctx))
				return
			}
			s.flush(ctx)
		}
	}
}

// Close stops Run and waits for the last flush, at most until ctx is done.
func (s *Syncer) Close(ctx context.Context) {
	const op = "Syncer.Close"
	log := slog.With("op", op)

	log.Info("closing syncer...")
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}

	select {
	case <-s.done:
		log.Info("syncer is closed")
	case <-ctx.Done():
		log.Warn("syncer close timed out", "err", ctx.Err())
	}
}

// wait applies the batch delay. It reports false when the syncer is stopping.
func (s *Syncer) wait(ctx context.Context) bool {
	if s.delay == 0 {
		return true
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-s.stop:
		return false
	}
}

func (s *Syncer) flush(ctx context.Context) {
	const op = "Syncer.flush"
	log := slog.With("op", op)

	s.mu.Lock()
	doc := s.pending
	s.pending = nil
	s.mu.Unlock()

	if doc == nil {
		return
	}

	for _, m := range s.mirrors {
		mctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := m.MirrorDocument(mctx, *doc)
		cancel()
		if err != nil {
			log.Warn("remote mirror failed, local copy is kept", "err", err)
			continue
		}
		log.Debug("document mirrored", "nProducts", len(doc.Products))
	}
}
