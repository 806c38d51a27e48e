package profile

import (
	"log/slog"
	"sync"
)

// saverQueueDepth bounds the snapshot queue. Snapshots coalesce (only the
// newest matters), so a small buffer is enough; overflow drops the write.
const saverQueueDepth = 16

// saver is the write-behind persistence primitive: profile snapshots are
// enqueued without blocking and flushed by one background goroutine.
// Semantics are at-most-once — a crash between enqueue and flush loses the
// latest snapshot, which the engine tolerates by design of its defaults.
type saver struct {
	store  StateStore
	key    string
	logger *slog.Logger

	ch        chan string
	closeOnce sync.Once
	done      chan struct{}
}

func newSaver(store StateStore, key string, logger *slog.Logger) *saver {
	s := &saver{
		store:  store,
		key:    key,
		logger: logger,
		ch:     make(chan string, saverQueueDepth),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// enqueue hands a snapshot to the background goroutine. If the queue is
// full the snapshot is dropped and logged; gameplay paths never block here.
func (s *saver) enqueue(snapshot string) {
	select {
	case s.ch <- snapshot:
	default:
		s.logger.Warn("profile save queue full, dropping snapshot")
	}
}

// Close flushes pending snapshots and stops the goroutine.
func (s *saver) Close() {
	s.closeOnce.Do(func() { close(s.ch) })
	<-s.done
}

func (s *saver) run() {
	defer close(s.done)
	for snapshot, ok := <-s.ch; ok; snapshot, ok = <-s.ch {
		// Coalesce: drain to the newest queued snapshot before writing.
	drain:
		for {
			select {
			case next, more := <-s.ch:
				if !more {
					break drain
				}
				snapshot = next
			default:
				break drain
			}
		}
		if err := s.store.SetStateKey(s.key, snapshot); err != nil {
			s.logger.Warn("profile save failed", "error", err)
		}
	}
}
