package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"cardistry-catalog/internal/domains/move/model"
	"cardistry-catalog/internal/domains/move/repository"
)

// LiveCollection keeps the ordered movements snapshot in memory and replaces
// it wholesale whenever the change feed fires. The subscription loop is the
// only writer.
type LiveCollection struct {
	repo repository.MoveRepository
	feed ChangeFeed

	mu        sync.RWMutex
	records   []model.MoveRecord
	version   uint64
	updatedAt time.Time

	failures atomic.Int64
	lastErr  atomic.Value // string
	running  atomic.Bool
	started  atomic.Bool
	done     chan struct{}

	subsMu sync.Mutex
	nextID int
	subs   map[int]chan struct{}
}

// Stats is the collection's health as reported by /health.
type Stats struct {
	Running   bool      `json:"running"`
	Version   uint64    `json:"version"`
	Size      int       `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
	Failures  int64     `json:"failures"`
	LastError string    `json:"lastError,omitempty"`
}

func NewLiveCollection(repo repository.MoveRepository, feed ChangeFeed) *LiveCollection {
	return &LiveCollection{
		repo:    repo,
		feed:    feed,
		records: []model.MoveRecord{},
		done:    make(chan struct{}),
		subs:    make(map[int]chan struct{}),
	}
}

// Start opens the standing subscription, loads the first snapshot and runs
// the refresh loop until ctx is cancelled. It returns once the first load has
// been attempted. A failed initial load is counted and leaves the snapshot
// empty. When the subscription cannot be opened the first snapshot is still
// loaded, but it never refreshes, and the failure is returned.
func (l *LiveCollection) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return errors.New("live collection already started")
	}

	sub, err := l.feed.Subscribe(ctx)
	l.refresh(ctx)
	if err != nil {
		l.fail(err)
		close(l.done)
		return model.NewSubscriptionError(err)
	}
	l.running.Store(true)

	go l.run(ctx, sub)
	return nil
}

// Done is closed once the refresh loop has exited.
func (l *LiveCollection) Done() <-chan struct{} {
	return l.done
}

func (l *LiveCollection) run(ctx context.Context, sub Subscription) {
	defer close(l.done)
	defer l.running.Store(false)
	defer sub.Close()

	notes := sub.Notifications()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-notes:
			if !ok {
				// No resubscription: keep serving the last good snapshot.
				l.fail(errors.New("change feed closed"))
				<-ctx.Done()
				return
			}
			drain(notes)
			l.refresh(ctx)
		}
	}
}

// drain swallows notifications already queued; the next query covers them.
func drain(notes <-chan string) {
	for {
		select {
		case _, ok := <-notes:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (l *LiveCollection) refresh(ctx context.Context) {
	records, err := l.repo.ListOrdered(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.fail(err)
		return
	}
	if records == nil {
		records = []model.MoveRecord{}
	}

	l.mu.Lock()
	l.records = records
	l.version++
	l.updatedAt = time.Now()
	version := l.version
	l.mu.Unlock()

	log.Debug().Uint64("version", version).Int("size", len(records)).Msg("[FEED] snapshot replaced")
	l.notify()
}

func (l *LiveCollection) fail(err error) {
	subErr := model.NewSubscriptionError(err)
	l.failures.Add(1)
	l.lastErr.Store(subErr.Error())
	log.Error().Err(err).Str("code", subErr.Code).Msg("[FEED] live collection failure, keeping last snapshot")
}

// Snapshot returns the current ordered records and their version. The slice
// must not be modified.
func (l *LiveCollection) Snapshot() ([]model.MoveRecord, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.records, l.version
}

// Changes signals after every snapshot replacement. Signals coalesce: a slow
// reader sees one pending signal, never a backlog.
func (l *LiveCollection) Changes() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	l.subsMu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = ch
	l.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.subsMu.Lock()
			delete(l.subs, id)
			l.subsMu.Unlock()
		})
	}
}

func (l *LiveCollection) notify() {
	l.subsMu.Lock()
	defer l.subsMu.Unlock()

	for _, ch := range l.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (l *LiveCollection) Stats() Stats {
	l.mu.RLock()
	st := Stats{
		Version:   l.version,
		Size:      len(l.records),
		UpdatedAt: l.updatedAt,
	}
	l.mu.RUnlock()

	st.Running = l.running.Load()
	st.Failures = l.failures.Load()
	if v, ok := l.lastErr.Load().(string); ok {
		st.LastError = v
	}
	return st
}
