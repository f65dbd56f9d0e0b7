package service

import (
	"sync"

	"github.com/rs/zerolog/log"

	"cardistry-catalog/internal/domains/session/model"
)

// broker fans identity changes out to subscribers. A subscriber that falls
// behind loses events rather than stalling sign-in.
type broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan model.IdentityChange
}

func newBroker() *broker {
	return &broker{subs: make(map[int]chan model.IdentityChange)}
}

func (b *broker) subscribe() (<-chan model.IdentityChange, func()) {
	ch := make(chan model.IdentityChange, 8)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *broker) publish(change model.IdentityChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- change:
		default:
			log.Warn().Int("subscriber", id).Str("session_id", change.SessionID).Msg("identity change dropped for slow subscriber")
		}
	}
}
