package notify

import (
	"context"
	"sync"
)

// Local delivers events to subscribers in the same process. A subscriber that
// is not keeping up misses events.
type Local struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewLocal() *Local {
	return &Local{subs: make(map[string]map[chan Event]struct{})}
}

func (l *Local) Publish(_ context.Context, basketUUID string, ev Event) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for ch := range l.subs[basketUUID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context, basketUUID string) (<-chan Event, func(), error) {
	ch := make(chan Event, 8)
	l.mu.Lock()
	if l.subs[basketUUID] == nil {
		l.subs[basketUUID] = make(map[chan Event]struct{})
	}
	l.subs[basketUUID][ch] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs[basketUUID], ch)
			if len(l.subs[basketUUID]) == 0 {
				delete(l.subs, basketUUID)
			}
			l.mu.Unlock()
			close(ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}
