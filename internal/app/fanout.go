package app

import "sync"

// fanout delivers the latest value to every subscriber. A slow subscriber
// loses stale values rather than blocking the publisher.
type fanout[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

func newFanout[T any]() *fanout[T] {
	return &fanout[T]{subs: make(map[chan T]struct{})}
}

func (f *fanout[T]) subscribe(initial T) (<-chan T, func()) {
	ch := make(chan T, 8)
	ch <- initial

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *fanout[T]) publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

func (f *fanout[T]) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}
