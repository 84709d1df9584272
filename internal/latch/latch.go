package latch

import (
	"context"
	"sync"
)

// Latch is a one-shot completion signal. Once completed or failed it never
// changes state again.
type Latch struct {
	once sync.Once
	mu   sync.RWMutex
	done chan struct{}
	ok   bool
	err  error
}

func New() *Latch {
	return &Latch{
		done: make(chan struct{}),
	}
}

// Complete returns false when the latch was already completed or failed.
func (l *Latch) Complete() bool {
	return l.finish(nil)
}

func (l *Latch) Fail(err error) bool {
	if err == nil {
		err = context.Canceled
	}
	return l.finish(err)
}

func (l *Latch) finish(err error) bool {
	won := false
	l.once.Do(func() {
		l.mu.Lock()
		l.ok = err == nil
		l.err = err
		l.mu.Unlock()
		close(l.done)
		won = true
	})
	return won
}

func (l *Latch) IsCompleted() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ok
}

func (l *Latch) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

func (l *Latch) Done() <-chan struct{} {
	return l.done
}

func (l *Latch) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return l.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
