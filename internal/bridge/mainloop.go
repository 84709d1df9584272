package bridge

import (
	"log/slog"
	"sync"
)

// MainLoop runs posted work one item at a time, in posting order, on a single
// goroutine. Post never blocks, so the JavaScript thread can hand events over
// without waiting on slow handlers.
type MainLoop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	closed  bool
	stopped chan struct{}
}

func NewMainLoop() *MainLoop {
	l := &MainLoop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

// Post queues fn. It reports false once the loop is closed.
func (l *MainLoop) Post(fn func()) bool {
	if fn == nil {
		return true
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Close runs the work already queued, then stops the loop.
func (l *MainLoop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.stopped
		return
	}
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.stopped
}

func (l *MainLoop) run() {
	defer close(l.stopped)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, fn := range batch {
			l.runOne(fn)
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

func (l *MainLoop) runOne(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Recovered panic on main loop", "panic", r)
		}
	}()
	fn()
}
