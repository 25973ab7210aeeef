package session

import "sync"

// abortGuard suppresses stale step completions once teardown begins.
// One guard per attempt; tripping is one-way.
type abortGuard struct {
	once sync.Once
	done chan struct{}
}

func newAbortGuard() *abortGuard {
	return &abortGuard{done: make(chan struct{})}
}

func (g *abortGuard) trip() {
	g.once.Do(func() { close(g.done) })
}

func (g *abortGuard) tripped() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}
