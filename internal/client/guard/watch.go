package guard

import (
	"sync"

	"github.com/dmitrijs2005/obyektivka/internal/client/session"
)

// Watcher re-checks the current path whenever the session changes and
// reports redirects.
type Watcher struct {
	guard      *Guard
	onRedirect func(target string)

	mu      sync.Mutex
	current string
}

func NewWatcher(g *Guard, onRedirect func(target string)) *Watcher {
	return &Watcher{guard: g, onRedirect: onRedirect, current: "/"}
}

// Navigate records path as current and returns the decision for it.
func (w *Watcher) Navigate(path string) Decision {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.guard.Check(path)
	if d.Action == Redirect {
		w.current = d.Target
	} else {
		w.current = path
	}
	return d
}

func (w *Watcher) Current() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Attach subscribes the watcher to s; the returned func detaches it.
func (w *Watcher) Attach(s *session.Service) func() {
	return s.Subscribe(func(session.State) { w.recheck() })
}

func (w *Watcher) recheck() {
	w.mu.Lock()
	d := w.guard.Check(w.current)
	if d.Action == Redirect {
		w.current = d.Target
	}
	w.mu.Unlock()

	if d.Action == Redirect && w.onRedirect != nil {
		w.onRedirect(d.Target)
	}
}
