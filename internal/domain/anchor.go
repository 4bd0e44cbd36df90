package domain

import "sync"

// Anchor is a movable point that gateways can track through a Dynamic target.
// It may be moved from any goroutine.
type Anchor struct {
	Name string

	mu  sync.RWMutex
	pos Position
}

func NewAnchor(name string, pos Position) *Anchor {
	return &Anchor{Name: name, pos: pos}
}

func (a *Anchor) Position() Position {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.pos
}

func (a *Anchor) MoveTo(pos Position) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pos = pos
}

// Target returns a Dynamic target reading the anchor's current position.
func (a *Anchor) Target() Dynamic {
	return a.Position
}
