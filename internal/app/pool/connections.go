package pool

import (
	"slices"

	"github.com/dkeye/propagation/internal/domain"
)

// Connections holds the source -> speakers relation and its reverse.
// Both maps only change together.
type Connections struct {
	sets   map[domain.SourceID][]*Speaker
	owners map[domain.SpeakerID]domain.SourceID
}

func NewConnections() *Connections {
	return &Connections{
		sets:   make(map[domain.SourceID][]*Speaker),
		owners: make(map[domain.SpeakerID]domain.SourceID),
	}
}

// Bind records speakers, in gateway order, as the set of src.
func (c *Connections) Bind(src domain.SourceID, speakers []*Speaker) {
	c.sets[src] = speakers
	for _, s := range speakers {
		c.owners[s.ID] = src
	}
}

// Unbind drops src and returns the speakers it owned.
func (c *Connections) Unbind(src domain.SourceID) []*Speaker {
	set, ok := c.sets[src]
	if !ok {
		return nil
	}
	delete(c.sets, src)
	for _, s := range set {
		delete(c.owners, s.ID)
	}
	return set
}

// forget removes a single speaker from whichever set holds it.
func (c *Connections) forget(id domain.SpeakerID) {
	src, ok := c.owners[id]
	if !ok {
		return
	}
	delete(c.owners, id)
	set := slices.DeleteFunc(slices.Clone(c.sets[src]), func(s *Speaker) bool { return s.ID == id })
	if len(set) == 0 {
		delete(c.sets, src)
		return
	}
	c.sets[src] = set
}

func (c *Connections) Speakers(src domain.SourceID) ([]*Speaker, bool) {
	set, ok := c.sets[src]
	return set, ok
}

func (c *Connections) Owner(id domain.SpeakerID) (domain.SourceID, bool) {
	src, ok := c.owners[id]
	return src, ok
}

func (c *Connections) IsConnected(src domain.SourceID) bool {
	_, ok := c.sets[src]
	return ok
}

// Len returns the number of connected sources.
func (c *Connections) Len() int { return len(c.sets) }

// SpeakerCount returns the total size of all speaker sets.
func (c *Connections) SpeakerCount() int { return len(c.owners) }

// Reset drops every connection and returns the speakers that were bound.
func (c *Connections) Reset() []*Speaker {
	var out []*Speaker
	for _, set := range c.sets {
		out = append(out, set...)
	}
	clear(c.sets)
	clear(c.owners)
	return out
}
