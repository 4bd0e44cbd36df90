package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrSourceTaken = errors.New("source id taken")

type sourceEntry struct {
	Room  domain.RoomName
	Owner string
}

// Registry binds remotely addressed sources to their host room and to the
// client that created them.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceID]*sourceEntry
	lastID  domain.SourceID
}

func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceID]*sourceEntry),
	}
}

// BindNew binds a source under an id that is neither bound nor zero.
func (r *Registry) BindNew(room domain.RoomName, owner string) domain.SourceID {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		r.lastID++
		if _, taken := r.sources[r.lastID]; r.lastID != 0 && !taken {
			break
		}
	}
	r.bind(r.lastID, room, owner)
	return r.lastID
}

// Bind binds a source under a caller-chosen id. Rebinding one's own source
// changes its room; an id held by another owner is refused.
func (r *Registry) Bind(id domain.SourceID, room domain.RoomName, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sources[id]; ok && e.Owner != owner {
		return fmt.Errorf("%w: %d", ErrSourceTaken, id)
	}
	r.bind(id, room, owner)
	return nil
}

func (r *Registry) bind(id domain.SourceID, room domain.RoomName, owner string) {
	r.sources[id] = &sourceEntry{Room: room, Owner: owner}
	log.Info().Str("module", "app.registry").Uint64("source", uint64(id)).Str("room", string(room)).Str("owner", owner).Msg("bound source")
}

// Move re-binds a source to another room. Speakers already connected stay
// where they are until the source is stopped.
func (r *Registry) Move(id domain.SourceID, room domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sources[id]
	if !ok {
		return false
	}
	e.Room = room
	log.Info().Str("module", "app.registry").Uint64("source", uint64(id)).Str("room", string(room)).Msg("moved source")
	return true
}

func (r *Registry) Unbind(id domain.SourceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, id)
	log.Info().Str("module", "app.registry").Uint64("source", uint64(id)).Msg("unbind source")
}

func (r *Registry) RoomOf(id domain.SourceID) (domain.RoomName, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sources[id]
	if !ok {
		return "", false
	}
	return e.Room, true
}

// Source returns a handle whose HostRoom follows later moves.
func (r *Registry) Source(id domain.SourceID) (core.Source, bool) {
	if _, ok := r.RoomOf(id); !ok {
		return nil, false
	}
	return boundSource{id: id, reg: r}, true
}

// SourcesOf lists the sources bound by owner.
func (r *Registry) SourcesOf(owner string) []domain.SourceID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.SourceID, 0)
	for id, e := range r.sources {
		if e.Owner == owner {
			out = append(out, id)
		}
	}
	return out
}

type boundSource struct {
	id  domain.SourceID
	reg *Registry
}

func (s boundSource) SourceID() domain.SourceID { return s.id }

func (s boundSource) HostRoom() domain.RoomName {
	room, _ := s.reg.RoomOf(s.id)
	return room
}
