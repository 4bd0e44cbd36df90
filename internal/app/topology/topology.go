package topology

import (
	"fmt"
	"slices"

	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
)

// Topology maps every registered room to its gateways, in declaration order.
// It is read-only once built; speaker i of a connection always serves gateway i.
type Topology struct {
	rooms map[domain.RoomName][]domain.Gateway
	order []domain.RoomName
}

// Build registers static rooms first, then rooms. A room may appear only once.
func Build(static, rooms []domain.RoomSpec) (*Topology, error) {
	t := &Topology{rooms: make(map[domain.RoomName][]domain.Gateway, len(static)+len(rooms))}
	for _, spec := range slices.Concat(static, rooms) {
		if _, ok := t.rooms[spec.Name]; ok {
			return nil, fmt.Errorf("%w: %q", core.ErrDuplicateRoom, spec.Name)
		}
		for _, g := range spec.Gateways {
			if err := g.Validate(); err != nil {
				return nil, fmt.Errorf("%w: room %q: %w", core.ErrInvalidGateway, spec.Name, err)
			}
		}
		t.rooms[spec.Name] = slices.Clone(spec.Gateways)
		t.order = append(t.order, spec.Name)
	}
	return t, nil
}

// Empty returns a topology with no rooms.
func Empty() *Topology {
	return &Topology{rooms: make(map[domain.RoomName][]domain.Gateway)}
}

func (t *Topology) Gateways(room domain.RoomName) ([]domain.Gateway, bool) {
	gws, ok := t.rooms[room]
	return gws, ok
}

func (t *Topology) Has(room domain.RoomName) bool {
	_, ok := t.rooms[room]
	return ok
}

type RoomInfo struct {
	Name     domain.RoomName `json:"name"`
	Gateways []string        `json:"gateways"`
}

// Rooms lists rooms in registration order.
func (t *Topology) Rooms() []RoomInfo {
	out := make([]RoomInfo, 0, len(t.order))
	for _, name := range t.order {
		gws := t.rooms[name]
		names := make([]string, 0, len(gws))
		for _, g := range gws {
			names = append(names, g.Name)
		}
		out = append(out, RoomInfo{Name: name, Gateways: names})
	}
	return out
}
