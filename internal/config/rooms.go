package config

import (
	"fmt"
	"strings"

	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
)

// BuildAnchors creates one movable anchor per configured anchor.
func (c *Config) BuildAnchors() map[string]*domain.Anchor {
	out := make(map[string]*domain.Anchor, len(c.Anchors))
	for name, p := range c.Anchors {
		out[name] = domain.NewAnchor(name, p.position())
	}
	return out
}

// BuildRooms converts configured rooms into room specs. Gateways naming an
// anchor track it; the others get a fixed target.
func BuildRooms(rooms []RoomConfig, anchors map[string]*domain.Anchor) ([]domain.RoomSpec, error) {
	out := make([]domain.RoomSpec, 0, len(rooms))
	for _, rc := range rooms {
		spec := domain.RoomSpec{Name: domain.RoomName(rc.Name)}
		for _, gc := range rc.Gateways {
			g, err := gc.gateway(anchors)
			if err != nil {
				return nil, fmt.Errorf("room %q: %w", rc.Name, err)
			}
			spec.Gateways = append(spec.Gateways, g)
		}
		out = append(out, spec)
	}
	return out, nil
}

func (gc GatewayConfig) gateway(anchors map[string]*domain.Anchor) (domain.Gateway, error) {
	dampening := domain.DefaultDampening
	if gc.Dampening != nil {
		dampening = *gc.Dampening
	}

	var target domain.Target
	switch {
	case gc.Anchor != "":
		// viper lowercases map keys, so anchor names are case-insensitive.
		a, ok := anchors[strings.ToLower(gc.Anchor)]
		if !ok {
			return domain.Gateway{}, fmt.Errorf("%w: gateway %q: unknown anchor %q", core.ErrInvalidGateway, gc.Name, gc.Anchor)
		}
		target = a.Target()
	case gc.Target != nil:
		target = domain.Fixed(gc.Target.position())
	}

	g, err := domain.NewGateway(gc.Name, dampening, target)
	if err != nil {
		return domain.Gateway{}, fmt.Errorf("%w: %w", core.ErrInvalidGateway, err)
	}
	return g, nil
}

func (p PositionConfig) position() domain.Position {
	return domain.Position{X: p.X, Y: p.Y, Z: p.Z}
}
