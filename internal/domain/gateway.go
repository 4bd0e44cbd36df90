package domain

import (
	"errors"
	"fmt"
)

// DefaultDampening is applied to configured gateways that omit a dampening value.
const DefaultDampening = 0.3

var (
	ErrDampeningRange = errors.New("dampening out of range [0,1]")
	ErrNoTarget       = errors.New("gateway has no target")
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Target resolves where a gateway emits into neighbouring space.
type Target interface {
	Resolve() Position
}

// Fixed is a target that never moves.
type Fixed Position

func (f Fixed) Resolve() Position { return Position(f) }

// Dynamic is resolved every time a speaker is positioned at the gateway.
type Dynamic func() Position

func (d Dynamic) Resolve() Position { return d() }

// Gateway is an opening from a room to a target point.
// It is not modified once a topology has been built from it.
type Gateway struct {
	Name      string
	Dampening float64
	Target    Target
}

func NewGateway(name string, dampening float64, target Target) (Gateway, error) {
	g := Gateway{Name: name, Dampening: dampening, Target: target}
	if err := g.Validate(); err != nil {
		return Gateway{}, err
	}
	return g, nil
}

func (g Gateway) Validate() error {
	if g.Dampening < 0 || g.Dampening > 1 {
		return fmt.Errorf("gateway %q: %w: %v", g.Name, ErrDampeningRange, g.Dampening)
	}
	if g.Target == nil {
		return fmt.Errorf("gateway %q: %w", g.Name, ErrNoTarget)
	}
	if d, ok := g.Target.(Dynamic); ok && d == nil {
		return fmt.Errorf("gateway %q: %w", g.Name, ErrNoTarget)
	}
	return nil
}
