package orch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/propagation/internal/app"
	"github.com/dkeye/propagation/internal/app/host"
	"github.com/dkeye/propagation/internal/app/propagation"
	"github.com/dkeye/propagation/internal/app/topology"
	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownSource = errors.New("unknown source")
	ErrNoSuchRoom    = errors.New("no such room")
)

// Orchestrator is the entry point of the remote adapters: it resolves source
// ids through the registry and forwards commands to the host loop.
type Orchestrator struct {
	Registry *app.Registry
	Host     *host.Host
	Anchors  map[string]*domain.Anchor
}

func (o *Orchestrator) source(id domain.SourceID) (core.Source, error) {
	src, ok := o.Registry.Source(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSource, id)
	}
	return src, nil
}

// Bind attaches a source to a registered room. A zero id asks for a new one.
func (o *Orchestrator) Bind(ctx context.Context, id domain.SourceID, room domain.RoomName, owner string) (domain.SourceID, error) {
	ok, err := o.Host.HasRoom(ctx, room)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNoSuchRoom, room)
	}
	if id == 0 {
		return o.Registry.BindNew(room, owner), nil
	}
	if err := o.Registry.Bind(id, room, owner); err != nil {
		return 0, err
	}
	return id, nil
}

// Move re-binds a source. Its current speakers stay until it is stopped.
func (o *Orchestrator) Move(ctx context.Context, id domain.SourceID, room domain.RoomName) error {
	ok, err := o.Host.HasRoom(ctx, room)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoSuchRoom, room)
	}
	if !o.Registry.Move(id, room) {
		return fmt.Errorf("%w: %d", ErrUnknownSource, id)
	}
	return nil
}

func (o *Orchestrator) Play(ctx context.Context, id domain.SourceID, clip domain.ClipID, volume float64, loop bool) error {
	src, err := o.source(id)
	if err != nil {
		return err
	}
	return o.Host.Play(ctx, src, clip, volume, loop)
}

func (o *Orchestrator) PlayOneShot(ctx context.Context, id domain.SourceID, clip domain.ClipID, volume float64) error {
	src, err := o.source(id)
	if err != nil {
		return err
	}
	return o.Host.PlayOneShot(ctx, src, clip, volume)
}

func (o *Orchestrator) PlayDelayed(ctx context.Context, id domain.SourceID, clip domain.ClipID, volume float64, loop bool, delay time.Duration) error {
	src, err := o.source(id)
	if err != nil {
		return err
	}
	return o.Host.PlayDelayed(ctx, src, clip, volume, loop, delay)
}

func (o *Orchestrator) Stop(ctx context.Context, id domain.SourceID) error {
	if _, err := o.source(id); err != nil {
		return err
	}
	return o.Host.Stop(ctx, id)
}

func (o *Orchestrator) FadeOut(ctx context.Context, id domain.SourceID, d time.Duration) error {
	if _, err := o.source(id); err != nil {
		return err
	}
	return o.Host.FadeOut(ctx, id, d)
}

func (o *Orchestrator) FadeIn(ctx context.Context, id domain.SourceID, target float64, d time.Duration) error {
	if _, err := o.source(id); err != nil {
		return err
	}
	return o.Host.FadeIn(ctx, id, target, d)
}

func (o *Orchestrator) SetVolume(ctx context.Context, id domain.SourceID, volume float64) error {
	if _, err := o.source(id); err != nil {
		return err
	}
	return o.Host.SetVolume(ctx, id, volume)
}

func (o *Orchestrator) SetClip(ctx context.Context, id domain.SourceID, clip domain.ClipID) error {
	if _, err := o.source(id); err != nil {
		return err
	}
	return o.Host.SetClip(ctx, id, clip)
}

// Remove disconnects a source that is going away and forgets it.
func (o *Orchestrator) Remove(ctx context.Context, id domain.SourceID) error {
	if _, err := o.source(id); err != nil {
		return err
	}
	if err := o.Host.Disconnect(ctx, id); err != nil {
		return err
	}
	o.Registry.Unbind(id)
	return nil
}

// OnOwnerGone removes every source bound by owner.
func (o *Orchestrator) OnOwnerGone(ctx context.Context, owner string) {
	for _, id := range o.Registry.SourcesOf(owner) {
		if err := o.Remove(ctx, id); err != nil {
			log.Error().Err(err).Str("module", "orch").Uint64("source", uint64(id)).Msg("remove on owner gone")
		}
	}
}

func (o *Orchestrator) Speakers(ctx context.Context, id domain.SourceID) ([]propagation.SpeakerInfo, error) {
	if _, err := o.source(id); err != nil {
		return nil, err
	}
	info, _, err := o.Host.Speakers(ctx, id)
	return info, err
}

func (o *Orchestrator) Stats(ctx context.Context) (propagation.Stats, error) {
	return o.Host.Stats(ctx)
}

func (o *Orchestrator) Rooms(ctx context.Context) ([]topology.RoomInfo, error) {
	return o.Host.Rooms(ctx)
}

// MoveAnchor moves a named anchor; gateways tracking it pick the new position
// up on their next connection.
func (o *Orchestrator) MoveAnchor(name string, pos domain.Position) bool {
	a, ok := o.Anchors[strings.ToLower(name)]
	if !ok {
		return false
	}
	a.MoveTo(pos)
	log.Info().Str("module", "orch").Str("anchor", name).Float64("x", pos.X).Float64("y", pos.Y).Float64("z", pos.Z).Msg("anchor moved")
	return true
}
