// Package host runs a propagation.Manager on a single goroutine and drives
// time-based effects (fades, delayed plays) from its step loop.
package host

import (
	"context"
	"time"

	"github.com/dkeye/propagation/internal/app/propagation"
	"github.com/dkeye/propagation/internal/app/topology"
	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultVolume = 1.0

type command struct {
	fn   func() error
	done chan error
}

// Host serialises every Manager call. All exported methods block until the
// step loop has executed them, or ctx ends.
type Host struct {
	mgr  *propagation.Manager
	cmds chan command
	step time.Duration

	volumes map[domain.SourceID]float64
	fades   map[domain.SourceID]*fade
	delayed []*delayedPlay

	logger zerolog.Logger
}

func New(mgr *propagation.Manager, step time.Duration) *Host {
	return &Host{
		mgr:     mgr,
		cmds:    make(chan command),
		step:    step,
		volumes: make(map[domain.SourceID]float64),
		fades:   make(map[domain.SourceID]*fade),
		logger:  log.With().Str("module", "host").Logger(),
	}
}

// Run processes commands and steps until ctx is done.
func (h *Host) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.step)
	defer ticker.Stop()
	last := time.Now()

	h.logger.Info().Dur("step", h.step).Msg("host loop started")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Msg("host loop stopped")
			return ctx.Err()
		case cmd := <-h.cmds:
			cmd.done <- cmd.fn()
		case now := <-ticker.C:
			h.advance(now.Sub(last))
			last = now
		}
	}
}

func (h *Host) do(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case h.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) Setup(ctx context.Context, rooms []domain.RoomSpec) error {
	return h.do(ctx, func() error {
		clear(h.fades)
		clear(h.volumes)
		h.delayed = nil
		return h.mgr.Setup(rooms)
	})
}

func (h *Host) Play(ctx context.Context, src core.Source, clip domain.ClipID, volume float64, loop bool) error {
	return h.do(ctx, func() error {
		delete(h.fades, src.SourceID())
		h.volumes[src.SourceID()] = volume
		return h.mgr.ForwardPlay(src, clip, volume, loop)
	})
}

func (h *Host) PlayOneShot(ctx context.Context, src core.Source, clip domain.ClipID, volume float64) error {
	return h.do(ctx, func() error {
		return h.mgr.ForwardPlayOneShot(src, clip, volume)
	})
}

// Stop cancels pending fades and delayed plays of id and stops its speakers.
func (h *Host) Stop(ctx context.Context, id domain.SourceID) error {
	return h.do(ctx, func() error {
		h.stop(id)
		return nil
	})
}

func (h *Host) Disconnect(ctx context.Context, id domain.SourceID) error {
	return h.do(ctx, func() error {
		h.cancel(id)
		delete(h.volumes, id)
		h.mgr.Disconnect(id)
		return nil
	})
}

func (h *Host) SetVolume(ctx context.Context, id domain.SourceID, volume float64) error {
	return h.do(ctx, func() error {
		delete(h.fades, id)
		h.volumes[id] = volume
		h.mgr.UpdateVolume(id, volume)
		return nil
	})
}

func (h *Host) SetClip(ctx context.Context, id domain.SourceID, clip domain.ClipID) error {
	return h.do(ctx, func() error {
		h.mgr.UpdateClip(id, clip)
		return nil
	})
}

func (h *Host) Stats(ctx context.Context) (propagation.Stats, error) {
	var st propagation.Stats
	err := h.do(ctx, func() error {
		st = h.mgr.Stats()
		return nil
	})
	return st, err
}

func (h *Host) Speakers(ctx context.Context, id domain.SourceID) ([]propagation.SpeakerInfo, bool, error) {
	var (
		info []propagation.SpeakerInfo
		ok   bool
	)
	err := h.do(ctx, func() error {
		info, ok = h.mgr.Speakers(id)
		return nil
	})
	return info, ok, err
}

func (h *Host) Rooms(ctx context.Context) ([]topology.RoomInfo, error) {
	var rooms []topology.RoomInfo
	err := h.do(ctx, func() error {
		rooms = h.mgr.Rooms()
		return nil
	})
	return rooms, err
}

func (h *Host) HasRoom(ctx context.Context, room domain.RoomName) (bool, error) {
	var ok bool
	err := h.do(ctx, func() error {
		ok = h.mgr.HasRoom(room)
		return nil
	})
	return ok, err
}

func (h *Host) volume(id domain.SourceID) float64 {
	if v, ok := h.volumes[id]; ok {
		return v
	}
	return defaultVolume
}

// stop drops pending effects of id, then stops its speakers.
func (h *Host) stop(id domain.SourceID) {
	h.cancel(id)
	h.mgr.ForwardStop(id)
}

func (h *Host) cancel(id domain.SourceID) {
	delete(h.fades, id)
	kept := h.delayed[:0]
	for _, d := range h.delayed {
		if d.src.SourceID() != id {
			kept = append(kept, d)
		}
	}
	h.delayed = kept
}

// advance moves every fade and delayed play forward by dt.
func (h *Host) advance(dt time.Duration) {
	h.advanceFades(dt)
	h.advanceDelayed(dt)
}
