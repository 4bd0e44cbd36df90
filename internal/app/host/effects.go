package host

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
)

type fade struct {
	volume float64
	target float64
	// rate is the volume change per second; negative for fade-outs.
	rate float64

	stopAtEnd bool
	restore   float64
}

type delayedPlay struct {
	src    core.Source
	clip   domain.ClipID
	volume float64
	loop   bool
	left   time.Duration
}

// FadeOut lowers the volume of id to zero over d, then stops it and restores
// the volume it had when the fade started.
func (h *Host) FadeOut(ctx context.Context, id domain.SourceID, d time.Duration) error {
	return h.do(ctx, func() error {
		start := h.volume(id)
		if d <= 0 || start <= 0 {
			h.stop(id)
			return nil
		}
		h.fades[id] = &fade{
			volume:    start,
			target:    0,
			rate:      -start / d.Seconds(),
			stopAtEnd: true,
			restore:   start,
		}
		return nil
	})
}

// FadeIn raises the volume of id from its current value to target over d.
func (h *Host) FadeIn(ctx context.Context, id domain.SourceID, target float64, d time.Duration) error {
	return h.do(ctx, func() error {
		current := h.volume(id)
		if d <= 0 || current >= target {
			delete(h.fades, id)
			h.volumes[id] = target
			h.mgr.UpdateVolume(id, target)
			return nil
		}
		h.fades[id] = &fade{
			volume: current,
			target: target,
			rate:   (target - current) / d.Seconds(),
		}
		return nil
	})
}

// PlayDelayed schedules a play of clip on src after delay.
func (h *Host) PlayDelayed(ctx context.Context, src core.Source, clip domain.ClipID, volume float64, loop bool, delay time.Duration) error {
	return h.do(ctx, func() error {
		p := &delayedPlay{src: src, clip: clip, volume: volume, loop: loop, left: delay}
		if delay <= 0 {
			return h.fire(p)
		}
		h.delayed = append(h.delayed, p)
		return nil
	})
}

func (h *Host) advanceFades(dt time.Duration) {
	for id, f := range h.fades {
		f.volume += f.rate * dt.Seconds()
		done := (f.rate < 0 && f.volume <= f.target) || (f.rate >= 0 && f.volume >= f.target)
		if done {
			f.volume = f.target
		}
		h.volumes[id] = f.volume
		h.mgr.UpdateVolume(id, f.volume)
		if !done {
			continue
		}
		delete(h.fades, id)
		if f.stopAtEnd {
			h.stop(id)
			h.volumes[id] = f.restore
		}
	}
}

func (h *Host) advanceDelayed(dt time.Duration) {
	pending := h.delayed[:0]
	var due []*delayedPlay
	for _, p := range h.delayed {
		p.left -= dt
		if p.left > 0 {
			pending = append(pending, p)
			continue
		}
		due = append(due, p)
	}
	h.delayed = pending
	for _, p := range due {
		if err := h.fire(p); err != nil && !errors.Is(err, core.ErrExhausted) {
			h.logger.Error().Err(err).Uint64("source", uint64(p.src.SourceID())).Msg("delayed play failed")
		}
	}
}

func (h *Host) fire(p *delayedPlay) error {
	delete(h.fades, p.src.SourceID())
	h.volumes[p.src.SourceID()] = p.volume
	return h.mgr.ForwardPlay(p.src, p.clip, p.volume, p.loop)
}
