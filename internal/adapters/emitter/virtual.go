// Package emitter provides a software emitter that tracks playback state
// against a clock instead of producing audio.
package emitter

import (
	"time"

	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
)

type Clock func() time.Time

// Virtual behaves like an engine audio source: an inactive emitter ignores
// play requests, and looped clips play until stopped.
type Virtual struct {
	clock Clock
	cat   *Catalogue

	clip   domain.ClipID
	volume float64
	loop   bool
	active bool
	pos    domain.Position

	playing    bool
	endsAt     time.Time
	oneShotEnd time.Time
}

func (v *Virtual) Play() {
	if !v.active {
		return
	}
	v.playing = true
	v.endsAt = v.clock().Add(v.cat.Duration(v.clip))
}

func (v *Virtual) PlayOneShot(clip domain.ClipID, _ float64) {
	if !v.active {
		return
	}
	end := v.clock().Add(v.cat.Duration(clip))
	if end.After(v.oneShotEnd) {
		v.oneShotEnd = end
	}
}

func (v *Virtual) Stop() {
	v.playing = false
	v.oneShotEnd = time.Time{}
}

func (v *Virtual) IsPlaying() bool {
	now := v.clock()
	if v.playing && (v.loop || now.Before(v.endsAt)) {
		return true
	}
	return now.Before(v.oneShotEnd)
}

func (v *Virtual) SetActive(active bool) {
	v.active = active
	if !active {
		v.Stop()
	}
}

func (v *Virtual) Active() bool                  { return v.active }
func (v *Virtual) Volume() float64               { return v.volume }
func (v *Virtual) SetVolume(vol float64)         { v.volume = vol }
func (v *Virtual) Clip() domain.ClipID           { return v.clip }
func (v *Virtual) SetClip(clip domain.ClipID)    { v.clip = clip }
func (v *Virtual) Loop() bool                    { return v.loop }
func (v *Virtual) SetLoop(loop bool)             { v.loop = loop }
func (v *Virtual) Position() domain.Position     { return v.pos }
func (v *Virtual) SetPosition(p domain.Position) { v.pos = p }

type Factory struct {
	cat   *Catalogue
	clock Clock
}

// NewFactory returns a factory of virtual emitters. A nil clock means time.Now.
func NewFactory(cat *Catalogue, clock Clock) *Factory {
	if clock == nil {
		clock = time.Now
	}
	return &Factory{cat: cat, clock: clock}
}

func (f *Factory) NewEmitter() core.Emitter {
	return &Virtual{clock: f.clock, cat: f.cat}
}
