// Package testutil provides in-memory fakes shared by package tests.
package testutil

import (
	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
)

type OneShot struct {
	Clip   domain.ClipID
	Volume float64
}

// Emitter records every call made on it. Playing is flipped by Play/Stop and
// can be set directly to simulate a finished clip.
type Emitter struct {
	Playing  bool
	Active   bool
	Pos      domain.Position
	Vol      float64
	ClipID   domain.ClipID
	Looping  bool
	OneShots []OneShot
	Plays    int
	Stops    int
}

func (e *Emitter) Play() {
	e.Playing = true
	e.Plays++
}

func (e *Emitter) PlayOneShot(clip domain.ClipID, volumeScale float64) {
	e.Playing = true
	e.OneShots = append(e.OneShots, OneShot{Clip: clip, Volume: volumeScale})
}

func (e *Emitter) Stop() {
	e.Playing = false
	e.Stops++
}

func (e *Emitter) Volume() float64               { return e.Vol }
func (e *Emitter) SetVolume(v float64)           { e.Vol = v }
func (e *Emitter) Clip() domain.ClipID           { return e.ClipID }
func (e *Emitter) SetClip(clip domain.ClipID)    { e.ClipID = clip }
func (e *Emitter) Loop() bool                    { return e.Looping }
func (e *Emitter) SetLoop(loop bool)             { e.Looping = loop }
func (e *Emitter) IsPlaying() bool               { return e.Playing }
func (e *Emitter) SetActive(active bool)         { e.Active = active }
func (e *Emitter) SetPosition(p domain.Position) { e.Pos = p }

// Factory hands out fake emitters and keeps them for inspection.
type Factory struct {
	Made []*Emitter
}

func (f *Factory) NewEmitter() core.Emitter {
	e := &Emitter{}
	f.Made = append(f.Made, e)
	return e
}
