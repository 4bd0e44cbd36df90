package core

import "github.com/dkeye/propagation/internal/domain"

// Emitter abstracts a physical playback handle owned by the audio engine.
// Implementations must be independently controllable.
type Emitter interface {
	Play()
	// PlayOneShot overlays clip without touching the persistent clip or loop state.
	PlayOneShot(clip domain.ClipID, volumeScale float64)
	Stop()

	Volume() float64
	SetVolume(v float64)
	Clip() domain.ClipID
	SetClip(clip domain.ClipID)
	Loop() bool
	SetLoop(loop bool)

	IsPlaying() bool
	SetActive(active bool)
	SetPosition(p domain.Position)
}

// EmitterFactory instantiates a fresh emitter when the pool grows.
type EmitterFactory interface {
	NewEmitter() Emitter
}

// EmitterFactoryFunc adapts a plain function to EmitterFactory.
type EmitterFactoryFunc func() Emitter

func (f EmitterFactoryFunc) NewEmitter() Emitter { return f() }

// Source is a logical sound source. Identity is the SourceID alone;
// HostRoom is read each time propagation is requested.
type Source interface {
	SourceID() domain.SourceID
	HostRoom() domain.RoomName
}
