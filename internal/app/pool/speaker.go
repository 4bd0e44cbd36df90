package pool

import (
	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
)

// Speaker is a pooled emitter. It is either idle (free for allocation, emitter
// inactive) or connected to exactly one source.
type Speaker struct {
	ID      domain.SpeakerID
	Emitter core.Emitter

	connected bool
	dampening float64
	position  domain.Position
}

func newSpeaker(id domain.SpeakerID, em core.Emitter) *Speaker {
	s := &Speaker{ID: id, Emitter: em}
	s.markIdle()
	return s
}

func (s *Speaker) Connected() bool           { return s.connected }
func (s *Speaker) Dampening() float64        { return s.dampening }
func (s *Speaker) Position() domain.Position { return s.position }

// Attach positions the speaker at a gateway target and takes over its dampening.
func (s *Speaker) Attach(g domain.Gateway) {
	s.dampening = g.Dampening
	s.position = g.Target.Resolve()
	s.Emitter.SetPosition(s.position)
}

// SetVolume applies volume scaled by the gateway dampening.
func (s *Speaker) SetVolume(v float64) {
	s.Emitter.SetVolume(v * s.dampening)
}

func (s *Speaker) markConnected() {
	s.connected = true
	s.Emitter.SetActive(true)
}

func (s *Speaker) markIdle() {
	s.connected = false
	s.dampening = 0
	s.position = domain.Position{}
	s.Emitter.SetActive(false)
}
