package pool

import (
	"fmt"

	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultMinSize = 1

type Options struct {
	Size    int
	MinSize int
	// AutoGrow lets Acquire append speakers instead of failing with ErrExhausted.
	AutoGrow bool
	// GrowStep is the minimum number of speakers added per growth.
	GrowStep int
}

// Pool hands out speakers round-robin. It is not safe for concurrent use; the
// owner serialises Acquire, Release and Reclaim.
type Pool struct {
	speakers []*Speaker
	cursor   int

	opts    Options
	factory core.EmitterFactory
	conns   *Connections
	logger  zerolog.Logger
}

func New(opts Options, factory core.EmitterFactory, conns *Connections) (*Pool, error) {
	if factory == nil {
		return nil, core.ErrNilEmitterMaker
	}
	if opts.MinSize <= 0 {
		opts.MinSize = defaultMinSize
	}
	if opts.Size < opts.MinSize {
		return nil, fmt.Errorf("%w: size %d, minimum %d", core.ErrPoolTooSmall, opts.Size, opts.MinSize)
	}
	if conns == nil {
		conns = NewConnections()
	}
	p := &Pool{
		speakers: make([]*Speaker, 0, opts.Size),
		opts:     opts,
		factory:  factory,
		conns:    conns,
		logger:   log.With().Str("module", "pool").Logger(),
	}
	p.grow(opts.Size)
	return p, nil
}

func (p *Pool) Connections() *Connections { return p.conns }

// Acquire returns exactly count connected speakers or none.
// On exhaustion it reclaims finished sets, then grows if allowed.
func (p *Pool) Acquire(count int) ([]*Speaker, error) {
	if count <= 0 {
		return []*Speaker{}, nil
	}
	if got := p.scan(count); got != nil {
		return got, nil
	}

	if freed := p.Reclaim(); freed > 0 {
		p.logger.Info().Int("freed", freed).Int("need", count).Msg("reclaimed idle speaker sets")
		if p.Idle() >= count {
			if got := p.scan(count); got != nil {
				return got, nil
			}
		}
	}

	if !p.opts.AutoGrow {
		p.logger.Warn().Int("need", count).Int("idle", p.Idle()).Int("size", len(p.speakers)).Msg("pool ran out of speakers")
		return nil, fmt.Errorf("%w: need %d, idle %d of %d", core.ErrExhausted, count, p.Idle(), len(p.speakers))
	}

	p.grow(max(count, p.opts.GrowStep))
	p.logger.Info().Int("need", count).Int("size", len(p.speakers)).Msg("pool grown")
	if got := p.scan(count); got != nil {
		return got, nil
	}
	return nil, fmt.Errorf("%w: need %d after growth", core.ErrExhausted, count)
}

// scan walks the pool once from the cursor. Speakers grabbed during a failed
// scan are put back.
func (p *Pool) scan(count int) []*Speaker {
	n := len(p.speakers)
	got := make([]*Speaker, 0, count)
	for i := 0; i < n && len(got) < count; i++ {
		s := p.speakers[p.cursor]
		p.cursor = (p.cursor + 1) % n
		if s.connected {
			continue
		}
		s.markConnected()
		got = append(got, s)
	}
	if len(got) < count {
		for _, s := range got {
			s.markIdle()
		}
		return nil
	}
	return got
}

// grow appends n idle speakers. Existing speakers keep their identity.
func (p *Pool) grow(n int) {
	for range n {
		id := domain.SpeakerID(len(p.speakers))
		p.speakers = append(p.speakers, newSpeaker(id, p.factory.NewEmitter()))
	}
}

// Release marks speakers idle and removes them from any connection. A source
// losing only part of its set keeps the rest.
func (p *Pool) Release(speakers []*Speaker) {
	for _, s := range speakers {
		p.conns.forget(s.ID)
		s.markIdle()
	}
}

// ReleaseSource frees the whole set of src. It reports whether src was connected.
func (p *Pool) ReleaseSource(src domain.SourceID) bool {
	set := p.conns.Unbind(src)
	if set == nil {
		return false
	}
	p.Release(set)
	return true
}

// Reset releases every connected speaker.
func (p *Pool) Reset() {
	for _, s := range p.conns.Reset() {
		s.markIdle()
	}
	for _, s := range p.speakers {
		if s.connected {
			s.markIdle()
		}
	}
}

func (p *Pool) Size() int { return len(p.speakers) }

func (p *Pool) Idle() int {
	n := 0
	for _, s := range p.speakers {
		if !s.connected {
			n++
		}
	}
	return n
}

func (p *Pool) Connected() int { return len(p.speakers) - p.Idle() }
