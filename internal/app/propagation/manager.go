// Package propagation routes sound emitted in a room out through the room's
// gateways, one pooled speaker per gateway.
package propagation

import (
	"errors"
	"fmt"

	"github.com/dkeye/propagation/internal/app/pool"
	"github.com/dkeye/propagation/internal/app/topology"
	"github.com/dkeye/propagation/internal/core"
	"github.com/dkeye/propagation/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Pool pool.Options
	// StaticRooms are registered on every Setup, before the caller's rooms.
	StaticRooms []domain.RoomSpec
}

// Manager mirrors a source's audio commands onto the speakers connected at
// its room's gateways. It is not safe for concurrent use: the host calls it
// from a single goroutine.
type Manager struct {
	topo   *topology.Topology
	pool   *pool.Pool
	conns  *pool.Connections
	static []domain.RoomSpec
	logger zerolog.Logger
}

func NewManager(opts Options, factory core.EmitterFactory) (*Manager, error) {
	conns := pool.NewConnections()
	p, err := pool.New(opts.Pool, factory, conns)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		topo:   topology.Empty(),
		pool:   p,
		conns:  conns,
		static: opts.StaticRooms,
		logger: log.With().Str("module", "propagation").Logger(),
	}
	if len(opts.StaticRooms) > 0 {
		if err := m.Setup(nil); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Setup rebuilds the topology from rooms plus the static rooms. Existing
// connections are released; callers must not call it while sources play.
func (m *Manager) Setup(rooms []domain.RoomSpec) error {
	topo, err := topology.Build(m.static, rooms)
	if err != nil {
		m.logger.Error().Err(err).Msg("topology setup failed")
		return err
	}
	if n := m.conns.Len(); n > 0 {
		m.logger.Warn().Int("sources", n).Msg("setup discards live connections")
	}
	m.pool.Reset()
	m.topo = topo
	m.logger.Info().Int("rooms", len(topo.Rooms())).Msg("topology ready")
	return nil
}

func (m *Manager) IsConnected(id domain.SourceID) bool {
	return m.conns.IsConnected(id)
}

// ConnectSpeakers makes sure src has one speaker per gateway of its room.
// It returns false with an error wrapping core.ErrExhausted when the pool
// cannot serve the room, and an error wrapping core.ErrUnknownRoom when the
// room was never registered.
func (m *Manager) ConnectSpeakers(src core.Source) (bool, error) {
	id := src.SourceID()
	if m.IsConnected(id) {
		return true, nil
	}

	room := src.HostRoom()
	gateways, ok := m.topo.Gateways(room)
	if !ok {
		err := fmt.Errorf("%w: %q", core.ErrUnknownRoom, room)
		m.logger.Error().Err(err).Uint64("source", uint64(id)).Msg("source bound to unregistered room")
		return false, err
	}

	speakers, err := m.pool.Acquire(len(gateways))
	if err != nil {
		return false, err
	}
	for i, s := range speakers {
		s.Attach(gateways[i])
	}
	m.conns.Bind(id, speakers)

	m.logger.Debug().
		Uint64("source", uint64(id)).
		Str("room", string(room)).
		Int("speakers", len(speakers)).
		Msg("speakers connected")
	return true, nil
}

// connect returns the speaker set of src, connecting it first if needed.
func (m *Manager) connect(src core.Source) ([]*pool.Speaker, error) {
	ok, err := m.ConnectSpeakers(src)
	if !ok {
		return nil, err
	}
	set, _ := m.conns.Speakers(src.SourceID())
	return set, nil
}

// ForwardPlay plays clip on every speaker of src, each at volume scaled by its
// gateway dampening. When the pool is exhausted the request is dropped and the
// returned error wraps core.ErrExhausted.
func (m *Manager) ForwardPlay(src core.Source, clip domain.ClipID, volume float64, loop bool) error {
	set, err := m.connect(src)
	if err != nil {
		return m.dropped(src, err)
	}
	for _, s := range set {
		s.Emitter.SetClip(clip)
		s.SetVolume(volume)
		s.Emitter.SetLoop(loop)
		s.Emitter.Play()
	}
	return nil
}

// ForwardPlayOneShot overlays clip on every speaker of src. The speakers'
// persistent clip and loop settings stay as they are.
func (m *Manager) ForwardPlayOneShot(src core.Source, clip domain.ClipID, volume float64) error {
	set, err := m.connect(src)
	if err != nil {
		return m.dropped(src, err)
	}
	for _, s := range set {
		s.Emitter.PlayOneShot(clip, volume*s.Dampening())
	}
	return nil
}

func (m *Manager) dropped(src core.Source, err error) error {
	if errors.Is(err, core.ErrExhausted) {
		m.logger.Warn().Uint64("source", uint64(src.SourceID())).Str("room", string(src.HostRoom())).Msg("play request dropped")
	}
	return err
}

// ForwardStop stops and frees the speakers of id, if any.
func (m *Manager) ForwardStop(id domain.SourceID) {
	set, ok := m.conns.Speakers(id)
	if !ok {
		return
	}
	for _, s := range set {
		s.Emitter.Stop()
	}
	m.pool.ReleaseSource(id)
}

// Disconnect frees the speakers of a source that is going away. The emitters
// are only deactivated, never stopped, since the audio layer may already be
// tearing them down.
func (m *Manager) Disconnect(id domain.SourceID) {
	if m.pool.ReleaseSource(id) {
		m.logger.Debug().Uint64("source", uint64(id)).Msg("source disconnected")
	}
}

// UpdateVolume is a no-op for sources without speakers.
func (m *Manager) UpdateVolume(id domain.SourceID, volume float64) {
	set, ok := m.conns.Speakers(id)
	if !ok {
		return
	}
	for _, s := range set {
		s.SetVolume(volume)
	}
}

// UpdateClip is a no-op for sources without speakers. Dampening does not apply.
func (m *Manager) UpdateClip(id domain.SourceID, clip domain.ClipID) {
	set, ok := m.conns.Speakers(id)
	if !ok {
		return
	}
	for _, s := range set {
		s.Emitter.SetClip(clip)
	}
}
