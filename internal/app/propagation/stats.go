package propagation

import (
	"github.com/dkeye/propagation/internal/app/topology"
	"github.com/dkeye/propagation/internal/domain"
)

type Stats struct {
	PoolSize  int `json:"pool_size"`
	Connected int `json:"connected"`
	Idle      int `json:"idle"`
	Sources   int `json:"sources"`
}

type SpeakerInfo struct {
	ID        domain.SpeakerID `json:"id"`
	Position  domain.Position  `json:"position"`
	Dampening float64          `json:"dampening"`
	Volume    float64          `json:"volume"`
	Clip      domain.ClipID    `json:"clip"`
	Loop      bool             `json:"loop"`
	Playing   bool             `json:"playing"`
}

func (m *Manager) Stats() Stats {
	return Stats{
		PoolSize:  m.pool.Size(),
		Connected: m.pool.Connected(),
		Idle:      m.pool.Idle(),
		Sources:   m.conns.Len(),
	}
}

// Speakers describes the speakers of id in gateway order.
func (m *Manager) Speakers(id domain.SourceID) ([]SpeakerInfo, bool) {
	set, ok := m.conns.Speakers(id)
	if !ok {
		return nil, false
	}
	out := make([]SpeakerInfo, 0, len(set))
	for _, s := range set {
		out = append(out, SpeakerInfo{
			ID:        s.ID,
			Position:  s.Position(),
			Dampening: s.Dampening(),
			Volume:    s.Emitter.Volume(),
			Clip:      s.Emitter.Clip(),
			Loop:      s.Emitter.Loop(),
			Playing:   s.Emitter.IsPlaying(),
		})
	}
	return out, true
}

func (m *Manager) Rooms() []topology.RoomInfo {
	return m.topo.Rooms()
}

func (m *Manager) HasRoom(room domain.RoomName) bool {
	return m.topo.Has(room)
}
