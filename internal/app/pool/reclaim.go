package pool

// Reclaim frees every source set that holds a connected speaker whose emitter
// has stopped playing. Sets are freed whole. It returns the number of speakers
// freed. Sources still playing are never touched.
func (p *Pool) Reclaim() int {
	freed := 0
	for _, s := range p.speakers {
		if !s.connected || s.Emitter.IsPlaying() {
			continue
		}
		src, ok := p.conns.Owner(s.ID)
		if !ok {
			p.Release([]*Speaker{s})
			freed++
			continue
		}
		set := p.conns.Unbind(src)
		for _, member := range set {
			member.Emitter.Stop()
		}
		p.Release(set)
		freed += len(set)
		p.logger.Debug().Uint64("source", uint64(src)).Int("speakers", len(set)).Msg("reclaimed source")
	}
	return freed
}
