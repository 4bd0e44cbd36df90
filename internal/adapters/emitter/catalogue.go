package emitter

import (
	"time"

	"github.com/dkeye/propagation/internal/domain"
)

// Catalogue knows how long every clip plays.
type Catalogue struct {
	durations map[domain.ClipID]time.Duration
	fallback  time.Duration
}

func NewCatalogue(durations map[string]time.Duration, fallback time.Duration) *Catalogue {
	c := &Catalogue{
		durations: make(map[domain.ClipID]time.Duration, len(durations)),
		fallback:  fallback,
	}
	for name, d := range durations {
		c.durations[domain.ClipID(name)] = d
	}
	return c
}

// Duration returns the length of clip, or the fallback for unknown clips.
func (c *Catalogue) Duration(clip domain.ClipID) time.Duration {
	if d, ok := c.durations[clip]; ok {
		return d
	}
	return c.fallback
}
