package core

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks topology or pool misconfiguration. It is a
	// programmer error and must abort setup instead of degrading.
	ErrConfiguration = errors.New("configuration error")

	// ErrExhausted is returned when no free or reclaimable speaker is left and
	// the pool may not grow. The affected play request is dropped.
	ErrExhausted = errors.New("speaker pool exhausted")
)

var (
	ErrUnknownRoom     = fmt.Errorf("%w: room not registered", ErrConfiguration)
	ErrDuplicateRoom   = fmt.Errorf("%w: room registered twice", ErrConfiguration)
	ErrInvalidGateway  = fmt.Errorf("%w: invalid gateway", ErrConfiguration)
	ErrPoolTooSmall    = fmt.Errorf("%w: pool below minimum size", ErrConfiguration)
	ErrNilEmitterMaker = fmt.Errorf("%w: nil emitter factory", ErrConfiguration)
)
