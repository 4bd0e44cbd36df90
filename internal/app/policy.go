package app

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropReply
	KickOwner
)

// Policy decides what happens to a control client that does not drain its
// replies fast enough.
type Policy interface {
	OnBackPressure(owner string, dropped int) BackpressureAction
}

// SimplePolicy drops replies until MaxDropped consecutive ones were lost,
// then kicks the client. A zero MaxDropped kicks on the first drop.
type SimplePolicy struct {
	MaxDropped int
}

func (p SimplePolicy) OnBackPressure(owner string, dropped int) BackpressureAction {
	if dropped > p.MaxDropped {
		return KickOwner
	}
	return DropReply
}
