package schedule

import (
	"fmt"
	"time"
)

// Kind is how a run is bounded.
type Kind int

const (
	// Single sends one burst and stops.
	Single Kind = iota
	// Timed repeats bursts until the duration has elapsed; a burst already
	// running when it elapses is allowed to finish.
	Timed
	// TimedExact repeats bursts and stops hard when the duration elapses.
	TimedExact
)

func (k Kind) String() string {
	switch k {
	case Single:
		return "single"
	case Timed:
		return "timed"
	case TimedExact:
		return "timed_exact"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindFor derives the run kind. A zero duration always means Single.
func KindFor(duration time.Duration, exact bool) Kind {
	switch {
	case duration <= 0:
		return Single
	case exact:
		return TimedExact
	default:
		return Timed
	}
}
