// Package output renders run events as the lines users see on stdout and
// stderr, and dumps the effective configuration.
package output

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind identifies what an Event describes.
type Kind int

const (
	// KindSending announces a single burst of Count requests.
	KindSending Kind = iota
	// KindSendingFor announces a timed run of Duration.
	KindSendingFor
	// KindSendingUntil announces a run that ends hard after Duration.
	KindSendingUntil
	// KindPause announces a pause of Duration between bursts.
	KindPause
	// KindStatus carries the response status of request ID.
	KindStatus
	// KindRequestError carries a transport failure.
	KindRequestError
	// KindInternalError carries a fault in the engine itself.
	KindInternalError
)

func (k Kind) String() string {
	switch k {
	case KindSending:
		return "sending"
	case KindSendingFor:
		return "sending_for"
	case KindSendingUntil:
		return "sending_until"
	case KindPause:
		return "pause"
	case KindStatus:
		return "status"
	case KindRequestError:
		return "request_error"
	case KindInternalError:
		return "internal_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is a single user-facing occurrence during a run. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind     Kind
	Count    int
	Duration time.Duration
	ID       uint64
	Status   int
	Err      error
}

// Sending returns the announcement for a single burst.
func Sending(count int) Event {
	return Event{Kind: KindSending, Count: count}
}

// SendingFor returns the announcement for a timed run.
func SendingFor(d time.Duration) Event {
	return Event{Kind: KindSendingFor, Duration: d}
}

// SendingUntil returns the announcement for a run with a hard deadline.
func SendingUntil(d time.Duration) Event {
	return Event{Kind: KindSendingUntil, Duration: d}
}

func Pause(d time.Duration) Event {
	return Event{Kind: KindPause, Duration: d}
}

func Status(id uint64, status int) Event {
	return Event{Kind: KindStatus, ID: id, Status: status}
}

func RequestError(id uint64, err error) Event {
	return Event{Kind: KindRequestError, ID: id, Err: err}
}

func InternalError(err error) Event {
	return Event{Kind: KindInternalError, Err: err}
}

// IsError reports whether the event belongs on the error stream.
func (e Event) IsError() bool {
	return e.Kind == KindRequestError || e.Kind == KindInternalError
}

// Line renders the event without a trailing newline.
func (e Event) Line() string {
	switch e.Kind {
	case KindSending:
		return fmt.Sprintf("Sending %d requests...", e.Count)
	case KindSendingFor:
		return fmt.Sprintf("Sending requests for %s...", humanDuration(e.Duration))
	case KindSendingUntil:
		return fmt.Sprintf("Sending requests and will exit in %s...", humanDuration(e.Duration))
	case KindPause:
		return fmt.Sprintf("Pausing for %s", humanDuration(e.Duration))
	case KindStatus:
		line := fmt.Sprintf("Request ID: %d status: %d", e.ID, e.Status)
		if text := http.StatusText(e.Status); text != "" {
			line += " " + text
		}
		return line
	case KindRequestError:
		return fmt.Sprintf("Request error: %v", e.Err)
	case KindInternalError:
		return fmt.Sprintf("Internal error: %v", e.Err)
	default:
		return e.Kind.String()
	}
}

// humanDuration prints whole seconds the way the CLI flags take them and
// falls back to Go duration notation for anything finer.
func humanDuration(d time.Duration) string {
	if d%time.Second != 0 {
		return d.String()
	}
	secs := int64(d / time.Second)
	if secs == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", secs)
}

// Reporter receives run events. Implementations must be safe for
// concurrent use because every in-flight request may report at once.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

func (f ReporterFunc) Report(e Event) { f(e) }

type discard struct{}

func (discard) Report(Event) {}

// Discard drops every event.
var Discard Reporter = discard{}

// trimLine guards against multi-line error text breaking the one event per
// line layout.
func trimLine(s string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\r\n"), "\n", " ")
}
