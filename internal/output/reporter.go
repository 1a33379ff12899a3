package output

import (
	"fmt"
	"io"
	"sync"
)

// LineReporter writes one line per event: progress and status lines to out,
// request and internal errors to errOut.
type LineReporter struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

// NewLineReporter creates a reporter. Nil writers discard their lines.
func NewLineReporter(out, errOut io.Writer) *LineReporter {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	return &LineReporter{out: out, errOut: errOut}
}

// Report writes the event. Lines from concurrent requests never interleave.
func (r *LineReporter) Report(e Event) {
	w := r.out
	if e.IsError() {
		w = r.errOut
	}
	line := trimLine(e.Line())

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(w, line)
}
