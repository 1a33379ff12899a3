package schedule

import (
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session is the state of one Controller.Run.
type Session struct {
	ID      ulid.ULID
	Started time.Time

	bursts atomic.Int64
}

func newSession() *Session {
	now := time.Now()
	return &Session{
		ID:      ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()),
		Started: now,
	}
}

// Elapsed returns the time since the session started, using the monotonic clock.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.Started)
}

// Bursts returns how many bursts have completed.
func (s *Session) Bursts() int64 {
	return s.bursts.Load()
}
