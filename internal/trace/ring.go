package trace

import (
	"io"
	"sync"
)

// defaultRingSize holds a few regularizer runs worth of instr points.
const defaultRingSize = 4096

// RingTracer backs --trace-mode=ring: it records every event of a batch in
// memory and only the newest capacity events survive. The CLI dumps it when
// the run ends, so a failing file can be traced without streaming every
// rewrite to disk.
type RingTracer struct {
	mu     sync.RWMutex
	events []Event
	next   int // slot of the next write
	count  int // stored events, at most len(events)
	level  Level
}

// NewRingTracer returns a ring holding up to capacity events; capacity <= 0
// selects the default size.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{events: make([]Event, capacity), level: level}
}

// Emit stores a copy of ev, overwriting the oldest event once full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	stored := *ev
	stored.Seq = NextSeq()
	t.events[t.next] = stored
	t.next = (t.next + 1) % len(t.events)
	t.count = min(t.count+1, len(t.events))
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Event, 0, t.count)
	start := (t.next - t.count + len(t.events)) % len(t.events)
	for i := range t.count {
		out = append(out, t.events[(start+i)%len(t.events)])
	}
	return out
}

// Dump writes the stored events to w, oldest first.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

// Flush does nothing; events leave the ring only through Dump.
func (t *RingTracer) Flush() error { return nil }

func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level { return t.level }

func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
