package synth

import "container/heap"

// EventKind is the closed set of dispatchable event payloads.
type EventKind uint8

const (
	EventNoteOn EventKind = iota
	EventNoteOff
	EventControlChange
	EventProgramChange
	EventChannelPressure
	EventKeyPressure
	EventPitchBend
	EventSysEx
)

// Event is one MIDI or SysEx action. Data1/Data2 carry the message bytes
// (note/velocity, controller/value); Bend carries the signed pitch bend.
type Event struct {
	Kind    EventKind
	Channel uint8
	Data1   byte
	Data2   byte
	Bend    int16
	SysEx   []byte
}

type scheduledEvent struct {
	time  float64
	seq   uint64
	event Event
}

type eventQueue []scheduledEvent

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x interface{}) { *q = append(*q, x.(scheduledEvent)) }
func (q *eventQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// EventScheduler orders timestamped events by (time, sequence). The
// monotonic sequence number makes dispatch order deterministic among equal
// timestamps: first scheduled, first dispatched. The scheduler itself is not
// goroutine-safe; the engine serializes access under its mutex.
type EventScheduler struct {
	queue eventQueue
	seq   uint64
}

// Schedule inserts an event to be dispatched at the given time in seconds.
func (s *EventScheduler) Schedule(e Event, at float64) {
	s.seq++
	heap.Push(&s.queue, scheduledEvent{time: at, seq: s.seq, event: e})
}

// DrainUpTo pops and dispatches every event with time ≤ t, in (time,
// sequence) order.
func (s *EventScheduler) DrainUpTo(t float64, dispatch func(Event)) {
	for len(s.queue) > 0 && s.queue[0].time <= t {
		e := heap.Pop(&s.queue).(scheduledEvent)
		dispatch(e.event)
	}
}

// Pending reports the number of undispatched events.
func (s *EventScheduler) Pending() int { return len(s.queue) }

// NextTime returns the timestamp of the earliest pending event.
func (s *EventScheduler) NextTime() (float64, bool) {
	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].time, true
}

// Clear drops all pending events.
func (s *EventScheduler) Clear() {
	s.queue = s.queue[:0]
}
