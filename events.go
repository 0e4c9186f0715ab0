package reel

// EventType identifies a kind of engine notification.
type EventType uint8

const (
	EventStart                  EventType = iota // a layer entered its interval
	EventStop                                    // a layer left its interval
	EventAttach                                  // a layer was added to a movie
	EventSeek                                    // the movie clock was repositioned
	EventEnded                                   // the movie clock crossed its duration
	EventAudioDestinationUpdate                  // the movie's audio node was rewired
)

// Event carries the data for one notification. Layer is nil for movie-only
// events; Time is the movie clock at emission.
type Event struct {
	Type  EventType
	Layer *Layer
	Movie *Movie
	Time  float64
}

// Handler receives one event. Handlers run synchronously at the point of
// emission, in registration order.
type Handler func(Event)

// dispatcher maps event kinds to ordered handler lists.
type dispatcher struct {
	handlers map[EventType][]Handler
}

// on registers a handler for an event kind.
func (d *dispatcher) on(t EventType, h Handler) {
	if d.handlers == nil {
		d.handlers = make(map[EventType][]Handler)
	}
	d.handlers[t] = append(d.handlers[t], h)
}

// emit invokes every handler registered for ev.Type, in order.
func (d *dispatcher) emit(ev Event) {
	for _, h := range d.handlers[ev.Type] {
		h(ev)
	}
}
