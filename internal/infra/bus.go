package infra

// EventType represents the type of query lifecycle event
type EventType int

const (
	QueryStarted EventType = iota
	PageFetched
	QuerySucceeded
	QueryFailed
)

// String returns the string representation of the EventType
func (et EventType) String() string {
	switch et {
	case QueryStarted:
		return "QueryStarted"
	case PageFetched:
		return "PageFetched"
	case QuerySucceeded:
		return "QuerySucceeded"
	case QueryFailed:
		return "QueryFailed"
	default:
		return "Unknown"
	}
}

type Event interface{ EventType() EventType }
type Handler func(Event)

// Bus dispatches events synchronously to subscribers. Subscribe before the
// first Publish; Publish may then be called from concurrent queries, so handlers
// must be safe for concurrent use.
type Bus struct{ subs map[EventType][]Handler }

func NewBus() *Bus { return &Bus{subs: map[EventType][]Handler{}} }
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	for _, h := range b.subs[e.EventType()] {
		h(e)
	}
}
func (b *Bus) Subscribe(evt EventType, h Handler) { b.subs[evt] = append(b.subs[evt], h) }
