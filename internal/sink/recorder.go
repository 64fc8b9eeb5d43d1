package sink

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Request is a raw request body as it reached the sink.
type Request struct {
	Route       string
	ContentType string
	Body        []byte
}

// Received is a single event extracted from a request. Batches produce one
// Received per entry, in order.
type Received struct {
	ID         string
	Route      string
	Event      string
	DistinctID string
	Payload    map[string]interface{}
	ReceivedAt time.Time
}

// Recorder keeps everything the sink accepted. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	requests []Request
	events   []Received
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) recordRequest(req Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
}

// recordEvent assigns a receipt id to payload and stores it.
func (r *Recorder) recordEvent(route string, payload map[string]interface{}) Received {
	ev := Received{
		ID:         uuid.New().String(),
		Route:      route,
		Event:      stringField(payload, "event"),
		DistinctID: distinctID(payload),
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return ev
}

// Requests returns a copy of the raw requests seen so far.
func (r *Recorder) Requests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.requests...)
}

// Events returns a copy of the accepted events in arrival order.
func (r *Recorder) Events() []Received {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Received(nil), r.events...)
}

// Count returns how many events named event were accepted; an empty name
// counts all of them.
func (r *Recorder) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event == "" {
		return len(r.events)
	}
	n := 0
	for _, ev := range r.events {
		if ev.Event == event {
			n++
		}
	}
	return n
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// distinctID looks in properties first, then at the top level ($identify).
func distinctID(payload map[string]interface{}) string {
	if props, ok := payload["properties"].(map[string]interface{}); ok {
		if id := stringField(props, "distinct_id"); id != "" {
			return id
		}
	}
	return stringField(payload, "distinct_id")
}
