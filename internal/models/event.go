package models

import (
	"time"
)

// Ingestion routes accepted by the capture API.
const (
	CaptureRoute = "/i/v0/e/"
	BatchRoute   = "/batch/"
)

// Reserved event names.
const (
	AliasEventName     = "$create_alias"
	IdentifyEventName  = "$identify"
	ExceptionEventName = "$exception"
)

// Properties is an event's free-form property bag.
type Properties map[string]interface{}

// Payload is one of the request shapes the capture API accepts.
// Body returns the wire form with apiKey stamped at the top level.
type Payload interface {
	Route() string
	Body(apiKey string) any
}

// captureBody is the single-event wire shape.
type captureBody struct {
	APIKey     string     `json:"api_key"`
	Event      string     `json:"event"`
	Properties Properties `json:"properties"`
	Timestamp  string     `json:"timestamp,omitempty"`
}

// CaptureEvent is a single named event.
type CaptureEvent struct {
	Event      string
	Properties Properties
	Timestamp  string
}

func (e CaptureEvent) Route() string { return CaptureRoute }

func (e CaptureEvent) Body(apiKey string) any {
	return captureBody{
		APIKey:     apiKey,
		Event:      e.Event,
		Properties: nonNil(e.Properties),
		Timestamp:  e.Timestamp,
	}
}

// BatchItem is one entry of a batch. It never carries an api_key; the key is
// supplied once for the whole batch.
type BatchItem struct {
	Event      string     `json:"event"`
	Properties Properties `json:"properties"`
	Timestamp  string     `json:"timestamp,omitempty"`
}

type batchBody struct {
	APIKey string      `json:"api_key"`
	Batch  []BatchItem `json:"batch"`
}

// BatchEvent wraps several events into one request. Order is kept as given.
type BatchEvent struct {
	Events []BatchItem
}

func (b BatchEvent) Route() string { return BatchRoute }

func (b BatchEvent) Body(apiKey string) any {
	items := make([]BatchItem, len(b.Events))
	for i, it := range b.Events {
		it.Properties = nonNil(it.Properties)
		items[i] = it
	}
	return batchBody{APIKey: apiKey, Batch: items}
}

// AliasEvent links Alias to DistinctID.
type AliasEvent struct {
	DistinctID string
	Alias      string
}

func (a AliasEvent) Route() string { return CaptureRoute }

func (a AliasEvent) Body(apiKey string) any {
	return captureBody{
		APIKey: apiKey,
		Event:  AliasEventName,
		Properties: Properties{
			"distinct_id": a.DistinctID,
			"alias":       a.Alias,
		},
	}
}

type identifyBody struct {
	APIKey     string     `json:"api_key"`
	DistinctID string     `json:"distinct_id"`
	Set        Properties `json:"$set"`
	Event      string     `json:"event"`
}

// IdentifyEvent updates person properties for DistinctID.
type IdentifyEvent struct {
	DistinctID string
	Set        Properties
}

func (i IdentifyEvent) Route() string { return CaptureRoute }

func (i IdentifyEvent) Body(apiKey string) any {
	return identifyBody{
		APIKey:     apiKey,
		DistinctID: i.DistinctID,
		Set:        nonNil(i.Set),
		Event:      IdentifyEventName,
	}
}

// BuildCaptureEvent returns a capture event for distinctID. props is copied;
// its distinct_id, if any, is replaced.
func BuildCaptureEvent(distinctID, event string, props Properties) CaptureEvent {
	return CaptureEvent{
		Event:      event,
		Properties: withDistinctID(distinctID, props),
	}
}

// BuildTimestampedCapture is BuildCaptureEvent with an explicit event time.
func BuildTimestampedCapture(distinctID, event string, props Properties, ts time.Time) CaptureEvent {
	e := BuildCaptureEvent(distinctID, event, props)
	e.Timestamp = FormatTimestamp(ts)
	return e
}

// FormatTimestamp renders ts as ISO-8601 in UTC.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

// BuildBatch wraps items into a batch, preserving their order.
func BuildBatch(items []BatchItem) BatchEvent {
	events := make([]BatchItem, len(items))
	for i, it := range items {
		events[i] = BatchItem{
			Event:      it.Event,
			Properties: copyProps(it.Properties),
			Timestamp:  it.Timestamp,
		}
	}
	return BatchEvent{Events: events}
}

// BuildAlias returns an alias event linking alias to distinctID.
func BuildAlias(distinctID, alias string) AliasEvent {
	return AliasEvent{DistinctID: distinctID, Alias: alias}
}

// BuildIdentify returns an identify event setting set on distinctID. set is copied.
func BuildIdentify(distinctID string, set Properties) IdentifyEvent {
	return IdentifyEvent{DistinctID: distinctID, Set: copyProps(set)}
}

func withDistinctID(distinctID string, props Properties) Properties {
	out := copyProps(props)
	if out == nil {
		out = Properties{}
	}
	out["distinct_id"] = distinctID
	return out
}

func copyProps(props Properties) Properties {
	if props == nil {
		return nil
	}
	out := make(Properties, len(props)+1)
	for k, v := range props {
		out[k] = v
	}
	return out
}

// nonNil keeps empty property bags serialised as {} rather than null.
func nonNil(p Properties) Properties {
	if p == nil {
		return Properties{}
	}
	return p
}
