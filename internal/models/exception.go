package models

import (
	"crypto/md5"
	"encoding/hex"
)

// ExceptionInput names the exception being reported. Callers fill it in
// explicitly instead of relying on the runtime type of an error.
type ExceptionInput struct {
	Type  string
	Value string
}

// StackFrame is one frame of a raw stack trace.
type StackFrame struct {
	Platform string `json:"platform"`
	Lang     string `json:"lang"`
	Function string `json:"function"`
	Filename string `json:"filename"`
	Lineno   int    `json:"lineno"`
	Colno    int    `json:"colno"`
	Module   string `json:"module"`
	Resolved bool   `json:"resolved"`
	InApp    bool   `json:"in_app"`
}

type mechanism struct {
	Handled   bool `json:"handled"`
	Synthetic bool `json:"synthetic"`
}

type stacktrace struct {
	Type   string       `json:"type"`
	Frames []StackFrame `json:"frames"`
}

type exceptionEntry struct {
	Type       string     `json:"type"`
	Value      string     `json:"value"`
	Mechanism  mechanism  `json:"mechanism"`
	Stacktrace stacktrace `json:"stacktrace"`
}

// ExceptionEvent reports a handled exception with its stack.
type ExceptionEvent struct {
	DistinctID  string
	Exception   ExceptionInput
	Frames      []StackFrame
	Fingerprint string
}

func (e ExceptionEvent) Route() string { return CaptureRoute }

func (e ExceptionEvent) Body(apiKey string) any {
	frames := e.Frames
	if frames == nil {
		frames = []StackFrame{}
	}
	return captureBody{
		APIKey: apiKey,
		Event:  ExceptionEventName,
		Properties: Properties{
			"distinct_id": e.DistinctID,
			"$exception_list": []exceptionEntry{{
				Type:      e.Exception.Type,
				Value:     e.Exception.Value,
				Mechanism: mechanism{Handled: true, Synthetic: false},
				Stacktrace: stacktrace{
					Type:   "raw",
					Frames: frames,
				},
			}},
			"$exception_fingerprint": e.Fingerprint,
		},
	}
}

// BuildException returns an exception event whose fingerprint is derived
// from the exception value.
func BuildException(distinctID string, exc ExceptionInput, frames []StackFrame) ExceptionEvent {
	return ExceptionEvent{
		DistinctID:  distinctID,
		Exception:   exc,
		Frames:      append([]StackFrame(nil), frames...),
		Fingerprint: Fingerprint(exc.Value),
	}
}

// Fingerprint is the hex MD5 of value. It groups identical exceptions and is
// not a security control.
func Fingerprint(value string) string {
	sum := md5.Sum([]byte(value))
	return hex.EncodeToString(sum[:])
}
