package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFrames = []StackFrame{
	{
		Platform: "custom", Lang: "go", Function: "main", Filename: "main.go",
		Lineno: 42, Colno: 12, Module: "application", Resolved: false, InApp: false,
	},
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("error_event_go: This is a simulated error for testing")
	assert.Equal(t, a, Fingerprint("error_event_go: This is a simulated error for testing"))
	assert.NotEqual(t, a, Fingerprint("error_event_go: a different error"))
	assert.Len(t, a, 32)

	// md5("") keeps fingerprints compatible with existing exception groups.
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Fingerprint(""))
}

func TestBuildExceptionDeterministic(t *testing.T) {
	exc := ExceptionInput{Type: "ValueError", Value: "boom"}
	first := BuildException("u1", exc, testFrames)
	second := BuildException("u1", exc, testFrames)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	other := BuildException("u1", ExceptionInput{Type: "ValueError", Value: "bang"}, testFrames)
	assert.NotEqual(t, first.Fingerprint, other.Fingerprint)
}

func TestExceptionWireBody(t *testing.T) {
	e := BuildException("u1", ExceptionInput{Type: "Error", Value: "boom"}, testFrames)
	assert.Equal(t, CaptureRoute, e.Route())

	b, err := json.Marshal(e.Body("k"))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"api_key": "k",
		"event": "$exception",
		"properties": {
			"distinct_id": "u1",
			"$exception_fingerprint": "`+Fingerprint("boom")+`",
			"$exception_list": [{
				"type": "Error",
				"value": "boom",
				"mechanism": {"handled": true, "synthetic": false},
				"stacktrace": {
					"type": "raw",
					"frames": [{
						"platform": "custom", "lang": "go", "function": "main",
						"filename": "main.go", "lineno": 42, "colno": 12,
						"module": "application", "resolved": false, "in_app": false
					}]
				}
			}]
		}
	}`, string(b))
}

func TestExceptionWithoutFramesSerialisesEmptyList(t *testing.T) {
	b, err := json.Marshal(BuildException("u1", ExceptionInput{Type: "Error", Value: "x"}, nil).Body("k"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"frames":[]`)
}
