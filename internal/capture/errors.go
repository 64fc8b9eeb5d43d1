package capture

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: POST %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// transportCause strips the layers that repeat the method and URL: the
// retry client's give-up wrapper and net/http's *url.Error.
func transportCause(ctx context.Context, err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// ResponseDecodeError means the response body was not valid JSON. Raw holds
// the body as received.
type ResponseDecodeError struct {
	URL string
	Raw string
	Err error
}

func (e *ResponseDecodeError) Error() string {
	return fmt.Sprintf("response decode error: %s: invalid JSON body %q", e.URL, e.Raw)
}

func (e *ResponseDecodeError) Unwrap() error { return e.Err }

// StatusError is returned for non-2xx responses unless the client is
// configured to ignore status codes.
type StatusError struct {
	URL        string
	StatusCode int
	Raw        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: POST %s: %d: %s", e.URL, e.StatusCode, e.Raw)
}
