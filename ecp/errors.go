package ecp

import (
	"context"
	"fmt"
	"net"

	"github.com/pkg/errors"
)

var (
	// ErrUnreachable - the device refused the connection or there is no
	// route to it.
	ErrUnreachable = errors.New("ecp: device unreachable")

	// ErrTimeout - the device did not answer within the configured
	// timeout. The device may still process the request.
	ErrTimeout = errors.New("ecp: request timed out")

	// ErrMalformedResponse - the device answered but the XML payload
	// could not be parsed.
	ErrMalformedResponse = errors.New("ecp: malformed device response")
)

// StatusError is returned when the device answers with a non-2xx
// status code.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ecp: device returned status %d", e.Code)
}

// classifyTransportError maps a transport failure from the HTTP client
// to the error taxonomy. Timeouts surface both as context deadlines
// and as net.Error timeouts depending on where the clock ran out.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
