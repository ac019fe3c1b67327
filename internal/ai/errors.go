package ai

import (
	"errors"
	"fmt"
)

var ErrEmptyResponse = errors.New("no choices in response")

// GatewayError is returned for any failed completion: transport errors,
// non-2xx statuses, undecodable bodies and responses without a choice.
// Payload holds the remote error message when it could be parsed, otherwise
// the raw body. It is for logs only.
type GatewayError struct {
	Provider string
	Status   int
	Payload  string
	Err      error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Status != 0 && e.Payload != "":
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Payload)
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Provider, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return e.Provider + ": " + e.Payload
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

func asGatewayError(provider string, err error) *GatewayError {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	return &GatewayError{Provider: provider, Err: err}
}
