package rabbitmq

import "fmt"

// TransportError reports that the broker could not be reached within the
// configured attempts. Callers must treat the payload as not yet delivered.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rabbitmq: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
