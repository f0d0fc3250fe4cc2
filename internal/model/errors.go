package model

import "fmt"

// MalformedMessage marks a payload that can never be processed (unparsable
// JSON, missing required fields). Consumers acknowledge and log these rather
// than rejecting them, so they cannot loop as poison messages.
type MalformedMessage struct {
	Queue string
	Err   error
}

func (e *MalformedMessage) Error() string {
	return fmt.Sprintf("malformed message on %s: %v", e.Queue, e.Err)
}

func (e *MalformedMessage) Unwrap() error { return e.Err }

// CollaboratorUnavailable marks a best-effort call to an external collaborator
// that timed out, failed, or was short-circuited by its breaker. The decision
// path proceeds without the collaborator's input.
type CollaboratorUnavailable struct {
	Name string
	Err  error
}

func (e *CollaboratorUnavailable) Error() string {
	return fmt.Sprintf("collaborator %s unavailable: %v", e.Name, e.Err)
}

func (e *CollaboratorUnavailable) Unwrap() error { return e.Err }
