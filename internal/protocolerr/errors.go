// Package protocolerr classifies the error kinds raised by the Wyoming
// engine and HTTP surface so connection and request handlers can dispatch
// on kind rather than string-matching messages.
package protocolerr

import "fmt"

// ProtocolFraming indicates a malformed frame header or length mismatch.
// Fatal to the connection.
type ProtocolFraming struct{ Err error }

func (e *ProtocolFraming) Error() string { return fmt.Sprintf("protocol framing: %v", e.Err) }
func (e *ProtocolFraming) Unwrap() error { return e.Err }

// EventSchema indicates a frame whose data JSON does not match its tag's
// expected shape. Fatal to the connection.
type EventSchema struct{ Err error }

func (e *EventSchema) Error() string { return fmt.Sprintf("event schema: %v", e.Err) }
func (e *EventSchema) Unwrap() error { return e.Err }

// SessionStateViolation indicates an event received in a state that does
// not expect it (e.g. synthesize-chunk without synthesize-start). Logged
// and ignored; never fatal.
type SessionStateViolation struct{ Detail string }

func (e *SessionStateViolation) Error() string { return "session state violation: " + e.Detail }

// Worker indicates a synthesis/transcription/LLM backend failure.
// One-shot calls close the connection; streaming sessions record it,
// finish cleanly, then close.
type Worker struct {
	Err      error
	Fatal    bool
	Streamed bool
}

func (e *Worker) Error() string { return fmt.Sprintf("worker error: %v", e.Err) }
func (e *Worker) Unwrap() error { return e.Err }

// Validation indicates a settings/request payload failed validation.
// HTTP handlers answer 400 and mutate no state.
type Validation struct{ Detail string }

func (e *Validation) Error() string { return "validation: " + e.Detail }

// Timeout indicates a per-sentence synthesis deadline expired.
// Non-fatal: the session emits whatever was captured and proceeds.
type Timeout struct{ Detail string }

func (e *Timeout) Error() string { return "timeout: " + e.Detail }

// InvalidAudioFormat indicates an STT session's captured AudioFormat does
// not satisfy the width/channels/rate invariants. Closes the connection.
type InvalidAudioFormat struct{ Detail string }

func (e *InvalidAudioFormat) Error() string { return "invalid audio format: " + e.Detail }
