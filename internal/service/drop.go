package service

import "fmt"

// Reason identifies the pipeline step that discarded a message. Reasons are
// used verbatim as log fields and metric labels.
type Reason string

const (
	ReasonInvalidPayload    Reason = "invalid payload"
	ReasonNoHardwareID      Reason = "no hardware id"
	ReasonInvalidSensorType Reason = "invalid sensor type"
	ReasonNoMapping         Reason = "no mapping"
	ReasonInvalidMapping    Reason = "invalid mapping entry"
	ReasonTwinNotFound      Reason = "twin not found"
	ReasonZoneNotFound      Reason = "zone not found"
	ReasonMissingValue      Reason = "missing value"
	ReasonInvalidValue      Reason = "invalid value"
	ReasonSensorNotFound    Reason = "sensor not found"
	ReasonLookupFailed      Reason = "lookup failed"
	ReasonInsertFailed      Reason = "insert failed"
	ReasonInternal          Reason = "internal error"
)

// DropError reports a message that was discarded. Err is set when the drop
// was caused by an underlying failure rather than by the message content.
type DropError struct {
	Reason Reason
	Detail string
	Err    error
}

func (e *DropError) Error() string {
	msg := string(e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DropError) Unwrap() error { return e.Err }

func drop(reason Reason, format string, args ...any) *DropError {
	return &DropError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func dropErr(reason Reason, err error, format string, args ...any) *DropError {
	return &DropError{Reason: reason, Detail: fmt.Sprintf(format, args...), Err: err}
}
