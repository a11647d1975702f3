// Package notify builds the transient notifications shown to console users.
package notify

import (
	"errors"
)

// Severity of a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Notification is one toast shown to the user.
type Notification struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func Success(msg string) Notification { return Notification{Severity: SeveritySuccess, Message: msg} }
func Error(msg string) Notification   { return Notification{Severity: SeverityError, Message: msg} }
func Warning(msg string) Notification { return Notification{Severity: SeverityWarning, Message: msg} }
func Info(msg string) Notification    { return Notification{Severity: SeverityInfo, Message: msg} }

// UserMessager is implemented by errors that carry a message meant for the
// user, such as an API error body.
type UserMessager interface {
	UserMessage() string
}

// MessageOf returns the user message carried by err, if any.
func MessageOf(err error) (string, bool) {
	var um UserMessager
	if errors.As(err, &um) {
		if m := um.UserMessage(); m != "" {
			return m, true
		}
	}
	return "", false
}

// FromError converts a failure into an error notification. The message
// carried by err is used verbatim when present, otherwise fallback.
func FromError(err error, fallback string) Notification {
	if m, ok := MessageOf(err); ok {
		return Error(m)
	}
	return Error(fallback)
}
