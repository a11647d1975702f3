package handler

import (
	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/interfaces/http/dto"
)

// APIResponse is dto.Response with a typed data field. Clients such as
// consolectl decode responses into it.
type APIResponse[T any] struct {
	Success       bool                  `json:"success"`
	Data          T                     `json:"data,omitempty"`
	Error         *dto.ErrorInfo        `json:"error,omitempty"`
	Meta          *dto.Meta             `json:"meta,omitempty"`
	Notifications []notify.Notification `json:"notifications,omitempty"`
}

// LogoutData is returned by the logout endpoint.
type LogoutData struct {
	SignedOut bool `json:"signedOut"`
}

// MessageData carries the outcome of the account lifecycle endpoints.
type MessageData struct {
	Message string `json:"message"`
}
