package dto

import "github.com/coagronet/console/internal/domain/notify"

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	// Notifications are the toasts the client shows for this response.
	Notifications []notify.Notification `json:"notifications,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta represents pagination metadata
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}, notes ...notify.Notification) Response {
	return Response{
		Success:       true,
		Data:          data,
		Notifications: notes,
	}
}

// NewSuccessResponseWithMeta creates a success response with pagination meta.
// A pageSize of zero means the whole collection fits in one page.
func NewSuccessResponseWithMeta(data interface{}, total int64, page, pageSize int) Response {
	totalPages := 1
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		},
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string, notes ...notify.Notification) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
		Notifications: notes,
	}
}

// IDRequest represents a request with a numeric record id path parameter
type IDRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}
