package console

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/infrastructure/upstream"
)

// Failure codes. The HTTP layer maps them to status codes.
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeMissingToken     = "TOKEN_EXPIRED"
	CodeUpstreamRejected = "UPSTREAM_REJECTED"
	CodeUpstream         = "UPSTREAM_ERROR"
	CodeUpstreamOffline  = "UPSTREAM_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

var (
	// ErrMissingToken is returned when an operation needs a signed-in
	// session and the stored token is absent or expired.
	ErrMissingToken = errors.New("no valid token in session")
	// ErrUnknownResource is returned for resource names outside the catalog.
	ErrUnknownResource = errors.New("unknown resource")
	// ErrUnknownChain is returned for chain names outside the catalog.
	ErrUnknownChain = errors.New("unknown selection chain")
	// ErrUnknownContext is returned when the requested company/role pair is
	// not among the session's cached pairs.
	ErrUnknownContext = errors.New("company/role pair not available to this user")
)

// Failure is a failed operation together with the notification to show.
type Failure struct {
	Code         string
	Notification notify.Notification
	Err          error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Notification.Message
	}
	return f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure extracts a Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// failures builds Failures with localised fallbacks.
type failures struct {
	loc *notify.Localizer
}

// upstream classifies an inventory API error. The backend's message is
// shown verbatim when present.
func (fs failures) upstream(ctx context.Context, err error, fallback notify.Key, args ...any) *Failure {
	code := CodeUpstream
	var apiErr *upstream.APIError
	switch {
	case errors.Is(err, upstream.ErrUnavailable):
		return &Failure{
			Code:         CodeUpstreamOffline,
			Notification: notify.Error(fs.loc.Message(ctx, notify.MsgUpstreamOffline)),
			Err:          err,
		}
	case errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden):
		code = CodeUnauthorized
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		code = CodeNotFound
	case errors.As(err, &apiErr) && apiErr.Status < 500:
		code = CodeUpstreamRejected
	}
	return &Failure{
		Code:         code,
		Notification: notify.FromError(err, fs.loc.Message(ctx, fallback, args...)),
		Err:          err,
	}
}

func (fs failures) missingToken(ctx context.Context) *Failure {
	return &Failure{
		Code:         CodeMissingToken,
		Notification: notify.Warning(fs.loc.Message(ctx, notify.MsgMissingToken)),
		Err:          ErrMissingToken,
	}
}

func (fs failures) invalid(ctx context.Context, err error, key notify.Key, args ...any) *Failure {
	return &Failure{
		Code:         CodeInvalidInput,
		Notification: notify.Error(fs.loc.Message(ctx, key, args...)),
		Err:          err,
	}
}

func (fs failures) unknown(ctx context.Context, err error, name string) *Failure {
	return &Failure{
		Code:         CodeNotFound,
		Notification: notify.Error(fs.loc.Message(ctx, notify.MsgUnknownResource, name)),
		Err:          fmt.Errorf("%w: %q", err, name),
	}
}

func (fs failures) session(ctx context.Context, err error) *Failure {
	return &Failure{
		Code:         CodeInternal,
		Notification: notify.Error(fs.loc.Message(ctx, notify.MsgSessionFailed)),
		Err:          err,
	}
}

func (fs failures) internal(ctx context.Context, err error, key notify.Key, args ...any) *Failure {
	return &Failure{
		Code:         CodeInternal,
		Notification: notify.Error(fs.loc.Message(ctx, key, args...)),
		Err:          err,
	}
}
