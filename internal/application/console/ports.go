// Package console holds the application services behind the console's HTTP
// API and CLI: sign-in, company/role context, navigation, resource CRUD,
// dependent selectors and reports.
package console

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coagronet/console/internal/domain/resource"
	"github.com/coagronet/console/internal/infrastructure/auth"
	"github.com/coagronet/console/internal/infrastructure/storage"
	"github.com/coagronet/console/internal/infrastructure/upstream"
)

// AuthGateway is the account part of the inventory API.
type AuthGateway interface {
	Login(ctx context.Context, req upstream.LoginRequest) (*upstream.LoginResponse, error)
	SwitchContext(ctx context.Context, token string, req upstream.SwitchContextRequest) (string, error)
	Verify(ctx context.Context, verificationToken string) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ChangePassword(ctx context.Context, resetToken, password string) (string, error)
}

// ResourceGateway is the CRUD part of the inventory API.
type ResourceGateway interface {
	List(ctx context.Context, token string, d resource.Descriptor, page, size int, parentID int64) (resource.Page, error)
	Create(ctx context.Context, token string, d resource.Descriptor, rec resource.Record) (resource.Record, error)
	Update(ctx context.Context, token string, d resource.Descriptor, id int64, rec resource.Record) (resource.Record, error)
	Delete(ctx context.Context, token string, d resource.Descriptor, id int64) error
}

// ReportGateway renders reports.
type ReportGateway interface {
	Report(ctx context.Context, token, name string, filter json.RawMessage) (*upstream.Report, error)
}

// ReportArchive stores rendered reports.
type ReportArchive interface {
	Archive(ctx context.Context, key string, data []byte, contentType string) (*storage.Archived, error)
}

// TokenInspector reads token payloads without verifying them.
type TokenInspector interface {
	Inspect(token string) auth.TokenInfo
}

// Metrics receives the console's domain counters.
type Metrics interface {
	RecordLogin(outcome string)
	RecordContextSwitch(outcome string)
	RecordReport(report, outcome string)
	RecordResourceFailure(resource, operation string)
	SetCascadeChains(n int)
}

type nopMetrics struct{}

func (nopMetrics) RecordLogin(string)                  {}
func (nopMetrics) RecordContextSwitch(string)          {}
func (nopMetrics) RecordReport(string, string)         {}
func (nopMetrics) RecordResourceFailure(string, string) {}
func (nopMetrics) SetCascadeChains(int)                {}

// Outcome labels passed to Metrics.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Clock returns the current time.
type Clock func() time.Time
