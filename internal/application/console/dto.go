package console

import (
	"github.com/coagronet/console/internal/domain/cascade"
	"github.com/coagronet/console/internal/domain/notify"
	"github.com/coagronet/console/internal/domain/resource"
	"github.com/coagronet/console/internal/domain/screen"
	"github.com/coagronet/console/internal/domain/session"
)

// Account states reported by the login endpoint.
const (
	AccountPendingPersona = "PENDIENTE_PERSONA"
	AccountPendingEmpresa = "PENDIENTE_EMPRESA"
)

// LoginResult is the outcome of a successful sign-in.
type LoginResult struct {
	State        session.State `json:"session"`
	AccountState string        `json:"accountState,omitempty"`
	// NeedsContextSwitch is set when the user holds several company/role
	// pairs and the token is not yet scoped to one of them.
	NeedsContextSwitch bool                  `json:"needsContextSwitch"`
	Next               screen.Screen         `json:"next"`
	Notifications      []notify.Notification `json:"-"`
}

// SessionView is the session as shown to the browser.
type SessionView struct {
	Authenticated bool              `json:"authenticated"`
	State         session.State     `json:"state"`
	Companies     []session.Company `json:"companies,omitempty"`
}

// ContextOptions lists the company/role pairs the user can switch to.
type ContextOptions struct {
	Companies []session.Company `json:"companies"`
	// Roles are the roles of the selected company.
	Roles     []session.Role `json:"roles"`
	EmpresaID int64          `json:"empresaId,omitempty"`
	// RolID is preselected when the company has a single role.
	RolID int64 `json:"rolId,omitempty"`
	// Skippable is set when exactly one pair exists.
	Skippable bool                 `json:"skippable"`
	Current   *session.CompanyRole `json:"current,omitempty"`
}

// SwitchResult is the outcome of a context switch. Reload asks the client
// to refetch everything scoped to the previous context.
type SwitchResult struct {
	Reload       bool                `json:"reload"`
	Context      session.CompanyRole `json:"context"`
	State        session.State       `json:"session"`
	Notification notify.Notification `json:"-"`
}

// ListQuery selects a page of a resource.
type ListQuery struct {
	Page     int   `form:"page" binding:"omitempty,min=0"`
	Size     int   `form:"size" binding:"omitempty,min=0,max=500"`
	ParentID int64 `form:"parentId" binding:"omitempty,min=0"`
}

// MutationResult is the outcome of a create, update or delete.
type MutationResult struct {
	Record       resource.Record     `json:"record,omitempty"`
	Notification notify.Notification `json:"-"`
}

// CascadeView is the state of one dependent-selection chain.
type CascadeView struct {
	Chain  string                  `json:"chain"`
	Levels []cascade.LevelSnapshot `json:"levels"`
	// Notification reports a failed level fetch; ancestors stay selected.
	Notification *notify.Notification `json:"-"`
}
