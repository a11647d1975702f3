package session

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrUnknownKey is returned when an Update names a key outside AllKeys.
var ErrUnknownKey = errors.New("unknown session key")

// Store persists session values. Apply must write every key of an Update or
// none of them.
type Store interface {
	// Load returns the stored values. A session that was never written is
	// returned as empty Values, not as an error.
	Load(ctx context.Context, sid string) (Values, error)
	// Apply writes one Update atomically.
	Apply(ctx context.Context, sid string, u Update) error
	// Clear removes every key of the session.
	Clear(ctx context.Context, sid string) error
}

// Update is a single atomic change to a session.
type Update struct {
	Set    map[Key]string
	Delete []Key
}

// Validate checks that every key is known.
func (u Update) Validate() error {
	for k := range u.Set {
		if !k.Valid() {
			return ErrUnknownKey
		}
	}
	for _, k := range u.Delete {
		if !k.Valid() {
			return ErrUnknownKey
		}
	}
	return nil
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return len(u.Set) == 0 && len(u.Delete) == 0
}

// ApplyTo returns v with u applied. Keys set to "" are deleted.
func (u Update) ApplyTo(v Values) Values {
	out := v.Clone()
	for _, k := range u.Delete {
		delete(out, k)
	}
	for k, val := range u.Set {
		if val == "" {
			delete(out, k)
			continue
		}
		out[k] = val
	}
	return out
}

// Login describes a freshly issued session token.
type Login struct {
	Token          string
	ExpiresAt      time.Time
	ActiveModule   string
	Context        *CompanyRole
	RolesByCompany []CompanyRole
}

// NewLoginUpdate replaces the token, expiry, role cache and active module in
// one write. A previous company/role context is dropped unless the new token
// carries one.
func NewLoginUpdate(l Login) Update {
	u := Update{Set: map[Key]string{
		KeyToken:           l.Token,
		KeyTokenExpiration: EncodeMillis(l.ExpiresAt),
		KeyRolesByCompany:  EncodeRolesByCompany(l.RolesByCompany),
	}}
	if l.ActiveModule != "" {
		u.Set[KeyActiveModule] = EncodeActiveModule(l.ActiveModule)
	} else {
		u.Delete = append(u.Delete, KeyActiveModule)
	}
	if l.Context != nil {
		setContext(u.Set, *l.Context)
	} else {
		u.Delete = append(u.Delete, KeyEmpresaID, KeyRolID, KeyEmpresaNombre, KeyRolNombre)
	}
	return u
}

// NewContextUpdate stores a context-scoped token together with the chosen
// company and role.
func NewContextUpdate(token string, expiresAt time.Time, cr CompanyRole) Update {
	u := Update{Set: map[Key]string{
		KeyToken:           token,
		KeyTokenExpiration: EncodeMillis(expiresAt),
	}}
	setContext(u.Set, cr)
	return u
}

func setContext(set map[Key]string, cr CompanyRole) {
	set[KeyEmpresaID] = strconv.FormatInt(cr.EmpresaID, 10)
	set[KeyRolID] = strconv.FormatInt(cr.RolID, 10)
	set[KeyEmpresaNombre] = cr.EmpresaNombre
	set[KeyRolNombre] = cr.RolNombre
}

// Preferences are the UI flags kept in the session. Nil fields are left
// untouched.
type Preferences struct {
	SidebarOpen *bool `json:"sidebarOpen"`
	DarkMode    *bool `json:"darkMode"`
}

// PreferencesUpdate stores the non-nil flags.
func PreferencesUpdate(p Preferences) Update {
	u := Update{Set: map[Key]string{}}
	if p.SidebarOpen != nil {
		u.Set[KeySidebarOpen] = strconv.FormatBool(*p.SidebarOpen)
	}
	if p.DarkMode != nil {
		u.Set[KeyDarkMode] = strconv.FormatBool(*p.DarkMode)
	}
	return u
}

// ActiveModuleUpdate stores the last active screen key. An empty key
// removes it.
func ActiveModuleUpdate(key string) Update {
	if key == "" {
		return Update{Delete: []Key{KeyActiveModule}}
	}
	return Update{Set: map[Key]string{KeyActiveModule: EncodeActiveModule(key)}}
}
