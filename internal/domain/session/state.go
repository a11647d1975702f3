package session

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CompanyRole is one (company, role) pair a user may act as.
type CompanyRole struct {
	EmpresaID     int64  `json:"empresaId"`
	EmpresaNombre string `json:"empresaNombre"`
	RolID         int64  `json:"rolId"`
	RolNombre     string `json:"rolNombre"`
}

// Company groups the roles held in one company. This is the stored shape of
// rolesByCompany.
type Company struct {
	EmpresaID     int64  `json:"empresaId"`
	EmpresaNombre string `json:"empresaNombre"`
	Roles         []Role `json:"roles"`
}

// Role is a role inside a company.
type Role struct {
	RolID     int64  `json:"rolId"`
	RolNombre string `json:"rolNombre"`
}

// State is the typed view over Values. Building it never fails: malformed
// values come out as zero values.
type State struct {
	Token           string        `json:"-"`
	TokenExpiration int64         `json:"tokenExpiration,omitempty"`
	ActiveModule    string        `json:"activeModule,omitempty"`
	SidebarOpen     bool          `json:"sidebarOpen"`
	DarkMode        bool          `json:"darkMode"`
	EmpresaID       int64         `json:"empresaId,omitempty"`
	RolID           int64         `json:"rolId,omitempty"`
	EmpresaNombre   string        `json:"empresaNombre,omitempty"`
	RolNombre       string        `json:"rolNombre,omitempty"`
	RolesByCompany  []CompanyRole `json:"rolesByCompany,omitempty"`
}

// State decodes v.
func (v Values) State() State {
	s := State{
		Token:         v.Get(KeyToken),
		SidebarOpen:   parseFlag(v.Get(KeySidebarOpen)),
		DarkMode:      parseFlag(v.Get(KeyDarkMode)),
		EmpresaNombre: v.Get(KeyEmpresaNombre),
		RolNombre:     v.Get(KeyRolNombre),
	}
	if ms, ok := parseMillis(v.Get(KeyTokenExpiration)); ok {
		s.TokenExpiration = ms
	}
	if key, ok := ParseActiveModule(v.Get(KeyActiveModule)); ok {
		s.ActiveModule = key
	}
	s.EmpresaID = parseID(v.Get(KeyEmpresaID))
	s.RolID = parseID(v.Get(KeyRolID))
	s.RolesByCompany, _ = ParseRolesByCompany(v.Get(KeyRolesByCompany))
	return s
}

// Authenticated reports whether the state carries a valid token at now.
func (s State) Authenticated(now time.Time) bool {
	return s.Token != "" && s.TokenExpiration > now.UnixMilli()
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ParseRolesByCompany decodes the cached role list. Both the grouped shape
// ([]Company) and a flat []CompanyRole are accepted.
func ParseRolesByCompany(raw string) ([]CompanyRole, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var grouped []Company
	if err := json.Unmarshal([]byte(raw), &grouped); err == nil && hasRoles(grouped) {
		return Flatten(grouped), nil
	}

	var flat []CompanyRole
	if err := json.Unmarshal([]byte(raw), &flat); err != nil {
		return nil, err
	}
	return flat, nil
}

func hasRoles(companies []Company) bool {
	for _, c := range companies {
		if len(c.Roles) > 0 {
			return true
		}
	}
	return false
}

// Flatten turns the grouped shape into pairs, keeping input order.
func Flatten(companies []Company) []CompanyRole {
	var out []CompanyRole
	for _, c := range companies {
		for _, r := range c.Roles {
			out = append(out, CompanyRole{
				EmpresaID:     c.EmpresaID,
				EmpresaNombre: c.EmpresaNombre,
				RolID:         r.RolID,
				RolNombre:     r.RolNombre,
			})
		}
	}
	return out
}

// Group turns pairs into the grouped shape. Companies keep the order of
// their first appearance.
func Group(pairs []CompanyRole) []Company {
	index := make(map[int64]int)
	var out []Company
	for _, p := range pairs {
		i, ok := index[p.EmpresaID]
		if !ok {
			i = len(out)
			index[p.EmpresaID] = i
			out = append(out, Company{EmpresaID: p.EmpresaID, EmpresaNombre: p.EmpresaNombre})
		}
		out[i].Roles = append(out[i].Roles, Role{RolID: p.RolID, RolNombre: p.RolNombre})
	}
	return out
}

// EncodeRolesByCompany stores pairs in the grouped shape.
func EncodeRolesByCompany(pairs []CompanyRole) string {
	if len(pairs) == 0 {
		return ""
	}
	b, _ := json.Marshal(Group(pairs))
	return string(b)
}

// Companies returns the distinct companies in pairs, sorted by name.
func Companies(pairs []CompanyRole) []Company {
	groups := Group(pairs)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].EmpresaNombre < groups[j].EmpresaNombre
	})
	return groups
}

// RolesFor returns the roles held in the given company.
func RolesFor(pairs []CompanyRole, empresaID int64) []Role {
	var out []Role
	for _, p := range pairs {
		if p.EmpresaID == empresaID {
			out = append(out, Role{RolID: p.RolID, RolNombre: p.RolNombre})
		}
	}
	return out
}

// Lookup finds the pair for (empresaID, rolID).
func Lookup(pairs []CompanyRole, empresaID, rolID int64) (CompanyRole, bool) {
	for _, p := range pairs {
		if p.EmpresaID == empresaID && p.RolID == rolID {
			return p, true
		}
	}
	return CompanyRole{}, false
}
