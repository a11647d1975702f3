// Package screen defines the closed set of console screens and decides which
// one to mount for a navigation event.
package screen

import "fmt"

// Screen is a top-level console screen.
type Screen int

// Screens. The zero value is the public landing page.
const (
	Landing Screen = iota
	Verify
	ResetPassword
	OnboardingPersona
	OnboardingEmpresa
	Home
	ContextSwitch
	Persons
	Users
	Companies
	Roles
	Products
	Categories
	Brands
	Countries
	Departments
	Municipalities
	Sites
	Blocks
	Spaces
	Warehouses
	Occupancy
	PurchaseOrders
	Kardex
	EvaluationItems

	screenCount
)

type descriptor struct {
	name     string
	key      string
	resource string
}

// descriptors is indexed by Screen; TestDescriptorsAreComplete keeps it in
// step with the constants above.
var descriptors = [screenCount]descriptor{
	Landing:           {"landing", "Landing", ""},
	Verify:            {"verify", "VerificarCorreo", ""},
	ResetPassword:     {"reset-password", "RestablecerClave", ""},
	OnboardingPersona: {"onboarding-persona", "OnboardingPersona", ""},
	OnboardingEmpresa: {"onboarding-empresa", "OnboardingEmpresa", ""},
	Home:              {"home", "Inicio", ""},
	ContextSwitch:     {"context-switch", "CambiarContexto", ""},
	Persons:           {"persons", "Personas", "personas"},
	Users:             {"users", "Usuarios", "usuarios"},
	Companies:         {"companies", "Empresas", "empresas"},
	Roles:             {"roles", "Roles", "roles"},
	Products:          {"products", "Productos", "productos"},
	Categories:        {"categories", "Categorias", "categorias"},
	Brands:            {"brands", "Marcas", "marcas"},
	Countries:         {"countries", "Paises", "paises"},
	Departments:       {"departments", "Departamentos", "departamentos"},
	Municipalities:    {"municipalities", "Municipios", "municipios"},
	Sites:             {"sites", "Sedes", "sedes"},
	Blocks:            {"blocks", "Bloques", "bloques"},
	Spaces:            {"spaces", "Espacios", "espacios"},
	Warehouses:        {"warehouses", "Almacenes", "almacenes"},
	Occupancy:         {"occupancy", "Ocupaciones", "ocupaciones"},
	PurchaseOrders:    {"purchase-orders", "OrdenesCompra", "ordenes-compra"},
	Kardex:            {"kardex", "Kardex", "kardex"},
	EvaluationItems:   {"evaluation-items", "ItemsEvaluacion", "items-evaluacion"},
}

// All returns every screen in declaration order.
func All() []Screen {
	out := make([]Screen, 0, screenCount)
	for s := Screen(0); s < screenCount; s++ {
		out = append(out, s)
	}
	return out
}

// Valid reports whether s is a declared screen.
func (s Screen) Valid() bool {
	return s >= 0 && s < screenCount
}

// String returns the screen's stable name.
func (s Screen) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return descriptors[s].name
}

// Key returns the value stored in the activeModule session key.
func (s Screen) Key() string {
	if !s.Valid() {
		return ""
	}
	return descriptors[s].key
}

// Resource returns the backing resource name for CRUD screens, or "".
func (s Screen) Resource() string {
	if !s.Valid() {
		return ""
	}
	return descriptors[s].resource
}

// Onboarding reports whether s is one of the onboarding forms.
func (s Screen) Onboarding() bool {
	return s == OnboardingPersona || s == OnboardingEmpresa
}

// Public reports whether s is shown without the navigation shell when
// selected through the module registry.
func (s Screen) Public() bool {
	switch s {
	case Landing, Verify, ResetPassword, OnboardingPersona, OnboardingEmpresa:
		return true
	}
	return false
}

// ParseKey maps an activeModule key to its screen.
func ParseKey(key string) (Screen, bool) {
	for s := Screen(0); s < screenCount; s++ {
		if descriptors[s].key == key {
			return s, true
		}
	}
	return Landing, false
}

// ParseName maps a screen name (as returned by String) to its screen.
func ParseName(name string) (Screen, bool) {
	for s := Screen(0); s < screenCount; s++ {
		if descriptors[s].name == name {
			return s, true
		}
	}
	return Landing, false
}

// MarshalText encodes the screen as its name.
func (s Screen) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a screen name.
func (s *Screen) UnmarshalText(text []byte) error {
	v, ok := ParseName(string(text))
	if !ok {
		return fmt.Errorf("unknown screen %q", text)
	}
	*s = v
	return nil
}

// Layout selects the page chrome around a screen.
type Layout int

const (
	// LayoutPublic renders the screen without the navigation shell.
	LayoutPublic Layout = iota
	// LayoutShell renders the screen inside the authenticated shell.
	LayoutShell
)

// String returns "public" or "shell".
func (l Layout) String() string {
	if l == LayoutShell {
		return "shell"
	}
	return "public"
}

// MarshalText encodes the layout as its name.
func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
