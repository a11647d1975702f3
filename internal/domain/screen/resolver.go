package screen

import (
	"net/url"
	"strings"
	"time"

	"github.com/coagronet/console/internal/domain/session"
)

// Routes holds the URL paths with special meaning for the resolver.
type Routes struct {
	BasePath      string
	DashboardPath string
}

// DefaultRoutes returns the production routes.
func DefaultRoutes() Routes {
	return Routes{
		BasePath:      "/coagronet",
		DashboardPath: "/dashboard",
	}
}

func (r Routes) verifyPath() string        { return r.BasePath + "/auth/verify" }
func (r Routes) resetPasswordPath() string { return r.BasePath + "/auth/reset-password" }
func (r Routes) onboardingPersona() string { return r.BasePath + "/onboarding/persona" }
func (r Routes) onboardingEmpresa() string { return r.BasePath + "/onboarding/empresa" }

// Request is one navigation event.
type Request struct {
	Path    string
	Query   url.Values
	Session session.Values
	Now     time.Time
}

// ParseLocation splits a raw location ("/path?query") into path and query.
// Unparseable queries are dropped.
func ParseLocation(raw string) (string, url.Values) {
	u, err := url.Parse(raw)
	if err != nil {
		path, _, _ := strings.Cut(raw, "?")
		return path, url.Values{}
	}
	return u.Path, u.Query()
}

// Resolution is the screen to mount for a Request.
type Resolution struct {
	Screen Screen `json:"screen"`
	Layout Layout `json:"layout"`
	// ClearSession asks the caller to wipe every session key.
	ClearSession bool              `json:"clearSession"`
	Params       map[string]string `json:"params,omitempty"`
}

// Shell reports whether the navigation shell is shown.
func (r Resolution) Shell() bool {
	return r.Layout == LayoutShell
}

// Resolver decides which screen to mount on a navigation event. It performs
// no I/O.
type Resolver struct {
	routes Routes
}

// NewResolver creates a Resolver for the given routes.
func NewResolver(routes Routes) *Resolver {
	if routes.DashboardPath == "" {
		routes.DashboardPath = DefaultRoutes().DashboardPath
	}
	routes.BasePath = strings.TrimRight(routes.BasePath, "/")
	return &Resolver{routes: routes}
}

// Resolve applies the navigation rules in priority order; the first match
// wins.
func (r *Resolver) Resolve(req Request) Resolution {
	path := normalizePath(req.Path)
	valid := req.Session.TokenValid(req.Now)

	// Account lifecycle links from e-mails work with or without a session.
	switch path {
	case r.routes.verifyPath():
		return public(Verify, oneTimeToken(req.Query))
	case r.routes.resetPasswordPath():
		return public(ResetPassword, oneTimeToken(req.Query))
	}

	// Onboarding is shown without the shell even to a signed-in user.
	if valid {
		switch path {
		case r.routes.onboardingPersona():
			return public(OnboardingPersona, nil)
		case r.routes.onboardingEmpresa():
			return public(OnboardingEmpresa, nil)
		}
	}

	if path == r.routes.DashboardPath {
		if valid {
			return shell(Home)
		}
		return public(Landing, nil)
	}

	if !valid {
		return signedOut()
	}

	key, ok := session.ParseActiveModule(req.Session.Get(session.KeyActiveModule))
	if !ok {
		return signedOut()
	}
	s, known := ParseKey(key)
	switch {
	case !known:
		return shell(Home)
	case s.Onboarding():
		return public(s, nil)
	case s.Public():
		// Public pages are reached through their own URLs, not the registry.
		return shell(Home)
	default:
		return shell(s)
	}
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func oneTimeToken(q url.Values) map[string]string {
	if t := q.Get("token"); t != "" {
		return map[string]string{"token": t}
	}
	return nil
}

func public(s Screen, params map[string]string) Resolution {
	return Resolution{Screen: s, Layout: LayoutPublic, Params: params}
}

func shell(s Screen) Resolution {
	return Resolution{Screen: s, Layout: LayoutShell}
}

func signedOut() Resolution {
	return Resolution{Screen: Landing, Layout: LayoutPublic, ClearSession: true}
}
