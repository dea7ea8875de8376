package authz

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"storefront-state/internal/domain"
	"storefront-state/internal/observability"

	"github.com/go-chi/chi/v5"
)

// DefaultLoginPath is the login surface used when none is configured
const DefaultLoginPath = "/auth/login"

// Denial reasons
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonForbidden       = "forbidden"
)

// IdentityReader exposes the current identity. *session.Store implements it.
type IdentityReader interface {
	CurrentIdentity() *domain.Identity
}

// Route is a guarded destination pattern in chi syntax. Empty Roles means
// any authenticated identity may enter.
type Route struct {
	Pattern string
	Roles   []domain.Role
}

// DefaultRoutes guards the storefront areas
var DefaultRoutes = []Route{
	{Pattern: "/admin", Roles: []domain.Role{domain.RoleAdmin}},
	{Pattern: "/admin/*", Roles: []domain.Role{domain.RoleAdmin}},
	{Pattern: "/seller", Roles: []domain.Role{domain.RoleSeller}},
	{Pattern: "/seller/*", Roles: []domain.Role{domain.RoleSeller}},
	{Pattern: "/products", Roles: nil},
	{Pattern: "/products/*", Roles: nil},
	{Pattern: "/cart", Roles: nil},
	{Pattern: "/cart/*", Roles: nil},
}

// Decision is the outcome of a navigation check
type Decision struct {
	Allowed    bool
	RedirectTo string
	// ReturnTo is the originally requested destination when the user must log in
	ReturnTo string
	Reason   string
}

// RedirectURL renders the redirect target with the returnUrl parameter.
// It is empty for allowed decisions.
func (d Decision) RedirectURL() string {
	if d.Allowed {
		return ""
	}
	if d.ReturnTo == "" {
		return d.RedirectTo
	}
	return d.RedirectTo + "?" + url.Values{"returnUrl": {d.ReturnTo}}.Encode()
}

// Guard decides whether a navigation may proceed. It reads the session on
// every call.
type Guard struct {
	sessions  IdentityReader
	loginPath string
	routes    []compiledRoute
}

// compiledRoute holds a single-pattern router used only for matching
type compiledRoute struct {
	Route
	router *chi.Mux
}

// GuardOption configures a Guard
type GuardOption func(*Guard)

// WithGuardLoginPath overrides DefaultLoginPath
func WithGuardLoginPath(path string) GuardOption {
	return func(g *Guard) {
		g.loginPath = path
	}
}

// WithRoutes replaces DefaultRoutes
func WithRoutes(routes []Route) GuardOption {
	return func(g *Guard) {
		g.setRoutes(routes)
	}
}

// NewGuard creates a guard over sessions
func NewGuard(sessions IdentityReader, opts ...GuardOption) *Guard {
	g := &Guard{
		sessions:  sessions,
		loginPath: DefaultLoginPath,
	}
	g.setRoutes(DefaultRoutes)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var noop = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

func (g *Guard) setRoutes(routes []Route) {
	g.routes = make([]compiledRoute, 0, len(routes))
	for _, route := range routes {
		r := chi.NewRouter()
		r.Get(strings.ToLower(route.Pattern), noop)
		g.routes = append(g.routes, compiledRoute{Route: route, router: r})
	}
}

// LoginPath returns the login surface the guard redirects to
func (g *Guard) LoginPath() string {
	return g.loginPath
}

// CanActivate checks destination against required roles. Empty required
// means authenticated-only.
func (g *Guard) CanActivate(destination string, required []domain.Role) Decision {
	identity := g.sessions.CurrentIdentity()

	var d Decision
	switch {
	case identity == nil:
		d = Decision{RedirectTo: g.loginPath, ReturnTo: destination, Reason: ReasonUnauthenticated}
	case len(required) > 0 && !HasAnyRole(identity, required...):
		d = Decision{RedirectTo: HomePath(identity, g.loginPath), Reason: ReasonForbidden}
	default:
		d = Decision{Allowed: true}
	}

	result := "allowed"
	if !d.Allowed {
		result = d.Reason
	}
	observability.RouteGuardDecisionsTotal.WithLabelValues(result).Inc()
	return d
}

// Check looks destination up in the route table and applies CanActivate.
// Matching is done on the cleaned, case-folded path. Destinations outside
// the table are allowed.
func (g *Guard) Check(destination string) Decision {
	required, guarded := g.match(destination)
	if !guarded {
		observability.RouteGuardDecisionsTotal.WithLabelValues("unguarded").Inc()
		return Decision{Allowed: true}
	}
	return g.CanActivate(destination, required)
}

func (g *Guard) match(destination string) ([]domain.Role, bool) {
	p, ok := canonicalPath(destination)
	if !ok {
		return nil, true
	}

	// First matching route wins
	for _, route := range g.routes {
		if route.router.Match(chi.NewRouteContext(), http.MethodGet, p) {
			return route.Roles, true
		}
	}
	return nil, false
}

// canonicalPath reduces destination to the cleaned lower-case path a router
// would serve. Query and fragment are dropped. ok is false when the path
// escaping is malformed; such destinations are treated as guarded.
func canonicalPath(destination string) (string, bool) {
	p := destination
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p, err := url.PathUnescape(p)
	if err != nil {
		return "", false
	}
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.ToLower(path.Clean("/" + p)), true
}
