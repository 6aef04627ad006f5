package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/metrics"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/service"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"

	_ "github.com/aussiebroadwan/gatehouse/api/gatehouse" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// DefaultBatchModules are the module slugs allowed to batch-create
// permissions.
var DefaultBatchModules = []string{"pg"}

// Limits groups the rate-limit profiles the routes use.
type Limits struct {
	Strict   httpx.RateLimit
	Moderate httpx.RateLimit
	Lenient  httpx.RateLimit
	Public   httpx.RateLimit
}

// DefaultLimits returns the httpx profiles with any RATELIMIT_* overrides
// applied.
func DefaultLimits() Limits {
	return Limits{
		Strict:   httpx.RateLimitFromEnv("STRICT", httpx.StrictLimit),
		Moderate: httpx.RateLimitFromEnv("MODERATE", httpx.ModerateLimit),
		Lenient:  httpx.RateLimitFromEnv("LENIENT", httpx.LenientLimit),
		Public:   httpx.RateLimitFromEnv("PUBLIC", httpx.PublicLimit),
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	metrics      *metrics.Metrics

	Resolver        *service.ActorResolver
	RBACService     *service.RBACService
	CalendarService *service.CalendarService
	LoginService    *service.LoginService

	// BatchModules overrides DefaultBatchModules when set.
	BatchModules []string
	CORSOrigins  []string
	Limits       Limits
}

func NewRouter(buildVersion string, st store.Store, m *metrics.Metrics, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		metrics:      m,
		BatchModules: DefaultBatchModules,
		Limits:       DefaultLimits(),
	}
}

func (r *Router) ApplyRoutes() {
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(httpx.DefaultCORSConfig(r.CORSOrigins...)),
	}

	r.registerLogin()
	r.registerVerify()
	r.registerUsers()
	r.registerRoles()
	r.registerPermissions()
	r.registerGoogle()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Gatehouse API
//	@version		0.1.0
//	@description	Bearer-token gateway for users and service modules: token verification, role and permission management,
//	@description	and a Google Calendar proxy that keeps each user's Google credentials fresh.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/gatehouse
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				User token ("<id>|<secret>") or module secret. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h under pattern with request metrics labelled by the
// pattern.
func (r *Router) handle(pattern string, h http.Handler) {
	r.Mux.Handle(pattern, r.metrics.Middleware(pattern, h))
}

// userOnly authenticates the caller and refuses module tokens.
func (r *Router) userOnly(h http.HandlerFunc, limit httpx.RateLimit) http.Handler {
	return httpx.Chain(h,
		httpx.RateLimitByIP(r.Limits.Lenient),
		r.authenticate(service.ResolveOptions{}),
		requireUser,
		httpx.RateLimitByPrincipal(limit),
	)
}

func (r *Router) registerLogin() {
	h := &LoginHandler{Login: r.LoginService}

	r.handle("GET /auth/login", httpx.Chain(http.HandlerFunc(h.HandleLogin),
		httpx.RateLimitByIP(r.Limits.Moderate),
	))
	r.handle("GET /auth/callback", httpx.Chain(http.HandlerFunc(h.HandleCallback),
		httpx.RateLimitByIP(r.Limits.Strict),
	))
}

func (r *Router) registerVerify() {
	h := &VerifyHandler{RBAC: r.RBACService}
	r.handle("POST /v1/auth/token/verify", r.userOnly(h.HandleVerify, r.Limits.Lenient))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{RBAC: r.RBACService}
	read, write := r.Limits.Lenient, r.Limits.Moderate

	r.handle("GET /v1/users", r.userOnly(h.HandleList, read))
	r.handle("POST /v1/users", r.userOnly(h.HandleCreate, write))
	r.handle("GET /v1/users/dropdown", r.userOnly(h.HandleDropdown, read))
	r.handle("GET /v1/users/{id}", r.userOnly(h.HandleShow, read))
	r.handle("PUT /v1/users/{id}", r.userOnly(h.HandleUpdate, write))
	r.handle("DELETE /v1/users/{id}", r.userOnly(h.HandleDelete, write))
	r.handle("GET /v1/users/{id}/roles", r.userOnly(h.HandleRoles, read))
	r.handle("POST /v1/users/{id}/roles/{roleId}", r.userOnly(h.HandleAssignRole, write))
	r.handle("DELETE /v1/users/{id}/roles/{roleId}", r.userOnly(h.HandleRemoveRole, write))
	r.handle("GET /v1/users/{id}/permissions", r.userOnly(h.HandlePermissions, read))
	r.handle("POST /v1/users/{id}/permissions/{permissionId}", r.userOnly(h.HandleGivePermission, write))
	r.handle("DELETE /v1/users/{id}/permissions/{permissionId}", r.userOnly(h.HandleRevokePermission, write))
}

func (r *Router) registerRoles() {
	h := &RolesHandler{RBAC: r.RBACService}
	read, write := r.Limits.Lenient, r.Limits.Moderate

	r.handle("GET /v1/roles", r.userOnly(h.HandleList, read))
	r.handle("POST /v1/roles", r.userOnly(h.HandleCreate, write))
	r.handle("GET /v1/roles/dropdown", r.userOnly(h.HandleDropdown, read))
	r.handle("GET /v1/roles/{id}", r.userOnly(h.HandleShow, read))
	r.handle("PUT /v1/roles/{id}", r.userOnly(h.HandleUpdate, write))
	r.handle("DELETE /v1/roles/{id}", r.userOnly(h.HandleDelete, write))
	r.handle("GET /v1/roles/{id}/permissions", r.userOnly(h.HandlePermissions, read))
	r.handle("POST /v1/roles/{id}/permissions/{permissionId}", r.userOnly(h.HandleAssignPermission, write))
	r.handle("DELETE /v1/roles/{id}/permissions/{permissionId}", r.userOnly(h.HandleRevokePermission, write))
}

func (r *Router) registerPermissions() {
	h := &PermissionsHandler{RBAC: r.RBACService}
	read, write := r.Limits.Lenient, r.Limits.Moderate

	r.handle("GET /v1/permissions", r.userOnly(h.HandleList, read))
	r.handle("POST /v1/permissions", r.userOnly(h.HandleCreate, write))
	r.handle("GET /v1/permissions/dropdown", r.userOnly(h.HandleDropdown, read))
	r.handle("GET /v1/permissions/{id}", r.userOnly(h.HandleShow, read))
	r.handle("PUT /v1/permissions/{id}", r.userOnly(h.HandleUpdate, write))
	r.handle("DELETE /v1/permissions/{id}", r.userOnly(h.HandleDelete, write))
	r.handle("GET /v1/permissions/{id}/users", r.userOnly(h.HandleUsers, read))

	// Users and allow-listed modules holding permissions:batch.
	r.handle("POST /v1/permissions/batch", httpx.Chain(http.HandlerFunc(h.HandleBatch),
		httpx.RateLimitByIP(r.Limits.Lenient),
		r.authenticate(service.ResolveOptions{
			RequiredAbility: domain.AbilityPermissionsBatch,
			AllowedModules:  r.BatchModules,
		}),
		httpx.RateLimitByPrincipal(write),
	))
}

func (r *Router) registerGoogle() {
	h := &CalendarHandler{Calendar: r.CalendarService}

	r.handle("POST /v1/google/calendar/proxy", r.userOnly(h.HandleProxy, r.Limits.Moderate))
	r.handle("POST /v1/google/meet", r.userOnly(h.HandleMeet, r.Limits.Moderate))
}

func (r *Router) registerSystem() {
	r.handle("GET /livez", httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
		httpx.RateLimitByIP(r.Limits.Public),
	))
	r.handle("GET /readyz", httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
		httpx.RateLimitByIP(r.Limits.Public),
	))
	r.Mux.Handle("GET /metrics", httpx.Chain(r.metrics.Handler(),
		httpx.RateLimitByIP(r.Limits.Public),
	))
}
