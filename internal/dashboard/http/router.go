package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wattlehq/partnerdesk/internal/dashboard/domain"
	"github.com/wattlehq/partnerdesk/internal/dashboard/service"
	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
	"github.com/wattlehq/partnerdesk/internal/importer"
	"github.com/wattlehq/partnerdesk/pkg/httpx"
	"github.com/wattlehq/partnerdesk/pkg/jwtx"
	"github.com/wattlehq/partnerdesk/pkg/slogx"

	_ "github.com/wattlehq/partnerdesk/api/dashboard" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       *jwtx.Signer
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	AuthService     *service.AuthService
	MFAService      *service.MFAService
	UserService     *service.UserService
	RegistryService *service.RegistryService
	Importer        *importer.Importer // Optional: nil when no import dir is configured

	// SecureCookies is forwarded to the session cookie attributes.
	SecureCookies bool
}

func NewRouter(
	signer *jwtx.Signer,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerMFA()
	r.registerUsers()
	r.registerRegistry()
	r.registerImports()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			PartnerDesk API
//	@version		0.1.0
//	@description	Partner management dashboard: accounts with TOTP two-factor
//	@description	authentication, partner/personnel/deliverable registers with
//	@description	CSV export, and a spreadsheet drop-directory importer.
//
//	@contact.name	WattleHQ
//	@contact.url	https://github.com/wattlehq/partnerdesk
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
//
//	@securityDefinitions.apikey	SessionAuth
//	@in							header
//	@name						Authorization
//	@description				Session JWT. Format: "Bearer {token}". Browsers use the pd_session cookie instead.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService:   r.AuthService,
		MFAService:    r.MFAService,
		SecureCookies: r.SecureCookies,
	}

	// Credential endpoints get the strict limit, keyed by IP because the
	// caller has no session yet.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/2fa",
		httpx.Chain(http.HandlerFunc(h.HandleTwoFactor),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/password/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{MFAService: r.MFAService}

	r.Mux.Handle("POST /v1/mfa/setup",
		httpx.Chain(http.HandlerFunc(h.HandleSetup),
			httpx.AuthnMiddleware(r.signer),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// Code verification endpoints are strict: a lenient limit would let an
	// attacker walk the TOTP space.
	r.Mux.Handle("POST /v1/mfa/enable",
		httpx.Chain(http.HandlerFunc(h.HandleEnable),
			httpx.AuthnMiddleware(r.signer),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/mfa/disable",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			httpx.AuthnMiddleware(r.signer),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	admin := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.signer),
			httpx.RequireRole(string(domain.RoleAdmin)),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/users", admin(h.HandleProvision))
	r.Mux.Handle("GET /v1/users", admin(h.HandleList))
	r.Mux.Handle("GET /v1/users/{id}", admin(h.HandleGet))
	r.Mux.Handle("PUT /v1/users/{id}/role", admin(h.HandleSetRole))
	r.Mux.Handle("PUT /v1/users/{id}/active", admin(h.HandleSetActive))

	r.Mux.Handle("GET /v1/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			httpx.AuthnMiddleware(r.signer),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PUT /v1/me/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			httpx.AuthnMiddleware(r.signer),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerRegistry() {
	h := &RegistryHandler{RegistryService: r.RegistryService}

	read := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.signer),
			httpx.RateLimitByUser(httpx.LenientLimit),
		)
	}
	write := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.signer),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	type collection struct {
		path                                  string
		list, get, create, update, del, export http.HandlerFunc
	}
	collections := []collection{
		{"/v1/partners", h.HandleListPartners, h.HandleGetPartner, h.HandleCreatePartner, h.HandleUpdatePartner, h.HandleDeletePartner, h.HandleExportPartners},
		{"/v1/external-partners", h.HandleListExternalPartners, h.HandleGetExternalPartner, h.HandleCreateExternalPartner, h.HandleUpdateExternalPartner, h.HandleDeleteExternalPartner, h.HandleExportExternalPartners},
		{"/v1/personnel", h.HandleListPersonnel, h.HandleGetPersonnel, h.HandleCreatePersonnel, h.HandleUpdatePersonnel, h.HandleDeletePersonnel, h.HandleExportPersonnel},
		{"/v1/deliverables", h.HandleListDeliverables, h.HandleGetDeliverable, h.HandleCreateDeliverable, h.HandleUpdateDeliverable, h.HandleDeleteDeliverable, h.HandleExportDeliverables},
		{"/v1/financials", h.HandleListFinancials, h.HandleGetFinancial, h.HandleCreateFinancial, h.HandleUpdateFinancial, h.HandleDeleteFinancial, h.HandleExportFinancials},
		{"/v1/compliance", h.HandleListCompliance, h.HandleGetCompliance, h.HandleCreateCompliance, h.HandleUpdateCompliance, h.HandleDeleteCompliance, h.HandleExportCompliance},
	}

	for _, c := range collections {
		// "export" is registered before "{id}" only for readability; the
		// literal segment wins routing either way.
		r.Mux.Handle("GET "+c.path+"/export", read(c.export))
		r.Mux.Handle("GET "+c.path, read(c.list))
		r.Mux.Handle("GET "+c.path+"/{id}", read(c.get))
		r.Mux.Handle("POST "+c.path, write(c.create))
		r.Mux.Handle("PUT "+c.path+"/{id}", write(c.update))
		r.Mux.Handle("DELETE "+c.path+"/{id}", write(c.del))
	}
}

func (r *Router) registerImports() {
	if r.Importer == nil {
		return
	}
	h := &ImportsHandler{Importer: r.Importer}

	r.Mux.Handle("POST /v1/imports/scan",
		httpx.Chain(http.HandlerFunc(h.HandleScan),
			httpx.AuthnMiddleware(r.signer),
			httpx.RequireRole(string(domain.RoleAdmin)),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/imports/state",
		httpx.Chain(http.HandlerFunc(h.HandleState),
			httpx.AuthnMiddleware(r.signer),
			httpx.RequireRole(string(domain.RoleAdmin)),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
