package router

import (
	"github.com/gin-gonic/gin"

	"github.com/chmc/wbms-api/internal/middleware"
	"github.com/chmc/wbms-api/internal/model"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// AdminHandler is a handler with routes reserved for superusers.
type AdminHandler interface {
	Handler
	RegisterAdminRoutes(*gin.RouterGroup)
}

// StaffHandler is a handler with extra routes for any staff member.
type StaffHandler interface {
	Handler
	RegisterStaffRoutes(*gin.RouterGroup)
}

// VerifyHandler mounts the public verification endpoint behind extra
// middleware.
type VerifyHandler interface {
	RegisterRoutes(*gin.RouterGroup, ...gin.HandlerFunc)
}

type MetricsHandler interface {
	Middleware() gin.HandlerFunc
	Handler() gin.HandlerFunc
}

type Handlers struct {
	Auth        Handler
	Health      Handler
	Account     StaffHandler
	Patient     AdminHandler
	Examination Handler
	Catalog     Handler
	Report      Handler
	Verify      VerifyHandler
	Metrics     MetricsHandler
}

type RouterConfig struct {
	AllowOrigins []string
	MaxBodyBytes int64
	VerifyLimit  *middleware.RateLimiter
	Mode         string
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	config   RouterConfig
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(config.AllowOrigins),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
	)
	if handlers.Metrics != nil {
		engine.Use(handlers.Metrics.Middleware())
	}
	if config.MaxBodyBytes > 0 {
		engine.Use(middleware.SizeLimit(config.MaxBodyBytes))
	}

	return &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		config:   config,
	}
}

func (r *Router) Setup() {
	if r.handlers.Metrics != nil {
		r.engine.GET("/metrics", r.handlers.Metrics.Handler())
	}

	api := r.engine.Group("/api/v1")
	r.setupPublicRoutes(api)

	admin := api.Group("")
	admin.Use(
		r.auth.Authenticate(),
		r.auth.RequireRole(model.RoleAdmin),
		middleware.NoStore(),
	)
	r.setupAdminRoutes(admin)

	staff := api.Group("")
	staff.Use(
		r.auth.Authenticate(),
		r.auth.RequireRole(model.RoleEmployee, model.RoleAdmin),
		middleware.NoStore(),
	)
	r.setupStaffRoutes(staff)
}

func (r *Router) setupPublicRoutes(rg *gin.RouterGroup) {
	r.handlers.Health.RegisterRoutes(rg)
	r.handlers.Auth.RegisterRoutes(rg)

	var limits []gin.HandlerFunc
	if r.config.VerifyLimit != nil {
		limits = append(limits, r.config.VerifyLimit.RateLimit())
	}
	r.handlers.Verify.RegisterRoutes(rg, limits...)
}

func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	r.handlers.Account.RegisterRoutes(rg)
	r.handlers.Report.RegisterRoutes(rg)
	r.handlers.Patient.RegisterAdminRoutes(rg)
}

func (r *Router) setupStaffRoutes(rg *gin.RouterGroup) {
	r.handlers.Account.RegisterStaffRoutes(rg)
	r.handlers.Patient.RegisterRoutes(rg)
	r.handlers.Examination.RegisterRoutes(rg)
	r.handlers.Catalog.RegisterRoutes(rg)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
