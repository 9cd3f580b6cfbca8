package handlers

import (
	"github.com/SscSPs/banking_ledger/cmd/docs"
	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/middleware"
	"github.com/SscSPs/banking_ledger/internal/platform/config"
	"github.com/SscSPs/banking_ledger/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

// RouteDeps are the optional collaborators of the HTTP surface.
type RouteDeps struct {
	Limiter *limiter.Limiter
	Posthog *utils.PosthogClientWrapper
	Health  HealthCheck
}

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	deps RouteDeps,
) {
	r.Use(middleware.PrometheusMiddleware())
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", IdempotencyKeyHeader, middleware.RequestIDHeader)
		corsCfg.ExposeHeaders = []string{middleware.RequestIDHeader}
		r.Use(cors.New(corsCfg))
	}

	r.GET("/health", getHealth(deps.Health))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterSettlementRoutes(r, services.Settlement, cfg.SettlementWebhookSecret)

	setupAPIV1Routes(r, cfg, services, deps)

	// Swagger routes (typically public or conditionally available)
	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	deps RouteDeps,
) {
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	if deps.Posthog.IsInitialized() {
		v1.Use(middleware.PosthogMiddleware(deps.Posthog))
	}

	var mutating []gin.HandlerFunc
	if deps.Limiter != nil {
		mutating = append(mutating, middleware.RateLimit(deps.Limiter))
	}

	RegisterTransferRoutes(v1, services.Transfer, mutating...)
	RegisterLoanRoutes(v1, services.Loan, mutating...)
	RegisterAccountRoutes(v1, services.Account, mutating...)

	admin := v1.Group("/admin", middleware.RequireAdmin())
	RegisterAdminLoanRoutes(admin, services.Loan)
	RegisterAdminAccountRoutes(admin, services.Account)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// chain returns mws followed by h without aliasing mws.
func chain(mws []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mws)+1)
	out = append(out, mws...)
	return append(out, h)
}
