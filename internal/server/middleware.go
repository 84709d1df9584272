package server

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/USA-RedDragon/walletkit-bridge/internal/config"
	"github.com/USA-RedDragon/walletkit-bridge/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func applyMiddleware(r *gin.Engine, config *config.Config, otelComponent string, services *Services) {
	r.Use(gin.Recovery())

	r.TrustedPlatform = "X-Real-IP"

	// CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "authorization")
	corsConfig.AllowCredentials = true
	corsConfig.AllowWildcard = true
	if len(config.HTTP.CORSHosts) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowOrigins = config.HTTP.CORSHosts
	r.Use(cors.New(corsConfig))

	err := r.SetTrustedProxies(config.HTTP.TrustedProxies)
	if err != nil {
		slog.Error("Failed to set trusted proxies", "error", err.Error())
	}

	r.Use(servicesMiddleware(services))
	r.Use(configMiddleware(config))

	if config.HTTP.Tracing.Enabled {
		r.Use(otelgin.Middleware(otelComponent))
		r.Use(tracingProvider(config))
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		WithSpanID:        config.HTTP.Tracing.Enabled,
		WithTraceID:       config.HTTP.Tracing.Enabled,
		DefaultLevel:      slog.LevelInfo,
		ClientErrorLevel:  slog.LevelWarn,
		ServerErrorLevel:  slog.LevelError,
		WithRequestHeader: false,
	}))
}

func configMiddleware(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("config", config)
		c.Next()
	}
}

func tracingProvider(config *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.HTTP.Tracing.OTLPEndpoint != "" {
			ctx := c.Request.Context()
			span := trace.SpanFromContext(ctx)
			if span.IsRecording() {
				span.SetAttributes(
					attribute.String("http.method", c.Request.Method),
					attribute.String("http.path", c.Request.URL.Path),
				)
			}
		}
		c.Next()
	}
}

func servicesMiddleware(services *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("session", services.Session)
		c.Set("registry", services.Sessions)
		if services.Engine != nil {
			c.Set("remote", services.Engine)
		}
		c.Next()
	}
}

// requireAuth accepts "Authorization: JWT <token>", a Bearer token, or an
// access_token query parameter for websocket clients that cannot set headers.
func requireAuth(config *config.Config, scope utils.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if c.Query("access_token") != "" {
				authHeader = "JWT " + c.Query("access_token")
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
		}

		var jwtString string
		switch {
		case strings.HasPrefix(authHeader, "JWT "):
			jwtString = strings.TrimPrefix(authHeader, "JWT ")
		case strings.HasPrefix(authHeader, "Bearer "):
			jwtString = strings.TrimPrefix(authHeader, "Bearer ")
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := utils.VerifyJWT(config.JWT.Secret, jwtString)
		if err != nil {
			slog.Warn("Failed to verify JWT", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !claims.Allows(scope) {
			slog.Warn("JWT scope not allowed", "subject", claims.Subject, "scope", claims.Scope, "required", scope)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}
