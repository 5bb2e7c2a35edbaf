package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Context keys set by the middleware in this package
const (
	ContextTenantID  = "tenant_id"
	ContextRequestID = "request_id"
	ContextPrincipal = "principal"
)

// SetupCORS configures CORS middleware for the storefront and admin origins
func SetupCORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", "X-Tenant-ID", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}

	for _, origin := range allowedOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = allowedOrigins
	cfg.AllowCredentials = true
	return cors.New(cfg)
}

// Logger logs every request through logrus with the request id attached
func Logger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"requestId": c.GetString(ContextRequestID),
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"clientIP":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Info("Request rejected")
		default:
			entry.Debug("Request served")
		}
	}
}

// Recovery returns a middleware that recovers from panics
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"requestId": c.GetString(ContextRequestID),
			"panic":     fmt.Sprint(recovered),
		}).Error("Panic recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "INTERNAL_ERROR",
			"message": "An unexpected error occurred",
		})
	})
}

// RequestID adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set(ContextRequestID, requestID)
		c.Next()
	}
}

// RequireTenantID middleware requires tenant ID for all requests
// SECURITY: This must be used in production to enforce multi-tenant isolation
func RequireTenantID() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader("X-Tenant-ID")
		if tenantID == "" {
			// Try Istio JWT claim header (used by admin BFF)
			tenantID = c.GetHeader("x-jwt-claim-tenant-id")
		}
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "MISSING_TENANT_ID",
				"message": "X-Tenant-ID header is required for multi-tenant isolation",
			})
			return
		}
		c.Set(ContextTenantID, tenantID)
		c.Next()
	}
}

// Principal is the authenticated caller of a storefront request
type Principal struct {
	CustomerID string
	Role       string
	TenantID   string
}

// CustomerClaims are the claims carried by storefront tokens
type CustomerClaims struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	TenantID   string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// CustomerAuth verifies an HS256 bearer token and stores the Principal in the
// gin context. A token issued for another tenant is rejected. Without a
// secret every request is refused.
func CustomerAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if len(key) == 0 {
			unauthorized(c, "Authentication is not configured")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		claims := &CustomerClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "Invalid or expired token")
			return
		}

		customerID := claims.CustomerID
		if customerID == "" {
			customerID = claims.Subject
		}
		if customerID == "" {
			unauthorized(c, "Customer ID not found in token")
			return
		}

		tenantID := c.GetString(ContextTenantID)
		if claims.TenantID != "" {
			if tenantID != "" && tenantID != claims.TenantID {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error":   "TENANT_MISMATCH",
					"message": "Token was not issued for this tenant",
				})
				return
			}
			tenantID = claims.TenantID
			c.Set(ContextTenantID, tenantID)
		}

		role := claims.Role
		if role == "" {
			role = "customer"
		}
		c.Set(ContextPrincipal, Principal{CustomerID: customerID, Role: role, TenantID: tenantID})
		c.Next()
	}
}

// GetPrincipal returns the caller set by CustomerAuth
func GetPrincipal(c *gin.Context) (Principal, bool) {
	value, exists := c.Get(ContextPrincipal)
	if !exists {
		return Principal{}, false
	}
	p, ok := value.(Principal)
	return p, ok
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "UNAUTHORIZED",
		"message": message,
	})
}
