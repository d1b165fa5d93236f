package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/gym-manager/internal/auth"
	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/observability"
	"alcyxob/gym-manager/internal/service"
)

// Constants for context keys
const (
	ContextUserIDKey    = "userID"
	ContextUserRoleKey  = "userRole"
	ContextRequestIDKey = "requestID"
)

const requestIDHeader = "X-Request-ID"

// AuthMiddleware accepts the session cookie or an "Authorization: Bearer" header.
func AuthMiddleware(tokens *auth.TokenManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerOrCookie(c, cookieName)
		if tokenString == "" {
			abortWithError(c, http.StatusUnauthorized, "authentication required")
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "token has expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, "invalid token")
			}
			return
		}
		userID, err := claims.UserObjectID()
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "invalid token subject")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextUserRoleKey, claims.Role)
		c.Next()
	}
}

func bearerOrCookie(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

// RequireRoles lets the request through only for the listed roles.
// Must run AFTER AuthMiddleware.
func RequireRoles(allowed ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, role := range allowed {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, "access denied for role "+string(actor.Role))
	}
}

// actorFromContext reads the identity AuthMiddleware stored.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	idRaw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return service.Actor{}, false
	}
	userID, ok := idRaw.(primitive.ObjectID)
	if !ok {
		return service.Actor{}, false
	}
	roleRaw, ok := c.Get(ContextUserRoleKey)
	if !ok {
		return service.Actor{}, false
	}
	role, ok := roleRaw.(domain.Role)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, Role: role}, true
}

// mustActor is used behind AuthMiddleware, where a missing identity is a wiring bug.
func mustActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "authentication required")
	}
	return actor, ok
}

// RequestLogger logs one line per request and tags it with a request id.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()

		fields := logrus.Fields{
			"requestId": requestID,
			"method":    c.Request.Method,
			"route":     routeLabel(c),
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
			"clientIp":  c.ClientIP(),
		}
		if actor, ok := actorFromContext(c); ok {
			fields["userId"] = actor.UserID.Hex()
		}
		entry := log.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request completed")
		case status >= 400:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

// Metrics records request counts and latency by route template.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.IncInFlight()
		defer m.DecInFlight()

		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, routeLabel(c), strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// routeLabel keeps label cardinality bounded: unmatched paths share one label.
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// CORS allows the configured origins; "*" allows any origin.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			_, ok := allowed[origin]
			if allowAll || ok {
				// Credentials (the auth cookie) require echoing the origin instead of "*".
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Credentials", "true")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, "+requestIDHeader)
				c.Header("Vary", "Origin")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
