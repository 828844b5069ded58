package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/apperr"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/identity"
	"github.com/prudhivi99/Distributed-Systems/marketplace-go/internal/models"
)

// SessionManager is implemented by *identity.Sessions.
type SessionManager interface {
	Issue(ctx context.Context, user models.User) (*models.Session, error)
	Resolve(ctx context.Context, token string) (*models.User, error)
	Revoke(ctx context.Context, token string) error
}

var users identity.Provider = identity.ContextProvider{}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAuth resolves the bearer token and stores the user on the request
// context.
func RequireAuth(sessions SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			respondError(c, apperr.New(apperr.KindUnauthenticated, "missing bearer token"))
			return
		}
		user, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Request = c.Request.WithContext(identity.WithUser(c.Request.Context(), user))
		c.Next()
	}
}

// currentUser is non-nil behind RequireAuth.
func currentUser(c *gin.Context) *models.User {
	return users.CurrentUser(c.Request.Context())
}

// limiterIdle is how long an IP can stay quiet before its limiter is dropped.
// A fresh limiter starts with a full burst, so this must outlast the refill.
const limiterIdle = 10 * time.Minute

type ipLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// LoginLimiter throttles auth attempts per client IP.
type LoginLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewLoginLimiter(perSecond float64, burst int) *LoginLimiter {
	return &LoginLimiter{
		limiters:  make(map[string]*ipLimiter),
		limit:     rate.Limit(perSecond),
		burst:     burst,
		idle:      limiterIdle,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *LoginLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.lim
}

// sweep drops limiters idle for longer than l.idle. Caller holds l.mu.
func (l *LoginLimiter) sweep(now time.Time) {
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idle {
			delete(l.limiters, ip)
		}
	}
	l.lastSweep = now
}

// tracked reports how many client IPs currently hold a limiter.
func (l *LoginLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *LoginLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many attempts, try again later",
				"code":  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request through zap.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("❌ Request failed", fields...)
		default:
			logger.Debug("➡️ Request", fields...)
		}
	}
}
