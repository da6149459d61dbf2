// Package httpapi wires the gin routes this service exposes: the
// rate-limited sample endpoint and the admin surface.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jassus213/ratelimiter-service/admin"
	"github.com/jassus213/ratelimiter-service/config"
	"github.com/jassus213/ratelimiter-service/identity"
	"github.com/jassus213/ratelimiter-service/logging"
	"github.com/jassus213/ratelimiter-service/orchestrator"
	"github.com/jassus213/ratelimiter-service/ratelimiter"
	ginlimiter "github.com/jassus213/ratelimiter-service/middleware/gin"
)

// NewRouter builds the gin engine serving this service's endpoints.
// The algorithm for the sample endpoint is selected per request via
// the "algo" query parameter. The admin write endpoints are
// themselves guarded by a plain Fixed Window limit over adminRegistry,
// independent of the limits the sample endpoint enforces.
func NewRouter(orc *orchestrator.Orchestrator, adm *admin.Surface, adminEngine ratelimiter.Engine, adminRegistry *config.Registry, logger logging.Logger) *gin.Engine {
	if logger == nil {
		logger = logging.NoopLogger{}
	}

	r := gin.New()
	r.Use(gin.Recovery())

	adminGuard := ginlimiter.RateLimiter(adminEngine, adminRegistry,
		ginlimiter.WithLogger(logger),
		ginlimiter.WithKeyFunc(func(r *http.Request) string { return "admin:" + identity.Extract(r) }),
	)

	r.GET("/api/image/:width/:height", sampleHandler(orc, logger))
	r.GET("/api/monitor", monitorHandler(adm))
	r.POST("/api/config", adminGuard, updateConfigHandler(adm))
	r.POST("/api/reset", adminGuard, resetHandler(adm))
	r.GET("/api/health", healthHandler(adm))

	return r
}

// sampleHandler stands in for the out-of-scope image producer this
// service fronts: it echoes the requested dimensions once the request
// clears the selected algorithm's admission check.
func sampleHandler(orc *orchestrator.Orchestrator, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identity.Extract(c.Request)
		algo := c.Query("algo")

		result, err := orc.Decide(c.Request.Context(), id, algo)
		if err != nil {
			logger.Errorf("httpapi: orchestrator error for %q: %v", id, err)
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))

		if !result.Allowed {
			retryAfter := int(result.ResetAfter.Seconds())
			if retryAfter <= 0 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"width":  c.Param("width"),
			"height": c.Param("height"),
		})
	}
}

func monitorHandler(adm *admin.Surface) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := adm.Monitor(c.Request.Context())
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

type updateConfigRequest struct {
	Limit         int64 `json:"limit" binding:"required"`
	WindowSeconds int64 `json:"window_seconds" binding:"required"`
}

func updateConfigHandler(adm *admin.Surface) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateConfigRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		window := secondsToDuration(req.WindowSeconds)
		if err := adm.UpdateConfig(c.Request.Context(), req.Limit, window); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"limit": req.Limit, "window_seconds": req.WindowSeconds})
	}
}

func resetHandler(adm *admin.Surface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := adm.Reset(c.Request.Context()); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "reset"})
	}
}

func healthHandler(adm *admin.Surface) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, adm.CheckHealth(c.Request.Context()))
	}
}

func secondsToDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}
