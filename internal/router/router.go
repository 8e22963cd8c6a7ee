package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"epcsync/internal/handler"
	"epcsync/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Documents *handler.DocumentHandler
	Jobs      *handler.JobHandler
	Records   *handler.RecordHandler
	Health    *handler.HealthHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(h Handlers, corsOrigins []string) *gin.Engine {
	r := gin.New()
	// Job identities may be URL-encoded paths (docs%2Fa.pdf).
	r.UseRawPath = true
	r.UnescapePathValues = true

	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	v1.POST("/documents", h.Documents.Upload)

	jobs := v1.Group("/jobs")
	jobs.GET("", h.Jobs.List)
	jobs.GET("/:identity", h.Jobs.Get)
	jobs.POST("/:identity/approve", h.Jobs.Approve)
	jobs.POST("/:identity/discard", h.Jobs.Discard)
	jobs.POST("/:identity/cancel", h.Jobs.Cancel)

	v1.DELETE("/history", h.Jobs.ClearHistory)

	v1.GET("/records", h.Records.List)
	v1.DELETE("/records", h.Records.Clear)

	return r
}
