package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint with scheduler utilization
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "transcode-service",
			"scheduler": gin.H{
				"budget": deps.Scheduler.Budget(),
				"active": deps.Scheduler.ActiveCount(),
				"queued": deps.Scheduler.QueuedCount(),
			},
		})
	})

	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Submit a new transcoding job
			jobs.POST("", jobHandler.CreateJob)

			// GET /api/v1/jobs - List jobs with filtering and pagination
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Get job details
			jobs.GET("/:job_id", jobHandler.GetJob)
		}

		// GET /api/v1/events - Stream lifecycle messages as SSE
		v1.GET("/events", jobHandler.StreamEvents)
	}

	return r
}
