package routes

import (
	"github.com/digibiomics/LungSense-main/controllers"
	"github.com/digibiomics/LungSense-main/lifecycle"
	"github.com/digibiomics/LungSense-main/models"
	"github.com/digibiomics/LungSense-main/shared/security"
	"github.com/gin-gonic/gin"
)

const ServiceName = "lungsense-auth"

type Deps struct {
	Service *lifecycle.Service
	// Queue is nil when background jobs are disabled.
	Queue controllers.JobQueue
}

func Register(r gin.IRouter, deps Deps) {
	auth := &controllers.AuthController{Service: deps.Service}
	users := &controllers.UsersController{Service: deps.Service}
	predictions := &controllers.PredictionsController{Queue: deps.Queue}

	// Health check endpoint
	r.GET("/health", controllers.HealthCheck(ServiceName, deps.Service))

	// Public endpoints
	r.POST("/patients/signup", auth.SignupPatient)
	r.POST("/practitioners/signup", auth.SignupPractitioner)
	r.POST("/patients/login", auth.Login(models.RolePatient))
	r.POST("/practitioners/login", auth.Login(models.RolePractitioner))
	r.POST("/token", auth.Token)

	// Protected endpoints (all authenticated users)
	protected := r.Group("")
	protected.Use(security.AuthMiddleware(deps.Service))
	{
		protected.GET("/me", auth.Me)
		protected.POST("/me/password", auth.ChangePassword)

		protected.GET("/users", users.List)
		protected.GET("/users/:id", users.Get)
		protected.PATCH("/users/:id", users.Update)
		protected.DELETE("/users/:id", users.SoftDelete)
		protected.DELETE("/users/:id/hard", users.HardDelete)
		protected.POST("/users/:id/restore", users.Restore)

		protected.GET("/profiles", users.ListProfiles)

		protected.POST("/predictions", predictions.Enqueue)
		protected.GET("/predictions/:id", predictions.Get)
	}
}
