package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounthub/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler, limit gin.HandlerFunc) {
	users := api.Group("/users")
	{
		users.POST("/register", limit, handler.Register)
		users.GET("/verify", limit, handler.Verify)
		users.POST("/:id/verification", limit, handler.SendVerification)
		users.PUT("/:id/photo", handler.SetPhoto)
		users.GET("/:id/photo", handler.Photo)
		users.POST("/:id/ips", handler.SaveIP)
		users.GET("/:id/ips", handler.ListIPs)
	}
}
