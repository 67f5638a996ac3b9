package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounthub/internal/handlers"
)

func registerValidationRoutes(api *gin.RouterGroup, handler *handlers.ValidationHandler, limit gin.HandlerFunc) {
	validation := api.Group("/validation", limit)
	{
		validation.POST("/username", handler.Username)
		validation.POST("/email", handler.Email)
		validation.POST("/password", handler.Password)
	}
}
