package router

import (
	"github.com/gamestore/storefront/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Docs returns the group serving the Swagger UI and doc.json under /swagger
func Docs(cfg middleware.SwaggerConfig, adminGuard gin.HandlerFunc) *DomainGroup {
	docs := NewDomainGroup("docs", "/swagger")
	docs.Use(middleware.SwaggerProtection(cfg, adminGuard)).
		GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return docs
}
