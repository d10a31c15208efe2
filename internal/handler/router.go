package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quartzcap/dataroom/internal/middleware"
)

type RouterDeps struct {
	Shares *ShareHandler
	Links  *LinkHandler
	Ndas   *NdaHandler
	Access *AccessHandler

	JWTSecret       []byte
	RateLimit       int
	RateLimitWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	// Public, token-addressed surface. The limiter sits upstream of the
	// validator and keys on the token itself.
	public := api.Group("/shared")
	public.Use(
		middleware.RateLimitByToken(deps.RateLimit, deps.RateLimitWindow),
		middleware.OptionalJWT(deps.JWTSecret),
	)
	public.GET("/:token", deps.Shares.Get)
	public.POST("/:token", deps.Shares.RequestAccess)
	public.POST("/:token/nda", deps.Shares.SignNda)

	// Grant redemption by the document-serving layer.
	api.GET("/access/:grantId", deps.Access.Redeem)

	// Staff surface.
	staff := api.Group("")
	staff.Use(middleware.JWTAuth(deps.JWTSecret))
	staff.POST("/rooms/:roomId/links", deps.Links.Create)
	staff.GET("/rooms/:roomId/links", deps.Links.ListByRoom)
	staff.POST("/links/:id/revoke", deps.Links.Revoke)
	staff.POST("/links/:id/extend", deps.Links.Extend)
	staff.GET("/links/:id/stats", deps.Links.Stats)
	staff.GET("/links/:id/logs", deps.Links.Logs)
	staff.GET("/rooms/:roomId/nda/template", deps.Ndas.GetActiveTemplate)
	staff.POST("/rooms/:roomId/nda/template", deps.Ndas.CreateTemplate)
	staff.GET("/rooms/:roomId/nda/signatures", deps.Ndas.ListSignatures)
}
