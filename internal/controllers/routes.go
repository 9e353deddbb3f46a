package controllers

import (
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/auth"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/entitlement"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/middleware"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/services"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/webhook"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	OAuth        *auth.OAuthService
	Users        services.UserService
	Clients      services.ClientService
	Applications services.ApplicationService
	Issuer       *entitlement.Issuer
	Ledger       *entitlement.Ledger
	Webhook      *webhook.Verifier
	// TokenLimiter throttles the token and revocation endpoints; nil disables it.
	TokenLimiter *middleware.IPRateLimiter
}

// RegisterRoutes mounts the OAuth2, resource and webhook endpoints on router.
func RegisterRoutes(router gin.IRouter, deps Dependencies) {
	tokens := deps.OAuth.Tokens()

	oauthController := NewOAuthController(deps.OAuth, deps.Users)
	clientController := NewClientController(deps.Clients)
	profileController := NewProfileController()
	applicationController := NewApplicationController(deps.Applications)
	entitlementController := NewEntitlementController(deps.Issuer)
	webhookController := NewWebhookController(deps.Webhook, deps.Ledger)

	// Authorization server
	oauth := router.Group("/oauth")
	{
		oauth.GET("/authorize", oauthController.Authorize)
		oauth.POST("/authorize", oauthController.ConfirmAuthorization)

		tokenEndpoints := oauth.Group("")
		if deps.TokenLimiter != nil {
			tokenEndpoints.Use(middleware.RateLimit(deps.TokenLimiter))
		}
		tokenEndpoints.POST("/token", oauthController.Token)
		tokenEndpoints.POST("/revoke", oauthController.Revoke)
	}

	// Resource server
	api := router.Group("/api")
	{
		api.GET("/me", middleware.OAuth2Auth(tokens), middleware.RequireScope("profile"), profileController.Me)

		v1 := api.Group("/v1")
		{
			v1.GET("/applications", applicationController.GetAllApplications)
			v1.GET("/applications/:id", applicationController.GetApplicationByID)

			clients := v1.Group("/clients")
			clients.Use(middleware.OAuth2Auth(tokens), middleware.RequireScope("profile"))
			{
				clients.POST("", clientController.CreateClient)
				clients.GET("", clientController.ListClients)
				clients.DELETE("/:id", clientController.DeleteClient)
			}

			entitlements := v1.Group("/entitlements")
			{
				entitlements.POST("", middleware.OptionalOAuth2Auth(tokens, "profile"), entitlementController.CheckEntitlements)
				entitlements.POST("/trial", entitlementController.IssueTrial)
				entitlements.POST("/verify", entitlementController.VerifyEntitlement)
			}
		}
	}

	// Payment processor callbacks
	router.POST("/webhooks/payments", webhookController.PaymentEvent)
}
