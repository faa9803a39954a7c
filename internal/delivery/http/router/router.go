// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"lens/internal/delivery/http/middleware"
	"lens/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	AccountHandler *handler.AccountHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	accountHandler *handler.AccountHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		accountHandler: params.AccountHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/signup", r.authHandler.SignUp)
		authGroup.POST("/confirm", r.authHandler.ConfirmSignUp)
		authGroup.POST("/signin", r.authHandler.SignIn)
		authGroup.POST("/signout", r.authHandler.SignOut)
		authGroup.GET("/session", r.authHandler.GetSession)
	}

	// Federated login round trip. The callback must stay reachable without a
	// session: for a login there is no session yet.
	federatedGroup := e.Group("/auth/federated")
	{
		federatedGroup.GET("/start", r.authHandler.StartFederated)
		federatedGroup.GET("/qr", r.authHandler.FederatedQR)
		federatedGroup.GET("/callback", r.authHandler.FederatedCallback)
	}

	// Account routes that require a signed-in session
	accountGroup := e.Group("/account")
	accountGroup.Use(r.authMiddleware.Authenticate)
	{
		accountGroup.DELETE("/federated/:provider", r.accountHandler.Unlink)
		accountGroup.POST("/password", r.accountHandler.SetPassword)
		accountGroup.Any("/backend/*", r.authHandler.Proxy)
	}
}
