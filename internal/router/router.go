// Package router registers the HTTP routes of the API.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/booktable/internal/handler"
	"github.com/iliyamo/booktable/internal/middleware"
	"github.com/iliyamo/booktable/internal/model"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth        *handler.AuthHandler
	Restaurants *handler.RestaurantHandler
	Bookings    *handler.BookingHandler
	Reviews     *handler.ReviewHandler
	Health      echo.HandlerFunc
}

// CORS lets the browser frontends at origins call the API with
// credentials.
func CORS(origins []string) echo.MiddlewareFunc {
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept,
			echo.HeaderAuthorization, echo.HeaderXRequestID,
		},
		AllowCredentials: true,
		MaxAge:           600,
	})
}

// RegisterRoutes registers operational routes: /healthz and /metrics.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the authentication routes.  Register, login,
// refresh and logout live under /auth; /me requires a bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	e.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterRestaurants registers the restaurant, booking and review routes.
// Public reads go through the response cache; every authenticated write
// purges it on success.
func RegisterRestaurants(e *echo.Echo, h Handlers, cache *middleware.ResponseCache, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)
	customer := middleware.RequireRole(model.RoleCustomer)
	manager := middleware.RequireRole(model.RoleRestaurantManager)
	cached := cache.Cache()
	purge := cache.Invalidate()

	// Public.
	e.GET("/restaurants/search", h.Restaurants.Search, cached)
	e.GET("/restaurants/availability", h.Bookings.Availability)
	e.GET("/restaurants/:id", h.Restaurants.Get, cached)
	e.GET("/restaurants/:id/reviews", h.Reviews.List, cached)
	e.GET("/restaurants/:id/bookings/today", h.Bookings.TodayCount)

	// Any authenticated user.
	e.GET("/restaurants/my-reservations", h.Bookings.MyReservations, auth)
	e.POST("/restaurants/api/send-confirmation-email", h.Bookings.SendConfirmation, auth)

	// Customers.
	e.POST("/restaurants/:id/book", h.Bookings.Book, auth, customer, purge)
	e.DELETE("/restaurants/cancel/:reservation_id", h.Bookings.Cancel, auth, customer, purge)
	e.POST("/restaurants/:id/reviews", h.Reviews.Add, auth, customer, purge)

	// Restaurant managers.
	e.POST("/restaurants/add", h.Restaurants.Add, auth, manager, purge)
	e.POST("/restaurants/:id/tables", h.Restaurants.AddTable, auth, manager, purge)
}

// Register wires every route group.
func Register(e *echo.Echo, h Handlers, cache *middleware.ResponseCache, jwtSecret string) {
	RegisterRoutes(e, h.Health)
	RegisterAuth(e, h.Auth, jwtSecret)
	RegisterRestaurants(e, h, cache, jwtSecret)
}
