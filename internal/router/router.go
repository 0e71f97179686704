// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/authz"
	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/middleware"
)

// Handlers bundles every handler the API serves.
type Handlers struct {
	Auth      *handler.AuthHandler
	Catalog   *handler.CatalogHandler
	Profile   *handler.ProfileHandler
	Authoring *handler.AuthoringHandler
	Admin     *handler.AdminHandler
}

// Register wires all routes onto e.  Authenticated routes verify the access
// token with jwtSecret and load the caller through users.
func Register(e *echo.Echo, h Handlers, jwtSecret string, users middleware.UserLoader) {
	authed := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.LoadPrincipal(users)}

	RegisterRoutes(e)
	RegisterAuth(e, h.Auth)
	RegisterPublic(e, h.Catalog, authed)
	RegisterProfile(e, h.Profile, h.Authoring, authed)
	RegisterAdmin(e, h.Admin, authed)
}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session endpoints.  None of them need an
// access token; logout takes the refresh token in the body.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	e.POST("/register", a.Register)
	e.POST("/login", a.Login)
	e.POST("/token/refresh", a.Refresh)
	e.POST("/logout", a.Logout)
}

// RegisterPublic registers the anonymous catalog.  Rating a tour is the
// one authenticated route under /tours.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler, authed []echo.MiddlewareFunc) {
	e.GET("/banners", p.ListBanners)
	e.GET("/banners/:id", p.GetBanner)
	e.GET("/categories", p.ListCategories)
	e.GET("/regions", p.ListRegions)
	e.GET("/regions/:id", p.GetRegion)

	e.GET("/tours", p.TopTours)
	e.GET("/tours/season", p.ToursBySeason)
	e.GET("/tours/search", p.SearchTours)
	e.GET("/tours/:id", p.GetTour)
	e.POST("/tours/:id/ratings", p.RateTour, authed...)

	e.GET("/feedbacks", p.ListFeedbacks)
	e.POST("/feedbacks", p.CreateFeedback)
}

// RegisterProfile registers the caller's own area.  The /profile/tours
// subtree additionally requires an elevated status.
func RegisterProfile(e *echo.Echo, h *handler.ProfileHandler, a *handler.AuthoringHandler, authed []echo.MiddlewareFunc) {
	g := e.Group("/profile", authed...)
	g.GET("", h.GetProfile)
	g.PATCH("", h.UpdateProfile)
	g.GET("/bookings", h.ListBookings)
	g.POST("/bookings", h.CreateBooking)
	g.DELETE("/bookings/:id", h.CancelBooking)
	g.GET("/favorites", h.ListFavorites)
	g.POST("/favorites/:tour_id", h.AddFavorite)
	g.DELETE("/favorites/:tour_id", h.RemoveFavorite)
	g.POST("/withdraw", h.Withdraw)

	e.DELETE("/bookings/:id", h.CancelBooking, authed...)

	t := g.Group("/tours", middleware.RequireCapability(authz.CapAuthorTours))
	t.GET("", a.ListTours)
	t.POST("/create", a.CreateTour)
	t.PATCH("/:id/edit", a.EditTour)
	t.POST("/images", a.UploadImage)
	t.GET("/bookings", a.ListBookings)
	t.PATCH("/bookings/:id/status", a.SetBookingStatus)
}
