package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/authz"
	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/middleware"
)

// RegisterAdmin registers platform moderation under /admin together with
// the banner write routes, which share the public /banners prefix.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, authed []echo.MiddlewareFunc) {
	admin := append(append([]echo.MiddlewareFunc{}, authed...), middleware.RequireCapability(authz.CapAdministrate))

	e.PATCH("/banners/:id", h.UpdateBanner, admin...)
	e.DELETE("/banners/:id", h.DeleteBanner, admin...)

	g := e.Group("/admin", admin...)
	g.GET("/users", h.ListUsers)
	g.PATCH("/users/:id/block", h.ToggleUserBlocked)
	g.DELETE("/users/:id/delete", h.DeleteUser)
	g.PATCH("/tours/:id/block", h.ToggleTourBlocked)
	g.DELETE("/tours/:id/delete", h.DeleteTour)
	g.GET("/statistics", h.Statistics)

	g.POST("/banners", h.CreateBanner)
	g.POST("/categories", h.CreateCategory)
	g.PATCH("/categories/:id", h.UpdateCategory)
	g.POST("/regions", h.CreateRegion)
	g.DELETE("/feedbacks/:id", h.DeleteFeedback)
}
