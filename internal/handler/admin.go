package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/service"
)

// AdminHandler serves /admin and the banner management routes.  All routes
// require a platform administrator.
type AdminHandler struct {
	Admin *service.Admin
	Media Media
}

func NewAdminHandler(a *service.Admin, m Media) *AdminHandler {
	return &AdminHandler{Admin: a, Media: m}
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	users, err := h.Admin.ListUsers(ctx, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]AdminUserView, 0, len(users))
	for i := range users {
		u := &users[i]
		out = append(out, AdminUserView{
			UserView:  userView(h.Media, u),
			IsBlocked: u.IsBlocked,
			IsAdmin:   u.IsAdmin || u.IsSuperuser,
			CreatedAt: u.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) ToggleUserBlocked(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	blocked, err := h.Admin.ToggleUserBlocked(ctx, principal(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_blocked": blocked})
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Admin.DeleteUser(ctx, principal(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) DeleteTour(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Admin.DeleteTour(ctx, principal(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) ToggleTourBlocked(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	blocked, err := h.Admin.ToggleTourBlocked(ctx, principal(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_blocked": blocked})
}

func (h *AdminHandler) Statistics(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	st, err := h.Admin.Statistics(ctx, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total_users":    st.TotalUsers,
		"total_bookings": st.TotalBookings,
		"total_tours":    st.TotalTours,
	})
}

// CreateBanner accepts JSON with an image path or a multipart form with an
// "image" file.
func (h *AdminHandler) CreateBanner(c echo.Context) error {
	var in service.BannerInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	up, release, err := formUpload(c, "image")
	if err != nil {
		return invalidBody(c)
	}
	defer release()

	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Admin.CreateBanner(ctx, principal(c), in, up)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, bannerView(h.Media, *b))
}

func (h *AdminHandler) UpdateBanner(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	var in service.BannerPatchInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	up, release, err := formUpload(c, "image")
	if err != nil {
		return invalidBody(c)
	}
	defer release()

	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Admin.UpdateBanner(ctx, principal(c), id, in, up)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, bannerView(h.Media, *b))
}

func (h *AdminHandler) DeleteBanner(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Admin.DeleteBanner(ctx, principal(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) CreateCategory(c echo.Context) error {
	var in service.CategoryInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	cat, err := h.Admin.CreateCategory(ctx, principal(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, categoryView(*cat))
}

func (h *AdminHandler) UpdateCategory(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	var in service.CategoryPatchInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	cat, err := h.Admin.UpdateCategory(ctx, principal(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, categoryView(*cat))
}

func (h *AdminHandler) CreateRegion(c echo.Context) error {
	var in service.RegionInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	r, err := h.Admin.CreateRegion(ctx, principal(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, regionView(h.Media, *r))
}

// DeleteFeedback removes a comment; comments with replies answer 409.
func (h *AdminHandler) DeleteFeedback(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Admin.DeleteFeedback(ctx, principal(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
