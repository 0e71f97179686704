package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/service"
)

// AuthoringHandler serves the elevated-user area under /profile/tours: own
// tours, shared images and booking decisions.
type AuthoringHandler struct {
	Authoring *service.Authoring
	Bookings  *service.Bookings
	Media     Media
}

func NewAuthoringHandler(a *service.Authoring, b *service.Bookings, m Media) *AuthoringHandler {
	return &AuthoringHandler{Authoring: a, Bookings: b, Media: m}
}

func (h *AuthoringHandler) ListTours(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	tours, err := h.Authoring.MyTours(ctx, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tourViews(h.Media, tours))
}

func (h *AuthoringHandler) CreateTour(c echo.Context) error {
	var in service.TourInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	t, err := h.Authoring.CreateTour(ctx, principal(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, tourView(h.Media, *t))
}

// EditTour patches one of the caller's tours; tours of other authors
// answer 404.
func (h *AuthoringHandler) EditTour(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	var in service.TourPatchInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	t, err := h.Authoring.EditTour(ctx, principal(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tourView(h.Media, *t))
}

// UploadImage stores the multipart "image" file as a shared tour image.
func (h *AuthoringHandler) UploadImage(c echo.Context) error {
	up, release, err := formUpload(c, "image")
	if err != nil {
		return invalidBody(c)
	}
	defer release()

	ctx, cancel := requestContext(c)
	defer cancel()
	img, err := h.Authoring.UploadImage(ctx, principal(c), up)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, imageView(h.Media, *img))
}

// ListBookings returns the bookings made on the caller's tours; platform
// administrators see all of them.
func (h *AuthoringHandler) ListBookings(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	bs, err := h.Bookings.ForMyTours(ctx, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, bookingViews(bs))
}

func (h *AuthoringHandler) SetBookingStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	var in service.StatusInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Bookings.SetStatus(ctx, principal(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, bookingView(*b))
}
