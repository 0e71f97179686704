package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/service"
)

// ProfileHandler serves the authenticated caller's own resources: profile,
// bookings, favorites and withdrawals.
type ProfileHandler struct {
	Accounts  *service.Accounts
	Bookings  *service.Bookings
	Favorites *service.Favorites
	Media     Media
}

func NewProfileHandler(a *service.Accounts, b *service.Bookings, f *service.Favorites, m Media) *ProfileHandler {
	return &ProfileHandler{Accounts: a, Bookings: b, Favorites: f, Media: m}
}

func (h *ProfileHandler) profile(u *model.User) ProfileView {
	return ProfileView{UserView: userView(h.Media, u), Balance: money(u.BalanceCents)}
}

func (h *ProfileHandler) GetProfile(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Accounts.Profile(ctx, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, h.profile(u))
}

// UpdateProfile accepts JSON or a multipart form; the form may carry a new
// avatar in the "avatar" field.
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	var in service.ProfileInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	avatar, release, err := formUpload(c, "avatar")
	if err != nil {
		return invalidBody(c)
	}
	defer release()

	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.Accounts.UpdateProfile(ctx, principal(c), in, avatar)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, h.profile(u))
}

func (h *ProfileHandler) ListBookings(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	bs, err := h.Bookings.Mine(ctx, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, bookingViews(bs))
}

// CreateBooking books a date of a tour; the booking starts pending.
func (h *ProfileHandler) CreateBooking(c echo.Context) error {
	var in service.BookingInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Bookings.Create(ctx, principal(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, bookingView(*b))
}

// CancelBooking deletes one of the caller's bookings.  Bookings of other
// users answer 404.
func (h *ProfileHandler) CancelBooking(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Bookings.Cancel(ctx, principal(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ProfileHandler) ListFavorites(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	favs, err := h.Favorites.List(ctx, principal(c))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]FavoriteView, 0, len(favs))
	for _, f := range favs {
		out = append(out, favoriteView(f))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProfileHandler) AddFavorite(c echo.Context) error {
	id, ok := pathID(c, "tour_id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	f, err := h.Favorites.Add(ctx, principal(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, favoriteView(*f))
}

func (h *ProfileHandler) RemoveFavorite(c echo.Context) error {
	id, ok := pathID(c, "tour_id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Favorites.Remove(ctx, principal(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Withdraw takes money out of the caller's balance and reports what is
// left.
func (h *ProfileHandler) Withdraw(c echo.Context) error {
	var in service.WithdrawInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	left, err := h.Accounts.Withdraw(ctx, principal(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": money(left)})
}
