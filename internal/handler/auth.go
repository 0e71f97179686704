package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/service"
)

// AuthHandler serves registration and the token session endpoints.
type AuthHandler struct {
	Accounts *service.Accounts
	Media    Media
}

func NewAuthHandler(a *service.Accounts, m Media) *AuthHandler {
	return &AuthHandler{Accounts: a, Media: m}
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type authResp struct {
	User    UserView  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func (h *AuthHandler) session(c echo.Context, status int, u *model.User, pair service.TokenPair) error {
	return c.JSON(status, authResp{
		User:    userView(h.Media, u),
		Access:  tokenPart{Token: pair.Access.Token, Expires: pair.Access.Exp},
		Refresh: tokenPart{Token: pair.Refresh.Raw, Expires: pair.Refresh.Exp}, // raw back to client
	})
}

// Register creates a plain account and returns it without tokens.
func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Accounts.Register(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, userView(h.Media, u))
}

// Login verifies the credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var in service.LoginInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, pair, err := h.Accounts.Login(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	return h.session(c, http.StatusOK, u, pair)
}

// Refresh rotates the refresh token: the presented one stops working.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, pair, err := h.Accounts.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return h.session(c, http.StatusOK, u, pair)
}

// Logout revokes the refresh token in the body.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Accounts.Logout(ctx, req.RefreshToken); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
