// Package handler exposes the HTTP handlers of the tour-booking API.  The
// handlers bind and shape JSON; every decision is made by the service layer
// and every failure is mapped by respondError.
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/service"
)

// CatalogHandler serves the anonymous read side together with feedback and
// rating submission.
type CatalogHandler struct {
	Catalog *service.Catalog
	Media   Media
}

func NewCatalogHandler(cat *service.Catalog, m Media) *CatalogHandler {
	return &CatalogHandler{Catalog: cat, Media: m}
}

// ListBanners returns the active banners, newest first.
func (h *CatalogHandler) ListBanners(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	banners, err := h.Catalog.Banners(ctx)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]BannerView, 0, len(banners))
	for _, b := range banners {
		out = append(out, bannerView(h.Media, b))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) GetBanner(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.Catalog.Banner(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, bannerView(h.Media, *b))
}

func (h *CatalogHandler) ListCategories(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	cats, err := h.Catalog.Categories(ctx)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]CategoryView, 0, len(cats))
	for _, cat := range cats {
		out = append(out, categoryView(cat))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) ListRegions(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	regions, err := h.Catalog.Regions(ctx)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]RegionView, 0, len(regions))
	for _, r := range regions {
		out = append(out, regionView(h.Media, r))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) GetRegion(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	r, err := h.Catalog.Region(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, regionView(h.Media, *r))
}

// TopTours returns the best-rated visible tours.
func (h *CatalogHandler) TopTours(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	tours, err := h.Catalog.TopTours(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tourViews(h.Media, tours))
}

// ToursBySeason filters by ?season=; without it every visible tour is
// listed.
func (h *CatalogHandler) ToursBySeason(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	tours, err := h.Catalog.ToursBySeason(ctx, c.QueryParam("season"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tourViews(h.Media, tours))
}

// SearchTours matches ?search= against title, description and route.
func (h *CatalogHandler) SearchTours(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	tours, err := h.Catalog.SearchTours(ctx, c.QueryParam("search"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tourViews(h.Media, tours))
}

func (h *CatalogHandler) GetTour(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	t, err := h.Catalog.TourDetail(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tourView(h.Media, *t))
}

// RateTour stores one more score from the caller.
func (h *CatalogHandler) RateTour(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return invalidID(c)
	}
	var in service.RatingInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	r, err := h.Catalog.Rate(ctx, principal(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, RatingView{ID: r.ID, Tour: r.TourID, Score: r.Score})
}

// ListFeedbacks returns the comment forest, optionally for one ?tour=.
func (h *CatalogHandler) ListFeedbacks(c echo.Context) error {
	var tourID *uint64
	if raw := strings.TrimSpace(c.QueryParam("tour")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return respondError(c, model.NewValidationError("tour", "Некорректный идентификатор тура."))
		}
		tourID = &id
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	forest, err := h.Catalog.FeedbackTree(ctx, tourID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, feedbackForest(forest))
}

// CreateFeedback accepts anonymous comments and replies.
func (h *CatalogHandler) CreateFeedback(c echo.Context) error {
	var in service.FeedbackInput
	if err := c.Bind(&in); err != nil {
		return invalidBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	f, err := h.Catalog.AddFeedback(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, feedbackView(*f))
}
