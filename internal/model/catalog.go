package model

import (
	"time"

	"github.com/gosimple/slug"
)

// Category groups tours by theme.  Slug is unique and derived from the title
// when not provided.
type Category struct {
	ID          uint64  // categories.id
	Title       string  // categories.title
	Description string  // categories.description
	Slug        *string // categories.slug (nullable)
}

// EnsureSlug derives the slug from the title unless one is already set.
func (c *Category) EnsureSlug() { c.Slug = ensureSlug(c.Slug, c.Title) }

// RegionTour is a geographic region tours are attached to.
type RegionTour struct {
	ID          uint64  // regions.id
	Title       string  // regions.title
	Description string  // regions.description
	Image       *string // regions.image (nullable)
	Slug        *string // regions.slug (nullable)
}

// EnsureSlug derives the slug from the title unless one is already set.
func (r *RegionTour) EnsureSlug() { r.Slug = ensureSlug(r.Slug, r.Title) }

// Banner is a promotional carousel entry, independent of tours.
type Banner struct {
	ID        uint64    // banners.id
	Title     string    // banners.title
	Image     string    // banners.image
	IsActive  bool      // banners.is_active
	CreatedAt time.Time // banners.created_at
}

// BannerPatch lists the mutable banner columns; nil fields are kept.
type BannerPatch struct {
	Title    *string
	Image    *string
	IsActive *bool
}

// TourImage is a stored image that any number of tours may reference.
type TourImage struct {
	ID        uint64    // tour_images.id
	Image     string    // tour_images.image
	CreatedAt time.Time // tour_images.created_at
}

// ensureSlug keeps an existing non-empty slug and otherwise transliterates
// the title ("Горные Туры" -> "gornye-tury").
func ensureSlug(cur *string, title string) *string {
	if cur != nil && *cur != "" {
		return cur
	}
	s := slug.Make(title)
	if s == "" {
		return nil
	}
	return &s
}
