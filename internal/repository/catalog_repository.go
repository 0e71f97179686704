package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/tour-booking/internal/model"
)

// CatalogRepo covers the reference tables: banners, categories, regions and
// shared tour images.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// ---------- banners ----------

const bannerColumns = "id, title, image, is_active, created_at"

func scanBanner(row rowScanner) (*model.Banner, error) {
	var b model.Banner
	if err := row.Scan(&b.ID, &b.Title, &b.Image, &b.IsActive, &b.CreatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *CatalogRepo) CreateBanner(ctx context.Context, b *model.Banner) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO banners (title, image, is_active) VALUES (?,?,?)",
		b.Title, b.Image, b.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetBanner(ctx, uint64(id))
	if err != nil {
		return err
	}
	*b = *stored
	return nil
}

func (r *CatalogRepo) GetBanner(ctx context.Context, id uint64) (*model.Banner, error) {
	b, err := scanBanner(r.db.QueryRowContext(ctx, "SELECT "+bannerColumns+" FROM banners WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListActiveBanners returns the banners shown on the carousel, newest first.
func (r *CatalogRepo) ListActiveBanners(ctx context.Context) ([]model.Banner, error) {
	out := []model.Banner{}
	err := eachRow(ctx, r.db, "SELECT "+bannerColumns+" FROM banners WHERE is_active = 1 ORDER BY created_at DESC, id DESC",
		nil, func(s rowScanner) error {
			b, err := scanBanner(s)
			if err != nil {
				return err
			}
			out = append(out, *b)
			return nil
		})
	return out, err
}

// UpdateBanner applies the non-nil fields of p and returns the stored row.
func (r *CatalogRepo) UpdateBanner(ctx context.Context, id uint64, p model.BannerPatch) (*model.Banner, error) {
	var (
		sets []string
		args []any
	)
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Image != nil {
		sets = append(sets, "image = ?")
		args = append(args, *p.Image)
	}
	if p.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *p.IsActive)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := r.db.ExecContext(ctx, "UPDATE banners SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return nil, err
		}
	}
	return r.GetBanner(ctx, id)
}

func (r *CatalogRepo) DeleteBanner(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM banners WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------- categories ----------

func (r *CatalogRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	out := []model.Category{}
	err := eachRow(ctx, r.db, "SELECT id, title, description, slug FROM categories ORDER BY id", nil,
		func(s rowScanner) error {
			var c model.Category
			if err := s.Scan(&c.ID, &c.Title, &c.Description, &c.Slug); err != nil {
				return err
			}
			out = append(out, c)
			return nil
		})
	return out, err
}

func (r *CatalogRepo) GetCategory(ctx context.Context, id uint64) (*model.Category, error) {
	var c model.Category
	err := r.db.QueryRowContext(ctx, "SELECT id, title, description, slug FROM categories WHERE id = ?", id).
		Scan(&c.ID, &c.Title, &c.Description, &c.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCategory derives the slug when missing.  A clashing slug is
// ErrConflict.
func (r *CatalogRepo) CreateCategory(ctx context.Context, c *model.Category) error {
	c.EnsureSlug()
	res, err := r.db.ExecContext(ctx, "INSERT INTO categories (title, description, slug) VALUES (?,?,?)",
		c.Title, c.Description, c.Slug)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// SaveCategory writes every column of c.  The slug is only derived when
// empty, so re-saving with the same title keeps it.
func (r *CatalogRepo) SaveCategory(ctx context.Context, c *model.Category) error {
	c.EnsureSlug()
	res, err := r.db.ExecContext(ctx, "UPDATE categories SET title = ?, description = ?, slug = ? WHERE id = ?",
		c.Title, c.Description, c.Slug, c.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetCategory(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// ---------- regions ----------

const regionColumns = "id, title, description, image, slug"

func scanRegion(row rowScanner) (*model.RegionTour, error) {
	var rg model.RegionTour
	if err := row.Scan(&rg.ID, &rg.Title, &rg.Description, &rg.Image, &rg.Slug); err != nil {
		return nil, err
	}
	return &rg, nil
}

func (r *CatalogRepo) ListRegions(ctx context.Context) ([]model.RegionTour, error) {
	out := []model.RegionTour{}
	err := eachRow(ctx, r.db, "SELECT "+regionColumns+" FROM regions ORDER BY id", nil, func(s rowScanner) error {
		rg, err := scanRegion(s)
		if err != nil {
			return err
		}
		out = append(out, *rg)
		return nil
	})
	return out, err
}

func (r *CatalogRepo) GetRegion(ctx context.Context, id uint64) (*model.RegionTour, error) {
	rg, err := scanRegion(r.db.QueryRowContext(ctx, "SELECT "+regionColumns+" FROM regions WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rg, err
}

func (r *CatalogRepo) CreateRegion(ctx context.Context, rg *model.RegionTour) error {
	rg.EnsureSlug()
	res, err := r.db.ExecContext(ctx, "INSERT INTO regions (title, description, image, slug) VALUES (?,?,?,?)",
		rg.Title, rg.Description, rg.Image, rg.Slug)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rg.ID = uint64(id)
	return nil
}

// ---------- tour images ----------

func (r *CatalogRepo) CreateImage(ctx context.Context, img *model.TourImage) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO tour_images (image) VALUES (?)", img.Image)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	return r.db.QueryRowContext(ctx, "SELECT id, image, created_at FROM tour_images WHERE id = ?", id).
		Scan(&img.ID, &img.Image, &img.CreatedAt)
}
