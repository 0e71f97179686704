package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/tour-booking/internal/model"
)

// linkSpec describes one tour many-to-many table.
type linkSpec struct {
	table    string // link table
	column   string // referenced id column in the link table
	refTable string // table the ids must exist in
	field    string // request field reported on unknown ids
}

var (
	categoryLinks = linkSpec{"tour_categories", "category_id", "categories", "category_ids"}
	regionLinks   = linkSpec{"tour_regions", "region_id", "regions", "region_ids"}
	dateLinks     = linkSpec{"tour_dates", "date_tour_id", "date_tours", "date_ids"}
	imageLinks    = linkSpec{"tour_image_links", "image_id", "tour_images", "image_ids"}
)

// addLinks verifies that every id exists and links it to tourID.
func addLinks(ctx context.Context, q querier, l linkSpec, tourID uint64, ids []uint64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	var n int
	if err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+l.refTable+" WHERE id IN ("+placeholders(len(ids))+")",
		idArgs(ids)...).Scan(&n); err != nil {
		return err
	}
	if n != len(ids) {
		return &ReferenceError{Field: l.field}
	}

	values := make([]string, len(ids))
	args := make([]any, 0, 2*len(ids))
	for i, id := range ids {
		values[i] = "(?,?)"
		args = append(args, tourID, id)
	}
	_, err := q.ExecContext(ctx,
		"INSERT IGNORE INTO "+l.table+" (tour_id, "+l.column+") VALUES "+strings.Join(values, ","),
		args...)
	return err
}

// replaceLinks makes ids the complete link set of tourID.
func replaceLinks(ctx context.Context, q querier, l linkSpec, tourID uint64, ids []uint64) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM "+l.table+" WHERE tour_id = ?", tourID); err != nil {
		return err
	}
	return addLinks(ctx, q, l, tourID, ids)
}

// loadRelations fills categories, regions, dates and images of tours with
// one query per relation and per maxInIDs tours.
func loadRelations(ctx context.Context, q querier, tours []model.Tour) error {
	if len(tours) == 0 {
		return nil
	}
	index := make(map[uint64]*model.Tour, len(tours))
	ids := make([]uint64, len(tours))
	for i := range tours {
		t := &tours[i]
		t.Categories = []model.Category{}
		t.Regions = []model.RegionTour{}
		t.Dates = []model.DateTour{}
		t.Images = []model.TourImage{}
		index[t.ID] = t
		ids[i] = t.ID
	}
	for _, chunk := range chunkIDs(ids, maxInIDs) {
		if err := loadRelationChunk(ctx, q, index, chunk); err != nil {
			return err
		}
	}
	return nil
}

func loadRelationChunk(ctx context.Context, q querier, index map[uint64]*model.Tour, ids []uint64) error {
	in := "(" + placeholders(len(ids)) + ")"
	args := idArgs(ids)

	if err := eachRow(ctx, q, `SELECT tc.tour_id, c.id, c.title, c.description, c.slug
		FROM tour_categories tc JOIN categories c ON c.id = tc.category_id
		WHERE tc.tour_id IN `+in+` ORDER BY c.id`, args, func(s rowScanner) error {
		var (
			tourID uint64
			c      model.Category
		)
		if err := s.Scan(&tourID, &c.ID, &c.Title, &c.Description, &c.Slug); err != nil {
			return err
		}
		index[tourID].Categories = append(index[tourID].Categories, c)
		return nil
	}); err != nil {
		return err
	}

	if err := eachRow(ctx, q, `SELECT tr.tour_id, r.id, r.title, r.description, r.image, r.slug
		FROM tour_regions tr JOIN regions r ON r.id = tr.region_id
		WHERE tr.tour_id IN `+in+` ORDER BY r.id`, args, func(s rowScanner) error {
		var (
			tourID uint64
			r      model.RegionTour
		)
		if err := s.Scan(&tourID, &r.ID, &r.Title, &r.Description, &r.Image, &r.Slug); err != nil {
			return err
		}
		index[tourID].Regions = append(index[tourID].Regions, r)
		return nil
	}); err != nil {
		return err
	}

	if err := eachRow(ctx, q, `SELECT td.tour_id, d.id, d.start_date, d.end_date, d.tour_type, d.season
		FROM tour_dates td JOIN date_tours d ON d.id = td.date_tour_id
		WHERE td.tour_id IN `+in+` ORDER BY d.start_date, d.id`, args, func(s rowScanner) error {
		var (
			tourID uint64
			d      model.DateTour
		)
		if err := s.Scan(&tourID, &d.ID, &d.StartDate, &d.EndDate, &d.TourType, &d.Season); err != nil {
			return err
		}
		index[tourID].Dates = append(index[tourID].Dates, d)
		return nil
	}); err != nil {
		return err
	}

	return eachRow(ctx, q, `SELECT ti.tour_id, i.id, i.image, i.created_at
		FROM tour_image_links ti JOIN tour_images i ON i.id = ti.image_id
		WHERE ti.tour_id IN `+in+` ORDER BY i.id`, args, func(s rowScanner) error {
		var (
			tourID uint64
			img    model.TourImage
		)
		if err := s.Scan(&tourID, &img.ID, &img.Image, &img.CreatedAt); err != nil {
			return err
		}
		index[tourID].Images = append(index[tourID].Images, img)
		return nil
	})
}

// eachRow runs query and calls fn for every row.
func eachRow(ctx context.Context, q querier, query string, args []any, fn func(rowScanner) error) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
