package model

import (
	"strings"
	"testing"
	"time"
)

func TestCategorySlugDerivedOnceFromTitle(t *testing.T) {
	c := Category{Title: "Горные Туры"}
	c.EnsureSlug()
	if c.Slug == nil || *c.Slug == "" {
		t.Fatal("expected a non-empty slug")
	}
	for _, r := range *c.Slug {
		if r > 127 {
			t.Fatalf("slug %q is not transliterated", *c.Slug)
		}
	}

	again := Category{Title: "Горные Туры"}
	again.EnsureSlug()
	if *again.Slug != *c.Slug {
		t.Fatalf("slug not deterministic: %q vs %q", *again.Slug, *c.Slug)
	}

	first := *c.Slug
	c.EnsureSlug()
	if *c.Slug != first {
		t.Fatalf("re-save changed slug from %q to %q", first, *c.Slug)
	}

	c.Title = "Морские туры"
	c.EnsureSlug()
	if *c.Slug != first {
		t.Fatalf("existing slug must be preserved, got %q", *c.Slug)
	}
}

func TestRegionSlugKeepsExplicitValue(t *testing.T) {
	s := "altai"
	r := RegionTour{Title: "Алтай", Slug: &s}
	r.EnsureSlug()
	if *r.Slug != "altai" {
		t.Fatalf("got %q", *r.Slug)
	}
}

func TestDateTourValidate(t *testing.T) {
	start := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	ok := DateTour{StartDate: start, EndDate: start, TourType: TourTypeGroup, Season: SeasonSummer}
	if err := ok.Validate(); err != nil {
		t.Fatalf("same-day tour should be valid: %v", err)
	}

	bad := ok
	bad.EndDate = start.AddDate(0, 0, -1)
	err := bad.Validate()
	verr, isVerr := err.(*ValidationError)
	if !isVerr {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if _, has := verr.Fields["end_date"]; !has {
		t.Fatalf("expected end_date message, got %v", verr.Fields)
	}

	unknown := ok
	unknown.Season = "monsoon"
	unknown.TourType = "cruise"
	verr = unknown.Validate().(*ValidationError)
	if len(verr.Fields) != 2 {
		t.Fatalf("expected season and tour_type errors, got %v", verr.Fields)
	}
}

func TestAverageRating(t *testing.T) {
	if got := AverageRating(nil); got != nil {
		t.Fatalf("no ratings must yield nil, got %v", *got)
	}
	a := AverageRating([]uint8{5, 4, 3, 1})
	b := AverageRating([]uint8{1, 3, 4, 5})
	if a == nil || b == nil {
		t.Fatal("expected averages")
	}
	if *a != 3.25 || *b != 3.25 {
		t.Fatalf("expected 3.25, got %v and %v", *a, *b)
	}
}

func TestBookingTransitions(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		want     bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingRejected, true},
		{BookingPending, BookingPending, false},
		{BookingConfirmed, BookingRejected, false},
		{BookingRejected, BookingConfirmed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTourTotalCentsUsesDiscountWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	discount := int64(8000)
	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)
	tour := Tour{PriceCents: 10000, ParticipantPriceCents: 2500, DiscountPriceCents: &discount, DiscountStart: &from, DiscountEnd: &to}

	if got := tour.TotalCents(3, now); got != 8000+2*2500 {
		t.Fatalf("inside window: got %d", got)
	}
	if got := tour.TotalCents(1, now.Add(2*time.Hour)); got != 10000 {
		t.Fatalf("after window: got %d", got)
	}
	if got := tour.TotalCents(0, now); got != 0 {
		t.Fatalf("zero participants: got %d", got)
	}
}

func TestBuildFeedbackForest(t *testing.T) {
	p := func(id uint64) *uint64 { return &id }
	rows := []Feedback{
		{ID: 1, Comment: "root a"},
		{ID: 2, Comment: "root b"},
		{ID: 3, Comment: "a.1", ParentID: p(1)},
		{ID: 4, Comment: "a.1.1", ParentID: p(3)},
		{ID: 5, Comment: "a.2", ParentID: p(1)},
	}
	roots := BuildFeedbackForest(rows)
	if len(roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(roots))
	}
	a := roots[0]
	if len(a.Children) != 2 || a.Children[0].ID != 3 || a.Children[1].ID != 5 {
		t.Fatalf("unexpected children of root a: %+v", a.Children)
	}
	if len(a.Children[0].Children) != 1 || a.Children[0].Children[0].ID != 4 {
		t.Fatal("grandchild not attached")
	}
	if roots[1].Children == nil || len(roots[1].Children) != 0 {
		t.Fatal("leaf children must be an empty slice")
	}
}

func TestRankByRatingPutsNullsLastAndKeepsOrder(t *testing.T) {
	four, two := 4.0, 2.0
	tours := []RatedTour{
		{Tour: Tour{Title: "a"}},
		{Tour: Tour{Title: "b"}, AverageRating: &two},
		{Tour: Tour{Title: "c"}},
		{Tour: Tour{Title: "d"}, AverageRating: &four},
		{Tour: Tour{Title: "e"}, AverageRating: &two},
	}
	RankByRating(tours)
	got := make([]string, len(tours))
	for i, tr := range tours {
		got[i] = tr.Title
	}
	if strings.Join(got, "") != "dbeac" {
		t.Fatalf("order = %v", got)
	}
}
