package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/iliyamo/tour-booking/internal/authz"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/service"
)

func TestCreateTourRequiresElevatedStatus(t *testing.T) {
	e := newEnv()
	plain := e.user(t, "plain@example.com", model.StatusPlain)
	_, err := e.authoring.CreateTour(context.Background(), plain, service.TourInput{Title: "x"})
	if !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("got %v", err)
	}
}

func TestCreateTourValidatesBeforeWriting(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	author := e.user(t, "author@example.com", model.StatusTourAuthor)

	discount := 150.0
	_, err := e.authoring.CreateTour(ctx, author, service.TourInput{
		Title: "t", Description: "d", Route: "r", Duration: 2,
		Price: 100, DiscountPrice: &discount, MaxParticipants: 4,
	})
	fieldError(t, err, "discount_price")

	_, err = e.authoring.CreateTour(ctx, author, service.TourInput{
		Title: "t", Description: "d", Route: "r", Duration: 2, Price: 100, MaxParticipants: 4,
		Dates: []service.DateInput{
			{StartDate: "2026-07-10", EndDate: "2026-07-01", TourType: "group", Season: "summer"},
			{StartDate: "bad", EndDate: "2026-07-01", TourType: "group", Season: "summer"},
		},
	})
	fieldError(t, err, "dates[0].end_date")
	fieldError(t, err, "dates[1].start_date")

	_, err = e.authoring.CreateTour(ctx, author, service.TourInput{
		Title: "t", Description: "d", Route: "r", Duration: 2, Price: 100, MaxParticipants: 4,
		CategoryIDs: []uint64{404},
	})
	fieldError(t, err, "category_ids")

	if n, _ := e.store.Tours.Count(ctx); n != 0 {
		t.Fatalf("tours = %d after failed creates", n)
	}
}

func TestCreateTourLinksRelations(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	author := e.user(t, "author@example.com", model.StatusTourAuthor)
	admin := e.adminUser(t)

	cat, err := e.admin.CreateCategory(ctx, admin, service.CategoryInput{Title: "Горные Туры"})
	if err != nil {
		t.Fatal(err)
	}
	region, err := e.admin.CreateRegion(ctx, admin, service.RegionInput{Title: "Алтай"})
	if err != nil {
		t.Fatal(err)
	}
	shared := e.store.AddDate(model.DateTour{StartDate: fixedNow, EndDate: fixedNow, TourType: model.TourTypeIndividual, Season: model.SeasonSpring})

	rt, err := e.authoring.CreateTour(ctx, author, service.TourInput{
		Title: "Altai", Description: "d", Route: "r", Duration: 2, Price: 100, MaxParticipants: 4,
		IsPublished: true,
		CategoryIDs: []uint64{cat.ID},
		RegionIDs:   []uint64{region.ID},
		DateIDs:     []uint64{shared.ID},
		Dates:       []service.DateInput{date("summer", "2026-07-01")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rt.Categories) != 1 || len(rt.Regions) != 1 || len(rt.Dates) != 2 {
		t.Fatalf("relations not linked: %+v", rt.Tour)
	}
	if rt.AuthorID == nil || *rt.AuthorID != author.UserID || rt.Author != author.Username {
		t.Fatalf("author not recorded: %+v", rt.Tour)
	}
}

func TestEditTourScopedToAuthor(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	author := e.user(t, "author@example.com", model.StatusTourAuthor)
	rival := e.user(t, "rival@example.com", model.StatusConsultant)
	tr := e.tour(t, author, "mine", false, date("summer", "2026-07-01"))

	title := "hijacked"
	if _, err := e.authoring.EditTour(ctx, rival, tr.ID, service.TourPatchInput{Title: &title}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("rival edit: got %v", err)
	}

	title = "  renamed  "
	published := true
	got, err := e.authoring.EditTour(ctx, author, tr.ID, service.TourPatchInput{
		Title:       &title,
		IsPublished: &published,
		Dates:       []service.DateInput{date("winter", "2026-12-01")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "renamed" || !got.IsPublished || len(got.Dates) != 2 {
		t.Fatalf("edit result = %+v", got.Tour)
	}

	got, err = e.authoring.EditTour(ctx, author, tr.ID, service.TourPatchInput{DateIDs: []uint64{}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Dates) != 0 {
		t.Fatalf("empty date_ids should clear dates, got %d", len(got.Dates))
	}

	mine, err := e.authoring.MyTours(ctx, author)
	if err != nil || len(mine) != 1 {
		t.Fatalf("my tours = %v, %v", mine, err)
	}
	theirs, err := e.authoring.MyTours(ctx, rival)
	if err != nil || len(theirs) != 0 {
		t.Fatalf("rival tours = %v, %v", theirs, err)
	}
}

func TestUploadImage(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	author := e.user(t, "author@example.com", model.StatusTourAuthor)

	_, err := e.authoring.UploadImage(ctx, author, nil)
	fieldError(t, err, "image")

	_, err = e.authoring.UploadImage(ctx, author, &service.Upload{Size: service.MaxImageBytes + 1, Body: strings.NewReader("x")})
	fieldError(t, err, "image")

	img, err := e.authoring.UploadImage(ctx, author, &service.Upload{Name: "p.jpg", Size: 3, Body: strings.NewReader("img")})
	if err != nil {
		t.Fatal(err)
	}
	if img.ID == 0 || !strings.HasPrefix(img.Image, "tours/") {
		t.Fatalf("image = %+v", img)
	}
}
