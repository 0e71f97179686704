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

func TestAdminRequiresPlatformFlag(t *testing.T) {
	e := newEnv()
	manager := e.user(t, "manager@example.com", model.StatusAdministrator)
	if _, err := e.admin.ListUsers(context.Background(), manager); !errors.Is(err, authz.ErrForbidden) {
		t.Fatalf("status-4 user: got %v", err)
	}
}

func TestAdminUserModeration(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	admin := e.adminUser(t)
	target := e.user(t, "target@example.com", model.StatusPlain)

	blocked, err := e.admin.ToggleUserBlocked(ctx, admin, target.UserID)
	if err != nil || !blocked {
		t.Fatalf("block = %v, %v", blocked, err)
	}
	blocked, err = e.admin.ToggleUserBlocked(ctx, admin, target.UserID)
	if err != nil || blocked {
		t.Fatalf("unblock = %v, %v", blocked, err)
	}

	if err := e.admin.DeleteUser(ctx, admin, target.UserID); err != nil {
		t.Fatal(err)
	}
	if err := e.admin.DeleteUser(ctx, admin, target.UserID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("second delete: got %v", err)
	}
	users, err := e.admin.ListUsers(ctx, admin)
	if err != nil || len(users) != 1 {
		t.Fatalf("users = %v, %v", users, err)
	}
}

func TestStatisticsAndTourDeletion(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	admin := e.adminUser(t)
	author := e.user(t, "author@example.com", model.StatusTourAuthor)
	user := e.user(t, "user@example.com", model.StatusPlain)
	tr := e.tour(t, author, "trip", true, date("summer", "2026-07-01"))
	e.tour(t, author, "other", true)
	if _, err := e.bookings.Create(ctx, user, service.BookingInput{Tour: tr.ID, DateTour: tr.Dates[0].ID, Participants: 1}); err != nil {
		t.Fatal(err)
	}

	st, err := e.admin.Statistics(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalUsers != 3 || st.TotalTours != 2 || st.TotalBookings != 1 {
		t.Fatalf("statistics = %+v", st)
	}

	if err := e.admin.DeleteTour(ctx, admin, tr.ID); err != nil {
		t.Fatal(err)
	}
	st, _ = e.admin.Statistics(ctx, admin)
	if st.TotalTours != 1 || st.TotalBookings != 0 {
		t.Fatalf("after delete = %+v", st)
	}
}

func TestBannerManagement(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	admin := e.adminUser(t)

	_, err := e.admin.CreateBanner(ctx, admin, service.BannerInput{Title: "Summer"}, nil)
	fieldError(t, err, "image")

	b, err := e.admin.CreateBanner(ctx, admin, service.BannerInput{Title: "Summer"},
		&service.Upload{Name: "b.jpg", Size: 3, Body: strings.NewReader("img")})
	if err != nil {
		t.Fatal(err)
	}
	if !b.IsActive || !strings.HasPrefix(b.Image, "banners/") {
		t.Fatalf("banner = %+v", b)
	}

	off := false
	if _, err := e.admin.UpdateBanner(ctx, admin, b.ID, service.BannerPatchInput{IsActive: &off}, nil); err != nil {
		t.Fatal(err)
	}
	active, _ := e.catalog.Banners(ctx)
	if len(active) != 0 {
		t.Fatalf("inactive banner listed: %+v", active)
	}
	if _, err := e.catalog.Banner(ctx, b.ID); err != nil {
		t.Fatalf("inactive banner detail: %v", err)
	}

	if err := e.admin.DeleteBanner(ctx, admin, b.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.catalog.Banner(ctx, b.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("deleted banner: got %v", err)
	}
}

func TestCategorySlugStableAcrossUpdates(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	admin := e.adminUser(t)

	c, err := e.admin.CreateCategory(ctx, admin, service.CategoryInput{Title: "Горные Туры"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Slug == nil || *c.Slug == "" {
		t.Fatal("slug not derived")
	}
	slug := *c.Slug

	title := "Морские туры"
	updated, err := e.admin.UpdateCategory(ctx, admin, c.ID, service.CategoryPatchInput{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Slug == nil || *updated.Slug != slug {
		t.Fatalf("slug changed from %q to %v", slug, updated.Slug)
	}

	_, err = e.admin.CreateCategory(ctx, admin, service.CategoryInput{Title: "Горные Туры"})
	fieldError(t, err, "slug")

	if _, err := e.admin.UpdateCategory(ctx, admin, 999, service.CategoryPatchInput{Title: &title}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("unknown category: got %v", err)
	}
}
