package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/tour-booking/internal/authz"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/service"
	"github.com/iliyamo/tour-booking/internal/service/servicetest"
)

type env struct {
	store  *servicetest.Store
	events *servicetest.Events
	assets *servicetest.Assets

	accounts  *service.Accounts
	catalog   *service.Catalog
	bookings  *service.Bookings
	authoring *service.Authoring
	favorites *service.Favorites
	admin     *service.Admin
}

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newEnv() *env {
	st := servicetest.New()
	ev := &servicetest.Events{}
	as := &servicetest.Assets{}
	return &env{
		store:  st,
		events: ev,
		assets: as,
		accounts: &service.Accounts{
			Users: st.Users, Tokens: st.Tokens, Assets: as,
			JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7,
			BcryptCost: bcrypt.MinCost,
		},
		catalog:   &service.Catalog{Tours: st.Tours, Ratings: st.Ratings, Feedbacks: st.Feedbacks, Items: st.Catalog},
		bookings:  &service.Bookings{Bookings: st.Bookings, Tours: st.Tours, Events: ev, Now: func() time.Time { return fixedNow }},
		authoring: &service.Authoring{Tours: st.Tours, Ratings: st.Ratings, Items: st.Catalog, Assets: as},
		favorites: &service.Favorites{Favorites: st.Favorites, Tours: st.Tours},
		admin: &service.Admin{
			Users: st.Users, Tours: st.Tours, Bookings: st.Bookings,
			Feedbacks: st.Feedbacks, Items: st.Catalog, Assets: as,
		},
	}
}

// user stores an account and returns its principal.
func (e *env) user(t *testing.T, email string, status model.UserStatus) *authz.Principal {
	t.Helper()
	u := &model.User{Email: email, Username: email, Status: status, PasswordHash: "x"}
	if err := e.store.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return authz.FromUser(u)
}

func (e *env) adminUser(t *testing.T) *authz.Principal {
	t.Helper()
	p := e.user(t, "root@example.com", model.StatusPlain)
	p.IsAdmin = true
	return p
}

func date(season, start string) service.DateInput {
	return service.DateInput{StartDate: start, EndDate: start, TourType: "group", Season: season}
}

// tour creates a tour through the authoring service.
func (e *env) tour(t *testing.T, author *authz.Principal, title string, published bool, dates ...service.DateInput) *model.RatedTour {
	t.Helper()
	rt, err := e.authoring.CreateTour(context.Background(), author, service.TourInput{
		Title:            title,
		Description:      title + " description",
		Route:            "A - B",
		Duration:         3,
		Price:            100,
		ParticipantPrice: 40,
		MaxParticipants:  5,
		IsPublished:      published,
		Dates:            dates,
	})
	if err != nil {
		t.Fatalf("create tour %q: %v", title, err)
	}
	return rt
}

func fieldError(t *testing.T, err error, field string) string {
	t.Helper()
	var verr *model.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *model.ValidationError, got %T (%v)", err, err)
	}
	msg, ok := verr.Fields[field]
	if !ok {
		t.Fatalf("no error for %q in %v", field, verr.Fields)
	}
	return msg
}

func titles(tours []model.RatedTour) []string {
	out := make([]string, len(tours))
	for i, t := range tours {
		out[i] = t.Title
	}
	return out
}
