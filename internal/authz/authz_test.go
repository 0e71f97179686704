package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/tour-booking/internal/model"
)

func TestAuthorizeTiers(t *testing.T) {
	plain := &Principal{UserID: 1, Status: model.StatusPlain}
	author := &Principal{UserID: 2, Status: model.StatusTourAuthor}
	admin := &Principal{UserID: 3, Status: model.StatusPlain, IsAdmin: true}
	super := &Principal{UserID: 4, Status: model.StatusPlain, IsSuperuser: true}
	blocked := &Principal{UserID: 5, Status: model.StatusManager, IsAdmin: true, IsBlocked: true}

	cases := []struct {
		name string
		p    *Principal
		cap  Capability
		want error
	}{
		{"anonymous booking", nil, CapBook, ErrUnauthenticated},
		{"plain books", plain, CapBook, nil},
		{"plain favorites", plain, CapFavorite, nil},
		{"plain cannot author", plain, CapAuthorTours, ErrForbidden},
		{"plain cannot withdraw", plain, CapWithdraw, ErrForbidden},
		{"author authors", author, CapAuthorTours, nil},
		{"author withdraws", author, CapWithdraw, nil},
		{"author not admin", author, CapAdministrate, ErrForbidden},
		{"admin flag administrates", admin, CapAdministrate, nil},
		{"admin status plain cannot author", admin, CapAuthorTours, ErrForbidden},
		{"superuser administrates", super, CapAdministrate, nil},
		{"blocked suppressed", blocked, CapManageProfile, ErrBlocked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Authorize(tc.p, tc.cap); !errors.Is(got, tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestElevatedStatuses(t *testing.T) {
	for s := model.StatusPlain; s <= model.StatusTourAuthor; s++ {
		p := &Principal{Status: s}
		err := Authorize(p, CapAuthorTours)
		if s == model.StatusPlain && err == nil {
			t.Fatalf("status %s must not author tours", s)
		}
		if s != model.StatusPlain && err != nil {
			t.Fatalf("status %s should author tours: %v", s, err)
		}
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatal("empty context must yield nil principal")
	}
	p := &Principal{UserID: 9}
	if got := FromContext(WithPrincipal(context.Background(), p)); got != p {
		t.Fatalf("got %+v", got)
	}
}
