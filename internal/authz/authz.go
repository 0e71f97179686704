// Package authz is the authorization gate.  Every mutating operation names
// the capability it needs and calls Authorize with the caller's Principal
// before touching the store.
package authz

import (
	"context"
	"errors"

	"github.com/iliyamo/tour-booking/internal/model"
)

var (
	// ErrUnauthenticated means no principal was supplied.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrBlocked means the account has been blocked by an administrator.
	ErrBlocked = errors.New("account is blocked")
	// ErrForbidden means the principal's tier does not grant the capability.
	ErrForbidden = errors.New("forbidden")
)

// Capability is an operation class guarded by the gate.
type Capability int

const (
	CapManageProfile Capability = iota + 1
	CapBook
	CapFavorite
	CapRate
	CapAuthorTours
	CapWithdraw
	CapModerateBookings
	CapAdministrate
)

func (c Capability) String() string {
	switch c {
	case CapManageProfile:
		return "manage_profile"
	case CapBook:
		return "book"
	case CapFavorite:
		return "favorite"
	case CapRate:
		return "rate"
	case CapAuthorTours:
		return "author_tours"
	case CapWithdraw:
		return "withdraw"
	case CapModerateBookings:
		return "moderate_bookings"
	case CapAdministrate:
		return "administrate"
	}
	return "unknown"
}

// Principal is the authenticated caller as loaded from the users table for
// the current request.
type Principal struct {
	UserID      uint64
	Username    string
	Status      model.UserStatus
	IsAdmin     bool
	IsSuperuser bool
	IsBlocked   bool
}

// FromUser builds a principal from a user row.
func FromUser(u *model.User) *Principal {
	return &Principal{
		UserID:      u.ID,
		Username:    u.Username,
		Status:      u.Status,
		IsAdmin:     u.IsAdmin,
		IsSuperuser: u.IsSuperuser,
		IsBlocked:   u.IsBlocked,
	}
}

// PlatformAdmin reports whether p holds platform-level privileges.
func (p *Principal) PlatformAdmin() bool { return p != nil && (p.IsAdmin || p.IsSuperuser) }

// Authorize returns nil when p may exercise c.
func Authorize(p *Principal, c Capability) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if p.IsBlocked {
		return ErrBlocked
	}
	switch c {
	case CapManageProfile, CapBook, CapFavorite, CapRate:
		return nil
	case CapAuthorTours, CapWithdraw, CapModerateBookings:
		if p.Status.Elevated() {
			return nil
		}
	case CapAdministrate:
		if p.PlatformAdmin() {
			return nil
		}
	}
	return ErrForbidden
}

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal attached by WithPrincipal, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKey{}).(*Principal)
	return p
}
