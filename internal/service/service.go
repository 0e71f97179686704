// Package service holds the business operations behind the HTTP API.  Each
// operation authorizes the caller, validates its input before any write and
// then issues one repository call; errors are returned for the handler layer
// to classify.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/queue"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/storage"
)

var (
	// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefresh is returned for unknown, expired or used refresh tokens.
	ErrInvalidRefresh = errors.New("invalid refresh token")
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, id uint64, p model.ProfilePatch) error
	ToggleBlocked(ctx context.Context, id uint64) (bool, error)
	Delete(ctx context.Context, id uint64) error
	Withdraw(ctx context.Context, id uint64, cents int64) (int64, error)
	Count(ctx context.Context) (int64, error)
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ConsumeRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

type TourStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Tour, error)
	GetPublished(ctx context.Context, id uint64) (*model.Tour, error)
	ListPublished(ctx context.Context) ([]model.Tour, error)
	TopRated(ctx context.Context, limit int) ([]model.RatedTour, error)
	ListPublishedBySeason(ctx context.Context, season model.Season) ([]model.Tour, error)
	SearchPublished(ctx context.Context, term string) ([]model.Tour, error)
	ListByAuthor(ctx context.Context, authorID uint64) ([]model.Tour, error)
	Create(ctx context.Context, t *model.Tour, rel model.TourRelations, newDates []model.DateTour) error
	UpdateOwned(ctx context.Context, id, authorID uint64, patch model.TourPatch, rel model.TourRelations, newDates []model.DateTour) (*model.Tour, error)
	ToggleBlocked(ctx context.Context, id uint64) (bool, error)
	Delete(ctx context.Context, id uint64) error
	Count(ctx context.Context) (int64, error)
}

type RatingStore interface {
	Create(ctx context.Context, r *model.Rating) error
	ScoresByTour(ctx context.Context, tourIDs []uint64) (map[uint64][]uint8, error)
}

type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListForAuthor(ctx context.Context, authorID *uint64) ([]model.Booking, error)
	DeleteOwnedReturning(ctx context.Context, id, userID uint64) (*model.Booking, error)
	SetStatus(ctx context.Context, id uint64, scopeAuthor *uint64, to model.BookingStatus) (*model.Booking, error)
	Count(ctx context.Context) (int64, error)
}

type FeedbackStore interface {
	Create(ctx context.Context, f *model.Feedback) error
	ListVisible(ctx context.Context, tourID *uint64) ([]model.Feedback, error)
	DeleteLeaf(ctx context.Context, id uint64) error
}

type FavoriteStore interface {
	Add(ctx context.Context, userID, tourID uint64) (*model.Favorite, error)
	Remove(ctx context.Context, userID, tourID uint64) error
	List(ctx context.Context, userID uint64) ([]model.Favorite, error)
}

type CatalogStore interface {
	CreateBanner(ctx context.Context, b *model.Banner) error
	GetBanner(ctx context.Context, id uint64) (*model.Banner, error)
	ListActiveBanners(ctx context.Context) ([]model.Banner, error)
	UpdateBanner(ctx context.Context, id uint64, p model.BannerPatch) (*model.Banner, error)
	DeleteBanner(ctx context.Context, id uint64) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, id uint64) (*model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	SaveCategory(ctx context.Context, c *model.Category) error
	ListRegions(ctx context.Context) ([]model.RegionTour, error)
	GetRegion(ctx context.Context, id uint64) (*model.RegionTour, error)
	CreateRegion(ctx context.Context, r *model.RegionTour) error
	CreateImage(ctx context.Context, img *model.TourImage) error
}

// EventPublisher delivers booking lifecycle events.  Delivery is best
// effort: a failure never undoes the booking change.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// AssetStore persists uploaded images and returns their relative path.
type AssetStore interface {
	SaveAvatar(ctx context.Context, r io.Reader) (string, error)
	SaveImage(ctx context.Context, folder string, r io.Reader) (string, error)
}

// Upload is a file received from a multipart form.
type Upload struct {
	Name string
	Size int64
	Body io.Reader
}

// saveUpload stores up through assets and reports decode failures as a
// validation error on field.
func saveUpload(ctx context.Context, assets AssetStore, folder, field string, up *Upload) (string, error) {
	var (
		path string
		err  error
	)
	if folder == "avatars" {
		path, err = assets.SaveAvatar(ctx, up.Body)
	} else {
		path, err = assets.SaveImage(ctx, folder, up.Body)
	}
	if errors.Is(err, storage.ErrInvalidImage) {
		return "", model.NewValidationError(field, "Загрузите корректное изображение.")
	}
	if err != nil {
		return "", fmt.Errorf("store %s: %w", field, err)
	}
	return path, nil
}

// referenceToValidation turns unknown relation ids into a field error.
func referenceToValidation(err error) error {
	var ref *repository.ReferenceError
	if errors.As(err, &ref) {
		return model.NewValidationError(ref.Field, "Указан несуществующий объект.")
	}
	return err
}

func optionalString(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func ptr[T any](v T) *T { return &v }

// toCents converts a major-unit amount into minor units.
func toCents(amount float64) int64 {
	if amount < 0 {
		return -toCents(-amount)
	}
	return int64(amount*100 + 0.5)
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, model.NewValidationError(field, "Неверный формат даты, используйте ГГГГ-ММ-ДД.")
	}
	return t, nil
}

// parseDateTime accepts RFC 3339 timestamps and plain dates.
func parseDateTime(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := parseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nowUTC() time.Time { return time.Now().UTC() }
